package utils

import "testing"

func TestParseAmountToCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.50", 1250, false},
		{"S/ 12.50", 1250, false},
		{"$1,234.56", 123456, false},
		{"0", 0, false},
		{"  99 ", 9900, false},
		{"10.005", 1001, false}, // rounded half-up
		{"", 0, true},
		{"abc", 0, true},
		{"-5.00", 0, true},
	}
	for _, c := range cases {
		got, err := ParseAmountToCents(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseAmountToCents(%q): expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmountToCents(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseAmountToCents(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	if got := FormatCents(1250); got != "12.50" {
		t.Errorf("FormatCents(1250) = %q, want %q", got, "12.50")
	}
	if got := FormatCents(0); got != "0.00" {
		t.Errorf("FormatCents(0) = %q, want %q", got, "0.00")
	}
	if got := FormatCents(100001); got != "1000.01" {
		t.Errorf("FormatCents(100001) = %q, want %q", got, "1000.01")
	}
}

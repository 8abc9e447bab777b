package security

import "testing"

func TestValidatePinFormat(t *testing.T) {
	cases := []struct {
		pin     string
		wantErr bool
	}{
		{"123456", false},
		{"000000", false},
		{"12345", true},
		{"1234567", true},
		{"12345a", true},
		{"12 456", true},
		{"", true},
		{"12345½", true}, // multibyte rune keeps byte length 7
	}
	for _, tc := range cases {
		err := ValidatePinFormat(tc.pin)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidatePinFormat(%q) error = %v, wantErr %v", tc.pin, err, tc.wantErr)
		}
	}
}

func TestNewPinSaltShapeAndFreshness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 8; i++ {
		salt, err := NewPinSalt()
		if err != nil {
			t.Fatalf("NewPinSalt: %v", err)
		}
		if len(salt) != 16 {
			t.Fatalf("salt length = %d, want 16", len(salt))
		}
		for _, r := range salt {
			if r < 'a' || r > 'z' {
				t.Fatalf("salt %q contains non-lowercase-letter %q", salt, r)
			}
		}
		seen[salt] = true
	}
	if len(seen) < 2 {
		t.Error("salts are not fresh across generations")
	}
}

func TestHashAndCheckPin(t *testing.T) {
	salt, err := NewPinSalt()
	if err != nil {
		t.Fatalf("NewPinSalt: %v", err)
	}
	hash, err := HashPin("482915", salt)
	if err != nil {
		t.Fatalf("HashPin: %v", err)
	}

	if !CheckPin("482915", salt, hash) {
		t.Error("correct PIN rejected")
	}
	if CheckPin("482916", salt, hash) {
		t.Error("wrong PIN accepted")
	}
	if CheckPin("482915", "aaaaaaaaaaaaaaaa", hash) {
		t.Error("PIN accepted under the wrong salt")
	}
	if CheckPin("482915", salt, "not-a-hash") {
		t.Error("garbage stored hash accepted")
	}
}

func TestRotationInvalidatesOldPin(t *testing.T) {
	salt1, _ := NewPinSalt()
	hash1, err := HashPin("111111", salt1)
	if err != nil {
		t.Fatalf("HashPin: %v", err)
	}

	salt2, _ := NewPinSalt()
	hash2, err := HashPin("222222", salt2)
	if err != nil {
		t.Fatalf("HashPin: %v", err)
	}

	if !CheckPin("111111", salt1, hash1) {
		t.Error("original PIN rejected against its own stored state")
	}
	if !CheckPin("222222", salt2, hash2) {
		t.Error("new PIN rejected after rotation")
	}
	if CheckPin("111111", salt2, hash2) {
		t.Error("old PIN still accepted after rotation")
	}
}

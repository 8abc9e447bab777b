package recurrence

import (
	"testing"
	"time"
)

func ms(year int, month time.Month, day, hour int) int64 {
	return time.Date(year, month, day, hour, 0, 0, 0, time.Local).UnixMilli()
}

func intPtr(v int) *int { return &v }

func TestNextDueAfterAlwaysExceedsFrom(t *testing.T) {
	from := ms(2024, time.January, 20, 10)
	rules := []Rule{
		{NextDueAt: ms(2024, time.January, 15, 0), Frequency: FreqMonthly},
		{NextDueAt: ms(2024, time.January, 15, 0), Frequency: FreqWeekly},
		{NextDueAt: ms(2024, time.January, 15, 0), Frequency: FreqYearly},
		{NextDueAt: ms(2024, time.January, 15, 0), Frequency: FreqCustom, IntervalDays: intPtr(3)},
		{NextDueAt: ms(2024, time.January, 15, 0), Frequency: FreqCustom},        // unset interval -> 30d
		{NextDueAt: ms(2024, time.January, 15, 0), Frequency: "whenever i feel"}, // unknown -> 30d
		{NextDueAt: ms(2030, time.June, 1, 0), Frequency: FreqMonthly},           // already in the future
	}
	for _, r := range rules {
		got := NextDueAfter(r, from)
		if got <= from {
			t.Errorf("NextDueAfter(%+v, %d) = %d, want > from", r, from, got)
		}
	}
}

func TestNextDueAfterStartsFromMaxOfDueAndFrom(t *testing.T) {
	// Due Jan 15, paying on Jan 20: the candidate starts at Jan 20 and
	// advances one month to Feb 20, not Feb 15.
	r := Rule{NextDueAt: ms(2024, time.January, 15, 0), Frequency: FreqMonthly}
	from := ms(2024, time.January, 20, 14)

	got := NextDueAfter(r, from)
	want := ms(2024, time.February, 20, 14)
	if got != want {
		t.Errorf("NextDueAfter = %s, want %s",
			time.UnixMilli(got).Format(time.RFC3339), time.UnixMilli(want).Format(time.RFC3339))
	}
}

func TestNextDueAfterFutureDueDateReturnedUnchanged(t *testing.T) {
	due := ms(2024, time.March, 1, 0)
	r := Rule{NextDueAt: due, Frequency: FreqMonthly}
	got := NextDueAfter(r, ms(2024, time.January, 10, 0))
	if got != due {
		t.Errorf("future due date should be returned as-is, got %d want %d", got, due)
	}
}

func TestNextDueAfterWeekly(t *testing.T) {
	r := Rule{NextDueAt: ms(2024, time.January, 1, 9), Frequency: FreqWeekly}
	from := ms(2024, time.January, 1, 9)
	got := NextDueAfter(r, from)
	want := ms(2024, time.January, 8, 9)
	if got != want {
		t.Errorf("weekly advance = %d, want %d", got, want)
	}
}

func TestNextDueAfterCatchesUpOverMissedPeriods(t *testing.T) {
	// Last due a year ago, weekly cadence: the loop walks forward until
	// it passes from.
	r := Rule{NextDueAt: ms(2023, time.January, 2, 0), Frequency: FreqWeekly}
	from := ms(2024, time.January, 10, 0)
	got := NextDueAfter(r, from)
	if got <= from {
		t.Fatalf("catch-up result %d not after from %d", got, from)
	}
	if got-from > 7*24*time.Hour.Milliseconds() {
		t.Errorf("catch-up overshot by more than one period: %dms", got-from)
	}
}

func TestNextDueAfterMonthEndDoesNotPanic(t *testing.T) {
	// Jan 31 monthly: Go calendar rules normalize the overflow.
	r := Rule{NextDueAt: ms(2024, time.January, 31, 0), Frequency: FreqMonthly}
	from := ms(2024, time.January, 31, 0)
	got := NextDueAfter(r, from)
	if got <= from {
		t.Errorf("month-end advance = %d, want > %d", got, from)
	}
	// One calendar month from Jan 31 lands in early March (Feb overflow).
	max := ms(2024, time.March, 3, 0)
	if got > max {
		t.Errorf("month-end advance %d implausibly far (max %d)", got, max)
	}
}

func TestNextDueAfterZeroIntervalCoercedToFloor(t *testing.T) {
	r := Rule{NextDueAt: ms(2024, time.January, 1, 0), Frequency: FreqCustom, IntervalDays: intPtr(0)}
	from := ms(2024, time.January, 1, 0)

	done := make(chan int64, 1)
	go func() { done <- NextDueAfter(r, from) }()
	select {
	case got := <-done:
		want := ms(2024, time.January, 2, 0)
		if got != want {
			t.Errorf("interval 0 should advance by 1 day, got %d want %d", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("NextDueAfter did not terminate with interval 0")
	}
}

func TestNextDueAfterNegativeIntervalCoercedToFloor(t *testing.T) {
	r := Rule{NextDueAt: ms(2024, time.January, 1, 0), Frequency: FreqCustom, IntervalDays: intPtr(-5)}
	from := ms(2024, time.January, 1, 0)
	got := NextDueAfter(r, from)
	want := ms(2024, time.January, 2, 0)
	if got != want {
		t.Errorf("negative interval should advance by 1 day, got %d want %d", got, want)
	}
}

func TestNextDueAfterIterationBound(t *testing.T) {
	// A 1-day custom cadence 200 days behind can't catch up within the
	// bound; the engine returns the last candidate best-effort instead of
	// spinning.
	from := ms(2024, time.December, 1, 0)
	r := Rule{NextDueAt: from - 200*24*time.Hour.Milliseconds(), Frequency: FreqCustom, IntervalDays: intPtr(1)}
	got := NextDueAfter(r, from)
	want := addDays(r.NextDueAt, maxAdvanceIters)
	if got != want {
		t.Errorf("bounded catch-up = %d, want %d", got, want)
	}
}

func TestNextDueAfterDayNormalizesToMidnight(t *testing.T) {
	r := Rule{NextDueAt: ms(2024, time.January, 15, 0), Frequency: FreqMonthly}
	from := ms(2024, time.January, 20, 17)

	got := NextDueAfterDay(r, from)
	tm := time.UnixMilli(got).Local()
	if tm.Hour() != 0 || tm.Minute() != 0 || tm.Second() != 0 || tm.Nanosecond() != 0 {
		t.Errorf("NextDueAfterDay not normalized: %s", tm.Format(time.RFC3339Nano))
	}
	if tm.Year() != 2024 || tm.Month() != time.February || tm.Day() != 20 {
		t.Errorf("NextDueAfterDay = %s, want 2024-02-20 local midnight", tm.Format(time.RFC3339))
	}
}

func TestStartOfDay(t *testing.T) {
	in := ms(2024, time.July, 4, 23)
	got := time.UnixMilli(StartOfDay(in)).Local()
	if got.Hour() != 0 || got.Day() != 4 || got.Month() != time.July {
		t.Errorf("StartOfDay(%d) = %s", in, got.Format(time.RFC3339))
	}
}

// Package recurrence computes the next occurrence of a recurring obligation.
// All functions are pure over their inputs; timestamps are epoch milliseconds
// and calendar arithmetic uses the local time zone, matching how due dates
// are entered and displayed.
package recurrence

import (
	"strings"
	"time"
)

// Supported cadences. Values are persisted as-is in the subscriptions table.
const (
	FreqMonthly = "MONTHLY"
	FreqWeekly  = "WEEKLY"
	FreqYearly  = "YEARLY"
	FreqCustom  = "CUSTOM"
)

// Defaults applied when a rule carries bad or missing data. The engine never
// fails on malformed input; it degrades to a 30-day cadence instead.
const (
	fallbackIntervalDays = 30
	minIntervalDays      = 1

	// maxAdvanceIters bounds the catch-up loop. A rule whose period cannot
	// move the candidate past `from` (clock skew, pathological input) stops
	// here and the last candidate is returned best-effort.
	maxAdvanceIters = 120
)

// Rule is the recurrence portion of a subscription: the currently scheduled
// due timestamp plus the cadence that advances it. IntervalDays is only
// meaningful for FreqCustom; nil means unset.
type Rule struct {
	NextDueAt    int64
	Frequency    string
	IntervalDays *int
}

// NextDueAfter returns the first occurrence of r strictly after from.
// The candidate starts at max(r.NextDueAt, from) and is advanced one period
// at a time until it passes from, subject to the iteration bound.
func NextDueAfter(r Rule, from int64) int64 {
	next := r.NextDueAt
	if from > next {
		next = from
	}
	freq := strings.ToUpper(strings.TrimSpace(r.Frequency))
	for iters := 0; next <= from && iters < maxAdvanceIters; iters++ {
		switch freq {
		case FreqWeekly:
			next = addDays(next, 7)
		case FreqMonthly:
			next = addMonths(next, 1)
		case FreqYearly:
			next = addYears(next, 1)
		case FreqCustom:
			next = addDays(next, customInterval(r.IntervalDays))
		default:
			next = addDays(next, fallbackIntervalDays)
		}
	}
	return next
}

// NextDueAfterDay is the variant persisted after a payment: the result of
// NextDueAfter normalized to the start of its local calendar day, so repeated
// recurrences do not drift across times of day.
func NextDueAfterDay(r Rule, from int64) int64 {
	return StartOfDay(NextDueAfter(r, from))
}

// StartOfDay truncates a millisecond timestamp to local midnight.
func StartOfDay(ms int64) int64 {
	t := time.UnixMilli(ms).Local()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.UnixMilli()
}

func customInterval(days *int) int {
	if days == nil {
		return fallbackIntervalDays
	}
	if *days < minIntervalDays {
		return minIntervalDays
	}
	return *days
}

func addDays(base int64, days int) int64 {
	return time.UnixMilli(base).Local().AddDate(0, 0, days).UnixMilli()
}

func addMonths(base int64, months int) int64 {
	return time.UnixMilli(base).Local().AddDate(0, months, 0).UnixMilli()
}

func addYears(base int64, years int) int64 {
	return time.UnixMilli(base).Local().AddDate(years, 0, 0).UnixMilli()
}

// Package y2k38 checks Unix timestamps against the signed 32-bit limit.
package y2k38

import (
	"fmt"
	"time"
)

// MaxInt32Seconds is the last second representable as a signed 32-bit
// Unix timestamp: 2038-01-19T03:14:07Z.
const MaxInt32Seconds int64 = 2147483647

// MinInt32Seconds is the earliest: 1901-12-13T20:45:52Z.
const MinInt32Seconds int64 = -2147483648

// Report is the result of a range check.
type Report struct {
	Unsafe bool
	// MarginSeconds is the distance to the limit; negative once past it.
	MarginSeconds int64
	BeforeEpoch   bool
	Explanation   string
}

// Check reports whether unixSeconds overflows a signed 32-bit time_t.
// Timestamps before 1970 are valid and reported as such, not as overflow.
func Check(unixSeconds int64) Report {
	r := Report{MarginSeconds: MaxInt32Seconds - unixSeconds}
	switch {
	case unixSeconds > MaxInt32Seconds:
		r.Unsafe = true
		r.Explanation = fmt.Sprintf("Unix time %d is %d second(s) past 2038-01-19T03:14:07Z and overflows systems that store time in a signed 32-bit integer.",
			unixSeconds, -r.MarginSeconds)
	case unixSeconds < MinInt32Seconds:
		r.Unsafe = true
		r.BeforeEpoch = true
		r.Explanation = fmt.Sprintf("Unix time %d is before the Unix epoch and earlier than 1901-12-13T20:45:52Z, the oldest moment a signed 32-bit integer can hold.", unixSeconds)
	case unixSeconds < 0:
		r.BeforeEpoch = true
		r.Explanation = fmt.Sprintf("Unix time %d is before the Unix epoch (1970-01-01T00:00:00Z). Negative timestamps are valid but some systems reject them.", unixSeconds)
	default:
		r.Explanation = fmt.Sprintf("Safe for 32-bit systems: %s before the 2038 overflow.", humanize(r.MarginSeconds))
	}
	return r
}

// humanize renders a margin in the largest sensible unit.
func humanize(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	const year = 365 * 24 * time.Hour
	switch {
	case d >= year:
		return fmt.Sprintf("about %d year(s)", int64(d/year))
	case d >= 24*time.Hour:
		return fmt.Sprintf("%d day(s)", int64(d/(24*time.Hour)))
	default:
		return fmt.Sprintf("%d second(s)", seconds)
	}
}

// Package timezone is the timezone and DST knowledge base.
//
// It wraps the IANA database embedded in the binary and the curated
// abbreviation table used to rank the meanings of ambiguous zone
// abbreviations such as EST, CST or IST.
package timezone

import (
	"fmt"
	"strings"
	"time"

	// Embed the IANA database so resolution does not depend on the host.
	_ "time/tzdata"
)

// Default location constants
var (
	// UTC is the coordinated universal time timezone
	UTC = time.UTC
)

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Kolkata").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
// Use this for constants that are known to be valid at compile time.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	if tz == "" || tz == "UTC" {
		return true
	}
	// "Local" loads the host zone; never accept it from user input.
	if tz == "Local" {
		return false
	}

	_, err := time.LoadLocation(tz)
	return err == nil
}

// FormatOffset formats an offset in minutes as "+HH:MM".
func FormatOffset(minutes int) string {
	sign := '+'
	if minutes < 0 {
		sign = '-'
		minutes = -minutes
	}
	return fmt.Sprintf("%c%02d:%02d", sign, minutes/60, minutes%60)
}

// OffsetLabel formats an offset in minutes the way people write it, e.g.
// "UTC+10", "UTC-5" or "UTC+5:30".
func OffsetLabel(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("UTC%s%d", sign, minutes/60)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, minutes/60, minutes%60)
}

// FormatOffsetSeconds formats an offset in seconds as "+HH:MM:SS", or as
// "+HH:MM" when it is a whole number of minutes.
func FormatOffsetSeconds(seconds int) string {
	if seconds%60 == 0 {
		return FormatOffset(seconds / 60)
	}
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d:%02d:%02d", sign, seconds/3600, seconds/60%60, seconds%60)
}

// OffsetMinutes returns the UTC offset of t in minutes, rounded to the
// nearest minute.
func OffsetMinutes(t time.Time) int {
	_, off := t.Zone()
	return int((time.Duration(off) * time.Second).Round(time.Minute) / time.Minute)
}

// WholeMinuteOffset returns t in a fixed zone whose offset is t's own offset
// rounded to whole minutes. ok is false, and t is returned unchanged, when
// the offset has no seconds part. Local mean time offsets such as Dublin's
// -00:25:21 cannot be written in ISO 8601 without changing the instant.
func WholeMinuteOffset(t time.Time) (shown time.Time, ok bool) {
	name, off := t.Zone()
	if off%60 == 0 {
		return t, false
	}
	return t.In(time.FixedZone(name, OffsetMinutes(t)*60)), true
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// NormalizeAbbreviation upper-cases an abbreviation and strips dots ("e.s.t." → "EST").
func NormalizeAbbreviation(abbr string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(abbr), ".", ""))
}

// Common timezone constants
const (
	// TimezoneUTC is the UTC timezone identifier
	TimezoneUTC = "UTC"

	// TimezoneAmericaNewYork is the Eastern Time timezone
	TimezoneAmericaNewYork = "America/New_York"

	// TimezoneEuropeLondon is the GMT/BST timezone
	TimezoneEuropeLondon = "Europe/London"

	// TimezonePacificApia is the Samoa timezone
	TimezonePacificApia = "Pacific/Apia"

	// TimezoneAustraliaSydney is the AEST/AEDT timezone
	TimezoneAustraliaSydney = "Australia/Sydney"
)

// Common timezone locations (pre-loaded for performance)
var (
	// LocationAmericaNewYork is the pre-loaded America/New_York location
	LocationAmericaNewYork = MustParseTimezone(TimezoneAmericaNewYork)

	// LocationEuropeLondon is the pre-loaded Europe/London location
	LocationEuropeLondon = MustParseTimezone(TimezoneEuropeLondon)

	// LocationPacificApia is the pre-loaded Pacific/Apia location
	LocationPacificApia = MustParseTimezone(TimezonePacificApia)

	// LocationAustraliaSydney is the pre-loaded Australia/Sydney location
	LocationAustraliaSydney = MustParseTimezone(TimezoneAustraliaSydney)
)

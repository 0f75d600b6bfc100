// Package token splits free text into typed time-reference tokens.
package token

import (
	"fmt"
	"time"
)

// Kind is the type of a token.
type Kind string

const (
	KindISO          Kind = "iso8601"
	KindUnix         Kind = "unix"
	KindZulu         Kind = "zulu"
	KindClock        Kind = "clock"
	KindOffset       Kind = "utc-offset"
	KindIANA         Kind = "iana"
	KindAbbreviation Kind = "abbreviation"
	KindRelative     Kind = "relative"
	KindWeekday      Kind = "weekday"
	KindDate         Kind = "date"
)

// RelativeKind distinguishes relative-date tokens.
type RelativeKind string

const (
	// RelativeDays shifts the reference calendar date ("tomorrow").
	RelativeDays RelativeKind = "days"
	// RelativeDuration shifts the reference instant ("in 3 hours").
	RelativeDuration RelativeKind = "duration"
	// RelativeEndOfDay names the close of business ("EOD", "COB").
	RelativeEndOfDay RelativeKind = "end-of-day"
)

// Token is one recognized span of the input. Start and End are byte offsets.
// Only the fields relevant to Kind are set.
type Token struct {
	Kind  Kind
	Text  string
	Start int
	End   int

	// Clock, Zulu and ISO.
	Hour      int
	Minute    int
	Second    int
	AmPmKnown bool
	Meridiem  string

	// Date, ISO. Year is 0 when the input omitted it.
	Year           int
	Month          int
	Day            int
	SlashAmbiguous bool

	// ISO and Offset.
	HasOffset     bool
	OffsetMinutes int

	// Unix.
	Unix   int64
	Millis bool

	// Abbreviation and IANA.
	Zone  string
	Known bool

	// Relative.
	Relative    RelativeKind
	Days        int
	Amount      int
	Unit        string
	DefaultHour int

	// Weekday.
	Weekday  time.Weekday
	Modifier string
}

// IsZone reports whether the token can qualify a clock time with a zone.
func (t Token) IsZone() bool {
	switch t.Kind {
	case KindAbbreviation, KindOffset, KindIANA:
		return true
	}
	return false
}

// String renders the token for parse traces.
func (t Token) String() string {
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

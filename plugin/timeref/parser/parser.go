// Package parser assembles tokens into a time expression: which clock the
// zone qualifies, which token anchors the date, and what was ignored.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
	"github.com/Drgblack/timemeaning/plugin/timeref/token"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// bindGap is what may separate a clock from the zone that qualifies it.
var bindGap = regexp.MustCompile(`^[\s,(]*$`)

// Clock is a time of day. Hour is on the 24-hour clock when AmPmKnown;
// otherwise it is the hour as written (1-12).
type Clock struct {
	Hour      int
	Minute    int
	Second    int
	AmPmKnown bool
	Meridiem  string
	RawHour   int
	Text      string
}

// ZoneKind is the form a zone qualifier was written in.
type ZoneKind string

const (
	ZoneAbbreviation ZoneKind = "abbreviation"
	ZoneOffset       ZoneKind = "offset"
	ZoneIANA         ZoneKind = "iana"
	ZoneZulu         ZoneKind = "zulu"
)

// Zone is a zone qualifier with its span in the input.
type Zone struct {
	Kind          ZoneKind
	Text          string
	Start         int
	End           int
	Abbreviation  string
	Known         bool
	IANA          string
	OffsetMinutes int
	BoundToClock  bool
}

// key identifies the zone for duplicate detection ("3pm EST (EST)").
func (z Zone) key() string {
	switch z.Kind {
	case ZoneAbbreviation:
		return "abbr:" + z.Abbreviation
	case ZoneIANA:
		return "iana:" + z.IANA
	default:
		return fmt.Sprintf("offset:%d", z.OffsetMinutes)
	}
}

// Date is a calendar date. Year is 0 when omitted.
type Date struct {
	Year           int
	Month          time.Month
	Day            int
	SlashAmbiguous bool
	Text           string
}

// Relative shifts the reference calendar date by whole days.
type Relative struct {
	Days        int
	DefaultHour int
	Text        string
}

// Duration shifts the reference instant.
type Duration struct {
	Amount int
	Unit   string
	Text   string
}

// Apply adds the duration to t.
func (d Duration) Apply(t time.Time) time.Time {
	switch d.Unit {
	case "minute":
		return t.Add(time.Duration(d.Amount) * time.Minute)
	case "hour":
		return t.Add(time.Duration(d.Amount) * time.Hour)
	case "day":
		return t.AddDate(0, 0, d.Amount)
	case "week":
		return t.AddDate(0, 0, 7*d.Amount)
	case "month":
		return t.AddDate(0, d.Amount, 0)
	default:
		return t.AddDate(d.Amount, 0, 0)
	}
}

// IsCalendar reports whether the duration is counted in whole days or more.
func (d Duration) IsCalendar() bool {
	return d.Unit != "minute" && d.Unit != "hour"
}

// Weekday is a named day of the week with an optional modifier.
type Weekday struct {
	Day      time.Weekday
	Modifier string
	Text     string
}

// Unix is a numeric timestamp literal, already in seconds.
type Unix struct {
	Seconds int64
	Millis  bool
	Text    string
}

// ISO is an ISO-8601 / RFC-3339 timestamp literal.
type ISO struct {
	Year          int
	Month         time.Month
	Day           int
	Hour          int
	Minute        int
	Second        int
	HasOffset     bool
	OffsetMinutes int
	Text          string
}

// Expression is the structural reading of the input.
type Expression struct {
	Input       string
	Phrase      string
	PhraseStart int
	PhraseEnd   int

	Clock        *Clock
	Zone         *Zone
	IgnoredZones []Zone
	Date         *Date
	Relative     *Relative
	Duration     *Duration
	Weekday      *Weekday
	EndOfDay     bool
	Unix         *Unix
	ISO          *ISO

	// LowConfidence is set when the input carried conflicting zone qualifiers.
	LowConfidence bool
	// Steps are trace lines describing how the tokens were bound.
	Steps []string
}

// ZoneIndependent reports whether the expression denotes an instant without
// needing any zone.
func (e *Expression) ZoneIndependent() bool {
	switch {
	case e.Unix != nil:
		return true
	case e.ISO != nil:
		return e.ISO.HasOffset
	case e.Duration != nil && !e.Duration.IsCalendar():
		return true
	}
	return false
}

// DateOnly reports whether the expression names a day but no time of day.
func (e *Expression) DateOnly() bool {
	return e.Clock == nil && e.ISO == nil && e.Unix == nil && !e.EndOfDay &&
		(e.Relative == nil || e.Relative.DefaultHour == 0) &&
		(e.Date != nil || e.Relative != nil || e.Weekday != nil || (e.Duration != nil && e.Duration.IsCalendar()))
}

func (e *Expression) stepf(format string, args ...any) {
	e.Steps = append(e.Steps, fmt.Sprintf(format, args...))
}

// span widens the detected phrase to cover tok.
func (e *Expression) span(start, end int) {
	if e.PhraseEnd == 0 || start < e.PhraseStart {
		e.PhraseStart = start
	}
	if end > e.PhraseEnd {
		e.PhraseEnd = end
	}
}

// Parse binds tokens into an expression. It fails with UNPARSEABLE when no
// token carries temporal content; a zone on its own is not a time.
func Parse(input string, tokens []token.Token) (*Expression, error) {
	expr := &Expression{Input: input}
	if len(tokens) == 0 {
		return nil, failure.Unparseable(input)
	}

	names := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		names = append(names, tok.String())
	}
	expr.stepf("Recognized %d token(s): %s", len(tokens), strings.Join(names, ", "))

	var zones []Zone
	for i, tok := range tokens {
		switch tok.Kind {
		case token.KindISO:
			if expr.ISO != nil || expr.Unix != nil {
				expr.stepf("Ignored additional timestamp %q", tok.Text)
				continue
			}
			expr.ISO = &ISO{
				Year: tok.Year, Month: time.Month(tok.Month), Day: tok.Day,
				Hour: tok.Hour, Minute: tok.Minute, Second: tok.Second,
				HasOffset: tok.HasOffset, OffsetMinutes: tok.OffsetMinutes, Text: tok.Text,
			}
			expr.span(tok.Start, tok.End)
			if tok.HasOffset {
				expr.stepf("Read ISO-8601 timestamp %q with explicit offset %s", tok.Text, timezone.FormatOffset(tok.OffsetMinutes))
			} else {
				expr.stepf("Read ISO-8601 timestamp %q without an offset", tok.Text)
			}
		case token.KindUnix:
			if expr.ISO != nil || expr.Unix != nil {
				expr.stepf("Ignored additional timestamp %q", tok.Text)
				continue
			}
			expr.Unix = &Unix{Seconds: tok.Unix, Millis: tok.Millis, Text: tok.Text}
			expr.span(tok.Start, tok.End)
			if tok.Millis {
				expr.stepf("Read %q as a Unix timestamp in milliseconds (%d s)", tok.Text, tok.Unix)
			} else {
				expr.stepf("Read %q as a Unix timestamp in seconds", tok.Text)
			}
		case token.KindZulu:
			if expr.Clock != nil && expr.Zone != nil && expr.Zone.Kind == ZoneZulu {
				expr.stepf("Ignored additional Zulu time %q", tok.Text)
				continue
			}
			if expr.Clock != nil {
				expr.stepf("Zulu time %q replaces clock %q", tok.Text, expr.Clock.Text)
			}
			expr.Clock = &Clock{Hour: tok.Hour, Minute: tok.Minute, AmPmKnown: true, RawHour: tok.Hour, Text: tok.Text}
			zulu := Zone{Kind: ZoneZulu, Text: tok.Text, Start: tok.Start, End: tok.End, Abbreviation: "Z", Known: true, BoundToClock: true}
			expr.Zone = &zulu
			expr.span(tok.Start, tok.End)
			expr.stepf("Read Zulu time %q as %02d:%02d UTC", tok.Text, tok.Hour, tok.Minute)
		case token.KindClock:
			if expr.Clock != nil {
				expr.stepf("Ignored additional clock time %q", tok.Text)
				continue
			}
			expr.Clock = clockFrom(tok)
			expr.span(tok.Start, tok.End)
			if expr.Clock.AmPmKnown {
				expr.stepf("Read clock time %q as %02d:%02d", tok.Text, expr.Clock.Hour, expr.Clock.Minute)
			} else {
				expr.stepf("Read clock time %q with no AM/PM marker", tok.Text)
			}
			if next, ok := zoneAfter(input, tokens, i); ok {
				next.BoundToClock = true
				zones = append([]Zone{next}, zones...)
			}
		case token.KindAbbreviation, token.KindOffset, token.KindIANA:
			z := zoneFrom(tok)
			if boundAlready(zones, z) {
				continue
			}
			if z.Kind == ZoneAbbreviation && !z.Known && !adjacentToClock(input, tokens, i) {
				expr.stepf("Ignored %q: not a known zone abbreviation and not attached to a time", tok.Text)
				continue
			}
			zones = append(zones, z)
		case token.KindRelative:
			switch tok.Relative {
			case token.RelativeDuration:
				if expr.Duration != nil {
					expr.stepf("Ignored additional duration %q", tok.Text)
					continue
				}
				expr.Duration = &Duration{Amount: tok.Amount, Unit: tok.Unit, Text: tok.Text}
				expr.stepf("Read %q as an offset of %d %s(s) from the reference", tok.Text, tok.Amount, tok.Unit)
			case token.RelativeEndOfDay:
				expr.EndOfDay = true
				expr.stepf("Read %q as end of the business day", tok.Text)
			default:
				if expr.Relative != nil {
					expr.stepf("Ignored additional relative date %q", tok.Text)
					continue
				}
				expr.Relative = &Relative{Days: tok.Days, DefaultHour: tok.DefaultHour, Text: tok.Text}
				expr.stepf("Read %q as %s", tok.Text, describeDays(tok.Days))
			}
			expr.span(tok.Start, tok.End)
		case token.KindWeekday:
			if expr.Weekday != nil {
				expr.stepf("Ignored additional weekday %q", tok.Text)
				continue
			}
			expr.Weekday = &Weekday{Day: tok.Weekday, Modifier: tok.Modifier, Text: tok.Text}
			expr.span(tok.Start, tok.End)
			expr.stepf("Read weekday %q", tok.Text)
		case token.KindDate:
			if expr.Date != nil {
				expr.stepf("Ignored additional date %q", tok.Text)
				continue
			}
			expr.Date = &Date{Year: tok.Year, Month: time.Month(tok.Month), Day: tok.Day, SlashAmbiguous: tok.SlashAmbiguous, Text: tok.Text}
			expr.span(tok.Start, tok.End)
			expr.stepf("Read date %q as %s %d", tok.Text, time.Month(tok.Month), tok.Day)
		}
	}

	if expr.ISO == nil && expr.Unix == nil && expr.Clock == nil && expr.Date == nil &&
		expr.Relative == nil && expr.Duration == nil && expr.Weekday == nil && !expr.EndOfDay {
		return nil, failure.Unparseable(input)
	}

	expr.chooseZone(zones)
	expr.Phrase = input[expr.PhraseStart:expr.PhraseEnd]
	expr.stepf("Detected phrase %q", expr.Phrase)
	return expr, nil
}

// chooseZone picks the zone qualifier. A Zulu clock or an ISO literal with
// its own offset always wins; otherwise a zone bound to the clock comes
// first, then the first qualifier in reading order.
func (e *Expression) chooseZone(zones []Zone) {
	selfZoned := (e.Zone != nil && e.Zone.Kind == ZoneZulu) || (e.ISO != nil && e.ISO.HasOffset)
	if selfZoned {
		for _, z := range zones {
			e.IgnoredZones = append(e.IgnoredZones, z)
			e.stepf("Ignored zone %q: the timestamp already states its offset", z.Text)
		}
		return
	}
	if len(zones) == 0 {
		return
	}

	chosen := zones[0]
	e.Zone = &chosen
	e.span(chosen.Start, chosen.End)
	if chosen.BoundToClock {
		e.stepf("Bound zone %q to clock %q", chosen.Text, e.Clock.Text)
	} else {
		e.stepf("Using zone qualifier %q", chosen.Text)
	}
	for _, z := range zones[1:] {
		if z.key() == chosen.key() {
			continue
		}
		e.IgnoredZones = append(e.IgnoredZones, z)
		e.LowConfidence = true
		e.stepf("Ignored conflicting zone qualifier %q; the first one wins", z.Text)
	}
}

func clockFrom(tok token.Token) *Clock {
	c := &Clock{
		Hour: tok.Hour, Minute: tok.Minute, Second: tok.Second,
		AmPmKnown: tok.AmPmKnown, Meridiem: tok.Meridiem, RawHour: tok.Hour, Text: tok.Text,
	}
	switch tok.Meridiem {
	case "am":
		if c.Hour == 12 {
			c.Hour = 0
		}
	case "pm":
		if c.Hour < 12 {
			c.Hour += 12
		}
	}
	return c
}

func zoneFrom(tok token.Token) Zone {
	z := Zone{Text: tok.Text, Start: tok.Start, End: tok.End, Known: tok.Known}
	switch tok.Kind {
	case token.KindOffset:
		z.Kind = ZoneOffset
		z.OffsetMinutes = tok.OffsetMinutes
	case token.KindIANA:
		z.Kind = ZoneIANA
		z.IANA = tok.Zone
	default:
		z.Kind = ZoneAbbreviation
		z.Abbreviation = tok.Zone
	}
	return z
}

// zoneAfter returns the zone token directly following the clock at i.
func zoneAfter(input string, tokens []token.Token, i int) (Zone, bool) {
	if i+1 >= len(tokens) {
		return Zone{}, false
	}
	next := tokens[i+1]
	if !next.IsZone() || !bindGap.MatchString(input[tokens[i].End:next.Start]) {
		return Zone{}, false
	}
	return zoneFrom(next), true
}

func adjacentToClock(input string, tokens []token.Token, i int) bool {
	if i == 0 {
		return false
	}
	prev := tokens[i-1]
	return prev.Kind == token.KindClock && bindGap.MatchString(input[prev.End:tokens[i].Start])
}

func boundAlready(zones []Zone, z Zone) bool {
	for _, bound := range zones {
		if bound.BoundToClock && bound.Start == z.Start {
			return true
		}
	}
	return false
}

func describeDays(days int) string {
	switch days {
	case 0:
		return "the reference date"
	case 1:
		return "the day after the reference date"
	case -1:
		return "the day before the reference date"
	}
	if days > 0 {
		return fmt.Sprintf("%d days after the reference date", days)
	}
	return fmt.Sprintf("%d days before the reference date", -days)
}

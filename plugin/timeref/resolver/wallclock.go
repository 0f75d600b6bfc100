package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/Drgblack/timemeaning/plugin/timeref/parser"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// Cultural time systems whose day starts at 06:00.
const (
	CulturalSwahili   = "swahili"
	CulturalEthiopian = "ethiopian"
)

// endOfDayHour is the close of business.
const endOfDayHour = 17

// calendarDate is a date as written; it may be invalid (February 30).
type calendarDate struct {
	year  int
	month time.Month
	day   int
}

func (d calendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

func dateOf(t time.Time) calendarDate {
	return calendarDate{year: t.Year(), month: t.Month(), day: t.Day()}
}

// noon returns the date at 12:00 UTC for day arithmetic free of DST effects.
func (d calendarDate) noon() time.Time {
	return time.Date(d.year, d.month, d.day, 12, 0, 0, 0, time.UTC)
}

type clockTime struct {
	hour    int
	minute  int
	second  int
	present bool
}

// calendarDate picks the date: an explicit date beats a relative one, which
// beats a weekday. A weekday that disagrees with the chosen date is recorded.
func (res *resolution) calendarDate() calendarDate {
	expr := res.expr
	base := dateOf(res.ctx.Reference.In(res.anchor))

	var date calendarDate
	source := ""
	switch {
	case expr.ISO != nil:
		date = calendarDate{year: expr.ISO.Year, month: expr.ISO.Month, day: expr.ISO.Day}
		source = "timestamp"
	case expr.Date != nil:
		d := expr.Date
		date = calendarDate{year: d.Year, month: d.Month, day: d.Day}
		if d.Year == 0 {
			date.year = base.year
			res.assume(Assumption{
				Type:        AssumptionDefaultYear,
				Description: fmt.Sprintf("No year given for %q; assumed %d, the year of the reference date.", d.Text, base.year),
				Confidence:  ConfidenceHigh,
			}, ConfidenceHigh)
		}
		if d.SlashAmbiguous {
			other := calendarDate{year: date.year, month: time.Month(d.Day), day: int(d.Month)}
			res.assume(Assumption{
				Type: AssumptionDateFormat,
				Description: fmt.Sprintf("%q was read month-first as %s %d; read day-first it would be %s %d.",
					d.Text, date.month, date.day, other.month, other.day),
				Confidence: ConfidenceMedium,
				Alternatives: []Alternative{
					{Label: "MM/DD: " + date.String(), Chosen: true},
					{Label: "DD/MM: " + other.String()},
				},
			}, ConfidenceMedium)
		}
		if expr.Relative != nil {
			res.tr.Addf("Explicit date %q takes precedence over %q", d.Text, expr.Relative.Text)
		}
		source = "date"
	case expr.Relative != nil:
		date = dateOf(base.noon().AddDate(0, 0, expr.Relative.Days))
		source = "relative"
		res.tr.Addf("%q from reference date %s gives %s", expr.Relative.Text, base, date)
	case expr.Duration != nil:
		date = dateOf(expr.Duration.Apply(base.noon()))
		source = "relative"
		res.tr.Addf("%q from reference date %s gives %s", expr.Duration.Text, base, date)
	case expr.Weekday != nil:
		date = weekdayDate(base, *expr.Weekday)
		source = "weekday"
		res.weekdayAssumption(base, date)
	default:
		date = base
		res.assume(Assumption{
			Type:        AssumptionDefaultDate,
			Description: fmt.Sprintf("No date given; assumed the reference date %s.", base),
			Confidence:  ConfidenceHigh,
		}, ConfidenceHigh)
		res.tr.Addf("No date in the input; using reference date %s", base)
	}

	if wd := expr.Weekday; wd != nil && source != "weekday" {
		if valid := date.day <= timezone.DaysIn(date.year, date.month); valid && date.noon().Weekday() != wd.Day {
			res.assume(Assumption{
				Type: AssumptionWeekdayConflict,
				Description: fmt.Sprintf("The input says %s but %s is a %s; the explicit date was used.",
					wd.Day, date, date.noon().Weekday()),
				Confidence: ConfidenceMedium,
			}, ConfidenceMedium)
		}
	}
	return date
}

// weekdayDate finds the named weekday relative to base. "next" and "coming"
// exclude base itself; "last" looks backwards; a bare weekday includes base.
func weekdayDate(base calendarDate, wd parser.Weekday) calendarDate {
	cur := base.noon().Weekday()
	diff := (int(wd.Day) - int(cur) + 7) % 7
	switch wd.Modifier {
	case "next", "coming":
		if diff == 0 {
			diff = 7
		}
	case "last":
		diff -= 7
	}
	return dateOf(base.noon().AddDate(0, 0, diff))
}

func (res *resolution) weekdayAssumption(base, date calendarDate) {
	wd := res.expr.Weekday
	switch wd.Modifier {
	case "next", "coming":
		following := dateOf(date.noon().AddDate(0, 0, 7))
		res.assume(Assumption{
			Type: AssumptionRelativeDate,
			Description: fmt.Sprintf("%q was read as the first %s strictly after the reference date %s, which is %s. Some readers mean the %s of the following week, %s.",
				wd.Text, wd.Day, base, date, wd.Day, following),
			Confidence: ConfidenceMedium,
			Alternatives: []Alternative{
				{Label: date.String(), Chosen: true},
				{Label: following.String()},
			},
		}, ConfidenceMedium)
	case "last":
		res.assume(Assumption{
			Type:        AssumptionRelativeDate,
			Description: fmt.Sprintf("%q was read as the most recent %s before the reference date %s, which is %s.", wd.Text, wd.Day, base, date),
			Confidence:  ConfidenceHigh,
		}, ConfidenceHigh)
	default:
		res.assume(Assumption{
			Type:        AssumptionRelativeDate,
			Description: fmt.Sprintf("%q was read as the next %s on or after the reference date %s, which is %s.", wd.Text, wd.Day, base, date),
			Confidence:  ConfidenceHigh,
		}, ConfidenceHigh)
	}
	res.tr.Addf("Weekday %q from reference date %s gives %s", wd.Text, base, date)
}

// clockTime picks the time of day, applying cultural time, the AM/PM
// business-hours reading, or a documented default.
func (res *resolution) clockTime() clockTime {
	expr := res.expr
	switch {
	case expr.ISO != nil:
		iso := expr.ISO
		return clockTime{hour: iso.Hour, minute: iso.Minute, second: iso.Second, present: true}
	case expr.Clock != nil:
		return res.readClock(expr.Clock)
	case expr.EndOfDay:
		res.assume(Assumption{
			Type:        AssumptionDefaultTime,
			Description: "End of day was read as 5:00 PM, the close of business; it could also mean 11:59 PM.",
			Confidence:  ConfidenceMedium,
			Alternatives: []Alternative{
				{Label: "17:00", Chosen: true},
				{Label: "23:59"},
			},
		}, ConfidenceMedium)
		res.tr.Addf("End of day read as %02d:00", endOfDayHour)
		return clockTime{hour: endOfDayHour, present: true}
	case expr.Relative != nil && expr.Relative.DefaultHour > 0:
		h := expr.Relative.DefaultHour
		res.assume(Assumption{
			Type:        AssumptionDefaultTime,
			Description: fmt.Sprintf("%q gives no time; assumed %02d:00.", expr.Relative.Text, h),
			Confidence:  ConfidenceMedium,
		}, ConfidenceMedium)
		return clockTime{hour: h, present: true}
	default:
		res.assume(Assumption{
			Type:        AssumptionDefaultTime,
			Description: "No time of day given; the start of the day (00:00) was used.",
			Confidence:  ConfidenceMedium,
		}, ConfidenceMedium)
		res.tr.Addf("No time of day; using the start of the day")
		return clockTime{}
	}
}

func (res *resolution) readClock(c *parser.Clock) clockTime {
	out := clockTime{hour: c.Hour, minute: c.Minute, second: c.Second, present: true}
	zulu := res.expr.Zone != nil && res.expr.Zone.Kind == parser.ZoneZulu
	twelveHour := c.Meridiem != "" || !c.AmPmKnown

	if system := strings.ToLower(res.ctx.CulturalTimeSystem); system != "" && twelveHour && !zulu && c.RawHour >= 1 && c.RawHour <= 12 {
		h := c.RawHour % 12
		if c.Meridiem == "pm" {
			out.hour = (h + 18) % 24
		} else {
			out.hour = h + 6
		}
		res.assume(Assumption{
			Type: AssumptionCulturalTime,
			Description: fmt.Sprintf("In %s time the day starts at 06:00, so hour %d was read as %02d:%02d on the standard clock.",
				system, c.RawHour, out.hour, out.minute),
			Confidence: ConfidenceMedium,
		}, ConfidenceMedium)
		res.tr.Addf("Applied %s time: hour %d becomes %02d:%02d", system, c.RawHour, out.hour, out.minute)
		return out
	}

	if c.AmPmKnown {
		return out
	}

	h := c.Hour
	if rel := res.expr.Relative; rel != nil && rel.DefaultHour >= 12 && h < 12 {
		out.hour = h + 12
		res.assume(Assumption{
			Type:        AssumptionAmPm,
			Description: fmt.Sprintf("%q has no AM/PM marker; %q implies the evening, so it was read as %02d:%02d.", c.Text, rel.Text, out.hour, out.minute),
			Confidence:  ConfidenceHigh,
		}, ConfidenceHigh)
		return out
	}

	other := h
	switch {
	case h >= 1 && h <= 6:
		out.hour = h + 12
	case h >= 7 && h <= 11:
		other = h + 12
	case h == 12:
		other = 0
	}
	res.assume(Assumption{
		Type: AssumptionAmPm,
		Description: fmt.Sprintf("%q has no AM/PM marker; read as %02d:%02d using business hours (1-6 afternoon, 7-11 morning). The other reading is %02d:%02d.",
			c.Text, out.hour, out.minute, other, out.minute),
		Confidence: ConfidenceMedium,
		Alternatives: []Alternative{
			{Label: fmt.Sprintf("%02d:%02d", out.hour, out.minute), Chosen: true},
			{Label: fmt.Sprintf("%02d:%02d", other, out.minute)},
		},
	}, ConfidenceMedium)
	res.tr.Addf("No AM/PM for %q; business-hours reading %02d:%02d", c.Text, out.hour, out.minute)
	return out
}

// wallInstant returns the instant the date and clock denote in loc. later is
// set when the wall-clock time happened twice. Both are zero when it never
// happened.
func wallInstant(loc *time.Location, date calendarDate, clock clockTime) (instant, later time.Time) {
	if !clock.present {
		start := time.Date(date.year, date.month, date.day, 0, 0, 0, 0, loc)
		if start.Day() != date.day {
			return time.Time{}, time.Time{}
		}
		return start, time.Time{}
	}
	instants := timezone.WallClockInstants(loc, timezone.WallClock{
		Year: date.year, Month: date.month, Day: date.day,
		Hour: clock.hour, Minute: clock.minute, Second: clock.second,
	})
	switch len(instants) {
	case 0:
		return time.Time{}, time.Time{}
	case 1:
		return instants[0], time.Time{}
	default:
		return instants[0], instants[len(instants)-1]
	}
}

// phaseWallInstant is wallInstant for a candidate. When the wall-clock time
// happened twice and the candidate names one season, as "EST" or "BST" do,
// the occurrence in that season is returned with settled set and other
// holding the occurrence not taken. Otherwise other is the later occurrence,
// if any.
func phaseWallInstant(c timezone.Candidate, date calendarDate, clock clockTime) (instant, other time.Time, settled bool) {
	instant, other = wallInstant(c.Location(), date, clock)
	if other.IsZero() || c.DST == timezone.DSTNone || c.Phase == timezone.PhaseGeneric {
		return instant, other, false
	}
	wantDST := c.Phase == timezone.PhaseDaylight
	switch {
	case timezone.IsDST(instant) == wantDST && timezone.IsDST(other) != wantDST:
		return instant, other, true
	case timezone.IsDST(other) == wantDST && timezone.IsDST(instant) != wantDST:
		return other, instant, true
	default:
		return instant, other, false
	}
}

package ghost

import (
	"fmt"
	"time"

	"github.com/Drgblack/timemeaning/server/timezone"
)

// InvalidDateRule matches dates that exist in no calendar: February 30,
// February 29 outside leap years, April 31.
type InvalidDateRule struct{}

func (InvalidDateRule) Name() string { return "invalid_calendar_date" }

func (InvalidDateRule) Kind() Kind { return KindDeletedHistorical }

func (r InvalidDateRule) Check(s Subject) (*Match, bool) {
	if s.Month < time.January || s.Month > time.December || s.Day < 1 {
		return &Match{Rule: r.Name(), Kind: r.Kind(), Explanation: fmt.Sprintf("%d-%02d-%02d is not a calendar date.", s.Year, int(s.Month), s.Day)}, true
	}
	days := timezone.DaysIn(s.Year, s.Month)
	if s.Day <= days {
		return nil, false
	}
	explanation := fmt.Sprintf("%s %d does not exist: %s has only %d days", s.Month, s.Day, s.Month, days)
	if s.Month == time.February {
		if timezone.IsLeapYear(s.Year) {
			explanation += fmt.Sprintf(" even in the leap year %d.", s.Year)
		} else {
			explanation += fmt.Sprintf(" in %d, which is not a leap year.", s.Year)
		}
	} else {
		explanation += "."
	}
	return &Match{Rule: r.Name(), Kind: r.Kind(), Explanation: explanation}, true
}

// SkippedDayRule matches whole local days that tzdata says never happened,
// such as a date-line move not covered by a curated historical rule.
type SkippedDayRule struct{}

func (SkippedDayRule) Name() string { return "tzdata_skipped_day" }

func (SkippedDayRule) Kind() Kind { return KindSkippedHistorical }

func (r SkippedDayRule) Check(s Subject) (*Match, bool) {
	if s.Location == nil {
		return nil, false
	}
	for _, hour := range []int{0, 12, 23} {
		w := timezone.WallClock{Year: s.Year, Month: s.Month, Day: s.Day, Hour: hour}
		if len(timezone.WallClockInstants(s.Location, w)) > 0 {
			return nil, false
		}
	}
	return &Match{
		Rule: r.Name(),
		Kind: r.Kind(),
		Explanation: fmt.Sprintf("%s %d, %d never happened in %s: the zone's clocks skipped the entire day.",
			s.Month, s.Day, s.Year, s.Location),
	}, true
}

// SpringGapRule matches wall-clock times skipped when clocks jump forward.
type SpringGapRule struct{}

func (SpringGapRule) Name() string { return "dst_spring_gap" }

func (SpringGapRule) Kind() Kind { return KindSpringGap }

func (r SpringGapRule) Check(s Subject) (*Match, bool) {
	if !s.HasClock || s.Location == nil {
		return nil, false
	}
	w := s.wallClock()
	if len(timezone.WallClockInstants(s.Location, w)) > 0 {
		return nil, false
	}
	m := &Match{Rule: r.Name(), Kind: r.Kind()}
	when := fmt.Sprintf("%s on %s %d, %d", clockText(s.Hour, s.Minute), s.Month, s.Day, s.Year)
	if tr, ok := timezone.TransitionAround(s.Location, w); ok {
		m.Transition = &tr
		local := tr.At.In(time.FixedZone(tr.BeforeName, tr.BeforeOffset))
		m.Explanation = fmt.Sprintf("%s did not exist in %s: at %s %s (%s) clocks jumped forward to %s %s (%s).",
			when, s.Location,
			clockText(local.Hour(), local.Minute()), tr.BeforeName, timezone.OffsetLabel(tr.BeforeOffset/60),
			clockText(tr.At.Hour(), tr.At.Minute()), tr.AfterName, timezone.OffsetLabel(tr.AfterOffset/60))
	} else {
		m.Explanation = fmt.Sprintf("%s did not exist in %s: clocks jumped forward past it.", when, s.Location)
	}
	return m, true
}

// FallBackRule matches wall-clock times that happened twice when clocks
// were set back.
type FallBackRule struct{}

func (FallBackRule) Name() string { return "dst_fall_repeat" }

func (FallBackRule) Kind() Kind { return KindFallAmbiguous }

func (r FallBackRule) Check(s Subject) (*Match, bool) {
	if !s.HasClock || s.Location == nil {
		return nil, false
	}
	instants := timezone.WallClockInstants(s.Location, s.wallClock())
	if len(instants) < 2 {
		return nil, false
	}
	first, second := instants[0], instants[len(instants)-1]
	firstName, firstOff := first.Zone()
	secondName, secondOff := second.Zone()
	m := &Match{
		Rule:     r.Name(),
		Kind:     r.Kind(),
		Instants: instants,
		Explanation: fmt.Sprintf("%s on %s %d, %d happened twice in %s: first at %s (%s), then again at %s (%s) after clocks were set back. The earlier occurrence was used.",
			clockText(s.Hour, s.Minute), s.Month, s.Day, s.Year, s.Location,
			timezone.OffsetLabel(firstOff/60), firstName, timezone.OffsetLabel(secondOff/60), secondName),
	}
	if tr, ok := timezone.TransitionAround(s.Location, s.wallClock()); ok {
		m.Transition = &tr
	}
	return m, true
}

// clockText renders 14:05 as "2:05 PM".
func clockText(hour, minute int) string {
	return time.Date(2000, time.January, 1, hour, minute, 0, 0, time.UTC).Format("3:04 PM")
}

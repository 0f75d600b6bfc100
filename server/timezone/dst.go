package timezone

import (
	"sort"
	"time"
)

// StandardOffset returns the standard-time offset of loc in seconds for the
// given year: the smaller of the January and July offsets, which works for
// both hemispheres and for zones with negative DST such as Europe/Dublin.
func StandardOffset(loc *time.Location, year int) int {
	_, jan := time.Date(year, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, jul := time.Date(year, time.July, 1, 12, 0, 0, 0, loc).Zone()
	return min(jan, jul)
}

func observesDST(loc *time.Location, year int) bool {
	_, jan := time.Date(year, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, jul := time.Date(year, time.July, 1, 12, 0, 0, 0, loc).Zone()
	return jan != jul
}

// IsDST reports whether daylight saving time is in effect at t in t's location.
func IsDST(t time.Time) bool {
	_, off := t.Zone()
	return off > StandardOffset(t.Location(), t.Year())
}

// WallClock is a local calendar date and time of day without a zone.
type WallClock struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// naive renders the wall clock in UTC for offset arithmetic.
func (w WallClock) naive() time.Time {
	return time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, w.Second, 0, time.UTC)
}

// WallClockInstants returns every instant at which loc showed the given wall
// clock, in ascending order. The result is empty inside a spring-forward gap
// or a skipped calendar day and has two entries inside a fall-back overlap.
func WallClockInstants(loc *time.Location, w WallClock) []time.Time {
	naive := w.naive()

	offsets := map[int]struct{}{}
	for _, probe := range []time.Duration{-36 * time.Hour, -12 * time.Hour, 0, 12 * time.Hour, 36 * time.Hour} {
		_, off := naive.Add(probe).In(loc).Zone()
		offsets[off] = struct{}{}
	}

	var instants []time.Time
	for off := range offsets {
		candidate := naive.Add(-time.Duration(off) * time.Second).In(loc)
		if _, got := candidate.Zone(); got != off {
			continue
		}
		if candidate.Year() != w.Year || candidate.Month() != w.Month || candidate.Day() != w.Day ||
			candidate.Hour() != w.Hour || candidate.Minute() != w.Minute || candidate.Second() != w.Second {
			continue
		}
		instants = append(instants, candidate)
	}
	sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })
	return instants
}

// Transition describes a change of UTC offset.
type Transition struct {
	At           time.Time
	BeforeOffset int // seconds
	AfterOffset  int // seconds
	BeforeName   string
	AfterName    string
}

// NextTransition returns the first offset change strictly after t within
// horizon, or false if the zone has none in that window.
func NextTransition(t time.Time, horizon time.Duration) (Transition, bool) {
	_, end := t.ZoneBounds()
	if end.IsZero() || end.Sub(t) > horizon {
		return Transition{}, false
	}
	beforeName, beforeOff := end.Add(-time.Second).Zone()
	afterName, afterOff := end.Zone()
	return Transition{
		At:           end,
		BeforeOffset: beforeOff,
		AfterOffset:  afterOff,
		BeforeName:   beforeName,
		AfterName:    afterName,
	}, true
}

// TransitionAround returns the offset change nearest to the naive wall clock,
// used to explain gaps and overlaps.
func TransitionAround(loc *time.Location, w WallClock) (Transition, bool) {
	from := w.naive().Add(-36 * time.Hour).In(loc)
	tr, ok := NextTransition(from, 72*time.Hour)
	if !ok {
		return Transition{}, false
	}
	tr.At = tr.At.In(loc)
	return tr, true
}

// IsTransitionDay reports whether the zone changes offset at some point
// during the given local calendar day.
func IsTransitionDay(loc *time.Location, year int, month time.Month, day int) bool {
	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	next := time.Date(year, month, day+1, 0, 0, 0, 0, loc)
	zoneStart, end := start.ZoneBounds()
	if !zoneStart.IsZero() && zoneStart.Equal(start) {
		return true
	}
	return !end.IsZero() && end.Before(next)
}

// Package ghost detects calendar dates and wall-clock times that never
// existed, or existed twice, in a given zone.
//
// Rules form a small open set. Historical anomalies are data (CEL predicates
// in historical.yaml); calendar and DST anomalies are computed from the
// date itself and from tzdata.
package ghost

import (
	"time"

	"github.com/Drgblack/timemeaning/server/timezone"
)

// Kind classifies a ghost rule.
type Kind string

const (
	// KindSkippedHistorical is a date a jurisdiction removed from its calendar.
	KindSkippedHistorical Kind = "skipped-historical"
	// KindDeletedHistorical is a date that exists in no calendar (February 30).
	KindDeletedHistorical Kind = "deleted-historical"
	// KindSpringGap is a wall-clock range skipped by a forward offset change.
	KindSpringGap Kind = "dst-spring-gap"
	// KindFallAmbiguous is a wall-clock range repeated by a backward offset change.
	KindFallAmbiguous Kind = "dst-fall-ambiguous"
)

// Subject is the date and time being checked, as written, in a zone.
// Month and Day are not normalized, so February 30 stays February 30.
type Subject struct {
	Input    string
	Year     int
	Month    time.Month
	Day      int
	Hour     int
	Minute   int
	Second   int
	HasClock bool
	Zone     string
	Location *time.Location
}

func (s Subject) wallClock() timezone.WallClock {
	return timezone.WallClock{Year: s.Year, Month: s.Month, Day: s.Day, Hour: s.Hour, Minute: s.Minute, Second: s.Second}
}

// Match is a rule hit.
type Match struct {
	Rule        string
	Kind        Kind
	Explanation string
	// Instants holds both occurrences of a repeated wall-clock time.
	Instants   []time.Time
	Transition *timezone.Transition
}

// Hard reports whether the match means the moment never existed.
func (m *Match) Hard() bool {
	return m.Kind != KindFallAmbiguous
}

// Rule is a single ghost predicate with its explanation.
type Rule interface {
	Name() string
	Kind() Kind
	Check(Subject) (*Match, bool)
}

// CheckOptions selects which rule groups run.
type CheckOptions struct {
	// Historical enables the curated calendar-reform and date-line rules.
	Historical bool
}

// Registry evaluates rules in order and reports the first match. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	historical []Rule
	computed   []Rule
}

// NewRegistry creates a registry. Historical rules run first, then the
// computed rules in the order given.
func NewRegistry(historical []Rule, computed ...Rule) *Registry {
	return &Registry{historical: historical, computed: computed}
}

// Check returns the first matching rule, or nil.
func (r *Registry) Check(s Subject, opts CheckOptions) *Match {
	if opts.Historical {
		for _, rule := range r.historical {
			if m, ok := rule.Check(s); ok {
				return m
			}
		}
	}
	for _, rule := range r.computed {
		if m, ok := rule.Check(s); ok {
			return m
		}
	}
	return nil
}

// Rules lists every rule, historical first.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, 0, len(r.historical)+len(r.computed))
	out = append(out, r.historical...)
	return append(out, r.computed...)
}

// DefaultRegistry builds the registry from the embedded historical table and
// the computed calendar and DST rules.
func DefaultRegistry() (*Registry, error) {
	historical, err := LoadHistorical(historicalYAML)
	if err != nil {
		return nil, err
	}
	return NewRegistry(historical,
		InvalidDateRule{},
		SkippedDayRule{},
		SpringGapRule{},
		FallBackRule{},
	), nil
}

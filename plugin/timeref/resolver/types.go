package resolver

import (
	"time"

	"github.com/Drgblack/timemeaning/plugin/timeref/ghost"
	"github.com/Drgblack/timemeaning/plugin/timeref/y2k38"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// Confidence rates a resolution.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// Cap returns the lower of c and limit.
func (c Confidence) Cap(limit Confidence) Confidence {
	if limit.rank() < c.rank() {
		return limit
	}
	return c
}

// Assumption types.
const (
	AssumptionAmbiguousZone   = "ambiguous-abbreviation"
	AssumptionConflictingZone = "conflicting-zones"
	AssumptionContextZone     = "context-timezone"
	AssumptionZoneIndependent = "zone-independent"
	AssumptionPhaseMismatch   = "dst-phase-mismatch"
	AssumptionFallBack        = "dst-fall-back"
	AssumptionAmPm            = "am-pm"
	AssumptionCulturalTime    = "cultural-time"
	AssumptionDefaultTime     = "default-time"
	AssumptionDefaultDate     = "default-date"
	AssumptionDefaultYear     = "default-year"
	AssumptionRelativeDate    = "relative-date"
	AssumptionWeekdayConflict = "weekday-conflict"
	AssumptionDateFormat      = "date-format"
	AssumptionMilliseconds    = "milliseconds"
	AssumptionReference       = "reference"
	AssumptionSubMinuteOffset = "sub-minute-offset"
)

// Alternative is one other reading the resolver considered.
type Alternative struct {
	Label     string
	Candidate *timezone.Candidate
	// Instant is zero when the reading names a moment that did not exist.
	Instant time.Time
	Chosen  bool
	Note    string
}

// Assumption is one inference made during resolution.
type Assumption struct {
	Type         string
	Description  string
	Confidence   Confidence
	Alternatives []Alternative
}

// Context is what the caller knows beyond the input text.
type Context struct {
	// Reference anchors every relative expression. Required.
	Reference time.Time
	// Locale is the IANA zone used when the input names none.
	Locale string
	// CulturalTimeSystem is "", "swahili" or "ethiopian".
	CulturalTimeSystem string
	// ReferenceNote, when set, explains how Reference was derived and is
	// recorded as an assumption.
	ReferenceNote string
}

// Options toggle optional checks.
type Options struct {
	GhostDateCheck bool
	Y2K38Check     bool
}

// DefaultOptions enables every check.
func DefaultOptions() Options {
	return Options{GhostDateCheck: true, Y2K38Check: true}
}

// Interpretation is a completed resolution. It is not modified after
// Resolve returns.
type Interpretation struct {
	Input          string
	DetectedPhrase string
	// Reference is the instant relative expressions were anchored to.
	Reference time.Time

	Instant time.Time
	Zone    timezone.Candidate
	// ZoneName is the zone's name at Instant (standard or daylight).
	ZoneName        string
	ZoneIndependent bool

	// Candidates holds every zone reading considered, chosen first.
	Candidates []Alternative
	// Alternatives holds the readings that were not chosen.
	Alternatives []Alternative

	DSTActive      bool
	DSTBoundary    bool
	NextTransition *timezone.Transition

	Ghost        *ghost.Match
	Y2K38        y2k38.Report
	Y2K38Checked bool

	Ambiguous   bool
	Assumptions []Assumption
	Confidence  Confidence
	Trace       []string

	KnowledgeBaseVersion string
}

// UTCOffsetMinutes is the offset in effect at the resolved instant.
func (in *Interpretation) UTCOffsetMinutes() int {
	return timezone.OffsetMinutes(in.Instant)
}

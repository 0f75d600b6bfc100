package timezone

import (
	"fmt"
	"time"
)

// DSTBehavior describes how a candidate zone handles daylight saving time.
type DSTBehavior string

const (
	// DSTNone means the zone keeps one offset all year.
	DSTNone DSTBehavior = "none"
	// DSTObserves means the zone shifts its offset but keeps its name family.
	DSTObserves DSTBehavior = "observes"
	// DSTSeasonalNameChange means the name itself changes with the season (CET/CEST).
	DSTSeasonalNameChange DSTBehavior = "seasonal-name-change"
)

// Phase is the part of the year an abbreviation names.
type Phase string

const (
	PhaseStandard Phase = "standard"
	PhaseDaylight Phase = "daylight"
	// PhaseGeneric abbreviations (ET, PT) name the zone regardless of season.
	PhaseGeneric Phase = "generic"
)

// Candidate is one possible meaning of a zone qualifier.
//
// BaseOffsetMinutes is always the standard-time offset. The offset in effect
// at a given instant is derived from the IANA rules, never stored.
type Candidate struct {
	Name              string      `yaml:"name" json:"name"`
	DaylightName      string      `yaml:"daylight_name,omitempty" json:"daylightName,omitempty"`
	IANA              string      `yaml:"iana" json:"iana,omitempty"`
	BaseOffsetMinutes int         `yaml:"base_offset" json:"baseUtcOffsetMinutes"`
	DST               DSTBehavior `yaml:"dst" json:"dstBehavior"`
	Phase             Phase       `yaml:"phase" json:"phase"`
	Region            string      `yaml:"region" json:"regionDescription"`

	loc *time.Location
}

// NewFixedCandidate builds a candidate for an explicit UTC offset.
func NewFixedCandidate(offsetMinutes int) Candidate {
	name := "UTC" + FormatOffset(offsetMinutes)
	if offsetMinutes == 0 {
		name = "Coordinated Universal Time"
	}
	return Candidate{
		Name:              name,
		BaseOffsetMinutes: offsetMinutes,
		DST:               DSTNone,
		Phase:             PhaseGeneric,
		Region:            "explicit UTC offset",
		loc:               time.FixedZone(name, offsetMinutes*60),
	}
}

// NewZoneCandidate builds a candidate for an IANA zone named directly in
// the input or supplied as the context locale.
func NewZoneCandidate(iana string, ref time.Time) (Candidate, error) {
	loc, err := ParseTimezone(iana)
	if err != nil {
		return Candidate{}, err
	}
	if iana == "" {
		iana = TimezoneUTC
	}
	std := StandardOffset(loc, ref.Year())
	behavior := DSTNone
	if observesDST(loc, ref.Year()) {
		behavior = DSTObserves
	}
	return Candidate{
		Name:              iana,
		IANA:              iana,
		BaseOffsetMinutes: std / 60,
		DST:               behavior,
		Phase:             PhaseGeneric,
		Region:            "IANA zone " + iana,
		loc:               loc,
	}, nil
}

// Location returns the zone the candidate's wall-clock times are read in.
func (c Candidate) Location() *time.Location {
	if c.loc != nil {
		return c.loc
	}
	if c.IANA != "" {
		if loc, err := time.LoadLocation(c.IANA); err == nil {
			return loc
		}
	}
	return time.FixedZone(c.Name, c.BaseOffsetMinutes*60)
}

// Label renders the candidate as "Australia/Sydney (UTC+10)".
func (c Candidate) Label() string {
	id := c.IANA
	if id == "" {
		id = c.Name
	}
	return fmt.Sprintf("%s (%s)", id, OffsetLabel(c.BaseOffsetMinutes))
}

// DisplayName returns the name to show for at in this zone. A daylight
// abbreviation used outside its season keeps its name and says which
// abbreviation was actually in effect, e.g. "Central Daylight Time (read as
// CST)".
func (c Candidate) DisplayName(at time.Time) string {
	local := at.In(c.Location())
	dstActive := IsDST(local)
	if c.PhaseMismatch(dstActive) && c.Phase == PhaseDaylight {
		abbr, _ := local.Zone()
		return fmt.Sprintf("%s (read as %s)", c.Name, abbr)
	}
	if dstActive && c.DaylightName != "" {
		return c.DaylightName
	}
	return c.Name
}

// PhaseMismatch reports whether the abbreviation names a season that is not
// in effect at the instant, e.g. "EST" used in July.
func (c Candidate) PhaseMismatch(dstActive bool) bool {
	if c.DST == DSTNone {
		return false
	}
	switch c.Phase {
	case PhaseStandard:
		return dstActive
	case PhaseDaylight:
		return !dstActive
	default:
		return false
	}
}

func (c *Candidate) bind() error {
	if c.IANA == "" {
		c.loc = time.FixedZone(c.Name, c.BaseOffsetMinutes*60)
		return nil
	}
	loc, err := time.LoadLocation(c.IANA)
	if err != nil {
		return err
	}
	c.loc = loc
	return nil
}

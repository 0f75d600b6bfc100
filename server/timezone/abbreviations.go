package timezone

import (
	_ "embed"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

//go:embed abbreviations.yaml
var abbreviationsYAML []byte

// AbbreviationEntry is one abbreviation and its candidates in preference order.
type AbbreviationEntry struct {
	Abbreviation string
	Candidates   []Candidate
}

// IsAmbiguous reports whether the abbreviation has more than one meaning.
func (e *AbbreviationEntry) IsAmbiguous() bool {
	return len(e.Candidates) > 1
}

// Primary returns the preferred candidate.
func (e *AbbreviationEntry) Primary() Candidate {
	return e.Candidates[0]
}

// MaxSpreadMinutes is the distance between the most western and most
// eastern standard offsets among the candidates.
func (e *AbbreviationEntry) MaxSpreadMinutes() int {
	if len(e.Candidates) == 0 {
		return 0
	}
	lo, hi := e.Candidates[0].BaseOffsetMinutes, e.Candidates[0].BaseOffsetMinutes
	for _, c := range e.Candidates[1:] {
		lo = min(lo, c.BaseOffsetMinutes)
		hi = max(hi, c.BaseOffsetMinutes)
	}
	return hi - lo
}

// KnowledgeBase is the read-only abbreviation table. It is safe for
// concurrent use once loaded.
type KnowledgeBase struct {
	version string
	entries map[string]*AbbreviationEntry
	keys    []string
}

type abbreviationFile struct {
	Version       string                 `yaml:"version"`
	Abbreviations map[string][]Candidate `yaml:"abbreviations"`
}

// LoadKnowledgeBase parses and validates an abbreviation table.
func LoadKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var file abbreviationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "failed to parse abbreviation table")
	}
	if !semver.IsValid(file.Version) {
		return nil, errors.Errorf("abbreviation table version %q is not a semantic version", file.Version)
	}
	if len(file.Abbreviations) == 0 {
		return nil, errors.New("abbreviation table is empty")
	}

	kb := &KnowledgeBase{
		version: file.Version,
		entries: make(map[string]*AbbreviationEntry, len(file.Abbreviations)),
	}
	for abbr, candidates := range file.Abbreviations {
		key := NormalizeAbbreviation(abbr)
		if len(candidates) == 0 {
			return nil, errors.Errorf("abbreviation %s has no candidates", key)
		}
		if _, dup := kb.entries[key]; dup {
			return nil, errors.Errorf("abbreviation %s is listed twice", key)
		}
		for i := range candidates {
			c := &candidates[i]
			if err := validateCandidate(c); err != nil {
				return nil, errors.Wrapf(err, "abbreviation %s candidate %d", key, i)
			}
			if err := c.bind(); err != nil {
				return nil, errors.Wrapf(err, "abbreviation %s candidate %s", key, c.IANA)
			}
		}
		kb.entries[key] = &AbbreviationEntry{Abbreviation: key, Candidates: candidates}
		kb.keys = append(kb.keys, key)
	}
	sort.Strings(kb.keys)
	return kb, nil
}

func validateCandidate(c *Candidate) error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	switch c.DST {
	case DSTNone, DSTObserves, DSTSeasonalNameChange:
	default:
		return errors.Errorf("unknown dst behavior %q", c.DST)
	}
	switch c.Phase {
	case PhaseStandard, PhaseDaylight, PhaseGeneric:
	case "":
		c.Phase = PhaseStandard
	default:
		return errors.Errorf("unknown phase %q", c.Phase)
	}
	if c.BaseOffsetMinutes < -12*60 || c.BaseOffsetMinutes > 14*60 {
		return errors.Errorf("base offset %d out of range", c.BaseOffsetMinutes)
	}
	return nil
}

var defaultKB = sync.OnceValues(func() (*KnowledgeBase, error) {
	return LoadKnowledgeBase(abbreviationsYAML)
})

// DefaultKnowledgeBase returns the table embedded in the binary.
func DefaultKnowledgeBase() (*KnowledgeBase, error) {
	return defaultKB()
}

// MustDefaultKnowledgeBase is DefaultKnowledgeBase for package initialisation and tests.
func MustDefaultKnowledgeBase() *KnowledgeBase {
	kb, err := defaultKB()
	if err != nil {
		panic(err)
	}
	return kb
}

// Version is the preference table version, recorded in every parse trace.
func (kb *KnowledgeBase) Version() string {
	return kb.version
}

// Lookup finds an abbreviation, ignoring case and dots.
func (kb *KnowledgeBase) Lookup(abbr string) (*AbbreviationEntry, bool) {
	e, ok := kb.entries[NormalizeAbbreviation(abbr)]
	return e, ok
}

// Has reports whether the abbreviation is known.
func (kb *KnowledgeBase) Has(abbr string) bool {
	_, ok := kb.Lookup(abbr)
	return ok
}

// Abbreviations lists every known abbreviation in sorted order.
func (kb *KnowledgeBase) Abbreviations() []string {
	out := make([]string, len(kb.keys))
	copy(out, kb.keys)
	return out
}

// Ambiguous lists the abbreviations with two or more candidates.
func (kb *KnowledgeBase) Ambiguous() []*AbbreviationEntry {
	var out []*AbbreviationEntry
	for _, k := range kb.keys {
		if e := kb.entries[k]; e.IsAmbiguous() {
			out = append(out, e)
		}
	}
	return out
}

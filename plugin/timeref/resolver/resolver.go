// Package resolver turns a parsed time expression into an absolute instant:
// it ranks zone candidates, applies DST rules, consults the ghost registry
// and records every assumption it makes.
package resolver

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
	"github.com/Drgblack/timemeaning/plugin/timeref/ghost"
	"github.com/Drgblack/timemeaning/plugin/timeref/parser"
	"github.com/Drgblack/timemeaning/plugin/timeref/trace"
	"github.com/Drgblack/timemeaning/plugin/timeref/y2k38"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// transitionHorizon bounds the search for the next offset change.
const transitionHorizon = 400 * 24 * time.Hour

// Resolver resolves expressions against the knowledge base and the ghost
// registry. Both are read-only, so a Resolver is safe for concurrent use.
type Resolver struct {
	kb     *timezone.KnowledgeBase
	ghosts *ghost.Registry
}

// New creates a resolver.
func New(kb *timezone.KnowledgeBase, ghosts *ghost.Registry) *Resolver {
	return &Resolver{kb: kb, ghosts: ghosts}
}

// KnowledgeBase returns the abbreviation table in use.
func (r *Resolver) KnowledgeBase() *timezone.KnowledgeBase {
	return r.kb
}

// resolution is the state of one Resolve call.
type resolution struct {
	r      *Resolver
	expr   *parser.Expression
	ctx    Context
	opts   Options
	tr     *trace.Trace
	locale *time.Location
	anchor *time.Location
	out    *Interpretation

	considered []failure.Candidate
}

// Resolve computes the interpretation of expr. It never reads the wall
// clock: every relative expression is anchored to ctx.Reference.
func (r *Resolver) Resolve(expr *parser.Expression, ctx Context, opts Options) (*Interpretation, error) {
	if expr == nil {
		return nil, failure.Internal(errors.New("nil expression"))
	}
	res := &resolution{
		r:    r,
		expr: expr,
		ctx:  ctx,
		opts: opts,
		tr:   trace.New(),
		out: &Interpretation{
			Input:                expr.Input,
			DetectedPhrase:       expr.Phrase,
			Reference:            ctx.Reference,
			Confidence:           ConfidenceHigh,
			KnowledgeBaseVersion: r.kb.Version(),
		},
	}
	for _, step := range expr.Steps {
		res.tr.Addf("%s", step)
	}
	return res.run()
}

func (res *resolution) partial() *failure.Partial {
	return &failure.Partial{
		Input:          res.expr.Input,
		DetectedPhrase: res.expr.Phrase,
		Candidates:     res.considered,
		Trace:          res.tr.Steps(),
	}
}

func (res *resolution) assume(a Assumption, limit Confidence) {
	res.out.Assumptions = append(res.out.Assumptions, a)
	res.out.Confidence = res.out.Confidence.Cap(limit)
}

func (res *resolution) run() (*Interpretation, error) {
	if err := res.checkContext(); err != nil {
		return nil, err
	}

	if res.expr.LowConfidence {
		ignored := make([]string, 0, len(res.expr.IgnoredZones))
		for _, z := range res.expr.IgnoredZones {
			ignored = append(ignored, fmt.Sprintf("%q", z.Text))
		}
		res.assume(Assumption{
			Type:        AssumptionConflictingZone,
			Description: fmt.Sprintf("The input names more than one zone. Used %q, the first one, and ignored %s.", res.expr.Zone.Text, strings.Join(ignored, ", ")),
			Confidence:  ConfidenceLow,
		}, ConfidenceLow)
	}

	expr := res.expr
	switch {
	case expr.Unix != nil:
		if expr.Unix.Millis {
			res.assume(Assumption{
				Type:        AssumptionMilliseconds,
				Description: fmt.Sprintf("The 13-digit value %s was read as milliseconds and floored to %d seconds.", expr.Unix.Text, expr.Unix.Seconds),
				Confidence:  ConfidenceHigh,
			}, ConfidenceHigh)
		}
		return res.resolveAbsolute(time.Unix(expr.Unix.Seconds, 0), nil, "Unix timestamp")
	case expr.ISO != nil && expr.ISO.HasOffset:
		fixed := timezone.NewFixedCandidate(expr.ISO.OffsetMinutes)
		iso := expr.ISO
		instant := time.Date(iso.Year, iso.Month, iso.Day, iso.Hour, iso.Minute, iso.Second, 0, fixed.Location())
		if instant.Day() != iso.Day {
			return nil, res.ghostFailure(res.r.ghosts.Check(ghost.Subject{
				Input: expr.Input, Year: iso.Year, Month: iso.Month, Day: iso.Day, Zone: "", Location: fixed.Location(),
			}, ghost.CheckOptions{}))
		}
		return res.resolveAbsolute(instant, &fixed, "timestamp with an explicit UTC offset")
	case expr.Duration != nil && !expr.Duration.IsCalendar():
		if expr.Clock != nil {
			res.tr.Addf("Ignored clock %q: the duration %q already fixes the instant", expr.Clock.Text, expr.Duration.Text)
		}
		instant := expr.Duration.Apply(res.ctx.Reference)
		res.tr.Addf("Applied %q to the reference instant %s", expr.Duration.Text, res.ctx.Reference.UTC().Format(time.RFC3339))
		return res.resolveAbsolute(instant, nil, "offset from the reference instant")
	default:
		return res.resolveWallClock()
	}
}

func (res *resolution) checkContext() error {
	ctx := res.ctx
	if ctx.Reference.IsZero() {
		return failure.InvalidContext("a reference instant is required", res.partial())
	}
	switch strings.ToLower(ctx.CulturalTimeSystem) {
	case "", CulturalSwahili, CulturalEthiopian:
	default:
		return failure.InvalidContext(fmt.Sprintf("unsupported cultural time system %q; expected swahili or ethiopian", ctx.CulturalTimeSystem), res.partial())
	}

	res.anchor = ctx.Reference.Location()
	if ctx.Locale != "" {
		if !timezone.IsValidTimezone(ctx.Locale) {
			return failure.InvalidContext(fmt.Sprintf("locale %q is not an IANA time zone", ctx.Locale), res.partial())
		}
		loc, err := timezone.ParseTimezone(ctx.Locale)
		if err != nil {
			return failure.InvalidContext(err.Error(), res.partial())
		}
		res.locale = loc
		res.anchor = loc
	}

	if ctx.ReferenceNote != "" {
		res.assume(Assumption{Type: AssumptionReference, Description: ctx.ReferenceNote, Confidence: ConfidenceHigh}, ConfidenceHigh)
	}
	ref := ctx.Reference.In(res.anchor)
	res.tr.Addf("Reference instant %s; relative dates anchor to %s (%s)", ctx.Reference.UTC().Format(time.RFC3339), ref.Format("Monday 2006-01-02"), res.anchor)
	res.tr.Addf("Abbreviation table version %s", res.r.kb.Version())
	return nil
}

// resolveAbsolute handles inputs that already denote an instant. The zone
// only affects how the instant is displayed.
func (res *resolution) resolveAbsolute(instant time.Time, fixed *timezone.Candidate, what string) (*Interpretation, error) {
	res.out.ZoneIndependent = true

	var display timezone.Candidate
	var where string
	switch {
	case fixed != nil:
		display = *fixed
		where = "its own offset " + timezone.OffsetLabel(fixed.BaseOffsetMinutes)
	case res.expr.Zone != nil:
		cands, err := res.zoneCandidates()
		if err != nil {
			return nil, err
		}
		display = cands[0]
		where = fmt.Sprintf("%s, named in the input", display.Label())
	case res.locale != nil:
		cand, err := timezone.NewZoneCandidate(res.ctx.Locale, res.ctx.Reference)
		if err != nil {
			return nil, failure.InvalidContext(err.Error(), res.partial())
		}
		display = cand
		where = fmt.Sprintf("the context locale %s", res.ctx.Locale)
	default:
		display = res.utcCandidate()
		where = "UTC because no zone or locale was given"
	}

	res.assume(Assumption{
		Type:        AssumptionZoneIndependent,
		Description: fmt.Sprintf("The input is a %s, which denotes the same instant everywhere. It is displayed in %s.", what, where),
		Confidence:  ConfidenceHigh,
	}, ConfidenceHigh)
	res.tr.Addf("Zone-independent %s; displaying in %s", what, where)

	instant = instant.In(display.Location())
	res.out.Candidates = []Alternative{{Label: display.Label(), Candidate: &display, Instant: instant, Chosen: true}}
	return res.finish(display, instant, nil)
}

func (res *resolution) utcCandidate() timezone.Candidate {
	if entry, ok := res.r.kb.Lookup("UTC"); ok {
		return entry.Primary()
	}
	return timezone.NewFixedCandidate(0)
}

// zoneCandidates turns the zone qualifier into ranked candidates.
func (res *resolution) zoneCandidates() ([]timezone.Candidate, error) {
	z := res.expr.Zone
	switch z.Kind {
	case parser.ZoneZulu:
		entry, ok := res.r.kb.Lookup("Z")
		if !ok {
			return []timezone.Candidate{timezone.NewFixedCandidate(0)}, nil
		}
		res.tr.Addf("Zulu suffix %q means UTC", z.Text)
		return entry.Candidates, nil
	case parser.ZoneOffset:
		res.tr.Addf("Explicit offset %q is %s", z.Text, timezone.OffsetLabel(z.OffsetMinutes))
		return []timezone.Candidate{timezone.NewFixedCandidate(z.OffsetMinutes)}, nil
	case parser.ZoneIANA:
		cand, err := timezone.NewZoneCandidate(z.IANA, res.ctx.Reference)
		if err != nil {
			return nil, failure.Internal(err).WithPartial(res.partial())
		}
		res.tr.Addf("IANA zone %q named directly", z.IANA)
		return []timezone.Candidate{cand}, nil
	default:
		entry, ok := res.r.kb.Lookup(z.Abbreviation)
		if !ok {
			res.tr.Addf("Abbreviation %q is not in table %s: no candidates to rank", z.Abbreviation, res.r.kb.Version())
			return nil, failure.AmbiguousUnresolvable(
				fmt.Sprintf("%q looks like a time zone abbreviation but is not a known one, so no candidate can be ranked", z.Text),
				res.partial())
		}
		res.tr.Addf("Looked up %q: %d candidate(s), spread %s", z.Abbreviation, len(entry.Candidates), formatSpread(entry.MaxSpreadMinutes()))
		return entry.Candidates, nil
	}
}

func (res *resolution) resolveWallClock() (*Interpretation, error) {
	expr := res.expr

	var cands []timezone.Candidate
	if expr.Zone != nil {
		var err error
		if cands, err = res.zoneCandidates(); err != nil {
			return nil, err
		}
	} else {
		if res.locale == nil {
			res.tr.Addf("No zone qualifier in the input and no locale in the context")
			return nil, failure.InvalidContext("the input names no time zone and the context supplies no locale; refusing to guess", res.partial())
		}
		cand, err := timezone.NewZoneCandidate(res.ctx.Locale, res.ctx.Reference)
		if err != nil {
			return nil, failure.InvalidContext(err.Error(), res.partial())
		}
		cands = []timezone.Candidate{cand}
		res.assume(Assumption{
			Type:        AssumptionContextZone,
			Description: fmt.Sprintf("The input names no time zone; it was read as local time in the context locale %s.", res.ctx.Locale),
			Confidence:  ConfidenceMedium,
		}, ConfidenceMedium)
		res.tr.Addf("No zone qualifier; using context locale %s", res.ctx.Locale)
	}
	for i, c := range cands {
		reason := "preferred candidate"
		if i > 0 {
			reason = fmt.Sprintf("ranked %d in the preference table", i+1)
		}
		res.considered = append(res.considered, failure.Candidate{
			Label: c.Label(), IANA: c.IANA, UTCOffset: timezone.FormatOffset(c.BaseOffsetMinutes), Reason: reason,
		})
	}

	date := res.calendarDate()
	clock := res.clockTime()
	primary := cands[0]

	subject := ghost.Subject{
		Input: expr.Input,
		Year:  date.year, Month: date.month, Day: date.day,
		Hour: clock.hour, Minute: clock.minute, Second: clock.second,
		HasClock: clock.present,
		Zone:     primary.IANA,
		Location: primary.Location(),
	}
	match := res.r.ghosts.Check(subject, ghost.CheckOptions{Historical: res.opts.GhostDateCheck})
	if match != nil && match.Hard() {
		return nil, res.ghostFailure(match)
	}

	instant, other, settled := phaseWallInstant(primary, date, clock)
	if instant.IsZero() {
		return nil, failure.Internal(errors.Errorf("no instant for %v in %s", subject, primary.Location())).WithPartial(res.partial())
	}

	res.out.Candidates = make([]Alternative, 0, len(cands))
	for i := range cands {
		c := cands[i]
		alt := Alternative{Label: c.Label(), Candidate: &c, Chosen: i == 0}
		if i == 0 {
			alt.Instant = instant
		} else if at, _, _ := phaseWallInstant(c, date, clock); !at.IsZero() {
			alt.Instant = at
		} else {
			alt.Note = "this wall-clock time did not exist in that zone"
		}
		res.out.Candidates = append(res.out.Candidates, alt)
		if alt.Instant.IsZero() {
			res.tr.Addf("Candidate %d %s: %s", i+1, c.Label(), alt.Note)
		} else {
			res.tr.Addf("Candidate %d %s: %s", i+1, c.Label(), alt.Instant.UTC().Format(time.RFC3339))
		}
	}

	if len(cands) > 1 {
		res.out.Ambiguous = true
		rejected := make([]string, 0, len(cands)-1)
		for _, c := range cands[1:] {
			rejected = append(rejected, c.Label())
		}
		res.assume(Assumption{
			Type: AssumptionAmbiguousZone,
			Description: fmt.Sprintf("%q is ambiguous (%d candidates, %s apart). Chose %s, the first entry in preference table %s; rejected %s.",
				expr.Zone.Text, len(cands), formatSpread(spread(cands)), primary.Label(), res.r.kb.Version(), strings.Join(rejected, ", ")),
			Confidence:   ConfidenceMedium,
			Alternatives: res.out.Candidates,
		}, ConfidenceMedium)
	}

	switch {
	case settled:
		res.assume(Assumption{
			Type: AssumptionFallBack,
			Description: fmt.Sprintf("%02d:%02d happened twice in %s on %s. %q names %s time, which settles it: the occurrence at %s was used.",
				clock.hour, clock.minute, primary.IANA, date, expr.Zone.Text, primary.Phase, timezone.OffsetLabel(timezone.OffsetMinutes(instant))),
			Confidence: ConfidenceHigh,
			Alternatives: []Alternative{
				{Label: string(primary.Phase) + " time occurrence", Candidate: &primary, Instant: instant, Chosen: true},
				{Label: "other occurrence", Candidate: &primary, Instant: other},
			},
		}, ConfidenceHigh)
		res.tr.Addf("Wall-clock time occurs twice in %s; %q picks the %s time occurrence", primary.Location(), expr.Zone.Text, primary.Phase)
	case match != nil && !other.IsZero():
		res.out.Ghost = match
		res.out.Ambiguous = true
		res.assume(Assumption{
			Type:        AssumptionFallBack,
			Description: match.Explanation,
			Confidence:  ConfidenceLow,
			Alternatives: []Alternative{
				{Label: "earlier occurrence", Candidate: &primary, Instant: instant, Chosen: true},
				{Label: "later occurrence", Candidate: &primary, Instant: other},
			},
		}, ConfidenceLow)
		res.tr.Addf("Wall-clock time occurs twice in %s; chose the earlier occurrence", primary.Location())
	}

	if clock.present && primary.PhaseMismatch(timezone.IsDST(instant)) {
		res.phaseMismatch(primary, date, clock, instant)
	}

	return res.finish(primary, instant, match)
}

// phaseMismatch records that the abbreviation names a season not in effect,
// e.g. "EST" in July, and that the local wall clock was used.
func (res *resolution) phaseMismatch(c timezone.Candidate, date calendarDate, clock clockTime, instant time.Time) {
	strictOffset := c.BaseOffsetMinutes * 60
	actual := "daylight"
	if c.Phase == timezone.PhaseDaylight {
		strictOffset = daylightOffset(c.Location(), date.year)
		actual = "standard"
	}
	strict := time.Date(date.year, date.month, date.day, clock.hour, clock.minute, clock.second, 0, time.FixedZone(res.expr.Zone.Abbreviation, strictOffset))
	res.assume(Assumption{
		Type: AssumptionPhaseMismatch,
		Description: fmt.Sprintf("%q names %s time, but %s observes %s time on %s. Read as local wall-clock time (%s); a strict %s reading would be %s.",
			res.expr.Zone.Text, c.Phase, c.IANA, actual, instant.Format("2006-01-02"),
			timezone.OffsetLabel(timezone.OffsetMinutes(instant)), timezone.OffsetLabel(strictOffset/60), strict.UTC().Format(time.RFC3339)),
		Confidence: ConfidenceMedium,
		Alternatives: []Alternative{
			{Label: "local wall-clock reading", Candidate: &c, Instant: instant, Chosen: true},
			{Label: "strict " + timezone.OffsetLabel(strictOffset/60) + " reading", Candidate: &c, Instant: strict},
		},
	}, ConfidenceMedium)
	res.tr.Addf("%q used outside its season in %s; kept the local wall-clock reading", res.expr.Zone.Text, c.IANA)
}

func (res *resolution) ghostFailure(m *ghost.Match) error {
	if m == nil {
		return failure.Internal(errors.New("timestamp normalized without a ghost rule")).WithPartial(res.partial())
	}
	res.tr.Addf("Ghost rule %s (%s) matched: %s", m.Rule, m.Kind, m.Explanation)
	p := res.partial()
	p.Ghost = &failure.Ghost{Rule: m.Rule, Kind: string(m.Kind), Explanation: m.Explanation}
	if len(p.Candidates) > 0 {
		p.Candidates[0].Reason = "preferred candidate; the moment never existed there"
	}
	return failure.GhostTime(m.Explanation, p)
}

// finish fills in the zone, DST and range facts for the chosen instant.
func (res *resolution) finish(zone timezone.Candidate, instant time.Time, match *ghost.Match) (*Interpretation, error) {
	out := res.out
	out.Instant = instant
	out.Zone = zone
	out.DSTActive = timezone.IsDST(instant)
	out.ZoneName = zone.DisplayName(instant)

	for _, alt := range out.Candidates {
		if !alt.Chosen {
			out.Alternatives = append(out.Alternatives, alt)
		}
	}

	loc := zone.Location()
	local := instant.In(loc)
	out.DSTBoundary = timezone.IsTransitionDay(loc, local.Year(), local.Month(), local.Day()) ||
		(match != nil && match.Kind == ghost.KindFallAmbiguous)
	if next, ok := timezone.NextTransition(instant, transitionHorizon); ok {
		out.NextTransition = &next
	}

	if res.opts.Y2K38Check {
		out.Y2K38 = y2k38.Check(instant.Unix())
		out.Y2K38Checked = true
		res.tr.Addf("Y2K38 check: %s", out.Y2K38.Explanation)
	}

	if shown, ok := timezone.WholeMinuteOffset(instant); ok {
		name, off := instant.Zone()
		out.Instant = shown
		res.assume(Assumption{
			Type: AssumptionSubMinuteOffset,
			Description: fmt.Sprintf("%s (%s) used the offset %s, which has a seconds part. The local time is shown at %s, the nearest whole-minute offset, so it names the same instant.",
				name, instant.Location(), timezone.FormatOffsetSeconds(off), timezone.FormatOffset(timezone.OffsetMinutes(shown))),
			Confidence: ConfidenceHigh,
		}, ConfidenceHigh)
		res.tr.Addf("Offset %s rounded to %s for display", timezone.FormatOffsetSeconds(off), timezone.FormatOffset(timezone.OffsetMinutes(shown)))
	}

	res.tr.Addf("Resolved to %s (%s, %s)", out.Instant.Format(time.RFC3339), out.ZoneName, timezone.OffsetLabel(timezone.OffsetMinutes(out.Instant)))
	res.tr.Addf("Confidence: %s", out.Confidence)
	out.Trace = res.tr.Steps()
	return out, nil
}

func spread(cands []timezone.Candidate) int {
	entry := timezone.AbbreviationEntry{Candidates: cands}
	return entry.MaxSpreadMinutes()
}

func formatSpread(minutes int) string {
	if minutes%60 == 0 {
		return fmt.Sprintf("%d hour(s)", minutes/60)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}

// daylightOffset is the larger of the January and July offsets, in seconds.
func daylightOffset(loc *time.Location, year int) int {
	_, jan := time.Date(year, time.January, 1, 12, 0, 0, 0, loc).Zone()
	_, jul := time.Date(year, time.July, 1, 12, 0, 0, 0, loc).Zone()
	return max(jan, jul)
}

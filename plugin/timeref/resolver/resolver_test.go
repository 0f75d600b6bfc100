package resolver

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
	"github.com/Drgblack/timemeaning/plugin/timeref/ghost"
	"github.com/Drgblack/timemeaning/plugin/timeref/parser"
	"github.com/Drgblack/timemeaning/plugin/timeref/token"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// march1 is a Saturday.
var march1 = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	reg, err := ghost.DefaultRegistry()
	require.NoError(t, err)
	return New(timezone.MustDefaultKnowledgeBase(), reg)
}

func resolve(t *testing.T, input string, ctx Context) (*Interpretation, error) {
	t.Helper()
	tokens, err := token.New(timezone.MustDefaultKnowledgeBase()).Tokenize(input)
	require.NoError(t, err)
	expr, err := parser.Parse(input, tokens)
	require.NoError(t, err)
	return newTestResolver(t).Resolve(expr, ctx, DefaultOptions())
}

func mustResolve(t *testing.T, input string, ctx Context) *Interpretation {
	t.Helper()
	in, err := resolve(t, input, ctx)
	require.NoError(t, err)
	return in
}

func assumptionTypes(in *Interpretation) []string {
	out := make([]string, 0, len(in.Assumptions))
	for _, a := range in.Assumptions {
		out = append(out, a.Type)
	}
	return out
}

func TestResolve_ESTOnFriday(t *testing.T) {
	in := mustResolve(t, "3pm EST on Friday", Context{Reference: march1})

	assert.Equal(t, time.Date(2025, time.March, 7, 20, 0, 0, 0, time.UTC), in.Instant.UTC())
	assert.Equal(t, "2025-03-07T15:00:00-05:00", in.Instant.Format("2006-01-02T15:04:05-07:00"))
	assert.Equal(t, "Eastern Standard Time", in.ZoneName)
	assert.Equal(t, "America/New_York", in.Zone.IANA)
	assert.False(t, in.DSTActive)
	assert.True(t, in.Ambiguous)
	assert.Equal(t, ConfidenceMedium, in.Confidence)

	require.Len(t, in.Alternatives, 1)
	assert.Equal(t, "Australia/Sydney (UTC+10)", in.Alternatives[0].Label)

	require.NotNil(t, in.NextTransition)
	assert.Equal(t, time.Date(2025, time.March, 9, 7, 0, 0, 0, time.UTC), in.NextTransition.At.UTC())
	assert.False(t, in.DSTBoundary)
	assert.Contains(t, assumptionTypes(in), AssumptionAmbiguousZone)
}

func TestResolve_NoonGMT(t *testing.T) {
	in := mustResolve(t, "Noon GMT", Context{Reference: march1})
	assert.Equal(t, time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC), in.Instant.UTC())
	assert.Equal(t, ConfidenceHigh, in.Confidence)
	assert.Empty(t, in.Alternatives)
	assert.False(t, in.Ambiguous)
}

func TestResolve_CSTMonday(t *testing.T) {
	in := mustResolve(t, "9am CST Monday", Context{Reference: march1})
	assert.Equal(t, time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC), in.Instant.UTC())
	assert.NotEqual(t, ConfidenceHigh, in.Confidence)
	require.Len(t, in.Candidates, 2)
	assert.Equal(t, "America/Chicago", in.Candidates[0].Candidate.IANA)
	assert.Equal(t, "Asia/Shanghai", in.Candidates[1].Candidate.IANA)
	assert.Equal(t, time.Date(2025, time.March, 3, 1, 0, 0, 0, time.UTC), in.Candidates[1].Instant.UTC())
}

func TestResolve_Zulu(t *testing.T) {
	for _, tt := range []struct {
		input string
		hour  int
		min   int
	}{
		{"1200Z", 12, 0},
		{"0830Z", 8, 30},
		{"the drop is at 0830Z, not 3:30am EST", 8, 30},
	} {
		t.Run(tt.input, func(t *testing.T) {
			in := mustResolve(t, tt.input, Context{Reference: march1})
			assert.Equal(t, time.Date(2025, time.March, 1, tt.hour, tt.min, 0, 0, time.UTC), in.Instant.UTC())
			assert.Equal(t, ConfidenceHigh, in.Confidence)
			assert.False(t, in.Ambiguous)
			assert.Empty(t, in.Alternatives)
		})
	}
}

func TestResolve_AmbiguityCompleteness(t *testing.T) {
	kb := timezone.MustDefaultKnowledgeBase()
	for _, entry := range kb.Ambiguous() {
		t.Run(entry.Abbreviation, func(t *testing.T) {
			in, err := resolve(t, "10:00 "+entry.Abbreviation+" on March 12 2025", Context{Reference: march1})
			require.NoError(t, err)
			assert.NotEqual(t, ConfidenceHigh, in.Confidence)
			assert.Len(t, in.Candidates, len(entry.Candidates))
			assert.Len(t, in.Alternatives, len(entry.Candidates)-1)

			var found bool
			for _, a := range in.Assumptions {
				if a.Type == AssumptionAmbiguousZone {
					found = true
					assert.Len(t, a.Alternatives, len(entry.Candidates))
				}
			}
			assert.True(t, found)
		})
	}
}

func TestResolve_SpringGap(t *testing.T) {
	ref := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err := resolve(t, "2:30am on March 8 2026", Context{Reference: ref, Locale: "America/New_York"})
	require.Error(t, err)
	assert.True(t, failure.IsCode(err, failure.CodeGhostTime))

	f, _ := failure.As(err)
	require.NotNil(t, f.Partial.Ghost)
	assert.Equal(t, string(ghost.KindSpringGap), f.Partial.Ghost.Kind)
	assert.NotEmpty(t, f.Partial.Candidates)
	assert.NotEmpty(t, f.Partial.Trace)
}

func TestResolve_SkippedDay(t *testing.T) {
	ref := time.Date(2011, time.December, 1, 0, 0, 0, 0, time.UTC)
	_, err := resolve(t, "December 30 2011", Context{Reference: ref, Locale: "Pacific/Apia"})
	require.Error(t, err)
	assert.True(t, failure.IsCode(err, failure.CodeGhostTime))
	f, _ := failure.As(err)
	assert.Equal(t, "samoa_2011", f.Partial.Ghost.Rule)
}

func TestResolve_InvalidDate(t *testing.T) {
	_, err := resolve(t, "February 30 at 10:00 CET", Context{Reference: march1})
	require.Error(t, err)
	assert.True(t, failure.IsCode(err, failure.CodeGhostTime))
	f, _ := failure.As(err)
	assert.Equal(t, string(ghost.KindDeletedHistorical), f.Partial.Ghost.Kind)
}

func TestResolve_FallBack(t *testing.T) {
	ref := time.Date(2026, time.October, 30, 0, 0, 0, 0, time.UTC)
	in := mustResolve(t, "1:30am on November 1 2026", Context{Reference: ref, Locale: "America/New_York"})

	assert.Equal(t, time.Date(2026, time.November, 1, 5, 30, 0, 0, time.UTC), in.Instant.UTC())
	assert.Equal(t, ConfidenceLow, in.Confidence)
	assert.True(t, in.Ambiguous)
	assert.True(t, in.DSTBoundary)
	require.NotNil(t, in.Ghost)
	assert.Equal(t, ghost.KindFallAmbiguous, in.Ghost.Kind)

	for _, a := range in.Assumptions {
		if a.Type == AssumptionFallBack {
			require.Len(t, a.Alternatives, 2)
			assert.Equal(t, time.Date(2026, time.November, 1, 6, 30, 0, 0, time.UTC), a.Alternatives[1].Instant.UTC())
			assert.Equal(t, in.Ghost.Explanation, a.Description)
		}
	}
}

func TestResolve_FallBackSettledByAbbreviation(t *testing.T) {
	ref := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		input    string
		want     time.Time
		zoneName string
		offset   int
	}{
		{"Nov 2 2025 1:30am EST", time.Date(2025, time.November, 2, 6, 30, 0, 0, time.UTC), "Eastern Standard Time", -300},
		{"Nov 2 2025 1:30am EDT", time.Date(2025, time.November, 2, 5, 30, 0, 0, time.UTC), "Eastern Daylight Time", -240},
		{"Oct 26 2025 1:30am BST", time.Date(2025, time.October, 26, 0, 30, 0, 0, time.UTC), "British Summer Time", 60},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			in := mustResolve(t, tt.input, Context{Reference: ref})
			assert.Equal(t, tt.want, in.Instant.UTC())
			assert.Equal(t, tt.zoneName, in.ZoneName)
			assert.Equal(t, tt.offset, in.UTCOffsetMinutes())
			assert.Nil(t, in.Ghost)
			assert.True(t, in.DSTBoundary)
			assert.NotContains(t, assumptionTypes(in), AssumptionPhaseMismatch)

			var fallBack *Assumption
			for i := range in.Assumptions {
				if in.Assumptions[i].Type == AssumptionFallBack {
					fallBack = &in.Assumptions[i]
				}
			}
			require.NotNil(t, fallBack)
			assert.Equal(t, ConfidenceHigh, fallBack.Confidence)
			require.Len(t, fallBack.Alternatives, 2)
			assert.True(t, fallBack.Alternatives[0].Chosen)
			assert.Equal(t, tt.want, fallBack.Alternatives[0].Instant.UTC())
		})
	}
}

func TestResolve_DaylightAbbreviationInWinter(t *testing.T) {
	in := mustResolve(t, "3pm CDT on January 1 2025", Context{Reference: march1})

	assert.Equal(t, time.Date(2025, time.January, 1, 21, 0, 0, 0, time.UTC), in.Instant.UTC())
	assert.False(t, in.DSTActive)
	assert.Equal(t, "Central Daylight Time (read as CST)", in.ZoneName)
	assert.Contains(t, assumptionTypes(in), AssumptionPhaseMismatch)
}

func TestResolve_InvalidContext(t *testing.T) {
	_, err := resolve(t, "3pm tomorrow", Context{Reference: march1})
	require.Error(t, err)
	assert.True(t, failure.IsCode(err, failure.CodeInvalidContext))
	f, _ := failure.As(err)
	assert.Equal(t, "3pm tomorrow", f.Partial.DetectedPhrase)

	_, err = resolve(t, "3pm EST", Context{})
	assert.True(t, failure.IsCode(err, failure.CodeInvalidContext))

	_, err = resolve(t, "3pm EST", Context{Reference: march1, Locale: "Mars/Olympus"})
	assert.True(t, failure.IsCode(err, failure.CodeInvalidContext))

	_, err = resolve(t, "3pm EST", Context{Reference: march1, CulturalTimeSystem: "mayan"})
	assert.True(t, failure.IsCode(err, failure.CodeInvalidContext))
}

func TestResolve_UnknownAbbreviation(t *testing.T) {
	_, err := resolve(t, "3pm XYZ", Context{Reference: march1, Locale: "Europe/Paris"})
	require.Error(t, err)
	assert.True(t, failure.IsCode(err, failure.CodeAmbiguousUnresolvable))
	f, _ := failure.As(err)
	assert.Equal(t, "3pm XYZ", f.Partial.DetectedPhrase)
}

func TestResolve_ContextLocale(t *testing.T) {
	in := mustResolve(t, "tomorrow at 15:00", Context{Reference: march1, Locale: "Europe/Berlin"})
	assert.Equal(t, time.Date(2025, time.March, 2, 14, 0, 0, 0, time.UTC), in.Instant.UTC())
	assert.Equal(t, ConfidenceMedium, in.Confidence)
	assert.Contains(t, assumptionTypes(in), AssumptionContextZone)
}

func TestResolve_RelativeAnchorsToLocaleDate(t *testing.T) {
	// 23:00 UTC on March 1 is already March 2 in Tokyo.
	ref := time.Date(2025, time.March, 1, 23, 0, 0, 0, time.UTC)
	in := mustResolve(t, "tomorrow at 09:00", Context{Reference: ref, Locale: "Asia/Tokyo"})
	assert.Equal(t, "2025-03-03T09:00:00+09:00", in.Instant.Format(time.RFC3339))
}

func TestResolve_Weekdays(t *testing.T) {
	friday := time.Date(2025, time.March, 7, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		input string
		want  string
	}{
		{"Friday 10:00 UTC", "2025-03-07"},
		{"this Friday 10:00 UTC", "2025-03-07"},
		{"next Friday 10:00 UTC", "2025-03-14"},
		{"last Friday 10:00 UTC", "2025-02-28"},
		{"Monday 10:00 UTC", "2025-03-10"},
		{"next Monday 10:00 UTC", "2025-03-10"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			in := mustResolve(t, tt.input, Context{Reference: friday})
			assert.Equal(t, tt.want, in.Instant.Format("2006-01-02"))
		})
	}
}

func TestResolve_AmPmUnknown(t *testing.T) {
	tests := []struct {
		input string
		hour  int
	}{
		{"at 3 CET", 15},
		{"at 9 CET", 9},
		{"at 12 CET", 12},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			in := mustResolve(t, tt.input, Context{Reference: march1})
			assert.Equal(t, tt.hour, in.Instant.Hour())
			assert.Equal(t, ConfidenceMedium, in.Confidence)
			assert.Contains(t, assumptionTypes(in), AssumptionAmPm)
		})
	}

	in := mustResolve(t, "tonight at 8 CET", Context{Reference: march1})
	assert.Equal(t, 20, in.Instant.Hour())
}

func TestResolve_CulturalTime(t *testing.T) {
	in := mustResolve(t, "at 3", Context{Reference: march1, Locale: "Africa/Nairobi", CulturalTimeSystem: "swahili"})
	assert.Equal(t, 9, in.Instant.Hour())
	assert.Contains(t, assumptionTypes(in), AssumptionCulturalTime)

	in = mustResolve(t, "2pm", Context{Reference: march1, Locale: "Africa/Addis_Ababa", CulturalTimeSystem: "ethiopian"})
	assert.Equal(t, 20, in.Instant.Hour())
}

func TestResolve_PhaseMismatch(t *testing.T) {
	ref := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	in := mustResolve(t, "3pm EST on July 4", Context{Reference: ref})
	assert.Equal(t, "2025-07-04T15:00:00-04:00", in.Instant.Format(time.RFC3339))
	assert.True(t, in.DSTActive)
	assert.Equal(t, "Eastern Daylight Time", in.ZoneName)
	assert.Contains(t, assumptionTypes(in), AssumptionPhaseMismatch)
}

func TestResolve_ZoneIndependent(t *testing.T) {
	in := mustResolve(t, "1741377600", Context{Reference: march1})
	assert.True(t, in.ZoneIndependent)
	assert.Equal(t, int64(1741377600), in.Instant.Unix())
	assert.Equal(t, "Etc/UTC", in.Zone.IANA)
	assert.Equal(t, ConfidenceHigh, in.Confidence)

	in = mustResolve(t, "in 90 minutes", Context{Reference: march1, Locale: "Asia/Kolkata"})
	assert.Equal(t, march1.Add(90*time.Minute), in.Instant.UTC())
	assert.Equal(t, "Asia/Kolkata", in.Zone.IANA)

	in = mustResolve(t, "2025-03-07T15:00:00-05:00", Context{Reference: march1})
	assert.Equal(t, time.Date(2025, time.March, 7, 20, 0, 0, 0, time.UTC), in.Instant.UTC())
	assert.Equal(t, -300, in.UTCOffsetMinutes())
}

func TestResolve_Y2K38(t *testing.T) {
	in := mustResolve(t, "2147483647", Context{Reference: march1})
	assert.False(t, in.Y2K38.Unsafe)
	assert.True(t, in.Y2K38Checked)

	in = mustResolve(t, "2147483648", Context{Reference: march1})
	assert.True(t, in.Y2K38.Unsafe)
	assert.Equal(t, int64(2147483648), in.Instant.Unix())

	tokens, err := token.New(timezone.MustDefaultKnowledgeBase()).Tokenize("2147483648")
	require.NoError(t, err)
	expr, err := parser.Parse("2147483648", tokens)
	require.NoError(t, err)
	in, err = newTestResolver(t).Resolve(expr, Context{Reference: march1}, Options{GhostDateCheck: true})
	require.NoError(t, err)
	assert.False(t, in.Y2K38Checked)
	assert.False(t, in.Y2K38.Unsafe)
}

func TestResolve_GhostDateCheckDisabled(t *testing.T) {
	tokens, err := token.New(timezone.MustDefaultKnowledgeBase()).Tokenize("September 5 1752 at 12:00")
	require.NoError(t, err)
	expr, err := parser.Parse("September 5 1752 at 12:00", tokens)
	require.NoError(t, err)

	r := newTestResolver(t)
	_, err = r.Resolve(expr, Context{Reference: march1, Locale: "Europe/London"}, DefaultOptions())
	assert.True(t, failure.IsCode(err, failure.CodeGhostTime))

	in, err := r.Resolve(expr, Context{Reference: march1, Locale: "Europe/London"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1752, in.Instant.Year())
}

func TestResolve_LeadingYear(t *testing.T) {
	in := mustResolve(t, "1752 September 5 noon GMT", Context{Reference: march1})
	assert.Equal(t, time.Date(1752, time.September, 5, 12, 0, 0, 0, time.UTC), in.Instant.UTC())
	assert.Contains(t, in.DetectedPhrase, "1752")
	assert.NotContains(t, assumptionTypes(in), AssumptionDefaultYear)

	_, err := resolve(t, "1752 September 5 noon", Context{Reference: march1, Locale: "Europe/London"})
	require.Error(t, err)
	assert.True(t, failure.IsCode(err, failure.CodeGhostTime))
	f, _ := failure.As(err)
	assert.Equal(t, "british_1752", f.Partial.Ghost.Rule)
}

func TestResolve_Deterministic(t *testing.T) {
	a := mustResolve(t, "3pm EST on Friday", Context{Reference: march1})
	b := mustResolve(t, "3pm EST on Friday", Context{Reference: march1})
	assert.Equal(t, a.Trace, b.Trace)
	assert.Equal(t, a.Assumptions, b.Assumptions)
	assert.True(t, a.Instant.Equal(b.Instant))
}

func TestResolve_TraceNumbered(t *testing.T) {
	in := mustResolve(t, "Noon GMT", Context{Reference: march1})
	require.NotEmpty(t, in.Trace)
	assert.Regexp(t, `^1\. `, in.Trace[0])
	assert.Regexp(t, `^\d+\. Confidence: high$`, in.Trace[len(in.Trace)-1])

	assert.Contains(t, strings.Join(in.Trace, "\n"), "Abbreviation table version "+in.KnowledgeBaseVersion)
}

func TestConfidence_Cap(t *testing.T) {
	assert.Equal(t, ConfidenceMedium, ConfidenceHigh.Cap(ConfidenceMedium))
	assert.Equal(t, ConfidenceLow, ConfidenceMedium.Cap(ConfidenceLow))
	assert.Equal(t, ConfidenceLow, ConfidenceLow.Cap(ConfidenceHigh))
}

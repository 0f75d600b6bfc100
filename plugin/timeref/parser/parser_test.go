package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
	"github.com/Drgblack/timemeaning/plugin/timeref/token"
	"github.com/Drgblack/timemeaning/server/timezone"
)

func parse(t *testing.T, input string) (*Expression, error) {
	t.Helper()
	tk := token.New(timezone.MustDefaultKnowledgeBase())
	tokens, err := tk.Tokenize(input)
	require.NoError(t, err)
	return Parse(input, tokens)
}

func TestParse_Unparseable(t *testing.T) {
	for _, input := range []string{"hello world", "EST", "see you then"} {
		t.Run(input, func(t *testing.T) {
			_, err := parse(t, input)
			require.Error(t, err)
			assert.True(t, failure.IsCode(err, failure.CodeUnparseable))
			f, _ := failure.As(err)
			assert.Equal(t, input, f.Partial.Input)
		})
	}
}

func TestParse_BindsZoneToClock(t *testing.T) {
	expr, err := parse(t, "3pm EST on Friday")
	require.NoError(t, err)

	require.NotNil(t, expr.Clock)
	assert.Equal(t, 15, expr.Clock.Hour)
	assert.True(t, expr.Clock.AmPmKnown)

	require.NotNil(t, expr.Zone)
	assert.Equal(t, ZoneAbbreviation, expr.Zone.Kind)
	assert.Equal(t, "EST", expr.Zone.Abbreviation)
	assert.True(t, expr.Zone.BoundToClock)

	require.NotNil(t, expr.Weekday)
	assert.Equal(t, time.Friday, expr.Weekday.Day)
	assert.Equal(t, "3pm EST on Friday", expr.Phrase)
	assert.False(t, expr.LowConfidence)
}

func TestParse_DetectedPhraseIsSubstring(t *testing.T) {
	expr, err := parse(t, "Can we do the call at 9am CST Monday? Thanks")
	require.NoError(t, err)
	assert.Equal(t, "9am CST Monday", expr.Phrase)
	assert.Equal(t, 9, expr.Clock.Hour)
}

func TestParse_MultipleZones(t *testing.T) {
	expr, err := parse(t, "3pm EST / 12pm PST")
	require.NoError(t, err)
	require.NotNil(t, expr.Zone)
	assert.Equal(t, "EST", expr.Zone.Abbreviation)
	require.Len(t, expr.IgnoredZones, 1)
	assert.Equal(t, "PST", expr.IgnoredZones[0].Abbreviation)
	assert.True(t, expr.LowConfidence)
}

func TestParse_RepeatedZoneIsNotAConflict(t *testing.T) {
	expr, err := parse(t, "3pm EST (EST)")
	require.NoError(t, err)
	assert.False(t, expr.LowConfidence)
	assert.Empty(t, expr.IgnoredZones)
}

func TestParse_ZuluWins(t *testing.T) {
	expr, err := parse(t, "0830Z, that's 3:30am EST")
	require.NoError(t, err)
	require.NotNil(t, expr.Zone)
	assert.Equal(t, ZoneZulu, expr.Zone.Kind)
	assert.Equal(t, 8, expr.Clock.Hour)
	assert.Equal(t, 30, expr.Clock.Minute)
	assert.NotEmpty(t, expr.IgnoredZones)
	assert.False(t, expr.LowConfidence)
}

func TestParse_UnknownAbbreviation(t *testing.T) {
	expr, err := parse(t, "3pm XYZ")
	require.NoError(t, err)
	require.NotNil(t, expr.Zone)
	assert.False(t, expr.Zone.Known)

	expr, err = parse(t, "XYZ said 3pm")
	require.NoError(t, err)
	assert.Nil(t, expr.Zone)
}

func TestParse_AmPmUnknown(t *testing.T) {
	expr, err := parse(t, "meet at 3 tomorrow")
	require.NoError(t, err)
	require.NotNil(t, expr.Clock)
	assert.False(t, expr.Clock.AmPmKnown)
	assert.Equal(t, 3, expr.Clock.Hour)
	require.NotNil(t, expr.Relative)
	assert.Equal(t, 1, expr.Relative.Days)
}

func TestParse_Meridiem(t *testing.T) {
	tests := []struct {
		input string
		hour  int
	}{
		{"12am", 0},
		{"12pm", 12},
		{"11pm", 23},
		{"7am", 7},
	}
	for _, tt := range tests {
		expr, err := parse(t, tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.hour, expr.Clock.Hour, tt.input)
	}
}

func TestParse_ZoneIndependent(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1741377600", true},
		{"2025-03-07T15:00:00+01:00", true},
		{"2025-03-07T15:00:00", false},
		{"in 3 hours", true},
		{"in 3 days", false},
		{"3pm", false},
	}
	for _, tt := range tests {
		expr, err := parse(t, tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.want, expr.ZoneIndependent(), tt.input)
	}
}

func TestParse_DateOnly(t *testing.T) {
	expr, err := parse(t, "December 30 2011")
	require.NoError(t, err)
	assert.True(t, expr.DateOnly())
	assert.Equal(t, 2011, expr.Date.Year)

	expr, err = parse(t, "December 30 2011 at 10:00")
	require.NoError(t, err)
	assert.False(t, expr.DateOnly())

	expr, err = parse(t, "tonight")
	require.NoError(t, err)
	assert.False(t, expr.DateOnly())
	assert.Equal(t, 20, expr.Relative.DefaultHour)
}

func TestParse_Steps(t *testing.T) {
	expr, err := parse(t, "Noon GMT")
	require.NoError(t, err)
	assert.NotEmpty(t, expr.Steps)
	assert.Contains(t, expr.Steps[0], "Recognized 2 token(s)")
	assert.Contains(t, expr.Steps[len(expr.Steps)-1], `"Noon GMT"`)
}

func TestDuration_Apply(t *testing.T) {
	ref := time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, ref.Add(90*time.Minute), Duration{Amount: 90, Unit: "minute"}.Apply(ref))
	assert.Equal(t, ref.Add(-2*time.Hour), Duration{Amount: -2, Unit: "hour"}.Apply(ref))
	assert.Equal(t, ref.AddDate(0, 0, 14), Duration{Amount: 2, Unit: "week"}.Apply(ref))
	assert.Equal(t, ref.AddDate(1, 0, 0), Duration{Amount: 1, Unit: "year"}.Apply(ref))
}

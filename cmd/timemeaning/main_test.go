package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drgblack/timemeaning/plugin/timeref"
	"github.com/Drgblack/timemeaning/server/auth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveCommand_JSON(t *testing.T) {
	out, err := run(t, "resolve", "Let's meet at 3pm EST on Friday", "--reference", "2025-03-01T12:00:00Z", "--json")
	require.NoError(t, err)

	var resp timeref.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "2025-03-07T20:00:00Z", resp.Resolved.ISO8601UTC)
	assert.Equal(t, int64(1741377600), resp.Resolved.Unix)
}

func TestResolveCommand_Text(t *testing.T) {
	out, err := run(t, "resolve", "3pm", "EST", "on", "Friday", "--reference", "2025-03-01T12:00:00Z")
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	assert.Equal(t, "2025-03-07T20:00:00Z", lines[0])
	assert.Contains(t, out, "Eastern Standard Time (UTC-05:00)")
	assert.Contains(t, out, "ambiguous")
}

func TestResolveCommand_Failure(t *testing.T) {
	out, err := run(t, "resolve", "whenever works for you", "--reference", "2025-03-01T12:00:00Z", "--json")
	require.Error(t, err)

	var env timeref.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.Equal(t, "UNPARSEABLE", env.Error.Code)
}

func TestResolveCommand_LocaleFromEnv(t *testing.T) {
	t.Setenv("TIMEMEANING_DEFAULT_LOCALE", "Europe/Berlin")
	out, err := run(t, "resolve", "tomorrow at 15:00", "--reference", "2025-03-01T12:00:00Z", "--json")
	require.NoError(t, err)

	var resp timeref.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "2025-03-02T14:00:00Z", resp.Resolved.ISO8601UTC)
}

func TestAbbreviationsCommand(t *testing.T) {
	out, err := run(t, "abbreviations")
	require.NoError(t, err)
	assert.Contains(t, out, "ABBR")
	assert.Contains(t, out, "EST")
	assert.Contains(t, out, "knowledge base")

	out, err = run(t, "abbreviations", "ist")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "IST"))
	assert.Contains(t, out, "Asia/Kolkata")

	_, err = run(t, "abbreviations", "XYZT")
	assert.Error(t, err)
}

func TestAPIKeyIssue(t *testing.T) {
	_, err := run(t, "apikey", "issue", "--id", "ci")
	assert.Error(t, err)

	t.Setenv("TIMEMEANING_API_SECRET", "s3cret")
	out, err := run(t, "apikey", "issue", "--id", "ci", "--name", "build bot")
	require.NoError(t, err)

	claims, err := auth.ParseAPIToken(strings.TrimSpace(out), []byte("s3cret"))
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Subject)
	assert.Equal(t, "build bot", claims.Name)
	require.NotNil(t, claims.ExpiresAt)
}

package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drgblack/timemeaning/internal/profile"
	"github.com/Drgblack/timemeaning/plugin/timeref"
	"github.com/Drgblack/timemeaning/server/auth"
	"github.com/Drgblack/timemeaning/server/internal/observability"
	"github.com/Drgblack/timemeaning/store"
	storetest "github.com/Drgblack/timemeaning/store/test"
)

const scenarioBody = `{"input":"Let's meet at 3pm EST on Friday","context":{"referenceDatetime":"2025-03-01T12:00:00Z"}}`

type testServer struct {
	echo    *echo.Echo
	service *APIV1Service
	// now is the engine clock, read when a request has no reference.
	now time.Time
}

func newTestServer(t *testing.T, p *profile.Profile, withStore bool) *testServer {
	t.Helper()
	if p == nil {
		p = &profile.Profile{}
	}
	if p.RateLimitPerMinute == 0 {
		p.RateLimitPerMinute = 6000
		p.RateLimitBurst = 1000
	}
	p.InstanceURL = "https://tm.example"

	ts := &testServer{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	engine, err := timeref.NewEngine(timeref.WithClock(func() time.Time { return ts.now }))
	require.NoError(t, err)

	var st *store.Store
	if withStore {
		st = storetest.NewTestingStoreWithDriver(context.Background(), t, "sqlite")
	}

	service := NewAPIV1Service(p, st, engine, engine.KnowledgeBase())
	service.Metrics = observability.NewMetrics(100)

	e := echo.New()
	e.Use(middleware.RequestID())
	service.RegisterRoutes(e)
	ts.echo, ts.service = e, service
	return ts
}

func (ts *testServer) do(method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) timeref.ErrorBody {
	t.Helper()
	var env timeref.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestResolve(t *testing.T) {
	ts := newTestServer(t, nil, false)

	rec := ts.do(http.MethodPost, "/api/v1/resolve", scenarioBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp timeref.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2025-03-07T20:00:00Z", resp.Resolved.ISO8601UTC)
	assert.Equal(t, "2025-03-07T15:00:00-05:00", resp.Resolved.ISO8601Local)
	assert.Equal(t, int64(1741377600), resp.Resolved.Unix)
	assert.True(t, resp.Flags.Ambiguous)
}

func TestResolve_Failures(t *testing.T) {
	ts := newTestServer(t, nil, false)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty input", `{"input":""}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed json", `{"input":`, http.StatusBadRequest, "INVALID_INPUT"},
		{"unparseable", `{"input":"whenever works for you","context":{"referenceDatetime":"2025-03-01T12:00:00Z"}}`, http.StatusUnprocessableEntity, "UNPARSEABLE"},
		{"ghost time", `{"input":"2:30 AM on March 8 2026 America/New_York","context":{"referenceDatetime":"2025-03-01T12:00:00Z"}}`, http.StatusUnprocessableEntity, "GHOST_TIME"},
		{"bad reference", `{"input":"3pm EST","context":{"referenceDatetime":"yesterday-ish"}}`, http.StatusBadRequest, "INVALID_CONTEXT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/v1/resolve", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestResolveBatch(t *testing.T) {
	ts := newTestServer(t, nil, false)

	body := `{"items":[` + scenarioBody + `,{"input":"whenever works for you"}]}`
	rec := ts.do(http.MethodPost, "/api/v1/resolve/batch", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp timeref.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.NotNil(t, resp.Results[0].Response)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, "UNPARSEABLE", resp.Results[1].Error.Code)

	rec = ts.do(http.MethodPost, "/api/v1/resolve/batch", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveBatch_CostsOneTokenPerItem(t *testing.T) {
	ts := newTestServer(t, &profile.Profile{RateLimitPerMinute: 1, RateLimitBurst: 3}, false)

	items := strings.Repeat(scenarioBody+",", 3)
	body := `{"items":[` + strings.TrimSuffix(items, ",") + `]}`
	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/v1/resolve/batch", body).Code)

	rec := ts.do(http.MethodPost, "/api/v1/resolve", scenarioBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestAuthentication(t *testing.T) {
	secret := "s3cret"
	ts := newTestServer(t, &profile.Profile{APISecret: secret}, false)

	rec := ts.do(http.MethodPost, "/api/v1/resolve", scenarioBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)

	rec = ts.do(http.MethodPost, "/api/v1/resolve", scenarioBody, echo.HeaderAuthorization, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.GenerateAPIToken("key-1", "test", time.Now(), time.Now().Add(time.Hour), []byte(secret))
	require.NoError(t, err)
	rec = ts.do(http.MethodPost, "/api/v1/resolve", scenarioBody, echo.HeaderAuthorization, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Read-only endpoints stay public.
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/v1/timezones/abbreviations", "").Code)
}

func TestShares(t *testing.T) {
	ts := newTestServer(t, nil, true)

	rec := ts.do(http.MethodPost, "/api/v1/shares", scenarioBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created ShareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "https://tm.example/s/"+created.ID, created.URL)
	assert.NotEmpty(t, created.ExpiresAt)
	assert.Empty(t, created.Result.Input)
	assert.Empty(t, created.Result.DetectedPhrase)

	// Same input and context share the same link.
	rec = ts.do(http.MethodPost, "/api/v1/shares", scenarioBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	var again ShareResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, created.ID, again.ID)

	rec = ts.do(http.MethodGet, "/api/v1/shares/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Let's meet")
	var stored timeref.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "2025-03-07T20:00:00Z", stored.Resolved.ISO8601UTC)

	rec = ts.do(http.MethodGet, "/s/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, `<meta property="og:image" content="https://tm.example/api/v1/shares/`+created.ID+`/og.png">`)
	assert.Contains(t, page, "<table>")
	assert.NotContains(t, page, "meet at")

	rec = ts.do(http.MethodGet, "/api/v1/shares/"+created.ID+"/og.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 630, img.Bounds().Dy())

	rec = ts.do(http.MethodGet, "/api/v1/shares/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}

func TestShares_KeyedByEffectiveReference(t *testing.T) {
	ts := newTestServer(t, nil, true)
	const body = `{"input":"3pm EST tomorrow"}`

	share := func() ShareResponse {
		t.Helper()
		rec := ts.do(http.MethodPost, "/api/v1/shares", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp ShareResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := share()
	assert.Equal(t, "2025-03-02T20:00:00Z", first.Result.Resolved.ISO8601UTC)
	assert.Equal(t, first.ID, share().ID)

	ts.now = ts.now.Add(72 * time.Hour)
	later := share()
	assert.Equal(t, "2025-03-05T20:00:00Z", later.Result.Resolved.ISO8601UTC)
	assert.NotEqual(t, first.ID, later.ID)

	// The first link still points at what was shared.
	rec := ts.do(http.MethodGet, "/api/v1/shares/"+first.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stored timeref.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "2025-03-02T20:00:00Z", stored.Resolved.ISO8601UTC)
}

func TestShares_WithoutStore(t *testing.T) {
	ts := newTestServer(t, nil, false)
	rec := ts.do(http.MethodPost, "/api/v1/shares", scenarioBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAbbreviations(t *testing.T) {
	ts := newTestServer(t, nil, false)

	rec := ts.do(http.MethodGet, "/api/v1/timezones/abbreviations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list AbbreviationListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.NotEmpty(t, list.Version)
	assert.NotEmpty(t, list.Abbreviations)

	rec = ts.do(http.MethodGet, "/api/v1/timezones/abbreviations?ambiguous=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ambiguous AbbreviationListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ambiguous))
	assert.Less(t, len(ambiguous.Abbreviations), len(list.Abbreviations))
	for _, a := range ambiguous.Abbreviations {
		assert.True(t, a.Ambiguous, a.Abbreviation)
	}

	rec = ts.do(http.MethodGet, "/api/v1/timezones/abbreviations/est", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var est AbbreviationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.Equal(t, "EST", est.Abbreviation)
	assert.True(t, est.Ambiguous)
	assert.Equal(t, "America/New_York", est.Candidates[0].IANA)
	assert.Positive(t, est.MaxSpreadMinutes)

	rec = ts.do(http.MethodGet, "/api/v1/timezones/abbreviations/XYZT", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsOverview(t *testing.T) {
	ts := newTestServer(t, nil, false)
	ts.do(http.MethodPost, "/api/v1/resolve", scenarioBody)
	ts.do(http.MethodPost, "/api/v1/resolve", `{"input":""}`)

	rec := ts.do(http.MethodGet, "/api/v1/system/metrics/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var overview MetricsOverviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overview))
	assert.Equal(t, int64(2), overview.TotalRequests)
	assert.Equal(t, int64(1), overview.ErrorCount)
	assert.Equal(t, int64(1), overview.Outcomes["RESOLVED"])
	assert.Equal(t, int64(1), overview.Outcomes["INVALID_INPUT"])
	require.Len(t, overview.Endpoints, 1)
	assert.Equal(t, "resolve", overview.Endpoints[0].Endpoint)
}

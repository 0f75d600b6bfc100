package v1

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/Drgblack/timemeaning/plugin/timeref"
	"github.com/Drgblack/timemeaning/plugin/timeref/render"
	apierrors "github.com/Drgblack/timemeaning/server/internal/errors"
	"github.com/Drgblack/timemeaning/store"
)

// ShareResponse is returned when a share link is created.
type ShareResponse struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	ImageURL  string            `json:"imageUrl"`
	ExpiresAt string            `json:"expiresAt,omitempty"`
	Result    *timeref.Response `json:"result"`
}

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// CreateShare resolves a request and stores the redacted result behind a
// deterministic slug. The input text itself is never stored.
// POST /api/v1/shares
func (s *APIV1Service) CreateShare(c echo.Context) error {
	if s.Store == nil {
		return s.writeError(c, apierrors.ServiceUnavailable("sharing is not configured"))
	}
	req := &timeref.Request{}
	if err := c.Bind(req); err != nil {
		return s.writeError(c, apierrors.InvalidArgument("request body must be a JSON resolve request"))
	}
	s.withDefaultLocale(req)

	ctx := c.Request().Context()
	interpretation, err := s.Resolver.Interpret(ctx, req)
	if err != nil {
		return s.writeError(c, apierrors.FromResolution(err))
	}
	redacted := timeref.NewResponse(interpretation, req.Options).Redacted()
	payload, err := json.Marshal(redacted)
	if err != nil {
		return s.writeError(c, apierrors.Internal(errors.Wrap(err, "failed to encode shared result")))
	}

	shared, err := s.Store.CreateSharedResult(ctx, &store.SharedResult{
		ContentHash: store.ContentHash(req.Input, shareReference(interpretation.Reference, req.Context)),
		Payload:     payload,
		Markdown:    render.Markdown(interpretation),
	})
	if err != nil {
		return s.writeError(c, apierrors.Internal(err))
	}

	resp := &ShareResponse{
		ID:       shared.ID,
		URL:      s.instanceURL("/s/" + shared.ID),
		ImageURL: s.instanceURL("/api/v1/shares/" + shared.ID + "/og.png"),
		Result:   redacted,
	}
	if shared.ExpiresTs > 0 {
		resp.ExpiresAt = time.Unix(shared.ExpiresTs, 0).UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetShare returns the stored redacted response.
// GET /api/v1/shares/:id
func (s *APIV1Service) GetShare(c echo.Context) error {
	shared, apiErr := s.lookupShare(c)
	if apiErr != nil {
		return s.writeError(c, apiErr)
	}
	return c.JSONBlob(http.StatusOK, shared.Payload)
}

var sharePageTemplate = template.Must(template.New("share").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:image" content="{{.ImageURL}}">
<meta property="og:image:width" content="1200">
<meta property="og:image:height" content="630">
<meta name="twitter:card" content="summary_large_image">
</head>
<body>
<main>
{{.Body}}
</main>
</body>
</html>
`))

type sharePage struct {
	Title       string
	Description string
	ImageURL    string
	Body        template.HTML
}

// GetSharePage renders the share summary as HTML.
// GET /s/:id
func (s *APIV1Service) GetSharePage(c echo.Context) error {
	shared, apiErr := s.lookupShare(c)
	if apiErr != nil {
		c.Set(outcomeContextKey, string(apiErr.Code))
		return c.String(apiErr.Status(), apiErr.Message)
	}

	var body bytes.Buffer
	if err := markdownRenderer.Convert([]byte(shared.Markdown), &body); err != nil {
		return s.writeError(c, apierrors.Internal(errors.Wrap(err, "failed to render share page")))
	}

	resp := &timeref.Response{}
	_ = json.Unmarshal(shared.Payload, resp)

	page := sharePage{
		Title:       "Resolved time: " + resp.Resolved.ISO8601UTC,
		Description: firstSentence(resp.Explanation),
		ImageURL:    s.instanceURL("/api/v1/shares/" + shared.ID + "/og.png"),
		// goldmark escapes raw HTML unless WithUnsafe is set.
		Body: template.HTML(body.String()),
	}
	var out bytes.Buffer
	if err := sharePageTemplate.Execute(&out, page); err != nil {
		return s.writeError(c, apierrors.Internal(errors.Wrap(err, "failed to render share page")))
	}
	return c.HTMLBlob(http.StatusOK, out.Bytes())
}

func (s *APIV1Service) lookupShare(c echo.Context) (*store.SharedResult, *apierrors.APIError) {
	if s.Store == nil {
		return nil, apierrors.ServiceUnavailable("sharing is not configured")
	}
	shared, err := s.Store.GetSharedResult(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apierrors.NotFound("share not found or expired")
	}
	if err != nil {
		return nil, apierrors.Internal(err)
	}
	return shared, nil
}

// shareReference folds everything besides the input that changes the result.
// The reference is the instant actually used, so a request without one is
// keyed by the server time it was resolved at.
func shareReference(reference time.Time, rc timeref.RequestContext) string {
	return strings.Join([]string{reference.UTC().Format(time.RFC3339Nano), rc.Locale, rc.CulturalTimeSystem}, "\x1f")
}

func (s *APIV1Service) instanceURL(path string) string {
	return strings.TrimSuffix(s.Profile.InstanceURL, "/") + path
}

func firstSentence(text string) string {
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i+1]
	}
	return text
}

package v1

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"net/http"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/Drgblack/timemeaning/plugin/timeref"
	apierrors "github.com/Drgblack/timemeaning/server/internal/errors"
)

const (
	ogWidth  = 1200
	ogHeight = 630
	// The card is drawn at quarter size with the 7x13 bitmap face and scaled
	// up with nearest-neighbour so the glyphs stay sharp.
	ogScale = 4
)

var (
	ogBackground = color.NRGBA{R: 0x12, G: 0x1a, B: 0x2b, A: 0xff}
	ogForeground = color.NRGBA{R: 0xf5, G: 0xf5, B: 0xf0, A: 0xff}
	ogAccent     = color.NRGBA{R: 0xf2, G: 0xb1, B: 0x34, A: 0xff}
	ogMuted      = color.NRGBA{R: 0x9a, G: 0xa5, B: 0xb8, A: 0xff}
)

// GetShareImage renders the 1200x630 social preview card for a share.
// GET /api/v1/shares/:id/og.png
func (s *APIV1Service) GetShareImage(c echo.Context) error {
	shared, apiErr := s.lookupShare(c)
	if apiErr != nil {
		return s.writeError(c, apiErr)
	}
	resp := &timeref.Response{}
	if err := json.Unmarshal(shared.Payload, resp); err != nil {
		return s.writeError(c, apierrors.Internal(errors.Wrap(err, "failed to decode shared result")))
	}

	ctx := c.Request().Context()
	if err := s.ogSemaphore.Acquire(ctx, 1); err != nil {
		return s.writeError(c, apierrors.ServiceUnavailable("preview rendering is busy"))
	}
	defer s.ogSemaphore.Release(1)

	data, err := renderShareCard(resp)
	if err != nil {
		return s.writeError(c, apierrors.Internal(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return c.Blob(http.StatusOK, "image/png", data)
}

// renderShareCard draws the preview card and encodes it as PNG.
func renderShareCard(resp *timeref.Response) ([]byte, error) {
	canvas := imaging.New(ogWidth/ogScale, ogHeight/ogScale, ogBackground)

	lines := []struct {
		text string
		col  color.Color
	}{
		{"timemeaning", ogAccent},
		{"", nil},
		{resp.Resolved.ISO8601UTC, ogForeground},
		{resp.Resolved.ISO8601Local, ogForeground},
		{resp.Timezone.Name + " (UTC" + resp.Timezone.UTCOffset + ")", ogMuted},
		{"", nil},
		{"confidence: " + resp.Confidence, ogMuted},
	}
	if flags := cardFlags(resp.Flags); flags != "" {
		lines = append(lines, struct {
			text string
			col  color.Color
		}{flags, ogAccent})
	}

	y := 24
	for _, line := range lines {
		if line.text != "" {
			drawText(canvas, 16, y, truncate(line.text, (ogWidth/ogScale-32)/7), line.col)
		}
		y += 15
	}

	card := imaging.Resize(canvas, ogWidth, ogHeight, imaging.NearestNeighbor)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, card, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "failed to encode preview card")
	}
	return buf.Bytes(), nil
}

func drawText(dst *image.NRGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func cardFlags(f timeref.Flags) string {
	var out []byte
	add := func(on bool, label string) {
		if !on {
			return
		}
		if len(out) > 0 {
			out = append(out, " / "...)
		}
		out = append(out, label...)
	}
	add(f.Ambiguous, "ambiguous")
	add(f.GhostDate, "ghost date")
	add(f.DSTBoundary, "DST boundary")
	add(f.Y2K38Unsafe, "Y2K38")
	return string(out)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}

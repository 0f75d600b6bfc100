package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/Drgblack/timemeaning/server/internal/errors"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// AbbreviationResponse describes one abbreviation in the knowledge base.
type AbbreviationResponse struct {
	Abbreviation     string               `json:"abbreviation"`
	Ambiguous        bool                 `json:"ambiguous"`
	MaxSpreadMinutes int                  `json:"maxSpreadMinutes"`
	Candidates       []timezone.Candidate `json:"candidates"`
}

// AbbreviationListResponse is the full knowledge base.
type AbbreviationListResponse struct {
	Version       string                  `json:"version"`
	Abbreviations []*AbbreviationResponse `json:"abbreviations"`
}

// ListAbbreviations returns every abbreviation, optionally only the ambiguous ones.
// GET /api/v1/timezones/abbreviations[?ambiguous=true]
func (s *APIV1Service) ListAbbreviations(c echo.Context) error {
	onlyAmbiguous := c.QueryParam("ambiguous") == "true"
	resp := &AbbreviationListResponse{
		Version:       s.KnowledgeBase.Version(),
		Abbreviations: []*AbbreviationResponse{},
	}
	for _, abbr := range s.KnowledgeBase.Abbreviations() {
		entry, _ := s.KnowledgeBase.Lookup(abbr)
		if onlyAmbiguous && !entry.IsAmbiguous() {
			continue
		}
		resp.Abbreviations = append(resp.Abbreviations, newAbbreviationResponse(entry))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetAbbreviation returns one abbreviation, matched case-insensitively.
// GET /api/v1/timezones/abbreviations/:abbr
func (s *APIV1Service) GetAbbreviation(c echo.Context) error {
	entry, ok := s.KnowledgeBase.Lookup(c.Param("abbr"))
	if !ok {
		return s.writeError(c, apierrors.NotFound("unknown abbreviation "+c.Param("abbr")))
	}
	return c.JSON(http.StatusOK, newAbbreviationResponse(entry))
}

func newAbbreviationResponse(entry *timezone.AbbreviationEntry) *AbbreviationResponse {
	return &AbbreviationResponse{
		Abbreviation:     entry.Abbreviation,
		Ambiguous:        entry.IsAmbiguous(),
		MaxSpreadMinutes: entry.MaxSpreadMinutes(),
		Candidates:       entry.Candidates,
	}
}

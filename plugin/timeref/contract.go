package timeref

import (
	"time"

	"github.com/Drgblack/timemeaning/plugin/timeref/failure"
	"github.com/Drgblack/timemeaning/plugin/timeref/render"
	"github.com/Drgblack/timemeaning/plugin/timeref/resolver"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// MaxBatchSize is the largest number of items one batch may carry.
const MaxBatchSize = 100

// Request is a resolution request.
type Request struct {
	Input   string          `json:"input"`
	Context RequestContext  `json:"context"`
	Options *RequestOptions `json:"options,omitempty"`
}

// RequestContext carries what the caller knows beyond the input text.
type RequestContext struct {
	// ReferenceDatetime is RFC 3339, a naive "2006-01-02T15:04:05" datetime
	// or a "2006-01-02" date. Naive values are read in Locale, else UTC.
	// Empty means the server's current time.
	ReferenceDatetime  string `json:"referenceDatetime,omitempty"`
	Locale             string `json:"locale,omitempty"`
	CulturalTimeSystem string `json:"culturalTimeSystem,omitempty"`
}

// RequestOptions toggles optional output and checks. A nil field means true.
type RequestOptions struct {
	IncludeParseTrace   *bool `json:"includeParseTrace,omitempty"`
	IncludeAlternatives *bool `json:"includeAlternatives,omitempty"`
	GhostDateCheck      *bool `json:"ghostDateCheck,omitempty"`
	Y2K38Check          *bool `json:"y2k38Check,omitempty"`
}

func enabled(b *bool) bool {
	return b == nil || *b
}

func (o *RequestOptions) includeParseTrace() bool {
	return o == nil || enabled(o.IncludeParseTrace)
}

func (o *RequestOptions) includeAlternatives() bool {
	return o == nil || enabled(o.IncludeAlternatives)
}

func (o *RequestOptions) resolverOptions() resolver.Options {
	if o == nil {
		return resolver.DefaultOptions()
	}
	return resolver.Options{
		GhostDateCheck: enabled(o.GhostDateCheck),
		Y2K38Check:     enabled(o.Y2K38Check),
	}
}

// Response is a successful resolution.
type Response struct {
	Input                string       `json:"input"`
	DetectedPhrase       string       `json:"detectedPhrase"`
	Resolved             Resolved     `json:"resolved"`
	Timezone             TimezoneInfo `json:"timezone"`
	Assumptions          []Assumption `json:"assumptions"`
	Flags                Flags        `json:"flags"`
	Confidence           string       `json:"confidence"`
	Explanation          string       `json:"explanation"`
	ParseTrace           []string     `json:"parseTrace,omitempty"`
	KnowledgeBaseVersion string       `json:"knowledgeBaseVersion"`
}

// Resolved holds the four canonical formats of the instant.
type Resolved struct {
	ISO8601Local string `json:"iso8601Local"`
	ISO8601UTC   string `json:"iso8601Utc"`
	Unix         int64  `json:"unix"`
	RFC3339      string `json:"rfc3339"`
}

// TimezoneInfo describes the zone the instant is displayed in.
type TimezoneInfo struct {
	Name              string  `json:"name"`
	IANA              string  `json:"iana,omitempty"`
	UTCOffset         string  `json:"utcOffset"`
	DSTActive         bool    `json:"dstActive"`
	DSTNextTransition *string `json:"dstNextTransition"`
}

// Assumption is one inference made during resolution.
type Assumption struct {
	Type         string        `json:"type"`
	Description  string        `json:"description"`
	Confidence   string        `json:"confidence"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Alternative is one reading named by an assumption.
type Alternative struct {
	Label      string `json:"label"`
	IANA       string `json:"iana,omitempty"`
	UTCOffset  string `json:"utcOffset,omitempty"`
	ISO8601UTC string `json:"iso8601Utc,omitempty"`
	Chosen     bool   `json:"chosen"`
	Note       string `json:"note,omitempty"`
}

// Flags summarise the notable properties of the result.
type Flags struct {
	Ambiguous   bool `json:"ambiguous"`
	GhostDate   bool `json:"ghostDate"`
	Y2K38Unsafe bool `json:"y2k38Unsafe"`
	DSTBoundary bool `json:"dstBoundary"`
}

// NewResponse converts an interpretation into the transport shape.
func NewResponse(in *resolver.Interpretation, opts *RequestOptions) *Response {
	b := render.Render(in)
	resp := &Response{
		Input:          in.Input,
		DetectedPhrase: in.DetectedPhrase,
		Resolved: Resolved{
			ISO8601Local: b.ISO8601Local,
			ISO8601UTC:   b.ISO8601UTC,
			Unix:         b.Unix,
			RFC3339:      b.RFC3339,
		},
		Timezone: TimezoneInfo{
			Name:      in.ZoneName,
			IANA:      in.Zone.IANA,
			UTCOffset: timezone.FormatOffset(in.UTCOffsetMinutes()),
			DSTActive: in.DSTActive,
		},
		Assumptions: make([]Assumption, 0, len(in.Assumptions)),
		Flags: Flags{
			Ambiguous:   in.Ambiguous,
			GhostDate:   in.Ghost != nil,
			Y2K38Unsafe: in.Y2K38.Unsafe,
			DSTBoundary: in.DSTBoundary,
		},
		Confidence:           string(in.Confidence),
		Explanation:          b.Explanation,
		KnowledgeBaseVersion: in.KnowledgeBaseVersion,
	}
	if in.NextTransition != nil {
		at := in.NextTransition.At.UTC().Format(time.RFC3339)
		resp.Timezone.DSTNextTransition = &at
	}

	withAlternatives := opts.includeAlternatives()
	for _, a := range in.Assumptions {
		out := Assumption{Type: a.Type, Description: a.Description, Confidence: string(a.Confidence)}
		if withAlternatives {
			for _, alt := range a.Alternatives {
				out.Alternatives = append(out.Alternatives, newAlternative(alt))
			}
		}
		resp.Assumptions = append(resp.Assumptions, out)
	}
	if opts.includeParseTrace() {
		resp.ParseTrace = b.Trace
	}
	return resp
}

func newAlternative(alt resolver.Alternative) Alternative {
	out := Alternative{Label: alt.Label, Chosen: alt.Chosen, Note: alt.Note}
	if c := alt.Candidate; c != nil {
		out.IANA = c.IANA
		out.UTCOffset = timezone.FormatOffset(c.BaseOffsetMinutes)
	}
	if !alt.Instant.IsZero() {
		out.UTCOffset = timezone.FormatOffset(timezone.OffsetMinutes(alt.Instant))
		out.ISO8601UTC = alt.Instant.UTC().Format(render.LayoutUTC)
	}
	return out
}

// Redacted returns a copy without the input text or the detected phrase,
// suitable for storing behind a share link.
func (r *Response) Redacted() *Response {
	out := *r
	out.Input = ""
	out.DetectedPhrase = ""
	out.ParseTrace = nil
	return &out
}

// ErrorResponse is the error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failed resolution with whatever partial data the
// pipeline had when it stopped.
type ErrorBody struct {
	Code           string              `json:"code"`
	Message        string              `json:"message"`
	Input          string              `json:"input,omitempty"`
	DetectedPhrase string              `json:"detectedPhrase,omitempty"`
	Candidates     []failure.Candidate `json:"candidates,omitempty"`
	Ghost          *failure.Ghost      `json:"ghost,omitempty"`
	ParseTrace     []string            `json:"parseTrace,omitempty"`
}

// NewErrorBody converts err into the error envelope body. Errors that are
// not failures are reported as INTERNAL_ERROR without their details.
func NewErrorBody(err error) ErrorBody {
	f, ok := failure.As(err)
	if !ok {
		f = failure.Internal(err)
	}
	body := ErrorBody{Code: string(f.Code), Message: f.Message}
	if f.Code == failure.CodeInternal {
		return body
	}
	if p := f.Partial; p != nil {
		body.Input = p.Input
		body.DetectedPhrase = p.DetectedPhrase
		body.Candidates = p.Candidates
		body.Ghost = p.Ghost
		body.ParseTrace = p.Trace
	}
	return body
}

// BatchRequest carries up to MaxBatchSize requests.
type BatchRequest struct {
	Items []Request `json:"items"`
}

// BatchResponse holds one result per item, in request order.
type BatchResponse struct {
	Results   []BatchResult `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// BatchResult is the outcome of one batch item: exactly one of Response or
// Error is set.
type BatchResult struct {
	Index    int        `json:"index"`
	Response *Response  `json:"response,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
}

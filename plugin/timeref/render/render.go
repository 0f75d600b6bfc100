// Package render turns an interpretation into its canonical formats and a
// plain-English explanation.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/Drgblack/timemeaning/plugin/timeref/resolver"
	"github.com/Drgblack/timemeaning/server/timezone"
)

// Layouts of the canonical formats.
const (
	LayoutLocal = "2006-01-02T15:04:05-07:00"
	LayoutUTC   = "2006-01-02T15:04:05Z"
	// LayoutRFC3339 is rendered in UTC with a numeric "+00:00" suffix.
	LayoutRFC3339 = "2006-01-02T15:04:05"
	rfc3339Suffix = "+00:00"
)

// Bundle holds every rendering of one instant.
type Bundle struct {
	ISO8601Local string
	ISO8601UTC   string
	Unix         int64
	RFC3339      string
	Explanation  string
	Trace        []string
}

// Render produces the bundle. It is deterministic: the same interpretation
// always renders to the same strings.
func Render(in *resolver.Interpretation) Bundle {
	utc := in.Instant.UTC()
	return Bundle{
		ISO8601Local: in.Instant.Format(LayoutLocal),
		ISO8601UTC:   utc.Format(LayoutUTC),
		Unix:         in.Instant.Unix(),
		RFC3339:      utc.Format(LayoutRFC3339) + rfc3339Suffix,
		Explanation:  Explain(in),
		Trace:        append([]string(nil), in.Trace...),
	}
}

// Explain writes the interpretation as a sentence or two. The input text is
// never repeated, so the result is safe to share.
func Explain(in *resolver.Interpretation) string {
	var sb strings.Builder
	local := in.Instant
	offset := timezone.OffsetLabel(timezone.OffsetMinutes(local))

	fmt.Fprintf(&sb, "%s in %s (%s) is %s UTC.",
		local.Format("3:04 PM on Monday, January 2, 2006"), in.ZoneName, offset,
		in.Instant.UTC().Format("3:04 PM on Monday, January 2, 2006"))

	if in.ZoneIndependent {
		sb.WriteString(" The input named an absolute instant, so no time zone had to be inferred.")
	}
	if len(in.Alternatives) > 0 {
		labels := make([]string, 0, len(in.Alternatives))
		for _, alt := range in.Alternatives {
			labels = append(labels, alt.Label)
		}
		fmt.Fprintf(&sb, " The zone was ambiguous: %s was chosen over %s.", in.Zone.Label(), strings.Join(labels, ", "))
	}
	if in.DSTActive {
		sb.WriteString(" Daylight saving time is in effect.")
	}
	if in.Ghost != nil {
		sb.WriteString(" " + in.Ghost.Explanation)
	}
	if in.Y2K38Checked && (in.Y2K38.Unsafe || in.Y2K38.BeforeEpoch) {
		sb.WriteString(" " + in.Y2K38.Explanation)
	}
	fmt.Fprintf(&sb, " Confidence: %s.", in.Confidence)
	return sb.String()
}

// NextTransitionText describes the next offset change, or "" when the zone
// has none within the search horizon.
func NextTransitionText(in *resolver.Interpretation) string {
	tr := in.NextTransition
	if tr == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s (%s) to %s (%s)",
		tr.At.UTC().Format(time.RFC3339),
		tr.BeforeName, timezone.OffsetLabel(tr.BeforeOffset/60),
		tr.AfterName, timezone.OffsetLabel(tr.AfterOffset/60))
}

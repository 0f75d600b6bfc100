package render

import (
	"fmt"
	"strings"

	"github.com/Drgblack/timemeaning/plugin/timeref/resolver"
)

// Markdown renders a share-safe summary of the interpretation: formats,
// zone, flags and assumptions, but neither the input nor the detected phrase.
func Markdown(in *resolver.Interpretation) string {
	b := Render(in)
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", in.Instant.Format("Monday, January 2, 2006 at 3:04 PM"))
	sb.WriteString(b.Explanation + "\n\n")

	sb.WriteString("| Format | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| ISO 8601 (local) | `%s` |\n", b.ISO8601Local)
	fmt.Fprintf(&sb, "| ISO 8601 (UTC) | `%s` |\n", b.ISO8601UTC)
	fmt.Fprintf(&sb, "| RFC 3339 | `%s` |\n", b.RFC3339)
	fmt.Fprintf(&sb, "| Unix | `%d` |\n\n", b.Unix)

	sb.WriteString("## Time zone\n\n")
	fmt.Fprintf(&sb, "- **%s**", in.ZoneName)
	if in.Zone.IANA != "" {
		fmt.Fprintf(&sb, " (`%s`)", in.Zone.IANA)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "- Daylight saving time: %s\n", yesNo(in.DSTActive))
	if next := NextTransitionText(in); next != "" {
		fmt.Fprintf(&sb, "- Next transition: %s\n", next)
	}
	sb.WriteString("\n")

	var flags []string
	if in.Ambiguous {
		flags = append(flags, "ambiguous")
	}
	if in.Ghost != nil {
		flags = append(flags, "ghost date")
	}
	if in.Y2K38.Unsafe {
		flags = append(flags, "Y2K38 unsafe")
	}
	if in.DSTBoundary {
		flags = append(flags, "DST boundary")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&sb, "**Flags:** %s\n\n", strings.Join(flags, ", "))
	}

	if len(in.Assumptions) > 0 {
		sb.WriteString("## Assumptions\n\n")
		for i, a := range in.Assumptions {
			fmt.Fprintf(&sb, "%d. %s _(%s)_\n", i+1, a.Description, a.Confidence)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Confidence: **%s**\n", in.Confidence)
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

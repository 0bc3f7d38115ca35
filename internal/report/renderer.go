package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/sitefocus/internal/session"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
	Ext() string
}

// ForFormat returns the renderer for "json", "markdown" or "yaml".
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "yaml", "yml":
		return &YAMLRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want json, markdown or yaml)", format)
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(rep *Report) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

func (r *JSONRenderer) Ext() string { return ".json" }

// YAMLRenderer renders a Report as YAML. Per-session samples are omitted.
type YAMLRenderer struct{}

func (r *YAMLRenderer) Render(rep *Report) ([]byte, error) {
	return yaml.Marshal(rep)
}

func (r *YAMLRenderer) Ext() string { return ".yaml" }

// MarkdownRenderer renders a Report as human-readable Markdown.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Ext() string { return ".md" }

func (r *MarkdownRenderer) Render(rep *Report) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Focus report · %s\n\n", rep.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	// ## Summary
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- Sessions: %d\n", rep.Total)
	fmt.Fprintf(&sb, "- Sites: %d\n", len(rep.Sites))
	if len(rep.Sites) > 0 {
		var total float64
		for _, s := range rep.Sites {
			total += s.TotalDuration
		}
		fmt.Fprintf(&sb, "- Time tracked: %s\n", FormatDuration(total))
		fmt.Fprintf(&sb, "- Most focused: %s (%d)\n", rep.Sites[0].Hostname, rep.Sites[0].AvgScore)
	}
	sb.WriteString("\n")

	// ## Sites
	sb.WriteString("## Sites\n\n")
	if len(rep.Sites) == 0 {
		sb.WriteString("_No sessions recorded._\n")
	} else {
		sb.WriteString("| Site | Focus | Band | Visits | Time |\n")
		sb.WriteString("|------|-------|------|--------|------|\n")
		for _, s := range rep.Sites {
			fmt.Fprintf(&sb, "| %s | %d | %s | %d | %s |\n",
				escapeCell(s.Hostname),
				s.AvgScore,
				session.Band(s.AvgScore),
				s.Visits,
				FormatDuration(s.TotalDuration),
			)
		}
	}
	sb.WriteString("\n")

	// ## Recent Sessions
	sb.WriteString("## Recent Sessions\n\n")
	if len(rep.Recent) == 0 {
		sb.WriteString("_No recent sessions._\n")
	} else {
		for _, s := range rep.Recent {
			fmt.Fprintf(&sb, "- %s · %s · %d pts · %s\n",
				s.EndTime.Format("2006-01-02 15:04"),
				s.Hostname,
				s.FocusScore,
				FormatDuration(s.Duration),
			)
		}
	}
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

// escapeCell keeps a value from breaking a markdown table row.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

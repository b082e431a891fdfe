package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/discovery-assessment/internal/collab"
	"github.com/joelkehle/discovery-assessment/internal/extraction"
	"github.com/joelkehle/discovery-assessment/internal/metrics"
	"github.com/joelkehle/discovery-assessment/internal/render"
	"github.com/joelkehle/discovery-assessment/internal/synth"
)

const Disclaimer = "This is an automated preliminary assessment, not financial advice. " +
	"Figures are estimates derived from interview answers and industry benchmark assumptions."

// Document is the full report envelope: rendered markdown plus every input
// that produced it.
type Document struct {
	SessionID   string                             `json:"sessionId"`
	GeneratedAt time.Time                          `json:"generatedAt"`
	Company     string                             `json:"company"`
	Markdown    string                             `json:"reportMarkdown"`
	Sections    []synth.Section                    `json:"sections"`
	Data        extraction.ValidatedAssessmentData `json:"data"`
	Metrics     metrics.PreCalculatedMetrics       `json:"metrics"`
	Focus       synth.Focus                        `json:"focus"`
	Research    collab.Research                    `json:"research"`
	Solutions   []collab.Solution                  `json:"solutions"`
	Sources     SourceInfo                         `json:"sources"`
	Disclaimer  string                             `json:"disclaimer"`
}

func buildMarkdown(b synth.Bundle, doc Document) string {
	var out strings.Builder
	out.WriteString(synth.Markdown(b))

	out.WriteString(synth.PageBreakMarker + "\n\n")
	out.WriteString("## Appendix: Calculation Inputs\n\n")
	out.WriteString("These are the exact values the model used. Fields marked as defaults were not found in your answers.\n\n")
	if len(b.Data.Parsed.Defaulted) > 0 {
		out.WriteString("| Field | Default used |\n|-------|--------------|\n")
		for _, d := range b.Data.Parsed.Defaulted {
			fmt.Fprintf(&out, "| %s | %g |\n", d.Field, d.Value)
		}
		out.WriteString("\n")
	}
	if len(b.Data.Validation.Warnings) > 0 {
		out.WriteString("**Validation warnings**\n\n")
		for _, w := range b.Data.Validation.Warnings {
			fmt.Fprintf(&out, "- %s\n", strings.ReplaceAll(w, "\n", " "))
		}
		out.WriteString("\n")
	}
	if doc.Sources.SolutionsFallback || doc.Sources.ResearchFallback {
		out.WriteString("**Content sources**\n\n")
		if doc.Sources.SolutionsFallback {
			out.WriteString("- Solutions come from a curated catalog because live search was unavailable.\n")
		}
		if doc.Sources.ResearchFallback {
			out.WriteString("- Market context is a general overview because live research was unavailable.\n")
		}
		out.WriteString("\n")
	}
	out.WriteString("```json\n")
	out.WriteString(prettyJSON(map[string]any{
		"parsed":  b.Data.Parsed,
		"metrics": b.Metrics,
	}))
	out.WriteString("\n```\n\n")
	fmt.Fprintf(&out, "_%s_\n", Disclaimer)
	return out.String()
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}

// JSON returns the indented envelope.
func (d Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Meta is the header and footer data shared by the HTML and PDF exports.
func (d Document) Meta() render.Meta {
	badges := []string{
		"Quality: " + string(d.Data.Validation.QualityTier),
		"Profile: " + benchmarkLabel(d.Metrics),
	}
	if n := d.Data.DefaultedCount(); n > 0 {
		badges = append(badges, fmt.Sprintf("Estimated fields: %d", n))
	}
	return render.Meta{
		Title:       "Business Assessment: " + d.Company,
		Company:     d.Company,
		GeneratedAt: d.GeneratedAt,
		Badges:      badges,
		Disclaimer:  d.Disclaimer,
	}
}

// HTML renders the markdown into a standalone document with header badges.
func (d Document) HTML() (string, error) {
	return render.HTML(d.Markdown, d.Meta())
}

func benchmarkLabel(m metrics.PreCalculatedMetrics) string {
	if b, ok := m.Benchmarks[m.Archetype]; ok && b.Label != "" {
		return b.Label
	}
	return string(m.Archetype)
}

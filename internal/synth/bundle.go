// Package synth renders validated assessment data and computed metrics into
// an ordered list of markdown report sections.
//
// Every section is a pure function of the Bundle. No section reads another
// section's output, so each can be rendered and tested on its own.
package synth

import (
	"fmt"
	"strings"

	"github.com/joelkehle/discovery-assessment/internal/collab"
	"github.com/joelkehle/discovery-assessment/internal/extraction"
	"github.com/joelkehle/discovery-assessment/internal/metrics"
)

// Layout markers consumed by the HTML/PDF renderer.
const (
	PageBreakMarker = "<!-- pagebreak -->"
	sectionMarker   = "<!-- section:%s -->"
)

// Section ids, in report order.
const (
	SectionExecutiveSummary = "executive_summary"
	SectionCurrentState     = "current_state"
	SectionBenchmarks       = "benchmarks"
	SectionSolutions        = "solutions"
	SectionFutureState      = "future_state"
	SectionROI              = "roi"
	SectionMarketContext    = "market_context"
	SectionRecommendations  = "recommendations"
)

// Focus carries the human-readable labels of the interview selections. All
// fields are optional.
type Focus struct {
	Category        string `json:"category,omitempty"`
	OpportunityArea string `json:"opportunityArea,omitempty"`
	RevenueModel    string `json:"revenueModel,omitempty"`
	Challenge       string `json:"challenge,omitempty"`
	Metric          string `json:"metric,omitempty"`
	Baseline        string `json:"baseline,omitempty"`
	Friction        string `json:"friction,omitempty"`
	Process         string `json:"process,omitempty"`
	Breakdown       string `json:"breakdown,omitempty"`
}

// Bundle is the full input of every section function.
type Bundle struct {
	Data      extraction.ValidatedAssessmentData
	Metrics   metrics.PreCalculatedMetrics
	Research  collab.Research
	Solutions []collab.Solution
	Focus     Focus
}

type Section struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	BreakBefore bool   `json:"breakBefore"`
}

type sectionSpec struct {
	id          string
	title       string
	breakBefore bool
	render      func(Bundle) string
}

var sections = []sectionSpec{
	{SectionExecutiveSummary, "Executive Summary", false, executiveSummary},
	{SectionCurrentState, "Current State Analysis", true, currentState},
	{SectionBenchmarks, "Industry Benchmarks", false, benchmarks},
	{SectionSolutions, "Recommended Solutions", true, solutions},
	{SectionFutureState, "Future State", false, futureState},
	{SectionROI, "Return on Investment", true, roiSection},
	{SectionMarketContext, "Market Context", true, marketContext},
	{SectionRecommendations, "Recommendations", true, recommendations},
}

// SectionIDs lists the section ids in render order.
func SectionIDs() []string {
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.id
	}
	return ids
}

// Render produces every section in report order.
func Render(b Bundle) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		out = append(out, renderOne(s, b))
	}
	return out
}

// RenderSection renders a single section by id.
func RenderSection(id string, b Bundle) (Section, bool) {
	for _, s := range sections {
		if s.id == id {
			return renderOne(s, b), true
		}
	}
	return Section{}, false
}

func renderOne(s sectionSpec, b Bundle) Section {
	var body strings.Builder
	fmt.Fprintf(&body, sectionMarker+"\n", s.id)
	fmt.Fprintf(&body, "## %s\n\n", s.title)
	body.WriteString(s.render(b))
	return Section{ID: s.id, Title: s.title, Body: body.String(), BreakBefore: s.breakBefore}
}

// Assemble concatenates sections, inserting page-break markers where a
// section asks for one.
func Assemble(secs []Section) string {
	var b strings.Builder
	for i, s := range secs {
		if s.BreakBefore && i > 0 {
			b.WriteString(PageBreakMarker + "\n\n")
		}
		b.WriteString(strings.TrimRight(s.Body, "\n"))
		b.WriteString("\n\n")
	}
	return b.String()
}

// Banner returns the data-quality notice, or "" when no manual review is
// required.
func Banner(d extraction.ValidatedAssessmentData) string {
	if !d.Validation.RequiresManualReview {
		return ""
	}
	n := d.DefaultedCount()
	noun := "fields"
	if n == 1 {
		noun = "field"
	}
	return fmt.Sprintf("> **Data quality:** this report used estimated defaults for %d %s. "+
		"Review the figures below before sharing.\n", n, noun)
}

// Markdown renders the complete report body: title, banner and all sections.
func Markdown(b Bundle) string {
	var out strings.Builder
	fmt.Fprintf(&out, "# Business Assessment: %s\n\n", sanitize(orDefault(b.Data.CompanyName, "Your Company")))
	if banner := Banner(b.Data); banner != "" {
		out.WriteString(banner)
		out.WriteString("\n")
	}
	out.WriteString(Assemble(Render(b)))
	return out.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

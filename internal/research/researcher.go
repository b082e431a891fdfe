// Package research adapts an LLM into the narrative-research collaborator.
package research

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/joelkehle/discovery-assessment/internal/collab"
)

//go:embed schema.json
var schemaJSON []byte

var researchSchema = mustSchema(schemaJSON)

func mustSchema(b []byte) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		panic(fmt.Sprintf("research: invalid embedded schema: %v", err))
	}
	return s
}

// Output caps.
const (
	maxTrends      = 5
	maxCaseStudies = 3
	maxCitations   = 10
)

// Researcher implements collab.Researcher on top of an LLM.
type Researcher struct {
	exec *Executor
}

var _ collab.Researcher = (*Researcher)(nil)

func NewResearcher(caller LLMCaller) *Researcher {
	return &Researcher{exec: NewExecutor(caller)}
}

func (r *Researcher) ModelName() string { return r.exec.ModelName() }

func (r *Researcher) Research(ctx context.Context, query string) (collab.Research, error) {
	if strings.TrimSpace(query) == "" {
		return collab.Research{}, errors.New("research: empty query")
	}
	var out collab.Research
	_, err := r.exec.Run(ctx, "market_research", buildPrompt(query), researchSchema, &out, func() error {
		return checkResearch(out)
	})
	if err != nil {
		return collab.Research{}, err
	}
	return trimResearch(out), nil
}

func buildPrompt(query string) string {
	var b strings.Builder
	b.WriteString("Research the market context for a business evaluating sales and operations automation.\n\n")
	b.WriteString("Business profile:\n")
	b.WriteString(strings.TrimSpace(query))
	b.WriteString("\n\nReturn a JSON object with exactly these keys:\n")
	b.WriteString(`- "narrativeText": 2-4 short paragraphs of plain prose about the industry and automation adoption` + "\n")
	b.WriteString(`- "citations": source URLs or publication names you relied on (may be empty)` + "\n")
	fmt.Fprintf(&b, "- \"trends\": up to %d objects {\"trend\", \"impact\"}\n", maxTrends)
	fmt.Fprintf(&b, "- \"caseStudies\": up to %d objects {\"company\", \"challenge\", \"solution\", \"result\", \"confidence\"} where confidence is 0-1\n", maxCaseStudies)
	b.WriteString("\nIf you are unsure about a case study, lower its confidence rather than inventing specifics.")
	return b.String()
}

// checkResearch applies the semantic checks the schema cannot express.
func checkResearch(r collab.Research) error {
	if len(strings.Fields(r.NarrativeText)) < 20 {
		return errors.New("narrativeText must be at least 20 words")
	}
	seen := map[string]bool{}
	for _, t := range r.Trends {
		k := strings.ToLower(strings.TrimSpace(t.Trend))
		if seen[k] {
			return fmt.Errorf("duplicate trend %q", t.Trend)
		}
		seen[k] = true
	}
	for _, cs := range r.CaseStudies {
		if strings.TrimSpace(cs.Company) == "" || strings.TrimSpace(cs.Result) == "" {
			return errors.New("caseStudies entries need a company and a result")
		}
	}
	return nil
}

func trimResearch(r collab.Research) collab.Research {
	r.NarrativeText = strings.TrimSpace(r.NarrativeText)
	if len(r.Trends) > maxTrends {
		r.Trends = r.Trends[:maxTrends]
	}
	if len(r.CaseStudies) > maxCaseStudies {
		r.CaseStudies = r.CaseStudies[:maxCaseStudies]
	}
	cites := r.Citations[:0:0]
	for _, c := range r.Citations {
		if c = strings.TrimSpace(c); c != "" && len(cites) < maxCitations {
			cites = append(cites, c)
		}
	}
	r.Citations = cites
	r.Fallback = false
	return r
}

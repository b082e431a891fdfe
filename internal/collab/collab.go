// Package collab defines the contracts of the external collaborators the
// report pipeline consumes: solution retrieval and narrative research.
package collab

import "context"

// Solution is one candidate tool or service returned by retrieval.
type Solution struct {
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Pricing            string   `json:"pricing"`
	Integrations       []string `json:"integrations"`
	BestFor            string   `json:"bestFor"`
	ImplementationTime string   `json:"implementationTime"`
	RelevanceScore     float64  `json:"relevanceScore"`
}

type Filters struct {
	Category string  `json:"category,omitempty"`
	Budget   float64 `json:"budget,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

type Trend struct {
	Trend  string `json:"trend"`
	Impact string `json:"impact"`
}

type CaseStudy struct {
	Company    string  `json:"company"`
	Challenge  string  `json:"challenge"`
	Solution   string  `json:"solution"`
	Result     string  `json:"result"`
	Confidence float64 `json:"confidence"`
}

// Research is the market narrative returned by the research collaborator.
// Fallback is set when the content is the templated substitute.
type Research struct {
	NarrativeText string      `json:"narrativeText"`
	Citations     []string    `json:"citations"`
	Trends        []Trend     `json:"trends"`
	CaseStudies   []CaseStudy `json:"caseStudies"`
	Fallback      bool        `json:"fallback,omitempty"`
}

type Retriever interface {
	Search(ctx context.Context, query string, filters Filters) ([]Solution, error)
}

type Researcher interface {
	Research(ctx context.Context, query string) (Research, error)
}

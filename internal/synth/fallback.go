package synth

import (
	"fmt"
	"slices"
	"strings"

	"github.com/joelkehle/discovery-assessment/internal/collab"
	"github.com/joelkehle/discovery-assessment/internal/extraction"
)

// QueryClass buckets a search query for the curated fallback catalog.
type QueryClass string

const (
	QueryLeadQualification  QueryClass = "lead-qualification"
	QueryContentGeneration  QueryClass = "content-generation"
	QueryWorkflowAutomation QueryClass = "workflow-automation"
	QueryDataProcessing     QueryClass = "data-processing"
	QueryGeneric            QueryClass = "generic"
)

// queryKeywords is checked in order; the first class with a keyword hit wins.
var queryKeywords = []struct {
	class    QueryClass
	keywords []string
}{
	{QueryLeadQualification, []string{"lead", "prospect", "qualif", "pipeline", "crm", "sales"}},
	{QueryContentGeneration, []string{"content", "blog", "copy", "writing", "social", "newsletter"}},
	{QueryWorkflowAutomation, []string{"workflow", "automat", "follow-up", "follow up", "handoff", "hand-off", "onboarding", "proposal"}},
	{QueryDataProcessing, []string{"data", "report", "spreadsheet", "entry", "invoice", "document"}},
}

func ClassifyQuery(query string) QueryClass {
	q := strings.ToLower(query)
	for _, qk := range queryKeywords {
		for _, kw := range qk.keywords {
			if strings.Contains(q, kw) {
				return qk.class
			}
		}
	}
	return QueryGeneric
}

var curatedCatalog = map[QueryClass][]collab.Solution{
	QueryLeadQualification: {
		{Name: "HubSpot Sales Hub", Description: "CRM with lead scoring, sequences and deal pipelines.", Pricing: "From $20/user/month",
			Integrations: []string{"Gmail", "Outlook", "Slack", "Zapier"}, BestFor: "Small and mid-size B2B sales teams", ImplementationTime: "2-4 weeks", RelevanceScore: 0.8},
		{Name: "Apollo.io", Description: "Prospect database with enrichment and automated outreach.", Pricing: "From $49/user/month",
			Integrations: []string{"HubSpot", "Salesforce", "Gmail"}, BestFor: "Outbound prospecting", ImplementationTime: "1-2 weeks", RelevanceScore: 0.7},
	},
	QueryContentGeneration: {
		{Name: "Jasper", Description: "AI writing assistant tuned for marketing copy and brand voice.", Pricing: "From $49/month",
			Integrations: []string{"Google Docs", "HubSpot", "Webflow"}, BestFor: "Marketing teams producing regular content", ImplementationTime: "1 week", RelevanceScore: 0.75},
		{Name: "Buffer", Description: "Social publishing calendar with scheduling and analytics.", Pricing: "From $6/channel/month",
			Integrations: []string{"LinkedIn", "Instagram", "Slack"}, BestFor: "Consistent social presence", ImplementationTime: "Under 1 week", RelevanceScore: 0.6},
	},
	QueryWorkflowAutomation: {
		{Name: "Zapier", Description: "No-code automation connecting thousands of apps with triggers and actions.", Pricing: "From $20/month",
			Integrations: []string{"Slack", "HubSpot", "Google Sheets", "Salesforce"}, BestFor: "Teams replacing manual hand-offs", ImplementationTime: "1-2 weeks", RelevanceScore: 0.8},
		{Name: "Make", Description: "Visual scenario builder for multi-step automations.", Pricing: "From $9/month",
			Integrations: []string{"Google Sheets", "Airtable", "Slack"}, BestFor: "Complex branching workflows", ImplementationTime: "2-3 weeks", RelevanceScore: 0.7},
	},
	QueryDataProcessing: {
		{Name: "Airtable", Description: "Relational spreadsheet with forms, automations and views.", Pricing: "From $20/user/month",
			Integrations: []string{"Slack", "Google Sheets", "Zapier"}, BestFor: "Replacing fragile spreadsheets", ImplementationTime: "1-3 weeks", RelevanceScore: 0.75},
		{Name: "Docparser", Description: "Extracts structured data from PDFs and scanned documents.", Pricing: "From $39/month",
			Integrations: []string{"Zapier", "Google Sheets", "Dropbox"}, BestFor: "Invoice and form processing", ImplementationTime: "1-2 weeks", RelevanceScore: 0.65},
	},
	QueryGeneric: {
		{Name: "Zapier", Description: "No-code automation connecting thousands of apps with triggers and actions.", Pricing: "From $20/month",
			Integrations: []string{"Slack", "HubSpot", "Google Sheets", "Salesforce"}, BestFor: "First automation projects", ImplementationTime: "1-2 weeks", RelevanceScore: 0.6},
		{Name: "Notion", Description: "Shared workspace for documenting processes and tracking work.", Pricing: "From $10/user/month",
			Integrations: []string{"Slack", "Google Drive", "GitHub"}, BestFor: "Making undocumented processes visible", ImplementationTime: "1 week", RelevanceScore: 0.5},
	},
}

// CuratedSolutions returns a copy of the static catalog entries for a class.
func CuratedSolutions(class QueryClass) []collab.Solution {
	src, ok := curatedCatalog[class]
	if !ok {
		src = curatedCatalog[QueryGeneric]
	}
	out := make([]collab.Solution, len(src))
	for i, s := range src {
		s.Integrations = slices.Clone(s.Integrations)
		out[i] = s
	}
	return out
}

// SearchQuery builds the retrieval query from the interview focus, falling
// back to the stated challenges.
func SearchQuery(d extraction.ValidatedAssessmentData, f Focus) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{f.Challenge, f.OpportunityArea, f.Category} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, d.Challenges)
	}
	parts = append(parts, "tools for", orDefault(d.BusinessType, "small business"))
	return clean(strings.Join(parts, " "))
}

// ResearchQuery builds the structured prompt sent to the research collaborator.
func ResearchQuery(d extraction.ValidatedAssessmentData, f Focus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Industry: %s\n", orDefault(d.BusinessType, "unspecified"))
	if f.Category != "" {
		fmt.Fprintf(&b, "Segment: %s\n", f.Category)
	}
	if f.Challenge != "" {
		fmt.Fprintf(&b, "Challenge: %s\n", f.Challenge)
	} else if d.Challenges != "" {
		fmt.Fprintf(&b, "Challenge: %s\n", clean(d.Challenges))
	}
	if f.Metric != "" {
		fmt.Fprintf(&b, "Metric: %s\n", f.Metric)
	}
	if d.Parsed.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", d.Parsed.Location)
	}
	return b.String()
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// GenericResearch is the templated narrative used when research fails.
func GenericResearch(industry string) collab.Research {
	industry = sanitize(orDefault(industry, "small business"))
	return collab.Research{
		NarrativeText: fmt.Sprintf("Across the %s sector, firms of this size are adopting automation for repetitive "+
			"sales and operations work. The most consistent gains come from faster lead response, fewer manual "+
			"hand-offs and cleaner pipeline data. Early adopters typically start with one well-defined workflow "+
			"and expand once the pilot shows measurable results.", industry),
		Trends: []collab.Trend{
			{Trend: "AI-assisted lead qualification", Impact: "Shorter response times and more consistent follow-up."},
			{Trend: "No-code workflow automation", Impact: "Operations teams automate hand-offs without engineering help."},
			{Trend: "Consolidated revenue data", Impact: "Forecasts improve when CRM and billing data share one source."},
		},
		Fallback: true,
	}
}

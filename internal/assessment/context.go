package assessment

import (
	"slices"
	"strings"
)

// Context is the record threaded through the interview. It is a value: every
// transition returns a new Context and never alters the one it was given.
type Context struct {
	ID                 string   `json:"id,omitempty"`
	ICPCategory        string   `json:"icpCategory,omitempty"`
	OpportunityArea    string   `json:"opportunityArea,omitempty"`
	RevenueModel       string   `json:"revenueModel,omitempty"`
	ChallengeArea      string   `json:"challengeArea,omitempty"`
	Metric             string   `json:"metric,omitempty"`
	BaselineText       string   `json:"baselineText,omitempty"`
	FrictionText       string   `json:"frictionText,omitempty"`
	ProcessSteps       []string `json:"processSteps,omitempty"`
	BreakdownPoint     string   `json:"breakdownPoint,omitempty"`
	ProcessDescription string   `json:"processDescription,omitempty"`
	SimpleProcess      bool     `json:"simpleProcess,omitempty"`
	Validated          bool     `json:"validated,omitempty"`
	Refinements        []string `json:"refinements,omitempty"`
	CurrentTier        Tier     `json:"currentTier"`
	ProgressPercentage int      `json:"progressPercentage"`
}

// New returns an empty context positioned at tier 1.
func New() Context {
	return Context{
		CurrentTier:        TierCategory,
		ProgressPercentage: TierCategory.Progress(),
	}
}

// clone returns a copy whose slices share no backing arrays with c.
func (c Context) clone() Context {
	out := c
	out.ProcessSteps = slices.Clone(c.ProcessSteps)
	out.Refinements = slices.Clone(c.Refinements)
	return out
}

func (c Context) at(t Tier) Context {
	out := c.clone()
	out.CurrentTier = t
	out.ProgressPercentage = t.Progress()
	return out
}

// Steps returns a copy of the recorded process steps.
func (c Context) Steps() []string {
	return slices.Clone(c.ProcessSteps)
}

// ProcessSummary is the process text used downstream: the free-text
// description on the simple path, otherwise the steps joined in order.
func (c Context) ProcessSummary() string {
	if c.SimpleProcess {
		return c.ProcessDescription
	}
	return strings.Join(c.ProcessSteps, " → ")
}

// requiredFields lists, per tier, the fields that must be populated before the
// interview may sit at that tier. Each tier inherits the requirements of the
// tiers before it.
var requiredFields = []struct {
	tier  Tier
	field string
	set   func(Context) bool
}{
	{TierOpportunity, "icpCategory", func(c Context) bool { return c.ICPCategory != "" }},
	{TierRevenueModel, "opportunityArea", func(c Context) bool { return c.OpportunityArea != "" }},
	{TierChallenge, "revenueModel", func(c Context) bool { return c.RevenueModel != "" }},
	{TierMetric, "challengeArea", func(c Context) bool { return c.ChallengeArea != "" }},
	{TierQuantify, "metric", func(c Context) bool { return c.Metric != "" }},
	{TierProcess, "baselineText", func(c Context) bool { return c.BaselineText != "" }},
	{TierProcess, "frictionText", func(c Context) bool { return c.FrictionText != "" }},
	{TierValidation, "processSteps", func(c Context) bool { return len(c.ProcessSteps) > 0 || c.SimpleProcess }},
}

// missingFor reports the first required field absent for tier t, or "".
func (c Context) missingFor(t Tier) string {
	for _, r := range requiredFields {
		if r.tier > t {
			break
		}
		if !r.set(c) {
			return r.field
		}
	}
	return ""
}

package assessment

import (
	"strings"
	"unicode/utf8"
)

// MinSimpleProcessChars is the shortest free-text process description that
// lets the interview skip process validation and go straight to tier 7.
const MinSimpleProcessChars = 50

// Machine applies interview transitions against an option catalog. It holds
// no per-session state and is safe for concurrent use.
type Machine struct {
	catalog *Catalog
}

// NewMachine returns a machine over catalog, or over the embedded default
// catalog when catalog is nil.
func NewMachine(catalog *Catalog) *Machine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Machine{catalog: catalog}
}

func (m *Machine) Catalog() *Catalog { return m.catalog }

// Check verifies that a context (typically one loaded from storage) sits on a
// known tier with every upstream field populated.
func (m *Machine) Check(ctx Context) error {
	if !ctx.CurrentTier.Valid() {
		return &PreconditionError{Tier: ctx.CurrentTier, Op: "resume"}
	}
	if field := ctx.missingFor(ctx.CurrentTier); field != "" {
		return &PreconditionError{Tier: ctx.CurrentTier, Field: field}
	}
	return nil
}

// Options lists the selections legal at the context's current tier. Free-text
// tiers (4 and later) have no options and return nil.
func (m *Machine) Options(ctx Context) ([]Option, error) {
	if err := m.Check(ctx); err != nil {
		return nil, err
	}
	switch ctx.CurrentTier {
	case TierCategory:
		out := make([]Option, 0, len(m.catalog.Categories))
		for _, c := range m.catalog.Categories {
			out = append(out, c.Option)
		}
		return out, nil
	case TierOpportunity:
		cat, ok := m.catalog.category(ctx.ICPCategory)
		if !ok {
			return nil, &PreconditionError{Tier: ctx.CurrentTier, Field: "icpCategory", Op: "options"}
		}
		out := make([]Option, 0, len(cat.OpportunityAreas))
		for _, a := range cat.OpportunityAreas {
			out = append(out, a.Option)
		}
		return out, nil
	case TierRevenueModel:
		cat, ok := m.catalog.category(ctx.ICPCategory)
		if !ok {
			return nil, &PreconditionError{Tier: ctx.CurrentTier, Field: "icpCategory", Op: "options"}
		}
		out := make([]Option, 0, len(cat.RevenueModels))
		for _, id := range cat.RevenueModels {
			if r, ok := m.catalog.revenueModel(id); ok {
				out = append(out, r)
			}
		}
		return out, nil
	case TierChallenge:
		area, ok := m.catalog.opportunityArea(ctx.ICPCategory, ctx.OpportunityArea)
		if !ok {
			return nil, &PreconditionError{Tier: ctx.CurrentTier, Field: "opportunityArea", Op: "options"}
		}
		out := make([]Option, 0, len(area.Challenges))
		for _, id := range area.Challenges {
			if ch, ok := m.catalog.challenge(id); ok {
				out = append(out, ch.Option)
			}
		}
		return out, nil
	case TierMetric:
		ch, ok := m.catalog.challenge(ctx.ChallengeArea)
		if !ok {
			return nil, &PreconditionError{Tier: ctx.CurrentTier, Field: "challengeArea", Op: "options"}
		}
		out := make([]Option, 0, len(ch.Metrics))
		for _, id := range ch.Metrics {
			if mt, ok := m.catalog.metric(id); ok {
				out = append(out, mt.Option)
			}
		}
		return out, nil
	}
	return nil, nil
}

func (m *Machine) SelectCategory(ctx Context, id string) (Context, error) {
	return m.selectAt(ctx, TierCategory, id, func(c *Context) { c.ICPCategory = id })
}

func (m *Machine) SelectOpportunityArea(ctx Context, id string) (Context, error) {
	return m.selectAt(ctx, TierOpportunity, id, func(c *Context) { c.OpportunityArea = id })
}

func (m *Machine) SelectRevenueModel(ctx Context, id string) (Context, error) {
	return m.selectAt(ctx, TierRevenueModel, id, func(c *Context) { c.RevenueModel = id })
}

func (m *Machine) SelectChallengeArea(ctx Context, id string) (Context, error) {
	return m.selectAt(ctx, TierChallenge, id, func(c *Context) { c.ChallengeArea = id })
}

func (m *Machine) SelectMetric(ctx Context, id string) (Context, error) {
	return m.selectAt(ctx, TierMetric, id, func(c *Context) { c.Metric = id })
}

// Select dispatches a selection to whichever option tier the context is on.
func (m *Machine) Select(ctx Context, id string) (Context, error) {
	switch ctx.CurrentTier {
	case TierCategory:
		return m.SelectCategory(ctx, id)
	case TierOpportunity:
		return m.SelectOpportunityArea(ctx, id)
	case TierRevenueModel:
		return m.SelectRevenueModel(ctx, id)
	case TierChallenge:
		return m.SelectChallengeArea(ctx, id)
	case TierMetric:
		return m.SelectMetric(ctx, id)
	}
	return ctx, &PreconditionError{Tier: ctx.CurrentTier, Op: "select"}
}

func (m *Machine) selectAt(ctx Context, tier Tier, id string, apply func(*Context)) (Context, error) {
	if ctx.CurrentTier != tier {
		return ctx, &PreconditionError{Tier: ctx.CurrentTier, Op: "select " + tierNames[tier]}
	}
	opts, err := m.Options(ctx)
	if err != nil {
		return ctx, err
	}
	legal := make([]string, 0, len(opts))
	found := false
	for _, o := range opts {
		legal = append(legal, o.ID)
		if o.ID == id {
			found = true
		}
	}
	if !found {
		return ctx, &InvalidSelectionError{Tier: tier, Candidate: id, Legal: legal}
	}
	next := ctx.at(nextTier(tier))
	apply(&next)
	return next, nil
}

// Quantify records the baseline and friction descriptions (tier 4 → 5).
func (m *Machine) Quantify(ctx Context, baseline, friction string) (Context, error) {
	if err := m.expect(ctx, TierQuantify, "quantify"); err != nil {
		return ctx, err
	}
	baseline = strings.TrimSpace(baseline)
	friction = strings.TrimSpace(friction)
	if baseline == "" {
		return ctx, &InvalidSelectionError{Tier: TierQuantify, Candidate: baseline, Legal: []string{"non-empty baseline"}}
	}
	if friction == "" {
		return ctx, &InvalidSelectionError{Tier: TierQuantify, Candidate: friction, Legal: []string{"non-empty friction"}}
	}
	next := ctx.at(TierProcess)
	next.BaselineText = baseline
	next.FrictionText = friction
	return next, nil
}

// DescribeProcess records the ordered process steps and the point where the
// process breaks down (tier 5 → 6).
func (m *Machine) DescribeProcess(ctx Context, steps []string, breakdown string) (Context, error) {
	if err := m.expect(ctx, TierProcess, "describe process"); err != nil {
		return ctx, err
	}
	cleaned := make([]string, 0, len(steps))
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return ctx, &InvalidSelectionError{Tier: TierProcess, Candidate: strings.Join(steps, ","), Legal: []string{"at least one process step"}}
	}
	next := ctx.at(TierValidation)
	next.ProcessSteps = cleaned
	next.BreakdownPoint = strings.TrimSpace(breakdown)
	next.SimpleProcess = false
	return next, nil
}

// DescribeSimpleProcess takes the shortcut from tier 5 straight to tier 7 when
// the free-text description is long enough to stand on its own.
func (m *Machine) DescribeSimpleProcess(ctx Context, description string) (Context, error) {
	if err := m.expect(ctx, TierProcess, "describe simple process"); err != nil {
		return ctx, err
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) < MinSimpleProcessChars {
		return ctx, &InvalidSelectionError{Tier: TierProcess, Candidate: description, Legal: []string{"description of at least 50 characters"}}
	}
	next := ctx.at(TierReady)
	next.ProcessDescription = description
	next.SimpleProcess = true
	return next, nil
}

// ValidateProcess handles tier 6. A refinement is appended and the interview
// stays on tier 6; confirmation marks the process validated and moves to 7.
func (m *Machine) ValidateProcess(ctx Context, confirmed bool, refinement string) (Context, error) {
	if err := m.expect(ctx, TierValidation, "validate process"); err != nil {
		return ctx, err
	}
	refinement = strings.TrimSpace(refinement)
	if !confirmed && refinement == "" {
		return ctx, &InvalidSelectionError{Tier: TierValidation, Candidate: "", Legal: []string{"confirm", "refinement text"}}
	}
	target := TierValidation
	if confirmed {
		target = TierReady
	}
	next := ctx.at(target)
	if refinement != "" {
		next.Refinements = append(next.Refinements, refinement)
	}
	if confirmed {
		next.Validated = true
	}
	return next, nil
}

// Back steps exactly one tier back. Every populated field is kept.
func (m *Machine) Back(ctx Context) (Context, error) {
	prev, ok := ctx.CurrentTier.Previous()
	if !ok {
		return ctx, &PreconditionError{Tier: ctx.CurrentTier, Op: "back"}
	}
	return ctx.at(prev), nil
}

// IsComplete reports whether the context may be handed to the report
// pipeline: tier 7 reached with every tier 1-6 field populated, and either the
// process validated or the simple-process shortcut taken.
func IsComplete(ctx Context) bool {
	if ctx.CurrentTier != TierReady {
		return false
	}
	if ctx.missingFor(TierValidation) != "" {
		return false
	}
	if ctx.SimpleProcess {
		return utf8.RuneCountInString(ctx.ProcessDescription) >= MinSimpleProcessChars
	}
	return ctx.Validated && len(ctx.ProcessSteps) > 0
}

func (m *Machine) expect(ctx Context, tier Tier, op string) error {
	if ctx.CurrentTier != tier {
		return &PreconditionError{Tier: ctx.CurrentTier, Op: op}
	}
	return m.Check(ctx)
}

func nextTier(t Tier) Tier {
	for i, x := range tierOrder {
		if x == t && i+1 < len(tierOrder) {
			return tierOrder[i+1]
		}
	}
	return t
}

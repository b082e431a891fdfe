package assessment

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const longProcess = "Leads arrive by email, Doug reads each one, then Kevin calls the promising ones back within a week."

type step func(m *Machine, c Context) (Context, error)

func structuredScript() []step {
	return []step{
		func(m *Machine, c Context) (Context, error) { return m.SelectCategory(c, "b2b_saas") },
		func(m *Machine, c Context) (Context, error) { return m.SelectOpportunityArea(c, "lead_generation") },
		func(m *Machine, c Context) (Context, error) { return m.SelectRevenueModel(c, "subscription") },
		func(m *Machine, c Context) (Context, error) { return m.SelectChallengeArea(c, "lead_qualification") },
		func(m *Machine, c Context) (Context, error) { return m.SelectMetric(c, "conversion_rate") },
		func(m *Machine, c Context) (Context, error) {
			return m.Quantify(c, "About 40 inbound leads a month, 8% close.", "Nobody scores leads before a call.")
		},
		func(m *Machine, c Context) (Context, error) {
			return m.DescribeProcess(c, []string{"Lead fills form", " ", "Doug reviews", "Kevin calls"}, "Calls happen days later")
		},
		func(m *Machine, c Context) (Context, error) { return m.ValidateProcess(c, false, "Kevin also sends a deck") },
		func(m *Machine, c Context) (Context, error) { return m.ValidateProcess(c, true, "") },
	}
}

func run(t *testing.T, m *Machine, c Context, steps []step) Context {
	t.Helper()
	for i, s := range steps {
		next, err := s(m, c)
		require.NoErrorf(t, err, "step %d", i)
		c = next
	}
	return c
}

func TestStructuredInterviewReachesReady(t *testing.T) {
	m := NewMachine(nil)
	c := run(t, m, New(), structuredScript())

	assert.Equal(t, TierReady, c.CurrentTier)
	assert.Equal(t, 100, c.ProgressPercentage)
	assert.True(t, IsComplete(c))
	assert.Equal(t, []string{"Lead fills form", "Doug reviews", "Kevin calls"}, c.ProcessSteps)
	assert.Equal(t, []string{"Kevin also sends a deck"}, c.Refinements)
	assert.Equal(t, "Lead fills form → Doug reviews → Kevin calls", c.ProcessSummary())
}

func TestEveryCatalogPathReachesReady(t *testing.T) {
	m := NewMachine(nil)
	paths := 0
	for _, cat := range m.Catalog().Categories {
		for _, area := range cat.OpportunityAreas {
			for _, rev := range cat.RevenueModels {
				for _, chID := range area.Challenges {
					ch, ok := m.Catalog().challenge(chID)
					require.True(t, ok)
					for _, metric := range ch.Metrics {
						c := New()
						var err error
						for _, id := range []string{cat.ID, area.ID, rev, chID, metric} {
							c, err = m.Select(c, id)
							require.NoError(t, err)
						}
						c, err = m.Quantify(c, "baseline", "friction")
						require.NoError(t, err)
						c, err = m.DescribeProcess(c, []string{"one"}, "")
						require.NoError(t, err)
						c, err = m.ValidateProcess(c, true, "")
						require.NoError(t, err)
						require.Equal(t, 100, c.ProgressPercentage)
						require.True(t, IsComplete(c))
						paths++
					}
				}
			}
		}
	}
	assert.Greater(t, paths, 50)
}

func TestSimpleProcessShortcut(t *testing.T) {
	m := NewMachine(nil)
	c := run(t, m, New(), structuredScript()[:6])
	require.Equal(t, TierProcess, c.CurrentTier)

	_, err := m.DescribeSimpleProcess(c, "too short")
	var inv *InvalidSelectionError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, TierProcess, inv.Tier)

	done, err := m.DescribeSimpleProcess(c, longProcess)
	require.NoError(t, err)
	assert.Equal(t, TierReady, done.CurrentTier)
	assert.Equal(t, 100, done.ProgressPercentage)
	assert.True(t, done.SimpleProcess)
	assert.False(t, done.Validated)
	assert.True(t, IsComplete(done))
	assert.Equal(t, longProcess, done.ProcessSummary())
}

func TestInvalidSelectionNeverMutates(t *testing.T) {
	m := NewMachine(nil)
	script := structuredScript()
	bad := []struct {
		name string
		at   int
		call step
	}{
		{"category", 0, func(m *Machine, c Context) (Context, error) { return m.SelectCategory(c, "space_mining") }},
		{"area from another category", 1, func(m *Machine, c Context) (Context, error) { return m.SelectOpportunityArea(c, "fulfillment_operations") }},
		{"revenue model not offered", 2, func(m *Machine, c Context) (Context, error) { return m.SelectRevenueModel(c, "retainer") }},
		{"challenge outside area", 3, func(m *Machine, c Context) (Context, error) { return m.SelectChallengeArea(c, "churn_signals") }},
		{"metric outside challenge", 4, func(m *Machine, c Context) (Context, error) { return m.SelectMetric(c, "win_rate") }},
		{"empty baseline", 5, func(m *Machine, c Context) (Context, error) { return m.Quantify(c, "  ", "friction") }},
		{"no steps", 6, func(m *Machine, c Context) (Context, error) { return m.DescribeProcess(c, []string{" "}, "x") }},
		{"no validation input", 7, func(m *Machine, c Context) (Context, error) { return m.ValidateProcess(c, false, "") }},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			c := run(t, m, New(), script[:tc.at])
			before, err := json.Marshal(c)
			require.NoError(t, err)

			got, err := tc.call(m, c)
			var inv *InvalidSelectionError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, "selection not recognized, please choose again", inv.UserMessage())

			after, err := json.Marshal(c)
			require.NoError(t, err)
			assert.JSONEq(t, string(before), string(after))
			assert.Equal(t, c, got)
		})
	}
}

func TestTransitionOnWrongTierIsPrecondition(t *testing.T) {
	m := NewMachine(nil)
	c := New()

	_, err := m.SelectMetric(c, "conversion_rate")
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, TierCategory, pre.Tier)

	_, err = m.Quantify(c, "a", "b")
	require.ErrorAs(t, err, &pre)

	_, err = m.Select(Context{CurrentTier: TierQuantify, ProgressPercentage: 60}, "x")
	require.ErrorAs(t, err, &pre)
}

func TestOptionsRequireUpstreamFields(t *testing.T) {
	m := NewMachine(nil)
	cases := []struct {
		ctx   Context
		field string
	}{
		{Context{CurrentTier: TierOpportunity}, "icpCategory"},
		{Context{CurrentTier: TierChallenge, ICPCategory: "b2b_saas", OpportunityArea: "lead_generation"}, "revenueModel"},
		{Context{CurrentTier: TierQuantify, ICPCategory: "b2b_saas", OpportunityArea: "lead_generation", RevenueModel: "subscription", ChallengeArea: "follow_up"}, "metric"},
	}
	for _, tc := range cases {
		_, err := m.Options(tc.ctx)
		var pre *PreconditionError
		require.ErrorAs(t, err, &pre)
		assert.Equal(t, tc.field, pre.Field)
	}

	_, err := m.Options(Context{CurrentTier: Tier(42)})
	assert.Error(t, err)
}

func TestOptionsDeriveFromContext(t *testing.T) {
	m := NewMachine(nil)
	c, err := m.SelectCategory(New(), "manufacturing")
	require.NoError(t, err)

	opts, err := m.Options(c)
	require.NoError(t, err)
	ids := make([]string, 0, len(opts))
	for _, o := range opts {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"sales_process", "operations"}, ids)

	c, err = m.SelectOpportunityArea(c, "operations")
	require.NoError(t, err)
	opts, err = m.Options(c)
	require.NoError(t, err)
	require.Len(t, opts, 3)
	assert.Equal(t, "transactional", opts[0].ID)
}

func TestBackKeepsFieldsAndStepsOneTier(t *testing.T) {
	m := NewMachine(nil)
	c := run(t, m, New(), structuredScript()[:4])
	require.Equal(t, TierChallenge, c.CurrentTier)

	prev, err := m.Back(c)
	require.NoError(t, err)
	assert.Equal(t, TierRevenueModel, prev.CurrentTier)
	assert.Equal(t, 30, prev.ProgressPercentage)
	assert.Equal(t, "subscription", prev.RevenueModel)
	assert.Equal(t, TierChallenge, c.CurrentTier, "original value untouched")

	again, err := m.SelectRevenueModel(prev, "usage_based")
	require.NoError(t, err)
	assert.Equal(t, TierChallenge, again.CurrentTier)
	assert.Equal(t, "usage_based", again.RevenueModel)
	assert.Equal(t, "subscription", prev.RevenueModel)

	_, err = m.Back(New())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
}

func TestBackFromReadyKeepsValidation(t *testing.T) {
	m := NewMachine(nil)
	c := run(t, m, New(), structuredScript())
	back, err := m.Back(c)
	require.NoError(t, err)
	assert.Equal(t, TierValidation, back.CurrentTier)
	assert.True(t, back.Validated)
	assert.False(t, IsComplete(back))
	assert.Equal(t, c.Refinements, back.Refinements)
}

func TestTransitionsDoNotShareSlices(t *testing.T) {
	m := NewMachine(nil)
	c := run(t, m, New(), structuredScript()[:7])
	refined, err := m.ValidateProcess(c, false, "first")
	require.NoError(t, err)
	refined2, err := m.ValidateProcess(refined, false, "second")
	require.NoError(t, err)
	other, err := m.ValidateProcess(refined, false, "other")
	require.NoError(t, err)

	assert.Empty(t, c.Refinements)
	assert.Equal(t, []string{"first"}, refined.Refinements)
	assert.Equal(t, []string{"first", "second"}, refined2.Refinements)
	assert.Equal(t, []string{"first", "other"}, other.Refinements)

	steps := c.Steps()
	steps[0] = "changed"
	assert.Equal(t, "Lead fills form", c.ProcessSteps[0])
}

func TestRoundTripResumeMatchesUninterruptedRun(t *testing.T) {
	m := NewMachine(nil)
	script := structuredScript()
	want := run(t, m, New(), script)

	for cut := 0; cut <= len(script); cut++ {
		c := run(t, m, New(), script[:cut])
		data, err := json.Marshal(c)
		require.NoError(t, err)

		var resumed Context
		require.NoError(t, json.Unmarshal(data, &resumed))
		require.NoError(t, m.Check(resumed))
		assert.Equal(t, c.CurrentTier, resumed.CurrentTier)

		got := run(t, m, resumed, script[cut:])
		assert.Equal(t, want, got, "cut at %d", cut)
	}
}

func TestContextJSONUsesTierLabels(t *testing.T) {
	m := NewMachine(nil)
	c := run(t, m, New(), structuredScript()[:2])
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"currentTier":2.5`)
	assert.Contains(t, string(data), `"progressPercentage":30`)
}

func TestCheckRejectsInconsistentContext(t *testing.T) {
	m := NewMachine(nil)
	err := m.Check(Context{CurrentTier: TierMetric, ICPCategory: "b2b_saas"})
	var pre *PreconditionError
	require.True(t, errors.As(err, &pre))
	assert.Equal(t, "opportunityArea", pre.Field)
	assert.Contains(t, err.Error(), "tier 3.5")
}

package interview

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
	"github.com/joelkehle/discovery-assessment/internal/store"
)

func newRunner(t *testing.T) (*Runner, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewRunner(assessment.NewMachine(nil), s), s
}

func fullScript() Script {
	return Script{Steps: []Step{
		{Op: OpSelect, Value: "b2b_saas"},
		{Op: OpSelect, Value: "lead_generation"},
		{Op: OpSelect, Value: "subscription"},
		{Op: OpSelect, Value: "lead_qualification"},
		{Op: OpSelect, Value: "conversion_rate"},
		{Op: OpQuantify, Baseline: "40 leads a month", Friction: "No scoring"},
		{Op: OpProcess, Steps: []string{"Form", "Review", "Call"}, Breakdown: "Review"},
		{Op: OpValidate, Refinement: "Also a deck"},
		{Op: OpValidate, Confirmed: true},
	}}
}

func TestReplayCompletesAndPersists(t *testing.T) {
	r, s := newRunner(t)
	var seen []assessment.Tier
	c, err := r.Replay(context.Background(), fullScript(), func(p Progress) {
		seen = append(seen, p.Context.CurrentTier)
		if p.Index == 0 {
			assert.NotEmpty(t, p.Options, "opportunity areas offered after category")
		}
	})
	require.NoError(t, err)
	assert.True(t, assessment.IsComplete(c))
	assert.NotEmpty(t, c.ID)
	assert.Len(t, seen, 9)
	assert.Equal(t, assessment.TierValidation, seen[7])

	loaded, err := s.Load(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.CurrentTier, loaded.CurrentTier)
	assert.Equal(t, c.ProcessSteps, loaded.ProcessSteps)
	assert.Equal(t, []string{"Also a deck"}, loaded.Refinements)
	assert.True(t, loaded.Validated)
}

func TestReplayStopsAtRejectedStep(t *testing.T) {
	r, s := newRunner(t)
	script := Script{SessionID: "fixed-id", Steps: []Step{
		{Op: OpSelect, Value: "b2b_saas"},
		{Op: OpSelect, Value: "space_mining"},
		{Op: OpSelect, Value: "subscription"},
	}}
	c, err := r.Replay(context.Background(), script, nil)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
	var invalid *assessment.InvalidSelectionError
	assert.ErrorAs(t, err, &invalid)

	assert.Equal(t, "fixed-id", c.ID)
	assert.Equal(t, assessment.TierOpportunity, c.CurrentTier)
	loaded, err := s.Load(context.Background(), "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, assessment.TierOpportunity, loaded.CurrentTier)
}

func TestReplayResumesSession(t *testing.T) {
	r, _ := newRunner(t)
	first := fullScript()
	first.SessionID = "resume-me"
	first.Steps = first.Steps[:5]
	c, err := r.Replay(context.Background(), first, nil)
	require.NoError(t, err)
	require.Equal(t, assessment.TierQuantify, c.CurrentTier)

	rest := Script{SessionID: "resume-me", Steps: fullScript().Steps[5:]}
	c, err = r.Replay(context.Background(), rest, nil)
	require.NoError(t, err)
	assert.True(t, assessment.IsComplete(c))
	assert.Equal(t, "B2B SaaS", assessment.DefaultCatalog().Label(assessment.TierCategory, c.ICPCategory))
}

func TestReplayBackAndSimpleProcess(t *testing.T) {
	r, _ := newRunner(t)
	script := fullScript()
	script.Steps = append(script.Steps[:6],
		Step{Op: OpBack},
		Step{Op: OpQuantify, Baseline: "50 leads a month", Friction: "Slow replies"},
		Step{Op: OpSimpleProcess, Description: "Leads arrive by email, Doug reads each one, then Kevin calls back."},
	)
	c, err := r.Replay(context.Background(), script, nil)
	require.NoError(t, err)
	assert.True(t, c.SimpleProcess)
	assert.Equal(t, "50 leads a month", c.BaselineText)
	assert.True(t, assessment.IsComplete(c))
}

func TestReplayUnknownOp(t *testing.T) {
	r, _ := newRunner(t)
	_, err := r.Replay(context.Background(), Script{Steps: []Step{{Op: "dance"}}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown op "dance"`)
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"steps": [{"op": "select", "value": "ecommerce"}],
		"answers": {"companyName": "Shop", "businessType": "ecommerce"}
	}`), 0o644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "ecommerce", s.Steps[0].Value)
	require.NotNil(t, s.Answers)
	assert.Equal(t, "Shop", s.Answers.CompanyName)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestStartAndApply(t *testing.T) {
	r, s := newRunner(t)
	c, err := r.Start(context.Background(), "")
	require.NoError(t, err)
	require.NotEmpty(t, c.ID)
	assert.NotEmpty(t, r.Options(c))

	c, err = r.Apply(context.Background(), c.ID, Step{Op: OpSelect, Value: "manufacturing"})
	require.NoError(t, err)
	assert.Equal(t, assessment.TierOpportunity, c.CurrentTier)

	_, err = r.Apply(context.Background(), c.ID, Step{Op: OpSelect, Value: "nope"})
	var invalid *assessment.InvalidSelectionError
	require.ErrorAs(t, err, &invalid)
	stored, err := s.Load(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.TierOpportunity, stored.CurrentTier)

	_, err = r.Apply(context.Background(), "missing", Step{Op: OpBack})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStartKeepsExistingSession(t *testing.T) {
	r, s := newRunner(t)
	script := fullScript()
	script.SessionID = "acme"
	done, err := r.Replay(context.Background(), script, nil)
	require.NoError(t, err)
	require.True(t, assessment.IsComplete(done))

	got, err := r.Start(context.Background(), "acme")
	require.ErrorIs(t, err, ErrSessionExists)
	assert.Equal(t, assessment.TierReady, got.CurrentTier)

	stored, err := s.Load(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, assessment.TierReady, stored.CurrentTier)
	assert.Equal(t, "b2b_saas", stored.ICPCategory)
	assert.True(t, stored.Validated)
}

// Package interview replays scripted answers through the assessment machine
// and persists the context after every step.
package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
	"github.com/joelkehle/discovery-assessment/internal/extraction"
	"github.com/joelkehle/discovery-assessment/internal/store"
)

// Step operations.
const (
	OpSelect        = "select"
	OpQuantify      = "quantify"
	OpProcess       = "process"
	OpSimpleProcess = "simple_process"
	OpValidate      = "validate"
	OpBack          = "back"
)

var (
	ErrUnknownOp     = errors.New("unknown op")
	ErrSessionExists = errors.New("session already exists")
)

type Step struct {
	Op          string   `json:"op"`
	Value       string   `json:"value,omitempty"`
	Baseline    string   `json:"baseline,omitempty"`
	Friction    string   `json:"friction,omitempty"`
	Steps       []string `json:"steps,omitempty"`
	Breakdown   string   `json:"breakdown,omitempty"`
	Description string   `json:"description,omitempty"`
	Confirmed   bool     `json:"confirmed,omitempty"`
	Refinement  string   `json:"refinement,omitempty"`
}

// Script is a recorded interview. SessionID resumes an existing session when
// set; Answers, if present, are the free-text answers for the report.
type Script struct {
	SessionID string              `json:"sessionId,omitempty"`
	Steps     []Step              `json:"steps"`
	Answers   *extraction.Answers `json:"answers,omitempty"`
}

func LoadScript(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("read script %s: %w", path, err)
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("parse script %s: %w", path, err)
	}
	return s, nil
}

// Progress is reported after each applied step.
type Progress struct {
	Index   int
	Step    Step
	Context assessment.Context
	Options []assessment.Option
}

// StepError wraps the failure of one scripted step.
type StepError struct {
	Index int
	Op    string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type Runner struct {
	machine *assessment.Machine
	store   store.Store
}

func NewRunner(m *assessment.Machine, s store.Store) *Runner {
	return &Runner{machine: m, store: s}
}

// Replay applies the script. The context is saved after every successful
// step, so a failed replay leaves the session at the last good tier. The
// returned context is that last good one.
func (r *Runner) Replay(ctx context.Context, script Script, onStep func(Progress)) (assessment.Context, error) {
	c := assessment.New()
	if script.SessionID != "" {
		loaded, err := r.store.Load(ctx, script.SessionID)
		switch {
		case err == nil:
			if err := r.machine.Check(loaded); err != nil {
				return loaded, fmt.Errorf("resume %s: %w", script.SessionID, err)
			}
			c = loaded
		case errors.Is(err, store.ErrNotFound):
			c.ID = script.SessionID
		default:
			return c, err
		}
	}
	id, err := r.store.Save(ctx, c)
	if err != nil {
		return c, err
	}
	c.ID = id

	for i, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return c, err
		}
		next, err := r.apply(c, step)
		if err != nil {
			slog.Warn("interview_step_rejected", "component", "interview", "session_id", c.ID,
				"step", i, "op", step.Op, "tier", c.CurrentTier.Label(), "err", err)
			return c, &StepError{Index: i, Op: step.Op, Err: err}
		}
		if _, err := r.store.Save(ctx, next); err != nil {
			return c, err
		}
		c = next
		slog.Debug("interview_step_applied", "component", "interview", "session_id", c.ID,
			"step", i, "op", step.Op, "tier", c.CurrentTier.Label())
		if onStep != nil {
			onStep(Progress{Index: i, Step: step, Context: c, Options: r.Options(c)})
		}
	}
	return c, nil
}

// Start creates a session, keeping id when one is given. An id that is
// already stored is left untouched and reported as ErrSessionExists.
func (r *Runner) Start(ctx context.Context, id string) (assessment.Context, error) {
	if id != "" {
		existing, err := r.store.Load(ctx, id)
		switch {
		case err == nil:
			return existing, fmt.Errorf("%w: %s", ErrSessionExists, id)
		case !errors.Is(err, store.ErrNotFound):
			return assessment.Context{}, err
		}
	}
	c := assessment.New()
	c.ID = id
	saved, err := r.store.Save(ctx, c)
	if err != nil {
		return c, err
	}
	c.ID = saved
	slog.Info("interview_started", "component", "interview", "session_id", c.ID)
	return c, nil
}

// Apply loads a saved session, applies one step and saves the result. A
// rejected step leaves the stored session untouched.
func (r *Runner) Apply(ctx context.Context, id string, s Step) (assessment.Context, error) {
	c, err := r.store.Load(ctx, id)
	if err != nil {
		return assessment.Context{}, err
	}
	if err := r.machine.Check(c); err != nil {
		return c, err
	}
	next, err := r.apply(c, s)
	if err != nil {
		return c, err
	}
	if _, err := r.store.Save(ctx, next); err != nil {
		return c, err
	}
	return next, nil
}

// Options lists what the machine offers at the session's current tier.
func (r *Runner) Options(c assessment.Context) []assessment.Option {
	opts, _ := r.machine.Options(c)
	return opts
}

func (r *Runner) apply(c assessment.Context, s Step) (assessment.Context, error) {
	switch s.Op {
	case OpSelect:
		return r.machine.Select(c, s.Value)
	case OpQuantify:
		return r.machine.Quantify(c, s.Baseline, s.Friction)
	case OpProcess:
		return r.machine.DescribeProcess(c, s.Steps, s.Breakdown)
	case OpSimpleProcess:
		return r.machine.DescribeSimpleProcess(c, s.Description)
	case OpValidate:
		return r.machine.ValidateProcess(c, s.Confirmed, s.Refinement)
	case OpBack:
		return r.machine.Back(c)
	default:
		return c, fmt.Errorf("%w %q", ErrUnknownOp, s.Op)
	}
}

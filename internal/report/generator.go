// Package report runs the assessment pipeline for a completed interview:
// extraction, metrics, collaborator lookups and section synthesis.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
	"github.com/joelkehle/discovery-assessment/internal/collab"
	"github.com/joelkehle/discovery-assessment/internal/extraction"
	"github.com/joelkehle/discovery-assessment/internal/metrics"
	"github.com/joelkehle/discovery-assessment/internal/synth"
	"github.com/joelkehle/discovery-assessment/internal/telemetry"
)

const (
	DefaultCollaboratorTimeout = 20 * time.Second
	maxSolutions               = 3
)

// ErrIncomplete is returned when the interview has not reached the ready tier.
var ErrIncomplete = errors.New("assessment is not complete")

type Options struct {
	Catalog    *assessment.Catalog
	Tables     metrics.Tables
	Retriever  collab.Retriever
	Researcher collab.Researcher
	// Timeout bounds both collaborator calls together.
	Timeout time.Duration
	Now     func() time.Time
	Tracer  trace.Tracer
}

type Generator struct {
	catalog    *assessment.Catalog
	tables     metrics.Tables
	retriever  collab.Retriever
	researcher collab.Researcher
	timeout    time.Duration
	now        func() time.Time
	tracer     trace.Tracer
}

func NewGenerator(opts Options) *Generator {
	g := &Generator{
		catalog:    opts.Catalog,
		tables:     opts.Tables,
		retriever:  opts.Retriever,
		researcher: opts.Researcher,
		timeout:    opts.Timeout,
		now:        opts.Now,
		tracer:     opts.Tracer,
	}
	if g.catalog == nil {
		g.catalog = assessment.DefaultCatalog()
	}
	if g.tables.Benchmarks == nil {
		g.tables = metrics.DefaultTables()
	}
	if g.timeout <= 0 {
		g.timeout = DefaultCollaboratorTimeout
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.tracer == nil {
		g.tracer = telemetry.Tracer()
	}
	return g
}

type Request struct {
	Session assessment.Context
	Answers extraction.Answers
}

// Generate builds the report. Only an incomplete session or invalid answers
// fail; collaborator problems degrade to the static substitutes.
func (g *Generator) Generate(ctx context.Context, req Request) (Document, error) {
	ctx, span := g.tracer.Start(ctx, "report.generate", trace.WithAttributes(
		attribute.String("session.id", req.Session.ID),
		attribute.String("session.tier", req.Session.CurrentTier.Label()),
	))
	defer span.End()

	if !assessment.IsComplete(req.Session) {
		err := fmt.Errorf("%w: session at %s", ErrIncomplete, req.Session.CurrentTier)
		span.SetStatus(codes.Error, err.Error())
		return Document{}, err
	}
	if err := req.Answers.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Document{}, err
	}

	data := g.extract(ctx, req.Answers)
	m := g.calculate(ctx, data)
	focus := FocusFor(g.catalog, req.Session)
	sols, research, meta := g.collect(ctx, data, focus, req.Session.ICPCategory)

	_, synthSpan := g.tracer.Start(ctx, "report.synthesize")
	bundle := synth.Bundle{Data: data, Metrics: m, Research: research, Solutions: sols, Focus: focus}
	doc := Document{
		SessionID:   req.Session.ID,
		GeneratedAt: g.now().UTC(),
		Company:     data.CompanyName,
		Sections:    synth.Render(bundle),
		Data:        data,
		Metrics:     m,
		Focus:       focus,
		Research:    research,
		Solutions:   sols,
		Sources:     meta,
		Disclaimer:  Disclaimer,
	}
	doc.Markdown = buildMarkdown(bundle, doc)
	synthSpan.SetAttributes(attribute.Int("sections", len(doc.Sections)))
	synthSpan.End()

	span.SetAttributes(
		attribute.String("archetype", string(m.Archetype)),
		attribute.String("quality_tier", string(data.Validation.QualityTier)),
	)
	slog.Info("report_generated", "component", "report", "session_id", req.Session.ID,
		"archetype", m.Archetype, "quality", data.Validation.QualityTier,
		"solutions_fallback", meta.SolutionsFallback, "research_fallback", meta.ResearchFallback)
	return doc, nil
}

func (g *Generator) extract(ctx context.Context, a extraction.Answers) extraction.ValidatedAssessmentData {
	_, span := g.tracer.Start(ctx, "report.extract")
	defer span.End()
	data := extraction.Extractor{Now: g.now}.Extract(a)
	span.SetAttributes(
		attribute.Float64("validation.score", data.Validation.Score),
		attribute.Int("defaulted_fields", data.DefaultedCount()),
	)
	return data
}

func (g *Generator) calculate(ctx context.Context, data extraction.ValidatedAssessmentData) metrics.PreCalculatedMetrics {
	_, span := g.tracer.Start(ctx, "report.calculate")
	defer span.End()
	m := metrics.Calculate(data, g.tables)
	span.SetAttributes(
		attribute.Float64("roi.three_year", m.ROI.ThreeYearROI),
		attribute.Bool("roi.payback_defined", m.ROI.PaybackDefined),
	)
	return m
}

// SourceInfo records where the collaborator-backed content came from.
type SourceInfo struct {
	SolutionsFallback bool   `json:"solutionsFallback"`
	SolutionsError    string `json:"solutionsError,omitempty"`
	ResearchFallback  bool   `json:"researchFallback"`
	ResearchError     string `json:"researchError,omitempty"`
	SearchQuery       string `json:"searchQuery"`
}

// collect queries both collaborators concurrently under one timeout. Neither
// goroutine returns an error: failures are replaced by static content. A
// collaborator that ignores cancellation is abandoned when the deadline passes.
func (g *Generator) collect(ctx context.Context, data extraction.ValidatedAssessmentData, focus synth.Focus, category string) ([]collab.Solution, collab.Research, SourceInfo) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	query := synth.SearchQuery(data, focus)
	info := SourceInfo{SearchQuery: query}
	var (
		sols     []collab.Solution
		research collab.Research
	)

	var eg errgroup.Group
	eg.Go(func() error {
		ctx, span := g.tracer.Start(ctx, "report.retrieve")
		defer span.End()
		filters := collab.Filters{Category: category, Limit: maxSolutions}
		if b := data.Parsed.Budget; b.Known {
			filters.Budget = b.Max
		}
		var err error
		if g.retriever == nil {
			err = errors.New("no retriever configured")
		} else {
			sols, err = await(ctx, func(ctx context.Context) ([]collab.Solution, error) {
				return g.retriever.Search(ctx, query, filters)
			})
		}
		if err == nil && len(sols) == 0 {
			err = errors.New("no results")
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			class := synth.ClassifyQuery(query)
			slog.Warn("retrieval_fallback", "component", "report", "class", class, "err", err)
			sols = synth.CuratedSolutions(class)
			info.SolutionsFallback = true
			info.SolutionsError = err.Error()
		}
		if len(sols) > maxSolutions {
			sols = sols[:maxSolutions]
		}
		span.SetAttributes(attribute.Int("solutions", len(sols)), attribute.Bool("fallback", info.SolutionsFallback))
		return nil
	})
	eg.Go(func() error {
		ctx, span := g.tracer.Start(ctx, "report.research")
		defer span.End()
		var err error
		if g.researcher == nil {
			err = errors.New("no researcher configured")
		} else {
			rq := synth.ResearchQuery(data, focus)
			research, err = await(ctx, func(ctx context.Context) (collab.Research, error) {
				return g.researcher.Research(ctx, rq)
			})
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("research_fallback", "component", "report", "err", err)
			research = synth.GenericResearch(data.BusinessType)
			info.ResearchFallback = true
			info.ResearchError = err.Error()
		}
		span.SetAttributes(attribute.Bool("fallback", info.ResearchFallback))
		return nil
	})
	_ = eg.Wait()
	return sols, research, info
}

type outcome[T any] struct {
	val T
	err error
}

// await runs call in its own goroutine and returns when it finishes or ctx
// is done. done is buffered so an abandoned call can still send and exit.
func await[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	done := make(chan outcome[T], 1)
	go func() {
		v, err := call(ctx)
		done <- outcome[T]{val: v, err: err}
	}()
	select {
	case o := <-done:
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// FocusFor resolves the interview selections into display labels.
func FocusFor(cat *assessment.Catalog, s assessment.Context) synth.Focus {
	label := func(t assessment.Tier, id string) string {
		if id == "" {
			return ""
		}
		return cat.Label(t, id)
	}
	return synth.Focus{
		Category:        label(assessment.TierCategory, s.ICPCategory),
		OpportunityArea: label(assessment.TierOpportunity, s.OpportunityArea),
		RevenueModel:    label(assessment.TierRevenueModel, s.RevenueModel),
		Challenge:       label(assessment.TierChallenge, s.ChallengeArea),
		Metric:          label(assessment.TierMetric, s.Metric),
		Baseline:        s.BaselineText,
		Friction:        s.FrictionText,
		Process:         s.ProcessSummary(),
		Breakdown:       s.BreakdownPoint,
	}
}

package report

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
	"github.com/joelkehle/discovery-assessment/internal/collab"
	"github.com/joelkehle/discovery-assessment/internal/extraction"
	"github.com/joelkehle/discovery-assessment/internal/synth"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

type fakeRetriever struct {
	sols    []collab.Solution
	err     error
	block   bool
	calls   atomic.Int32
	query   string
	filters collab.Filters
}

func (f *fakeRetriever) Search(ctx context.Context, query string, filters collab.Filters) ([]collab.Solution, error) {
	f.calls.Add(1)
	f.query = query
	f.filters = filters
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.sols, f.err
}

type fakeResearcher struct {
	res   collab.Research
	err   error
	block bool
	query string
}

func (f *fakeResearcher) Research(ctx context.Context, query string) (collab.Research, error) {
	f.query = query
	if f.block {
		<-ctx.Done()
		return collab.Research{}, ctx.Err()
	}
	return f.res, f.err
}

func completeSession(t *testing.T) assessment.Context {
	t.Helper()
	m := assessment.NewMachine(nil)
	c := assessment.New()
	c.ID = "sess-1"
	var err error
	c, err = m.SelectCategory(c, "b2b_saas")
	require.NoError(t, err)
	c, err = m.SelectOpportunityArea(c, "lead_generation")
	require.NoError(t, err)
	c, err = m.SelectRevenueModel(c, "subscription")
	require.NoError(t, err)
	c, err = m.SelectChallengeArea(c, "lead_qualification")
	require.NoError(t, err)
	c, err = m.SelectMetric(c, "conversion_rate")
	require.NoError(t, err)
	c, err = m.Quantify(c, "About 40 inbound leads a month, 8% close.", "Nobody scores leads before a call.")
	require.NoError(t, err)
	c, err = m.DescribeProcess(c, []string{"Lead fills form", "Doug reviews", "Kevin calls"}, "Calls happen days later")
	require.NoError(t, err)
	c, err = m.ValidateProcess(c, true, "")
	require.NoError(t, err)
	require.True(t, assessment.IsComplete(c))
	return c
}

func acmeAnswers() extraction.Answers {
	return extraction.Answers{
		CompanyName:     "Acme",
		BusinessType:    "SaaS",
		TeamDescription: "Doug CEO and Kevin VP nurture leads manually. Takes 8 months to close deals.",
		TechStack:       "HubSpot, Slack, Google Sheets",
		Budget:          "$10k-$50k",
		SalesProcess:    "Inbound demo requests, then a discovery call.",
		Challenges:      "Leads go cold while we wait.",
	}
}

func liveSolutions() []collab.Solution {
	return []collab.Solution{
		{Name: "LeadBot", Description: "Scores inbound leads.", RelevanceScore: 0.9},
		{Name: "RouteIQ", Description: "Routes leads to reps.", RelevanceScore: 0.8},
		{Name: "Sequencer", Description: "Automated follow-up.", RelevanceScore: 0.7},
		{Name: "Extra", Description: "Should be cut.", RelevanceScore: 0.6},
	}
}

func liveResearch() collab.Research {
	return collab.Research{
		NarrativeText: "SaaS buyers now expect a reply within the hour of a demo request.",
		Citations:     []string{"https://example.com/saas"},
		Trends:        []collab.Trend{{Trend: "AI SDRs", Impact: "Faster first touch"}},
	}
}

func newTestGenerator(ret collab.Retriever, res collab.Researcher, opts ...func(*Options)) *Generator {
	o := Options{Retriever: ret, Researcher: res, Now: func() time.Time { return fixedNow }}
	for _, f := range opts {
		f(&o)
	}
	return NewGenerator(o)
}

func TestGenerateWithLiveCollaborators(t *testing.T) {
	ret := &fakeRetriever{sols: liveSolutions()}
	res := &fakeResearcher{res: liveResearch()}
	g := newTestGenerator(ret, res)

	doc, err := g.Generate(context.Background(), Request{Session: completeSession(t), Answers: acmeAnswers()})
	require.NoError(t, err)

	assert.Equal(t, "sess-1", doc.SessionID)
	assert.Equal(t, fixedNow, doc.GeneratedAt)
	assert.Equal(t, "Acme", doc.Company)
	assert.Len(t, doc.Sections, len(synth.SectionIDs()))
	assert.Len(t, doc.Solutions, maxSolutions)
	assert.Equal(t, "LeadBot", doc.Solutions[0].Name)
	assert.False(t, doc.Sources.SolutionsFallback)
	assert.False(t, doc.Sources.ResearchFallback)
	assert.Equal(t, "b2b_saas", ret.filters.Category)
	assert.Equal(t, maxSolutions, ret.filters.Limit)
	assert.InDelta(t, 50000, ret.filters.Budget, 0.01)
	assert.Contains(t, res.query, "Industry: SaaS")
	assert.Equal(t, "B2B SaaS", doc.Focus.Category)
	assert.Equal(t, "Lead fills form → Doug reviews → Kevin calls", doc.Focus.Process)

	assert.True(t, strings.HasPrefix(doc.Markdown, "# Business Assessment: Acme"))
	assert.Contains(t, doc.Markdown, "Revenue opportunity: $21,875 per month (+87.5%)")
	assert.Contains(t, doc.Markdown, "### 1. LeadBot")
	assert.NotContains(t, doc.Markdown, "### 4.")
	assert.Contains(t, doc.Markdown, "## Appendix: Calculation Inputs")
	assert.Contains(t, doc.Markdown, Disclaimer)
	assert.NotContains(t, doc.Markdown, "curated catalog")
}

func TestGenerateFallsBackOnCollaboratorErrors(t *testing.T) {
	ret := &fakeRetriever{err: errors.New("search down")}
	res := &fakeResearcher{err: errors.New("model unavailable")}
	g := newTestGenerator(ret, res)

	doc, err := g.Generate(context.Background(), Request{Session: completeSession(t), Answers: acmeAnswers()})
	require.NoError(t, err)

	assert.True(t, doc.Sources.SolutionsFallback)
	assert.Equal(t, "search down", doc.Sources.SolutionsError)
	assert.True(t, doc.Sources.ResearchFallback)
	assert.Equal(t, "model unavailable", doc.Sources.ResearchError)
	assert.NotEmpty(t, doc.Solutions)
	assert.True(t, doc.Research.Fallback)
	assert.Contains(t, doc.Markdown, "curated catalog")
	assert.Contains(t, doc.Markdown, "general overview")
}

func TestGenerateFallsBackOnEmptyResults(t *testing.T) {
	g := newTestGenerator(&fakeRetriever{}, &fakeResearcher{res: liveResearch()})
	doc, err := g.Generate(context.Background(), Request{Session: completeSession(t), Answers: acmeAnswers()})
	require.NoError(t, err)
	assert.True(t, doc.Sources.SolutionsFallback)
	assert.Equal(t, "no results", doc.Sources.SolutionsError)
	assert.False(t, doc.Sources.ResearchFallback)
}

func TestGenerateFallsBackOnTimeout(t *testing.T) {
	ret := &fakeRetriever{block: true}
	res := &fakeResearcher{block: true}
	g := newTestGenerator(ret, res, func(o *Options) { o.Timeout = 20 * time.Millisecond })

	start := time.Now()
	doc, err := g.Generate(context.Background(), Request{Session: completeSession(t), Answers: acmeAnswers()})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, doc.Sources.SolutionsFallback)
	assert.True(t, doc.Sources.ResearchFallback)
	assert.Contains(t, doc.Sources.ResearchError, "deadline exceeded")
}

// slowRetriever and slowResearcher never look at ctx.
type slowRetriever struct{ delay time.Duration }

func (f slowRetriever) Search(context.Context, string, collab.Filters) ([]collab.Solution, error) {
	time.Sleep(f.delay)
	return liveSolutions(), nil
}

type slowResearcher struct{ delay time.Duration }

func (f slowResearcher) Research(context.Context, string) (collab.Research, error) {
	time.Sleep(f.delay)
	return collab.Research{NarrativeText: "late"}, nil
}

func TestGenerateAbandonsCollaboratorsIgnoringCancellation(t *testing.T) {
	g := newTestGenerator(slowRetriever{delay: 2 * time.Second}, slowResearcher{delay: 2 * time.Second},
		func(o *Options) { o.Timeout = 50 * time.Millisecond })

	start := time.Now()
	doc, err := g.Generate(context.Background(), Request{Session: completeSession(t), Answers: acmeAnswers()})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, doc.Sources.SolutionsFallback)
	assert.True(t, doc.Sources.ResearchFallback)
	assert.Contains(t, doc.Sources.SolutionsError, "deadline exceeded")
	assert.Contains(t, doc.Sources.ResearchError, "deadline exceeded")
	assert.NotEmpty(t, doc.Solutions)
}

func TestGenerateWithoutCollaborators(t *testing.T) {
	g := newTestGenerator(nil, nil)
	doc, err := g.Generate(context.Background(), Request{Session: completeSession(t), Answers: acmeAnswers()})
	require.NoError(t, err)
	assert.True(t, doc.Sources.SolutionsFallback)
	assert.True(t, doc.Sources.ResearchFallback)
	assert.Len(t, doc.Sections, len(synth.SectionIDs()))
}

func TestGenerateRejectsIncompleteSession(t *testing.T) {
	ret := &fakeRetriever{sols: liveSolutions()}
	g := newTestGenerator(ret, nil)

	_, err := g.Generate(context.Background(), Request{Session: assessment.New(), Answers: acmeAnswers()})
	require.ErrorIs(t, err, ErrIncomplete)
	assert.Zero(t, ret.calls.Load())
}

func TestGenerateRejectsOversizedAnswers(t *testing.T) {
	a := acmeAnswers()
	a.CompanyName = strings.Repeat("x", 201)
	_, err := newTestGenerator(nil, nil).Generate(context.Background(), Request{Session: completeSession(t), Answers: a})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid answers")
}

func TestGenerateRecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	g := newTestGenerator(&fakeRetriever{err: errors.New("down")}, &fakeResearcher{res: liveResearch()},
		func(o *Options) { o.Tracer = tp.Tracer("test") })
	_, err := g.Generate(context.Background(), Request{Session: completeSession(t), Answers: acmeAnswers()})
	require.NoError(t, err)

	names := map[string]bool{}
	for _, s := range rec.Ended() {
		names[s.Name()] = true
		if s.Name() == "report.retrieve" {
			assert.Len(t, s.Events(), 1)
		}
	}
	for _, want := range []string{"report.generate", "report.extract", "report.calculate", "report.retrieve", "report.research", "report.synthesize"} {
		assert.True(t, names[want], want)
	}
}

func TestFocusForSimpleProcess(t *testing.T) {
	m := assessment.NewMachine(nil)
	c := completeSession(t)
	c, err := m.Back(c)
	require.NoError(t, err)
	c, err = m.Back(c)
	require.NoError(t, err)
	c, err = m.DescribeSimpleProcess(c, "Leads arrive by email, Doug reads each one, then Kevin calls back within a week.")
	require.NoError(t, err)

	f := FocusFor(m.Catalog(), c)
	assert.Equal(t, "Lead generation", f.OpportunityArea)
	assert.Contains(t, f.Process, "Leads arrive by email")
}

func TestDocumentHTMLAndJSON(t *testing.T) {
	doc, err := newTestGenerator(nil, nil).Generate(context.Background(), Request{Session: completeSession(t), Answers: acmeAnswers()})
	require.NoError(t, err)

	html, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "<title>Business Assessment: Acme</title>")
	assert.Contains(t, html, "Quality: ")
	assert.Contains(t, html, `id="section-roi"`)
	assert.Contains(t, html, `<div class="page-break"></div>`)

	raw, err := doc.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sessionId": "sess-1"`)
	assert.Contains(t, string(raw), `"reportMarkdown"`)
}

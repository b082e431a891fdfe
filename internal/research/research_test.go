package research

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type queueCaller struct {
	responses []string
	errs      []error
	prompts   []string
}

func (q *queueCaller) GenerateJSON(_ context.Context, prompt string) (string, error) {
	i := len(q.prompts)
	q.prompts = append(q.prompts, prompt)
	if i < len(q.errs) && q.errs[i] != nil {
		return "", q.errs[i]
	}
	if i < len(q.responses) {
		return q.responses[i], nil
	}
	return "", nil
}

func (q *queueCaller) ModelName() string { return "test-model" }

func noSleep(context.Context, time.Duration) error { return nil }

func newTestResearcher(q *queueCaller) *Researcher {
	r := NewResearcher(q)
	r.exec.sleep = noSleep
	return r
}

const goodResponse = `{
  "narrativeText": "Professional services firms are adopting automation for intake, scheduling and proposal work. Adoption is fastest among firms with ten to fifty staff that already run a CRM.",
  "citations": ["https://example.com/services-2025", "  "],
  "trends": [{"trend": "AI intake", "impact": "Faster lead response"}],
  "caseStudies": [{"company": "Initech", "challenge": "Slow proposals", "solution": "Templates", "result": "Proposals in 1 day", "confidence": 0.6}]
}`

func TestResearchSuccess(t *testing.T) {
	q := &queueCaller{responses: []string{"```json\n" + goodResponse + "\n```"}}
	r, err := newTestResearcher(q).Research(context.Background(), "Industry: consulting")
	if err != nil {
		t.Fatalf("Research: %v", err)
	}
	if r.Fallback || !strings.Contains(r.NarrativeText, "Professional services") {
		t.Fatalf("unexpected research: %+v", r)
	}
	if want := []string{"https://example.com/services-2025"}; !reflect.DeepEqual(r.Citations, want) {
		t.Fatalf("citations = %v, want %v", r.Citations, want)
	}
	if len(r.CaseStudies) != 1 || r.CaseStudies[0].Confidence != 0.6 {
		t.Fatalf("unexpected case studies: %+v", r.CaseStudies)
	}
	if len(q.prompts) != 1 || !strings.Contains(q.prompts[0], "Industry: consulting") {
		t.Fatalf("unexpected prompts: %q", q.prompts)
	}
}

func TestResearchRetriesSchemaViolationWithFeedback(t *testing.T) {
	bad := strings.Replace(goodResponse, `"confidence": 0.6`, `"confidence": 4`, 1)
	q := &queueCaller{responses: []string{bad, goodResponse}}
	if _, err := newTestResearcher(q).Research(context.Background(), "q"); err != nil {
		t.Fatalf("Research: %v", err)
	}
	if len(q.prompts) != 2 || !strings.Contains(q.prompts[1], "did not match the required schema") {
		t.Fatalf("expected schema feedback on retry, prompts=%q", q.prompts)
	}
}

func TestResearchSemanticCheck(t *testing.T) {
	short := `{"narrativeText":"Too short.","citations":[],"trends":[],"caseStudies":[]}`
	q := &queueCaller{responses: []string{short, short, short}}
	_, err := newTestResearcher(q).Research(context.Background(), "q")
	var ce *CallError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if ce.Attempts != 3 || !strings.Contains(err.Error(), "at least 20 words") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(q.prompts[2], "failed validation") {
		t.Fatalf("missing validation feedback: %q", q.prompts[2])
	}
}

func TestResearchEmptyQuery(t *testing.T) {
	q := &queueCaller{}
	if _, err := newTestResearcher(q).Research(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty query")
	}
	if len(q.prompts) != 0 {
		t.Fatalf("caller should not be invoked, prompts=%q", q.prompts)
	}
}

func TestExecutorRetriesTransientTransportErrors(t *testing.T) {
	q := &queueCaller{
		errs:      []error{errors.New("POST: status code: 503"), errors.New("rate limit exceeded")},
		responses: []string{"", "", `{"ok":true}`},
	}
	var slept []time.Duration
	exec := NewExecutor(q)
	exec.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	var out struct {
		OK bool `json:"ok"`
	}
	m, err := exec.Run(context.Background(), "stage", "prompt", nil, &out, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.OK || m.Attempts != 3 || m.ContentRetries != 0 {
		t.Fatalf("unexpected output=%+v metrics=%+v", out, m)
	}
	if want := []time.Duration{time.Second, 2 * time.Second}; !reflect.DeepEqual(slept, want) {
		t.Fatalf("backoff = %v, want %v", slept, want)
	}
}

func TestExecutorBackoffStopsAtDeadline(t *testing.T) {
	q := &queueCaller{errs: []error{errors.New("status code: 503"), errors.New("status code: 503")}}
	exec := NewExecutor(q)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	var out struct{}
	m, err := exec.Run(ctx, "stage", "prompt", nil, &out, nil)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("backoff ignored the deadline, took %s", elapsed)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if m.Attempts != 1 || len(q.prompts) != 1 {
		t.Fatalf("unexpected retry after deadline: metrics=%+v prompts=%d", m, len(q.prompts))
	}
}

func TestExecutorStopsOnClientError(t *testing.T) {
	q := &queueCaller{errs: []error{errors.New("status 401 unauthorized")}}
	exec := NewExecutor(q)
	exec.sleep = func(context.Context, time.Duration) error {
		t.Fatal("client errors must not back off")
		return nil
	}
	var out struct{}
	m, err := exec.Run(context.Background(), "stage", "prompt", nil, &out, nil)
	if err == nil || !strings.Contains(err.Error(), "transport failure") {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if m.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", m.Attempts)
	}
}

func TestExecutorFailsAfterThreeBadResponses(t *testing.T) {
	q := &queueCaller{responses: []string{"not-json", "", "still not json"}}
	exec := NewExecutor(q)
	var out struct{}
	m, err := exec.Run(context.Background(), "stage", "prompt", nil, &out, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if m.Attempts != 3 || m.ContentRetries != 2 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	if !strings.Contains(q.prompts[1], "not valid JSON") || !strings.Contains(q.prompts[2], "was empty") {
		t.Fatalf("unexpected feedback prompts: %q", q.prompts[1:])
	}
}

func TestClassifyTransportError(t *testing.T) {
	cases := []struct {
		err  error
		want failureClass
	}{
		{context.DeadlineExceeded, failureTimeout},
		{context.Canceled, failureClient},
		{errors.New("status code: 429"), failureRateLimit},
		{errors.New("status=502 bad gateway"), failureServer},
		{errors.New("status 404"), failureClient},
		{errors.New("connection reset"), failureServer},
	}
	for _, tc := range cases {
		if got := classifyTransportError(tc.err); got != tc.want {
			t.Errorf("classifyTransportError(%q) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestStripCodeFences(t *testing.T) {
	for _, in := range []string{"```json\n{\"a\":1}\n```", "```\n{\"a\":1}\n```", `  {"a":1} `} {
		if got := stripCodeFences(in); got != `{"a":1}` {
			t.Errorf("stripCodeFences(%q) = %q", in, got)
		}
	}
}

type fakeMessages struct {
	params anthropic.MessageNewParams
	reply  string
}

func (f *fakeMessages) New(_ context.Context, p anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = p
	return &anthropic.Message{Content: []anthropic.ContentBlockUnion{
		{Type: "text", Text: f.reply[:5]},
		{Type: "thinking"},
		{Type: "text", Text: f.reply[5:]},
	}}, nil
}

func TestAnthropicCallerJoinsTextBlocks(t *testing.T) {
	fm := &fakeMessages{reply: `{"ok":true}`}
	c := newAnthropicCaller(fm, "")
	if c.ModelName() != DefaultModel {
		t.Fatalf("model = %q, want %q", c.ModelName(), DefaultModel)
	}

	out, err := c.GenerateJSON(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if out != `{"ok":true}` {
		t.Fatalf("out = %q", out)
	}
	if fm.params.Model != anthropic.Model(DefaultModel) || fm.params.MaxTokens != 4096 {
		t.Fatalf("unexpected params: model=%q max_tokens=%d", fm.params.Model, fm.params.MaxTokens)
	}

	if _, err := NewAnthropicCaller(" ", "x"); err == nil {
		t.Fatal("expected error for blank api key")
	}
}

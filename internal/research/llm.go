package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/xeipuuv/gojsonschema"
)

const (
	DefaultModel = "claude-sonnet-4-5"
	maxAttempts  = 3
	systemPrompt = "You are a market research analyst for small and mid-size businesses evaluating automation. " +
		"You produce conservative, structured outputs and do not invent facts. Return strict JSON only."
)

var statusCodeRe = regexp.MustCompile(`(?:status(?:\s+code)?[:=\s]+)(\d{3})`)

type failureClass int

const (
	failureNone failureClass = iota
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

func (c failureClass) String() string {
	switch c {
	case failureTimeout:
		return "timeout"
	case failureRateLimit:
		return "rate_limit"
	case failureServer:
		return "server"
	case failureClient:
		return "client"
	default:
		return "none"
	}
}

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

func NewAnthropicCaller(apiKey, model string) (*AnthropicCaller, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newAnthropicCaller(&c.Messages, model), nil
}

func newAnthropicCaller(m AnthropicMessager, model string) *AnthropicCaller {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicCaller{messages: m, model: model}
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// AttemptMetrics records how hard a call had to work.
type AttemptMetrics struct {
	Attempts       int `json:"attempts"`
	ContentRetries int `json:"contentRetries"`
}

// Executor runs one JSON-producing LLM call with retries. Transport failures
// that look transient are retried after a backoff; empty, malformed or invalid
// responses are retried with feedback appended to the prompt.
type Executor struct {
	caller LLMCaller
	sleep  func(context.Context, time.Duration) error
}

func NewExecutor(caller LLMCaller) *Executor {
	return &Executor{caller: caller, sleep: sleepCtx}
}

func (e *Executor) ModelName() string {
	if e == nil || e.caller == nil {
		return DefaultModel
	}
	return e.caller.ModelName()
}

// Run calls the model until out decodes, matches schema (when non-nil) and
// passes validate.
func (e *Executor) Run(ctx context.Context, stage, prompt string, schema *gojsonschema.Schema, out any, validate func() error) (AttemptMetrics, error) {
	m := AttemptMetrics{}
	feedback := ""
	var last error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		m.Attempts = attempt
		full := prompt
		if feedback != "" {
			full += "\n\n" + feedback
		}

		start := time.Now()
		log := slog.With("component", "research", "stage", stage, "attempt", attempt)
		log.Info("llm_attempt_start")
		raw, err := e.caller.GenerateJSON(ctx, full)
		if err != nil {
			class := classifyTransportError(err)
			log.Warn("llm_attempt_transport_error", "class", class.String(), "elapsed_ms", time.Since(start).Milliseconds(), "err", err)
			if (class == failureTimeout || class == failureRateLimit || class == failureServer) && attempt < maxAttempts && ctx.Err() == nil {
				if err := e.sleep(ctx, backoffDelay(attempt)); err != nil {
					return m, &CallError{Stage: stage, Attempts: attempt, Err: fmt.Errorf("backoff: %w", err)}
				}
				continue
			}
			return m, &CallError{Stage: stage, Attempts: attempt, Err: fmt.Errorf("transport failure: %w", err)}
		}

		clean := stripCodeFences(raw)
		switch {
		case clean == "":
			last = errors.New("empty response")
			feedback = "Your previous response was empty. Return valid JSON only."
		case schema != nil:
			if err := validateAgainstSchema(schema, clean); err != nil {
				last = err
				feedback = fmt.Sprintf("Your response did not match the required schema: %s. Fix and return valid JSON only.", err)
				break
			}
			fallthrough
		default:
			if err := json.Unmarshal([]byte(clean), out); err != nil {
				last = fmt.Errorf("json parse: %w", err)
				feedback = "Your previous response was not valid JSON. Return valid JSON only."
				break
			}
			if validate != nil {
				if err := validate(); err != nil {
					last = fmt.Errorf("validation: %w", err)
					feedback = fmt.Sprintf("Your response failed validation: %s. Fix and return valid JSON only.", err)
					break
				}
			}
			log.Info("llm_attempt_success", "elapsed_ms", time.Since(start).Milliseconds(), "response_chars", len(clean))
			return m, nil
		}

		log.Warn("llm_attempt_content_error", "elapsed_ms", time.Since(start).Milliseconds(), "err", last)
		if attempt < maxAttempts {
			m.ContentRetries++
		}
	}
	return m, &CallError{Stage: stage, Attempts: m.Attempts, Err: last}
}

// CallError is returned when a research call exhausts its attempts or hits a
// non-retryable transport failure.
type CallError struct {
	Stage    string
	Attempts int
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("research %s failed after %d attempt(s): %v", e.Stage, e.Attempts, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

func validateAgainstSchema(schema *gojsonschema.Schema, doc string) error {
	res, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("json parse: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, field+": "+desc.Description())
	}
	return fmt.Errorf("schema: %s", strings.Join(msgs, "; "))
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}
	return s
}

func classifyTransportError(err error) failureClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	if errors.Is(err, context.Canceled) {
		return failureClient
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode)
	}
	msg := strings.ToLower(err.Error())
	if m := statusCodeRe.FindStringSubmatch(msg); len(m) == 2 {
		code, _ := strconv.Atoi(m[1])
		return classifyStatus(code)
	}
	if strings.Contains(msg, "rate limit") {
		return failureRateLimit
	}
	return failureServer
}

func classifyStatus(code int) failureClass {
	switch {
	case code == 429:
		return failureRateLimit
	case code >= 500:
		return failureServer
	case code >= 400:
		return failureClient
	default:
		return failureServer
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDelay(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 1 * time.Second
	case 2:
		return 2 * time.Second
	default:
		return 4 * time.Second
	}
}

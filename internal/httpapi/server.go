// Package httpapi exposes interview sessions and report generation over a
// small JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
	"github.com/joelkehle/discovery-assessment/internal/extraction"
	"github.com/joelkehle/discovery-assessment/internal/interview"
	"github.com/joelkehle/discovery-assessment/internal/metrics"
	"github.com/joelkehle/discovery-assessment/internal/report"
	"github.com/joelkehle/discovery-assessment/internal/store"
)

const (
	CodeValidation       = "validation"
	CodeInvalidSelection = "invalid_selection"
	CodePrecondition     = "precondition"
	CodeNotFound         = "not_found"
	CodeIncomplete       = "incomplete"
	CodeConflict         = "conflict"
	CodeInternal         = "internal"

	maxBodyBytes = 1 << 20
)

// Error is the error envelope body.
type Error struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Legal   []string `json:"legal,omitempty"`
	Status  int      `json:"-"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

type Server struct {
	runner    *interview.Runner
	store     store.Store
	generator *report.Generator
	tables    metrics.Tables
}

func NewServer(runner *interview.Runner, st store.Store, gen *report.Generator, tables metrics.Tables) http.Handler {
	s := &Server{runner: runner, store: st, generator: gen, tables: tables}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.HandleFunc("/v1/sessions", s.handleSessions)
	mux.HandleFunc("/v1/sessions/", s.handleSession)
	mux.HandleFunc("/v1/extract", s.handleExtract)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto status codes. Anything unrecognized is
// a 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		apiErr       *Error
		invalid      *assessment.InvalidSelectionError
		precondition *assessment.PreconditionError
	)
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &invalid):
		apiErr = &Error{Code: CodeInvalidSelection, Message: invalid.UserMessage(), Legal: invalid.Legal, Status: http.StatusUnprocessableEntity}
	case errors.As(err, &precondition):
		apiErr = &Error{Code: CodePrecondition, Message: precondition.Error(), Status: http.StatusConflict}
	case errors.Is(err, store.ErrNotFound):
		apiErr = &Error{Code: CodeNotFound, Message: err.Error(), Status: http.StatusNotFound}
	case errors.Is(err, report.ErrIncomplete):
		apiErr = &Error{Code: CodeIncomplete, Message: err.Error(), Status: http.StatusConflict}
	case errors.Is(err, interview.ErrSessionExists):
		apiErr = &Error{Code: CodeConflict, Message: err.Error(), Status: http.StatusConflict}
	case errors.Is(err, interview.ErrUnknownOp):
		apiErr = &Error{Code: CodeValidation, Message: err.Error(), Status: http.StatusBadRequest}
	default:
		slog.Error("http_internal_error", "component", "httpapi", "err", err)
		apiErr = &Error{Code: CodeInternal, Message: "internal error", Status: http.StatusInternalServerError}
	}
	writeJSON(w, apiErr.Status, map[string]any{"ok": false, "error": apiErr})
}

func validationError(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Status: http.StatusBadRequest}
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return validationError("read body: " + err.Error())
	}
	if len(blob) == 0 {
		return nil
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return validationError("invalid json: " + err.Error())
	}
	return nil
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

type sessionView struct {
	Session  assessment.Context  `json:"session"`
	Options  []assessment.Option `json:"options"`
	Complete bool                `json:"complete"`
}

func (s *Server) view(c assessment.Context) sessionView {
	opts := s.runner.Options(c)
	if opts == nil {
		opts = []assessment.Option{}
	}
	return sessionView{Session: c, Options: opts, Complete: assessment.IsComplete(c)}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.runner.Start(r.Context(), strings.TrimSpace(req.SessionID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(c))
}

// handleSession routes /v1/sessions/{id}, /v1/sessions/{id}/steps and
// /v1/sessions/{id}/report.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions/"), "/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			s.getSession(w, r, id)
		case http.MethodDelete:
			s.deleteSession(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "steps":
		if methodOnly(w, r, http.MethodPost) {
			s.postStep(w, r, id)
		}
	case "report":
		if methodOnly(w, r, http.MethodPost) {
			s.postReport(w, r, id)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, id string) {
	c, err := s.store.Load(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(c))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) postStep(w http.ResponseWriter, r *http.Request, id string) {
	var step interview.Step
	if err := decodeBody(r, &step); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(step.Op) == "" {
		writeError(w, validationError("op is required"))
		return
	}
	c, err := s.runner.Apply(r.Context(), id, step)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(c))
}

func (s *Server) postReport(w http.ResponseWriter, r *http.Request, id string) {
	var answers extraction.Answers
	if err := decodeBody(r, &answers); err != nil {
		writeError(w, err)
		return
	}
	if err := answers.Validate(); err != nil {
		writeError(w, validationError(err.Error()))
		return
	}
	c, err := s.store.Load(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.generator.Generate(r.Context(), report.Request{Session: c, Answers: answers})
	if err != nil {
		writeError(w, err)
		return
	}

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "json":
		writeJSON(w, http.StatusOK, doc)
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, doc.Markdown)
	case "html":
		html, err := doc.HTML()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, html)
	default:
		writeError(w, validationError("format must be json, md or html"))
	}
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var answers extraction.Answers
	if err := decodeBody(r, &answers); err != nil {
		writeError(w, err)
		return
	}
	if err := answers.Validate(); err != nil {
		writeError(w, validationError(err.Error()))
		return
	}
	data := extraction.Extract(answers)
	writeJSON(w, http.StatusOK, map[string]any{
		"data":    data,
		"metrics": metrics.Calculate(data, s.tables),
	})
}

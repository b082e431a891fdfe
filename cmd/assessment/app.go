package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
	"github.com/joelkehle/discovery-assessment/internal/config"
	"github.com/joelkehle/discovery-assessment/internal/extraction"
	"github.com/joelkehle/discovery-assessment/internal/metrics"
	"github.com/joelkehle/discovery-assessment/internal/report"
	"github.com/joelkehle/discovery-assessment/internal/research"
	"github.com/joelkehle/discovery-assessment/internal/retrieval"
	"github.com/joelkehle/discovery-assessment/internal/store"
	"github.com/joelkehle/discovery-assessment/internal/telemetry"
)

// app holds what every subcommand shares once the root pre-run has loaded
// configuration.
type app struct {
	cfg      config.Config
	shutdown telemetry.ShutdownFunc
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "assessment",
		Short:         "Discovery interview and business assessment reports",
		Long:          "Replays tiered discovery interviews, persists sessions and turns completed sessions plus free-text answers into assessment reports.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context(), cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}
	root.AddCommand(
		newInterviewCmd(a),
		newSessionCmd(a),
		newReportCmd(a),
		newExtractCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	shutdown, err := telemetry.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	a.shutdown = shutdown
	return nil
}

func (a *app) catalog() (*assessment.Catalog, error) {
	if a.cfg.CatalogPath == "" {
		return assessment.DefaultCatalog(), nil
	}
	return assessment.LoadCatalog(a.cfg.CatalogPath)
}

func (a *app) tables() (metrics.Tables, error) {
	if a.cfg.TablesPath == "" {
		return metrics.DefaultTables(), nil
	}
	return metrics.LoadTables(a.cfg.TablesPath)
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, a.cfg.StoreOptions())
}

// generator wires the report pipeline. Collaborators that are not configured
// stay nil and the generator uses its static substitutes.
func (a *app) generator() (*report.Generator, func(), error) {
	cat, err := a.catalog()
	if err != nil {
		return nil, nil, err
	}
	tables, err := a.tables()
	if err != nil {
		return nil, nil, err
	}
	opts := report.Options{
		Catalog: cat,
		Tables:  tables,
		Timeout: a.cfg.CollaboratorTimeout,
	}
	cleanup := func() {}
	if a.cfg.RetrievalEnabled() {
		client, err := retrieval.NewClient(a.cfg.RetrievalConfig())
		if err != nil {
			return nil, nil, err
		}
		opts.Retriever = client
		cleanup = client.Close
	} else {
		slog.Info("retrieval_disabled", "component", "cli", "reason", "SEARCH_BASE_URL not set")
	}
	if a.cfg.ResearchEnabled() {
		caller, err := research.NewAnthropicCaller(a.cfg.AnthropicAPIKey, a.cfg.ResearchModel)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts.Researcher = research.NewResearcher(caller)
	} else {
		slog.Info("research_disabled", "component", "cli", "reason", "ANTHROPIC_API_KEY not set")
	}
	return report.NewGenerator(opts), cleanup, nil
}

// loadAnswers accepts either a bare answers object or an interview script
// carrying an "answers" key.
func loadAnswers(path string) (extraction.Answers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extraction.Answers{}, fmt.Errorf("read answers %s: %w", path, err)
	}
	var wrapped struct {
		Answers *extraction.Answers `json:"answers"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return extraction.Answers{}, fmt.Errorf("parse answers %s: %w", path, err)
	}
	if wrapped.Answers != nil {
		return *wrapped.Answers, nil
	}
	var a extraction.Answers
	if err := json.Unmarshal(data, &a); err != nil {
		return extraction.Answers{}, fmt.Errorf("parse answers %s: %w", path, err)
	}
	return a, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

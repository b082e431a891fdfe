package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
	"github.com/joelkehle/discovery-assessment/internal/render"
	"github.com/joelkehle/discovery-assessment/internal/report"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		sessionID   string
		answersPath string
		format      string
		outPath     string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the assessment report for a completed session",
		Long: `Loads a completed session and its free-text answers, runs extraction,
metrics, solution retrieval and market research, then writes the report as
markdown, html, pdf or the full json envelope.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			switch format {
			case "md", "html", "json":
			case "pdf":
				if outPath == "" {
					return errors.New("--out is required for pdf output")
				}
			default:
				return fmt.Errorf("unknown format %q (want md, html, pdf or json)", format)
			}

			answers, err := loadAnswers(answersPath)
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			session, err := st.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("load session %s: %w", sessionID, err)
			}
			if !assessment.IsComplete(session) {
				return fmt.Errorf("session %s is at tier %s: %w", sessionID, session.CurrentTier.Label(), report.ErrIncomplete)
			}

			gen, cleanup, err := a.generator()
			if err != nil {
				return err
			}
			defer cleanup()
			doc, err := gen.Generate(cmd.Context(), report.Request{Session: session, Answers: answers})
			if err != nil {
				return err
			}

			var out []byte
			switch format {
			case "md":
				out = []byte(doc.Markdown)
			case "json":
				if out, err = doc.JSON(); err != nil {
					return err
				}
			case "html", "pdf":
				html, err := doc.HTML()
				if err != nil {
					return err
				}
				out = []byte(html)
				if format == "pdf" {
					size, err := render.ParsePageSize(a.cfg.PDFPageSize)
					if err != nil {
						return err
					}
					r := render.NewPDFRenderer(render.LayoutFor(size, doc.Meta()))
					if !r.Available() {
						return errors.New("pdf output needs chromium; set CHROME_PATH")
					}
					if out, err = r.Render(cmd.Context(), html); err != nil {
						return err
					}
				}
			}
			if err := writeOutput(cmd.OutOrStdout(), outPath, out); err != nil {
				return err
			}
			slog.Info("report_written", "component", "cli", "session_id", session.ID, "format", format, "bytes", len(out), "path", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id to report on")
	cmd.Flags().StringVar(&answersPath, "answers", "", "Answers JSON (bare object or interview script with an answers key)")
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Output format: md, html, pdf or json")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("session")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

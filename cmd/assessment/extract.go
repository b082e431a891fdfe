package main

import (
	"github.com/spf13/cobra"

	"github.com/joelkehle/discovery-assessment/internal/extraction"
	"github.com/joelkehle/discovery-assessment/internal/metrics"
)

func newExtractCmd(a *app) *cobra.Command {
	var withMetrics bool
	cmd := &cobra.Command{
		Use:   "extract <answers.json>",
		Short: "Run extraction and validation on an answers file and print JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := loadAnswers(args[0])
			if err != nil {
				return err
			}
			if err := answers.Validate(); err != nil {
				return err
			}
			data := extraction.Extract(answers)
			if !withMetrics {
				return writeJSON(cmd, data)
			}
			tables, err := a.tables()
			if err != nil {
				return err
			}
			return writeJSON(cmd, struct {
				Data    extraction.ValidatedAssessmentData `json:"data"`
				Metrics metrics.PreCalculatedMetrics       `json:"metrics"`
			}{data, metrics.Calculate(data, tables)})
		},
	}
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "Also compute metrics and ROI")
	return cmd
}

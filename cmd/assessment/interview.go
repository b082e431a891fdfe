package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
	"github.com/joelkehle/discovery-assessment/internal/interview"
)

func newInterviewCmd(a *app) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "interview <script.json>",
		Short: "Replay a scripted interview through the tiered state machine",
		Long: `Applies each step of a JSON interview script (select, quantify, process,
simple_process, validate, back) and saves the session after every step.
Prints the tier reached and the options offered next.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := interview.LoadScript(args[0])
			if err != nil {
				return err
			}
			if sessionID != "" {
				script.SessionID = sessionID
			}
			cat, err := a.catalog()
			if err != nil {
				return err
			}
			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			runner := interview.NewRunner(assessment.NewMachine(cat), st)
			final, err := runner.Replay(cmd.Context(), script, func(p interview.Progress) {
				fmt.Fprintf(out, "[%3d%%] %-14s -> tier %s\n", p.Context.ProgressPercentage, p.Step.Op, p.Context.CurrentTier.Label())
				if len(p.Options) > 0 {
					ids := make([]string, 0, len(p.Options))
					for _, o := range p.Options {
						ids = append(ids, o.ID)
					}
					fmt.Fprintf(out, "        options: %s\n", strings.Join(ids, ", "))
				}
			})
			fmt.Fprintf(out, "session: %s\n", final.ID)
			if err != nil {
				return err
			}
			if assessment.IsComplete(final) {
				fmt.Fprintln(out, "status: complete")
			} else {
				fmt.Fprintf(out, "status: in progress at tier %s\n", final.CurrentTier.Label())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume or create this session id (overrides the script)")
	return cmd
}

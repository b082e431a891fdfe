package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/discovery-assessment/internal/assessment"
	"github.com/joelkehle/discovery-assessment/internal/httpapi"
	"github.com/joelkehle/discovery-assessment/internal/interview"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interview and report JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cat, err := a.catalog()
			if err != nil {
				return err
			}
			tables, err := a.tables()
			if err != nil {
				return err
			}
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			gen, cleanup, err := a.generator()
			if err != nil {
				return err
			}
			defer cleanup()

			runner := interview.NewRunner(assessment.NewMachine(cat), st)
			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewServer(runner, st, gen, tables),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			slog.Info("server_listening", "component", "cli", "addr", addr, "store", a.cfg.StoreDriver)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8090", "Listen address")
	return cmd
}

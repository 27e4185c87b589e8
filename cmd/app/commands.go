package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seethefuture888888-creator/kangbo/internal/di"
	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	domrepo "github.com/seethefuture888888-creator/kangbo/internal/domain/repository"
	"github.com/seethefuture888888-creator/kangbo/internal/usecase"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the read API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()
			return app.Run(cmd.Context())
		},
	}
}

func generateCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the pipeline once and write the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Dashboard.JSONPath = output
			}
			pipeline, cleanup, err := di.InitializePipeline(cfg)
			if err != nil {
				return fmt.Errorf("pipeline initialization failed: %w", err)
			}
			defer cleanup()

			snap, err := pipeline.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("generate failed: %w", err)
			}
			ds := snap.Payload.DailySignal
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (run %s): regime %s, risk %.1f, confidence %.1f, action %s\n",
				pipeline.Store().Path(), snap.RunID, ds.Regime, ds.RiskScore, ds.RiskScoreConfidence, ds.PortfolioAction)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot path (defaults to dashboard.json_path)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List which price and macro inputs are still unavailable and why",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pipeline, cleanup, err := di.InitializePipeline(cfg)
			if err != nil {
				return fmt.Errorf("pipeline initialization failed: %w", err)
			}
			defer cleanup()

			p, err := loadOrGenerate(cmd.Context(), pipeline)
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), p)
		},
	}
}

func loadOrGenerate(ctx context.Context, pipeline *usecase.Pipeline) (*models.DashboardPayload, error) {
	p, err := pipeline.Store().Load(ctx)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domrepo.ErrSnapshotNotFound) {
		return nil, err
	}
	snap, err := pipeline.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate failed: %w", err)
	}
	return snap.Payload, nil
}

func printStatus(out io.Writer, p *models.DashboardPayload) error {
	available, gaps := usecase.Coverage(p)
	fmt.Fprintf(out, "snapshot generated at %s, %d inputs available, %d unavailable\n\n", p.GeneratedAt, len(available), len(gaps))
	if len(gaps) == 0 {
		fmt.Fprintln(out, "all inputs available")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tKEY\tPROVIDER\tROWS\tREASON")
	for _, g := range gaps {
		rows := "-"
		if g.RowCount >= 0 {
			rows = fmt.Sprint(g.RowCount)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", g.Kind, g.Key, g.Provider, rows, g.Reason)
	}
	return w.Flush()
}

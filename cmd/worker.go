package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openhelm/corpus/internal/app"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background processing worker",
		Long: `Starts the ingest worker: it resumes sources left unfinished by a
previous run, then processes newly enqueued sources until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.Setup(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("initializing worker: %w", err)
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warn("shutdown", "error", err)
				}
			}()

			if _, err := a.ResumePending(ctx); err != nil {
				return fmt.Errorf("resuming pending sources: %w", err)
			}

			logger.Info("worker running", "workers", cfg.WorkerCount, "provider", cfg.Provider)
			<-ctx.Done()
			logger.Info("worker stopping")
			return nil
		},
	}
}

package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openhelm/corpus/internal/app"
	"github.com/openhelm/corpus/internal/knowledge"
)

func newBaseCmd() *cobra.Command {
	baseCmd := &cobra.Command{
		Use:   "base",
		Short: "Manage knowledge bases",
	}

	baseCmd.AddCommand(
		newBaseCreateCmd(),
		newBaseListCmd(),
		newBaseDeleteCmd(),
	)
	return baseCmd
}

func newBaseCreateCmd() *cobra.Command {
	var (
		name         string
		description  string
		strategy     string
		chunkSize    int
		chunkOverlap int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a knowledge base",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				base, err := a.Orchestrator.CreateBase(ctx, orgID, knowledge.CreateBaseParams{
					Name:             name,
					Description:      description,
					ChunkingStrategy: strategy,
					ChunkSize:        chunkSize,
					ChunkOverlap:     chunkOverlap,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created knowledge base %s (%s)\n", base.ID, base.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "knowledge base name (required)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&strategy, "strategy", "", "chunking strategy: semantic, fixed, or sentence")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "chunk size in tokens")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", 0, "chunk overlap in tokens")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newBaseListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List knowledge bases",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				bases, err := a.Orchestrator.ListBases(ctx, orgID)
				if err != nil {
					return err
				}
				if len(bases) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no knowledge bases")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSTRATEGY\tSOURCES\tCHUNKS\tTOKENS")
				for _, b := range bases {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
						b.ID, b.Name, b.ChunkingStrategy, b.SourcesCount, b.ChunksCount, b.TotalTokens)
				}
				return w.Flush()
			})
		},
	}
}

func newBaseDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <base-id>",
		Short: "Delete a knowledge base and its sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid base id %q: %w", args[0], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Orchestrator.DeleteBase(ctx, orgID, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted knowledge base %s\n", id)
				return nil
			})
		},
	}
}

// withApp runs fn against a database-only app wiring and releases it.
func withApp(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.SetupLite(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	return fn(ctx, a)
}

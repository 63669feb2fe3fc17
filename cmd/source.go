package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/openhelm/corpus/internal/app"
	"github.com/openhelm/corpus/internal/knowledge"
)

func newSourceCmd() *cobra.Command {
	sourceCmd := &cobra.Command{
		Use:   "source",
		Short: "Manage knowledge sources",
	}

	sourceCmd.AddCommand(
		newSourceAddCmd(),
		newSourceListCmd(),
		newSourceReindexCmd(),
		newSourceDeleteCmd(),
	)
	return sourceCmd
}

func newSourceAddCmd() *cobra.Command {
	var (
		name     string
		text     string
		filePath string
		mime     string
		siteURL  string
	)

	cmd := &cobra.Command{
		Use:   "add <base-id>",
		Short: "Add a source to a knowledge base",
		Long: `Add a source to a knowledge base. Exactly one of --text, --file, or
--url selects the source type. The source is stored as PENDING; a running
"corpus worker" picks it up and processes it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid base id %q: %w", args[0], err)
			}

			params, err := buildSourceParams(baseID, name, text, filePath, mime, siteURL)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				source, err := a.Orchestrator.CreateSource(ctx, orgID, params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created source %s (%s, %s)\n", source.ID, source.Name, source.Status)
				fmt.Fprintln(cmd.OutOrStdout(), "run \"corpus worker\" to process pending sources")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "source name (defaults to file name or URL)")
	cmd.Flags().StringVar(&text, "text", "", "inline text content")
	cmd.Flags().StringVar(&filePath, "file", "", "path or URL of a file to ingest")
	cmd.Flags().StringVar(&mime, "mime", "", "MIME type of the file (inferred from the extension when omitted)")
	cmd.Flags().StringVar(&siteURL, "url", "", "web page URL to ingest")
	return cmd
}

// buildSourceParams maps the add flags onto a typed source payload. Exactly
// one content flag must be set.
func buildSourceParams(baseID uuid.UUID, name, text, filePath, mime, siteURL string) (knowledge.SourceParams, error) {
	set := 0
	for _, v := range []string{text, filePath, siteURL} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return knowledge.SourceParams{}, fmt.Errorf("exactly one of --text, --file, or --url is required")
	}

	p := knowledge.SourceParams{KnowledgeBaseID: baseID, Name: name}
	switch {
	case text != "":
		p.Type = knowledge.SourceTypeText
		p.TextContent = &text
		if p.Name == "" {
			p.Name = "inline text"
		}
	case siteURL != "":
		p.Type = knowledge.SourceTypeWebsite
		p.WebsiteURL = &siteURL
		if p.Name == "" {
			p.Name = siteURL
		}
	default:
		p.Type = knowledge.SourceTypeFile
		fileName := filepath.Base(filePath)
		if mime == "" {
			mime = mimeForExtension(filepath.Ext(filePath))
		}
		if mime == "" {
			return knowledge.SourceParams{}, fmt.Errorf("cannot infer MIME type for %q, pass --mime", filePath)
		}
		p.FileURL = &filePath
		p.FileName = &fileName
		p.MimeType = &mime
		if p.Name == "" {
			p.Name = fileName
		}
		if info, err := os.Stat(filePath); err == nil {
			size := info.Size()
			p.FileSize = &size
		}
	}
	return p, nil
}

func mimeForExtension(ext string) string {
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return ""
	}
}

func newSourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <base-id>",
		Short: "List sources of a knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			baseID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid base id %q: %w", args[0], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				sources, err := a.Orchestrator.ListSources(ctx, orgID, baseID)
				if err != nil {
					return err
				}
				if len(sources) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no sources")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tCHUNKS\tERRORS\tLAST ERROR")
				for _, s := range sources {
					lastErr := ""
					if s.ErrorMessage != nil {
						lastErr = *s.ErrorMessage
					}
					if len(lastErr) > 60 {
						lastErr = lastErr[:57] + "..."
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
						s.ID, s.Name, s.Type, s.Status, s.ChunksCount, s.ErrorCount, lastErr)
				}
				return w.Flush()
			})
		},
	}
}

func newSourceReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <source-id>",
		Short: "Reset a source to PENDING for reprocessing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid source id %q: %w", args[0], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Orchestrator.Reindex(ctx, orgID, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "source %s reset to PENDING\n", id)
				fmt.Fprintln(cmd.OutOrStdout(), "run \"corpus worker\" to process pending sources")
				return nil
			})
		},
	}
}

func newSourceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <source-id>",
		Short: "Delete a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid source id %q: %w", args[0], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Orchestrator.DeleteSource(ctx, orgID, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted source %s\n", id)
				return nil
			})
		},
	}
}

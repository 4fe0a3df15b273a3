package cli

import (
	"context"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"

	"github.com/seiri-lab/mathrag/pkg/cli/config"
	"github.com/seiri-lab/mathrag/pkg/service/knowledge"
	"github.com/seiri-lab/mathrag/pkg/service/retriever"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdIngest() *cli.Command {
	var force bool
	var repoCfg config.Repository
	var knowledgeCfg config.Knowledge
	var embeddingCfg config.Embedding
	var geminiCfg config.Gemini

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "Reprocess even when no file changed",
			Sources:     cli.EnvVars("MATHRAG_INGEST_FORCE"),
			Destination: &force,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, knowledgeCfg.Flags()...)
	flags = append(flags, embeddingCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Process the knowledge base directory into the chunk store",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := knowledgeCfg.Validate(); err != nil {
				return err
			}

			repo, err := repoCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			llmClient, err := geminiCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize Gemini client")
			}

			embedder, err := embeddingCfg.Configure(llmClient)
			if err != nil {
				return goerr.Wrap(err, "failed to configure embedder")
			}

			svc := knowledge.New(repo, embedder, retriever.NewHybrid(embedder), knowledgeCfg.Dir())
			result, err := svc.Process(ctx, force)
			if err != nil {
				return goerr.Wrap(err, "failed to process knowledge base")
			}

			if result.Reprocessed {
				color.New(color.FgGreen, color.Bold).Printf("✓ Knowledge base reprocessed\n")
			} else {
				color.New(color.FgYellow).Printf("- Knowledge base unchanged, nothing to do\n")
			}
			color.New(color.FgCyan).Printf("  files:  %d\n", result.Files)
			color.New(color.FgCyan).Printf("  chunks: %d\n", result.Chunks)
			return nil
		},
	}
}

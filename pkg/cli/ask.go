package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"

	"github.com/seiri-lab/mathrag/pkg/cli/config"
	"github.com/seiri-lab/mathrag/pkg/service/classifier"
	"github.com/seiri-lab/mathrag/pkg/service/knowledge"
	"github.com/seiri-lab/mathrag/pkg/service/retriever"
	"github.com/seiri-lab/mathrag/pkg/usecase"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdAsk() *cli.Command {
	var stream bool
	var related int
	var repoCfg config.Repository
	var knowledgeCfg config.Knowledge
	var runtimeCfg config.Runtime
	var embeddingCfg config.Embedding
	var geminiCfg config.Gemini
	var retrievalCfg config.Retrieval

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "stream",
			Usage:       "Print the answer incrementally as it is generated",
			Destination: &stream,
		},
		&cli.IntFlag{
			Name:        "related",
			Usage:       "Number of related questions to suggest after the answer (0 disables)",
			Destination: &related,
		},
	}

	// Add shared config flags
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, knowledgeCfg.Flags()...)
	flags = append(flags, runtimeCfg.Flags()...)
	flags = append(flags, embeddingCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, retrievalCfg.Flags()...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a single question from the command line",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := c.Args().First()
			if question == "" {
				return goerr.New("question argument is required")
			}
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

			retrOpts, err := retrievalCfg.Options()
			if err != nil {
				return goerr.Wrap(err, "failed to configure retriever")
			}
			hybrid := retriever.NewHybrid(embedder, retrOpts...)

			runtime := runtimeCfg.Configure()

			var cls *classifier.Classifier
			if llmClient != nil {
				cls = classifier.New(classifier.WithLabeler(classifier.NewGollemLabeler(llmClient)))
			} else {
				cls = classifier.New(classifier.WithLabeler(classifier.NewRuntimeLabeler(runtime)))
			}

			svc := knowledge.New(repo, embedder, hybrid, knowledgeCfg.Dir())
			if _, err := svc.Process(ctx, false); err != nil {
				return goerr.Wrap(err, "failed to process knowledge base")
			}

			uc := usecase.New(runtime, hybrid, cls,
				usecase.WithKnowledge(svc),
			)

			if stream {
				for frag := range uc.AskStream(ctx, question, nil) {
					fmt.Print(frag.Text)
				}
				fmt.Println()
			} else {
				result := uc.Ask(ctx, question, nil)
				fmt.Println(result.Text)
			}

			if related > 0 {
				questions := uc.GenerateRelatedQuestions(ctx, question, related)
				if len(questions) > 0 {
					color.New(color.FgHiBlack).Println("---")
					for _, q := range questions {
						color.New(color.FgCyan).Printf("? %s\n", q)
					}
				}
			}
			return nil
		},
	}
}

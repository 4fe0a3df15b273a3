package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/seiri-lab/mathrag/pkg/cli/config"
	httpctrl "github.com/seiri-lab/mathrag/pkg/controller/http"
	"github.com/seiri-lab/mathrag/pkg/service/classifier"
	"github.com/seiri-lab/mathrag/pkg/service/knowledge"
	"github.com/seiri-lab/mathrag/pkg/service/retriever"
	"github.com/seiri-lab/mathrag/pkg/usecase"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var repoCfg config.Repository
	var knowledgeCfg config.Knowledge
	var runtimeCfg config.Runtime
	var embeddingCfg config.Embedding
	var geminiCfg config.Gemini
	var retrievalCfg config.Retrieval

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MATHRAG_ADDR"),
			Destination: &addr,
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
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := knowledgeCfg.Validate(); err != nil {
				return err
			}

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			// Initialize Gemini LLM client (optional)
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
				logging.Default().Info("Gemini classification enabled")
			} else {
				cls = classifier.New(classifier.WithLabeler(classifier.NewRuntimeLabeler(runtime)))
				logging.Default().Info("Classification uses the local model runtime")
			}

			svc := knowledge.New(repo, embedder, hybrid, knowledgeCfg.Dir())

			// Build the index before accepting requests
			result, err := svc.Process(ctx, false)
			if err != nil {
				return goerr.Wrap(err, "failed to process knowledge base")
			}
			logging.Default().Info("Knowledge base ready",
				"reprocessed", result.Reprocessed,
				"files", result.Files,
				"chunks", result.Chunks,
			)

			var refreshWorker *knowledge.RefreshWorker
			if interval := knowledgeCfg.RefreshInterval(); interval > 0 {
				refreshWorker = knowledge.NewRefreshWorker(svc, interval)
				refreshWorker.Start(ctx)
			}

			var watcher *knowledge.Watcher
			if knowledgeCfg.Watch() {
				watcher, err = knowledge.NewWatcher(svc)
				if err != nil {
					return goerr.Wrap(err, "failed to create knowledge watcher")
				}
				watcher.Start(ctx)
			}

			uc := usecase.New(runtime, hybrid, cls,
				usecase.WithKnowledge(svc),
			)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithModelName(runtimeCfg.Model())),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				if watcher != nil {
					watcher.Stop()
				}
				if refreshWorker != nil {
					refreshWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

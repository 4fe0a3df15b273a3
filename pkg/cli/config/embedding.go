package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/service/embedding"
	"github.com/urfave/cli/v3"
)

// Embedding holds CLI flags for the embedding backend
type Embedding struct {
	backend string
	baseURL string
	model   string
}

// Flags returns CLI flags for embedding configuration
func (x *Embedding) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedding-backend",
			Usage:       "Embedding backend (ollama or gemini)",
			Value:       "ollama",
			Sources:     cli.EnvVars("MATHRAG_EMBEDDING_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "embedding-url",
			Usage:       "Base URL of the embedding service (ollama backend)",
			Value:       "http://localhost:11434",
			Sources:     cli.EnvVars("MATHRAG_EMBEDDING_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name (ollama backend)",
			Value:       "nomic-embed-text",
			Sources:     cli.EnvVars("MATHRAG_EMBEDDING_MODEL"),
			Destination: &x.model,
		},
	}
}

// LogValue returns log attributes for the embedding configuration
func (x Embedding) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("base_url", x.baseURL),
		slog.String("model", x.model),
	)
}

// Configure creates the embedder from the configured flags. The gemini
// backend reuses the shared Gemini LLM client.
func (x *Embedding) Configure(llmClient gollem.LLMClient) (interfaces.Embedder, error) {
	switch x.backend {
	case "ollama":
		return embedding.New(x.baseURL, embedding.WithModel(x.model)), nil

	case "gemini":
		if llmClient == nil {
			return nil, goerr.Wrap(ErrMissingGeminiProject, "gemini embedding backend")
		}
		return embedding.NewGollem(llmClient), nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unknown embedding backend", goerr.V("backend", x.backend))
	}
}

package config

import (
	"log/slog"

	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/service/llama"
	"github.com/urfave/cli/v3"
)

// Runtime holds CLI flags for the local model runtime
type Runtime struct {
	baseURL string
	model   string
}

// Flags returns CLI flags for runtime configuration
func (x *Runtime) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llama-url",
			Usage:       "Base URL of the local model runtime",
			Value:       "http://localhost:11434",
			Sources:     cli.EnvVars("MATHRAG_LLAMA_URL"),
			Destination: &x.baseURL,
		},
		&cli.StringFlag{
			Name:        "llama-model",
			Usage:       "Model name served by the runtime",
			Value:       "qwen2-math",
			Sources:     cli.EnvVars("MATHRAG_LLAMA_MODEL"),
			Destination: &x.model,
		},
	}
}

// LogValue returns log attributes for the runtime configuration
func (x Runtime) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("base_url", x.baseURL),
		slog.String("model", x.model),
	)
}

// Model returns the configured model name
func (x *Runtime) Model() string {
	return x.model
}

// Configure creates the model runtime client from the configured flags
func (x *Runtime) Configure() interfaces.ModelRuntime {
	return llama.New(x.baseURL, llama.WithModel(x.model))
}

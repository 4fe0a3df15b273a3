package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/service/retriever"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Retrieval holds CLI flags for retriever construction
type Retrieval struct {
	rerankURL  string
	tuningPath string
}

// Flags returns CLI flags for retrieval configuration
func (x *Retrieval) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "rerank-url",
			Usage:       "Base URL of the cross-encoder rerank service (empty disables reranking and its relevance floor)",
			Sources:     cli.EnvVars("MATHRAG_RERANK_URL"),
			Destination: &x.rerankURL,
		},
		&cli.StringFlag{
			Name:        "tuning",
			Usage:       "Path to a TOML retrieval tuning file",
			Sources:     cli.EnvVars("MATHRAG_TUNING"),
			Destination: &x.tuningPath,
		},
	}
}

// LogValue returns log attributes for the retrieval configuration
func (x Retrieval) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("rerank_url", x.rerankURL),
		slog.String("tuning", x.tuningPath),
	)
}

// Options builds the retriever options from the configured flags, loading
// the tuning file when one is given.
func (x *Retrieval) Options() ([]retriever.HybridOption, error) {
	var opts []retriever.HybridOption

	if x.tuningPath != "" {
		tuning, err := LoadTuning(x.tuningPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load tuning file")
		}
		opts = append(opts, tuning.RetrieverOptions()...)
	}

	if x.rerankURL != "" {
		opts = append(opts, retriever.WithReranker(retriever.NewRerankClient(x.rerankURL)))
	} else {
		logging.Default().Warn("rerank-url not set: cross-encoder rescoring and its relevance floor are disabled, results keep the fused order")
	}

	return opts, nil
}

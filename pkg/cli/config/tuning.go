package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/seiri-lab/mathrag/pkg/service/retriever"
)

// Tuning represents the optional retrieval tuning file. Deployments that
// adjust fusion weights or the rerank cutoff do so here rather than through
// flags, so the values can be reviewed and versioned alongside the corpus.
type Tuning struct {
	Retrieval RetrievalTuning `toml:"retrieval"`
}

// RetrievalTuning adjusts the hybrid retriever scoring
type RetrievalTuning struct {
	DenseWeight     *float64 `toml:"dense_weight"`
	LexicalWeight   *float64 `toml:"lexical_weight"`
	RerankThreshold *float64 `toml:"rerank_threshold"`
}

// Validate checks if the Tuning values are usable
func (t *Tuning) Validate() error {
	r := t.Retrieval
	if (r.DenseWeight == nil) != (r.LexicalWeight == nil) {
		return goerr.New("dense_weight and lexical_weight must be set together")
	}
	if r.DenseWeight != nil {
		if *r.DenseWeight <= 0 {
			return goerr.Wrap(ErrInvalidWeight, "dense_weight", goerr.V("value", *r.DenseWeight))
		}
		if *r.LexicalWeight <= 0 {
			return goerr.Wrap(ErrInvalidWeight, "lexical_weight", goerr.V("value", *r.LexicalWeight))
		}
	}
	if r.RerankThreshold != nil && (*r.RerankThreshold < 0 || *r.RerankThreshold > 1) {
		return goerr.Wrap(ErrInvalidThreshold, "rerank_threshold", goerr.V("value", *r.RerankThreshold))
	}
	return nil
}

// RetrieverOptions converts the tuning values into retriever options
func (t *Tuning) RetrieverOptions() []retriever.HybridOption {
	var opts []retriever.HybridOption
	r := t.Retrieval
	if r.DenseWeight != nil && r.LexicalWeight != nil {
		opts = append(opts, retriever.WithFusionWeights(*r.DenseWeight, *r.LexicalWeight))
	}
	if r.RerankThreshold != nil {
		opts = append(opts, retriever.WithRerankThreshold(*r.RerankThreshold))
	}
	return opts
}

// LoadTuning loads and validates a tuning file from a TOML file
func LoadTuning(path string) (*Tuning, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read tuning file", goerr.V("path", path))
	}

	var tuning Tuning
	if err := toml.Unmarshal(data, &tuning); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML tuning file", goerr.V("path", path))
	}

	if err := tuning.Validate(); err != nil {
		return nil, goerr.Wrap(err, "tuning validation failed", goerr.V("path", path))
	}

	return &tuning, nil
}

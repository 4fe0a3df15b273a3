package config_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/seiri-lab/mathrag/pkg/cli/config"
)

func TestRetrievalOptionsDefault(t *testing.T) {
	// Without a rerank URL or tuning file the retriever runs bare: no
	// reranker option is produced, only the built-in defaults apply.
	var cfg config.Retrieval
	opts, err := cfg.Options()
	gt.NoError(t, err).Required()
	gt.A(t, opts).Length(0)
}

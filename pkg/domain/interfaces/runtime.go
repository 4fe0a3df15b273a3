package interfaces

import (
	"context"

	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// ModelRuntime wraps a local causal-language-model server exposing both
// complete-response and token-streaming generation.
type ModelRuntime interface {
	// Complete generates a full response for the prompt
	Complete(ctx context.Context, prompt string, cfg model.GenerationConfig) (string, error)

	// Stream starts a streaming generation. Fragments are produced by a
	// worker goroutine feeding the returned bounded channel; the channel is
	// closed when generation ends or fails. A fragment with Err set is
	// terminal.
	Stream(ctx context.Context, prompt string, cfg model.GenerationConfig) (<-chan model.StreamFragment, error)
}

// Embedder produces dense vectors for texts
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Reranker scores (query, candidate) pairs with a cross-encoder relevance
// model. Scores are on the encoder's native scale.
type Reranker interface {
	Score(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// Retriever returns the most relevant chunks for a query, best first. It
// never returns an error to callers; internal failures yield an empty
// result.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) []*model.Chunk
}

// Classifier decides whether a question is a math question
type Classifier interface {
	IsMath(ctx context.Context, question string) bool
}

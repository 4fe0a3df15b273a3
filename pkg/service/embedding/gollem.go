package embedding

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// GollemEmbedder adapts a hosted LLM client to the Embedder interface
type GollemEmbedder struct {
	client    gollem.LLMClient
	dimension int
}

var _ interfaces.Embedder = (*GollemEmbedder)(nil)

// NewGollem wraps an LLM client as an embedder with the standard dimension
func NewGollem(client gollem.LLMClient) *GollemEmbedder {
	return &GollemEmbedder{
		client:    client,
		dimension: model.EmbeddingDimension,
	}
}

func (g *GollemEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := g.client.GenerateEmbedding(ctx, g.dimension, texts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embeddings", goerr.V("count", len(texts)))
	}
	if len(vectors) != len(texts) {
		return nil, goerr.New("embedding count mismatch",
			goerr.V("texts", len(texts)), goerr.V("vectors", len(vectors)))
	}

	out := make([][]float32, len(vectors))
	for i, vec := range vectors {
		converted := make([]float32, len(vec))
		for j, v := range vec {
			converted[j] = float32(v)
		}
		out[i] = converted
	}
	return out, nil
}

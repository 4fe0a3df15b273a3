package memory

import (
	"context"
	"sync"

	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

type chunkRepository struct {
	mu     sync.RWMutex
	chunks []*model.Chunk
}

func newChunkRepository() *chunkRepository {
	return &chunkRepository{}
}

func (r *chunkRepository) ReplaceAll(ctx context.Context, chunks []*model.Chunk) error {
	copied := make([]*model.Chunk, len(chunks))
	for i, c := range chunks {
		copied[i] = c.Clone()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = copied
	return nil
}

func (r *chunkRepository) List(ctx context.Context) ([]*model.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Chunk, len(r.chunks))
	for i, c := range r.chunks {
		result[i] = c.Clone()
	}
	return result, nil
}

func (r *chunkRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chunks), nil
}

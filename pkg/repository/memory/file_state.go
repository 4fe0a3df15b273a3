package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

type fileStateRepository struct {
	mu     sync.RWMutex
	states map[string]*model.FileState
}

func newFileStateRepository() *fileStateRepository {
	return &fileStateRepository{
		states: make(map[string]*model.FileState),
	}
}

func copyFileState(s *model.FileState) *model.FileState {
	copied := *s
	return &copied
}

func (r *fileStateRepository) Get(ctx context.Context, path string) (*model.FileState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, exists := r.states[path]
	if !exists {
		return nil, nil
	}
	return copyFileState(state), nil
}

func (r *fileStateRepository) Put(ctx context.Context, state *model.FileState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state.Path] = copyFileState(state)
	return nil
}

func (r *fileStateRepository) List(ctx context.Context) ([]*model.FileState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.FileState, 0, len(r.states))
	for _, s := range r.states {
		result = append(result, copyFileState(s))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

func (r *fileStateRepository) Delete(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, path)
	return nil
}

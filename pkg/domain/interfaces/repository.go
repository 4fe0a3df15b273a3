package interfaces

import (
	"context"

	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// Repository defines the interface for chunk and file-state persistence
type Repository interface {
	Chunk() ChunkRepository
	FileState() FileStateRepository

	// Close releases underlying resources
	Close() error
}

// ChunkRepository defines the interface for Chunk persistence. The chunk
// set is always replaced wholesale; there is no per-chunk mutation.
type ChunkRepository interface {
	// ReplaceAll atomically replaces the full chunk set
	ReplaceAll(ctx context.Context, chunks []*model.Chunk) error

	// List returns the current chunk set in insertion order
	List(ctx context.Context) ([]*model.Chunk, error)

	// Count returns the size of the current chunk set
	Count(ctx context.Context) (int, error)
}

// FileStateRepository defines the interface for knowledge-file fingerprint
// persistence
type FileStateRepository interface {
	// Get retrieves the recorded state for a path; returns nil if the path
	// has never been processed
	Get(ctx context.Context, path string) (*model.FileState, error)

	// Put records the state for a path
	Put(ctx context.Context, state *model.FileState) error

	// List returns all recorded states
	List(ctx context.Context) ([]*model.FileState, error)

	// Delete removes the recorded state for a path
	Delete(ctx context.Context, path string) error
}

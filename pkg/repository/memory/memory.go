package memory

import (
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
)

// Memory is an in-memory Repository implementation, used for tests and for
// running without a vector-store directory.
type Memory struct {
	chunk     *chunkRepository
	fileState *fileStateRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		chunk:     newChunkRepository(),
		fileState: newFileStateRepository(),
	}
}

func (m *Memory) Chunk() interfaces.ChunkRepository {
	return m.chunk
}

func (m *Memory) FileState() interfaces.FileStateRepository {
	return m.fileState
}

func (m *Memory) Close() error {
	return nil
}

package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/seiri-lab/mathrag/pkg/domain/types"
)

// EmbeddingDimension is the dimension of chunk embedding vectors.
// bge-small class embedding models use 512 dimensions.
const EmbeddingDimension = 512

// ChunkID is a content-addressed identifier for a Chunk, stable across
// rebuilds as long as the source path, offset and content stay the same.
type ChunkID string

// NewChunkID derives a ChunkID from the chunk's provenance and content
func NewChunkID(source string, startIndex int, content string) ChunkID {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s", source, startIndex, content)
	return ChunkID(hex.EncodeToString(h.Sum(nil)))
}

// Chunk is a unit of source text with provenance metadata, the atomic
// element indexed and retrieved. Chunks are immutable once created; when a
// source file changes the whole chunk set is rebuilt, not patched.
type Chunk struct {
	ID          ChunkID
	Content     string
	Source      string // path of the originating file
	StartIndex  int    // rune offset of the chunk within its source document
	ContentType types.ContentType
	Metadata    map[string]string // structured fields preserved from the source record
	Embedding   []float32
}

// NewChunk creates a chunk with a derived ID
func NewChunk(source string, startIndex int, content string) *Chunk {
	return &Chunk{
		ID:          NewChunkID(source, startIndex, content),
		Content:     content,
		Source:      source,
		StartIndex:  startIndex,
		ContentType: types.ContentTypePlain,
	}
}

// Clone returns a deep copy of the chunk
func (c *Chunk) Clone() *Chunk {
	copied := &Chunk{
		ID:          c.ID,
		Content:     c.Content,
		Source:      c.Source,
		StartIndex:  c.StartIndex,
		ContentType: c.ContentType,
	}

	if c.Metadata != nil {
		copied.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			copied.Metadata[k] = v
		}
	}

	if c.Embedding != nil {
		copied.Embedding = make([]float32, len(c.Embedding))
		copy(copied.Embedding, c.Embedding)
	}

	return copied
}

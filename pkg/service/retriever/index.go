// Package retriever implements hybrid chunk retrieval: a dense cosine
// search and a BM25 lexical search fused by weighted score, optionally
// refined by a cross-encoder reranker.
package retriever

import (
	"math"
	"sort"

	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// scored pairs a chunk with a retrieval score for one search leg
type scored struct {
	chunk *model.Chunk
	score float64
}

// index is an immutable snapshot of the searchable chunk set. A rebuild
// produces a fresh index that replaces the previous one atomically.
type index struct {
	chunks []*model.Chunk
	bm25   *bm25Index
}

func buildIndex(chunks []*model.Chunk) *index {
	idx := &index{
		chunks: chunks,
		bm25:   newBM25Index(),
	}
	for _, chunk := range chunks {
		idx.bm25.add(chunk)
	}
	return idx
}

// searchDense returns the topK chunks by cosine similarity to the query
// vector, ordered by descending score.
func (x *index) searchDense(query []float32, topK int) []scored {
	results := make([]scored, 0, len(x.chunks))
	for _, chunk := range x.chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		results = append(results, scored{chunk: chunk, score: cosine(query, chunk.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

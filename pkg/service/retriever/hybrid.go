package retriever

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	// Default fusion weights of the dense and lexical legs
	defaultDenseWeight   = 0.6
	defaultLexicalWeight = 0.4

	// Each leg contributes at most legTopK candidates; the fused pool is
	// capped at fusionLimit before reranking.
	legTopK     = 5
	fusionLimit = 10

	// Rerank scores at or below this threshold are discarded
	defaultRerankThreshold = 0.85
)

// Hybrid retrieves chunks by fusing dense and lexical search over an
// atomically swappable index snapshot.
type Hybrid struct {
	embedder        interfaces.Embedder
	reranker        interfaces.Reranker
	denseWeight     float64
	lexicalWeight   float64
	rerankThreshold float64
	idx             atomic.Pointer[index]
}

var _ interfaces.Retriever = (*Hybrid)(nil)

type HybridOption func(*Hybrid)

// WithReranker enables cross-encoder rescoring of the fused candidates
func WithReranker(reranker interfaces.Reranker) HybridOption {
	return func(h *Hybrid) {
		h.reranker = reranker
	}
}

// WithFusionWeights overrides the dense and lexical fusion weights
func WithFusionWeights(dense, lexical float64) HybridOption {
	return func(h *Hybrid) {
		h.denseWeight = dense
		h.lexicalWeight = lexical
	}
}

// WithRerankThreshold overrides the relevance cutoff applied to rerank scores
func WithRerankThreshold(threshold float64) HybridOption {
	return func(h *Hybrid) {
		h.rerankThreshold = threshold
	}
}

// NewHybrid creates a hybrid retriever with an empty index
func NewHybrid(embedder interfaces.Embedder, opts ...HybridOption) *Hybrid {
	h := &Hybrid{
		embedder:        embedder,
		denseWeight:     defaultDenseWeight,
		lexicalWeight:   defaultLexicalWeight,
		rerankThreshold: defaultRerankThreshold,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.idx.Store(buildIndex(nil))
	return h
}

// Rebuild replaces the searchable chunk set. Searches running against the
// previous snapshot finish unaffected.
func (h *Hybrid) Rebuild(chunks []*model.Chunk) {
	h.idx.Store(buildIndex(chunks))
}

// Size returns the number of indexed chunks
func (h *Hybrid) Size() int {
	return len(h.idx.Load().chunks)
}

// Retrieve returns the topK chunks most relevant to the query. Retrieval
// failures degrade to an empty result instead of propagating.
func (h *Hybrid) Retrieve(ctx context.Context, query string, topK int) []*model.Chunk {
	if topK <= 0 || query == "" {
		return nil
	}
	snapshot := h.idx.Load()
	if len(snapshot.chunks) == 0 {
		return nil
	}

	var denseLeg, lexicalLeg []scored
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		vectors, err := h.embedder.Embed(ctx, []string{query})
		if err != nil {
			return goerr.Wrap(err, "failed to embed query")
		}
		denseLeg = snapshot.searchDense(vectors[0], legTopK)
		return nil
	})
	eg.Go(func() error {
		lexicalLeg = snapshot.bm25.search(query, legTopK)
		return nil
	})
	if err := eg.Wait(); err != nil {
		logging.From(ctx).Warn("retrieval failed", slog.Any("error", err))
		return nil
	}

	candidates := h.fuse(denseLeg, lexicalLeg)
	if len(candidates) > fusionLimit {
		candidates = candidates[:fusionLimit]
	}

	if h.reranker != nil {
		reranked, err := h.rerank(ctx, query, candidates)
		if err != nil {
			logging.From(ctx).Warn("rerank failed", slog.Any("error", err))
			return nil
		}
		candidates = reranked
	}

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	chunks := make([]*model.Chunk, len(candidates))
	for i, cand := range candidates {
		chunks[i] = cand.chunk
	}
	return chunks
}

// fuse merges the two legs by weighted sum of min-max normalized scores,
// keyed by chunk ID. The result is ordered by descending fused score with
// dense-leg insertion order breaking ties.
func (h *Hybrid) fuse(denseLeg, lexicalLeg []scored) []scored {
	normalize(denseLeg)
	normalize(lexicalLeg)

	position := make(map[string]int)
	var fused []scored
	accumulate := func(leg []scored, weight float64) {
		for _, cand := range leg {
			id := string(cand.chunk.ID)
			if pos, ok := position[id]; ok {
				fused[pos].score += weight * cand.score
				continue
			}
			position[id] = len(fused)
			fused = append(fused, scored{chunk: cand.chunk, score: weight * cand.score})
		}
	}
	accumulate(denseLeg, h.denseWeight)
	accumulate(lexicalLeg, h.lexicalWeight)

	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].score > fused[j].score
	})
	return fused
}

// normalize rescales a leg's scores to [0, 1] in place. A leg with a flat
// score distribution collapses to all ones.
func normalize(leg []scored) {
	if len(leg) == 0 {
		return
	}
	lo, hi := leg[0].score, leg[0].score
	for _, cand := range leg[1:] {
		if cand.score < lo {
			lo = cand.score
		}
		if cand.score > hi {
			hi = cand.score
		}
	}
	for i := range leg {
		if hi == lo {
			leg[i].score = 1
		} else {
			leg[i].score = (leg[i].score - lo) / (hi - lo)
		}
	}
}

// rerank rescores candidates with the cross-encoder, drops those at or
// below the relevance threshold and orders the rest by descending score.
func (h *Hybrid) rerank(ctx context.Context, query string, candidates []scored) ([]scored, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	texts := make([]string, len(candidates))
	for i, cand := range candidates {
		texts[i] = cand.chunk.Content
	}
	scores, err := h.reranker.Score(ctx, query, texts)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(candidates) {
		return nil, goerr.New("rerank score count mismatch",
			goerr.V("candidates", len(candidates)), goerr.V("scores", len(scores)))
	}

	var kept []scored
	for i, cand := range candidates {
		if scores[i] > h.rerankThreshold {
			kept = append(kept, scored{chunk: cand.chunk, score: scores[i]})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].score > kept[j].score
	})
	return kept, nil
}

package retriever_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/service/retriever"
)

// topicEmbedder maps texts onto two axes so dense similarity is
// predictable: equation-related text on one, derivative-related on the
// other.
type topicEmbedder struct{}

func (topicEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := []float32{0.1, 0.1}
		if strings.Contains(text, "方程") {
			vec = []float32{1, 0}
		} else if strings.Contains(text, "导数") {
			vec = []float32{0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("runtime unavailable")
}

func newChunk(t *testing.T, content string, embedding []float32) *model.Chunk {
	t.Helper()
	chunk := model.NewChunk("kb.txt", 0, content)
	chunk.Embedding = embedding
	return chunk
}

func testChunks(t *testing.T) []*model.Chunk {
	return []*model.Chunk{
		newChunk(t, "一元二次方程可以用求根公式求解", []float32{1, 0}),
		newChunk(t, "导数描述函数的变化率", []float32{0, 1}),
		newChunk(t, "等差数列的前n项和公式", []float32{0.2, 0.2}),
	}
}

func TestHybridRetrieve(t *testing.T) {
	h := retriever.NewHybrid(topicEmbedder{})
	h.Rebuild(testChunks(t))
	gt.Equal(t, h.Size(), 3)

	chunks := h.Retrieve(context.Background(), "如何解一元二次方程", 2)
	gt.A(t, chunks).Length(2).Required()
	gt.S(t, chunks[0].Content).Contains("二次方程")
}

func TestHybridRetrieveEmptyIndex(t *testing.T) {
	h := retriever.NewHybrid(topicEmbedder{})
	gt.A(t, h.Retrieve(context.Background(), "方程", 3)).Length(0)
}

func TestHybridRetrieveEmbedderFailure(t *testing.T) {
	h := retriever.NewHybrid(failingEmbedder{})
	h.Rebuild(testChunks(t))

	// Degrades to an empty result rather than failing the caller
	gt.A(t, h.Retrieve(context.Background(), "方程", 3)).Length(0)
}

func TestHybridRebuildSwapsChunkSet(t *testing.T) {
	h := retriever.NewHybrid(topicEmbedder{})
	h.Rebuild(testChunks(t))

	h.Rebuild([]*model.Chunk{newChunk(t, "导数的几何意义是切线斜率", []float32{0, 1})})
	gt.Equal(t, h.Size(), 1)

	chunks := h.Retrieve(context.Background(), "导数", 5)
	gt.A(t, chunks).Length(1).Required()
	gt.S(t, chunks[0].Content).Contains("切线斜率")
}

// thresholdReranker scores candidates by a fixed content lookup
type thresholdReranker struct {
	scores map[string]float64
}

func (r thresholdReranker) Score(_ context.Context, _ string, candidates []string) ([]float64, error) {
	out := make([]float64, len(candidates))
	for i, text := range candidates {
		out[i] = r.scores[text]
	}
	return out, nil
}

func TestHybridRerankFiltersLowScores(t *testing.T) {
	chunks := testChunks(t)
	reranker := thresholdReranker{scores: map[string]float64{
		chunks[0].Content: 0.4,
		chunks[1].Content: 0.95,
		chunks[2].Content: 0.85,
	}}

	h := retriever.NewHybrid(topicEmbedder{}, retriever.WithReranker(reranker))
	h.Rebuild(chunks)

	got := h.Retrieve(context.Background(), "数列 方程 导数", 5)
	gt.A(t, got).Length(1).Required()
	gt.Equal(t, got[0].Content, chunks[1].Content)
}

type erroringReranker struct{}

func (erroringReranker) Score(context.Context, string, []string) ([]float64, error) {
	return nil, errors.New("rerank service down")
}

func TestHybridRerankFailureYieldsEmpty(t *testing.T) {
	h := retriever.NewHybrid(topicEmbedder{}, retriever.WithReranker(erroringReranker{}))
	h.Rebuild(testChunks(t))

	// A failed rerank must not leak unscored candidates
	chunks := h.Retrieve(context.Background(), "一元二次方程", 2)
	gt.A(t, chunks).Length(0)
}

func TestRerankClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/rerank")

		var req struct {
			Query string   `json:"query"`
			Texts []string `json:"texts"`
		}
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gt.Equal(t, req.Query, "方程")
		gt.A(t, req.Texts).Length(2)

		// Out-of-order results must land at their declared index
		gt.NoError(t, json.NewEncoder(w).Encode([]map[string]any{
			{"index": 1, "score": 0.3},
			{"index": 0, "score": 0.9},
		}))
	}))
	defer srv.Close()

	client := retriever.NewRerankClient(srv.URL)
	scores, err := client.Score(context.Background(), "方程", []string{"候选一", "候选二"})
	gt.NoError(t, err).Required()
	gt.Equal(t, scores, []float64{0.9, 0.3})
}

func TestRerankClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := retriever.NewRerankClient(srv.URL)
	_, err := client.Score(context.Background(), "q", []string{"a"})
	gt.Error(t, err)
}

package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
)

// RerankClient calls a cross-encoder scoring service over HTTP
type RerankClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ interfaces.Reranker = (*RerankClient)(nil)

type RerankOption func(*RerankClient)

// WithRerankHTTPClient replaces the underlying HTTP client
func WithRerankHTTPClient(httpClient *http.Client) RerankOption {
	return func(c *RerankClient) {
		c.httpClient = httpClient
	}
}

// NewRerankClient creates a reranker backed by the service at baseURL
func NewRerankClient(baseURL string, opts ...RerankOption) *RerankClient {
	client := &RerankClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score returns one relevance score per candidate, aligned to input order
func (c *RerankClient) Score(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: candidates})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal rerank request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create rerank request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call rerank service", goerr.V("url", c.baseURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, goerr.New("rerank service returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(detail)),
		)
	}

	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, goerr.Wrap(err, "failed to decode rerank response")
	}

	scores := make([]float64, len(candidates))
	for _, result := range results {
		if result.Index < 0 || result.Index >= len(scores) {
			return nil, goerr.New("rerank result index out of range",
				goerr.V("index", result.Index), goerr.V("candidates", len(candidates)))
		}
		scores[result.Index] = result.Score
	}
	return scores, nil
}

// Package embedding provides Embedder implementations: an HTTP client for
// a local embedding runtime and an adapter over a hosted LLM client.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
)

const defaultModel = "nomic-embed-text"

// Client calls a local embedding runtime over its Ollama-compatible API
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ interfaces.Embedder = (*Client)(nil)

type Option func(*Client)

// WithModel overrides the embedding model name
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates an embedding client for the runtime at baseURL
func New(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		model:      defaultModel,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns one embedding vector per input text, in input order
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.embedOne(ctx, text)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed text", goerr.V("index", i))
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

func (c *Client) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal embedding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call embedding runtime", goerr.V("url", c.baseURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, goerr.New("embedding runtime returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(detail)),
		)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode embedding response")
	}
	if len(embedResp.Embedding) == 0 {
		return nil, goerr.New("embedding runtime returned empty vector")
	}

	return embedResp.Embedding, nil
}

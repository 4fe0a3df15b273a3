// Package llama is an HTTP client for a local llama.cpp based model
// runtime exposing an Ollama-compatible generate API.
package llama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

const defaultModel = "qwen2-math"

// streamBuffer bounds the fragment channel so a slow consumer applies
// backpressure to the runtime read loop instead of growing memory.
const streamBuffer = 64

// Client talks to the model runtime at a base URL
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ interfaces.ModelRuntime = (*Client)(nil)

type Option func(*Client)

// WithModel overrides the generation model name
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

// New creates a runtime client for the generate API at baseURL
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

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Raw     bool            `json:"raw"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict    int      `json:"num_predict"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p"`
	Stop          []string `json:"stop,omitempty"`
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	Mirostat      int      `json:"mirostat,omitempty"`
	Seed          int64    `json:"seed,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func buildOptions(cfg model.GenerationConfig) generateOptions {
	return generateOptions{
		NumPredict:    cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		Stop:          cfg.Stop,
		RepeatPenalty: cfg.RepeatPenalty,
		Mirostat:      cfg.Mirostat,
		Seed:          cfg.Seed,
	}
}

func (c *Client) send(ctx context.Context, prompt string, cfg model.GenerationConfig, stream bool) (*http.Response, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Raw:     true,
		Stream:  stream,
		Options: buildOptions(cfg),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal generate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create generate request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call model runtime", goerr.V("url", c.baseURL))
	}

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, goerr.New("model runtime returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(detail)),
		)
	}

	return resp, nil
}

// Complete generates the full answer text for a prompt
func (c *Client) Complete(ctx context.Context, prompt string, cfg model.GenerationConfig) (string, error) {
	resp, err := c.send(ctx, prompt, cfg, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", goerr.Wrap(err, "failed to decode generate response")
	}

	return genResp.Response, nil
}

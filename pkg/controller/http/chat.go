package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/domain/types"
	"github.com/seiri-lab/mathrag/pkg/utils/errutil"
	"github.com/seiri-lab/mathrag/pkg/utils/safe"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatCompletionChoice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	Delta        *chatMessage `json:"delta,omitempty"`
	FinishReason *string      `json:"finish_reason"`
}

type usageBlock struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []chatCompletionChoice `json:"choices"`
	Usage   *usageBlock            `json:"usage,omitempty"`
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	history, err := parseHistory(req.Messages)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}
	question := model.LastQuestion(history)
	if question == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("no user question in messages"), http.StatusBadRequest)
		return
	}
	// The final user turn is the question itself, not prior context
	history = history[:len(history)-1]

	if req.Stream {
		s.streamCompletion(w, r, question, history)
		return
	}

	result := s.uc.Ask(ctx, question, history)

	finish := "stop"
	resp := chatCompletionResponse{
		ID:      completionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   s.model,
		Choices: []chatCompletionChoice{{
			Message:      &chatMessage{Role: types.RoleAssistant.String(), Content: result.Text},
			FinishReason: &finish,
		}},
		Usage: estimateUsage(result),
	}
	writeJSON(ctx, w, resp)
}

// streamCompletion writes the answer as SSE frames terminated by [DONE]
func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, question string, history []model.HistoryEntry) {
	ctx := r.Context()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := completionID()
	created := time.Now().Unix()

	for frag := range s.uc.AskStream(ctx, question, history) {
		if frag.Text != "" {
			chunk := chatCompletionResponse{
				ID:      id,
				Object:  "chat.completion.chunk",
				Created: created,
				Model:   s.model,
				Choices: []chatCompletionChoice{{
					Delta: &chatMessage{Role: types.RoleAssistant.String(), Content: frag.Text},
				}},
			}
			writeSSE(ctx, w, chunk)
		}
		if frag.Done {
			break
		}
	}

	safe.Write(ctx, w, []byte("data: [DONE]\n\n"))
	safe.Flush(w)
}

func writeSSE(ctx context.Context, w http.ResponseWriter, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to marshal SSE frame"), "SSE encode error")
		return
	}
	safe.Write(ctx, w, []byte(fmt.Sprintf("data: %s\n\n", payload)))
	safe.Flush(w)
}

// parseHistory validates roles and applies the alternation filter
func parseHistory(messages []chatMessage) ([]model.HistoryEntry, error) {
	entries := make([]model.HistoryEntry, 0, len(messages))
	for i, msg := range messages {
		role, err := types.ParseRole(msg.Role)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid message role", goerr.V("index", i))
		}
		entries = append(entries, model.HistoryEntry{Role: role, Content: msg.Content})
	}
	return model.FilterHistory(entries), nil
}

// estimateUsage approximates token counts from rune counts; the local
// runtime does not report usage.
func estimateUsage(result *model.GenerationResult) *usageBlock {
	promptTokens := len([]rune(result.Prompt))
	completionTokens := len([]rune(result.Text))
	return &usageBlock{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

func completionID() string {
	return "chatcmpl-" + uuid.NewString()
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to encode response"), "response encode error")
	}
}

package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	server "github.com/seiri-lab/mathrag/pkg/controller/http"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/repository/memory"
	"github.com/seiri-lab/mathrag/pkg/service/knowledge"
	"github.com/seiri-lab/mathrag/pkg/usecase"
)

type fakeRuntime struct {
	completeText string
	completeErr  error
	fragments    []string
}

func (f *fakeRuntime) Complete(context.Context, string, model.GenerationConfig) (string, error) {
	return f.completeText, f.completeErr
}

func (f *fakeRuntime) Stream(context.Context, string, model.GenerationConfig) (<-chan model.StreamFragment, error) {
	ch := make(chan model.StreamFragment, len(f.fragments)+1)
	for _, text := range f.fragments {
		ch <- model.StreamFragment{Text: text}
	}
	ch <- model.StreamFragment{Done: true}
	close(ch)
	return ch, nil
}

type fakeRetriever struct {
	chunks []*model.Chunk
}

func (f *fakeRetriever) Retrieve(context.Context, string, int) []*model.Chunk {
	return f.chunks
}

type fakeClassifier struct{}

func (fakeClassifier) IsMath(context.Context, string) bool { return true }

type staticEmbedder struct{}

func (staticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type noopRebuilder struct{}

func (noopRebuilder) Rebuild([]*model.Chunk) {}

func newTestServer(t *testing.T, runtime *fakeRuntime, retriever *fakeRetriever) *httptest.Server {
	t.Helper()
	svc := knowledge.New(memory.New(), staticEmbedder{}, noopRebuilder{}, t.TempDir())
	uc := usecase.New(runtime, retriever, fakeClassifier{},
		usecase.WithKnowledge(svc),
		usecase.WithFlushPolicy(func() bool { return false }),
	)
	srv := httptest.NewServer(server.New(uc))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	gt.NoError(t, err).Required()
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{}, &fakeRetriever{})

	resp, err := http.Get(srv.URL + "/healthz")
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	gt.Equal(t, resp.StatusCode, http.StatusOK)
}

func TestChatCompletions(t *testing.T) {
	runtime := &fakeRuntime{completeText: "x = 2"}
	srv := newTestServer(t, runtime, &fakeRetriever{})

	resp := postJSON(t, srv.URL+"/v1/chat/completions", map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": "你好"},
			{"role": "assistant", "content": "你好，有什么可以帮你？"},
			{"role": "user", "content": "解方程 x^2=4"},
		},
	})
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	var body struct {
		Object  string `json:"object"`
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body)).Required()

	gt.Equal(t, body.Object, "chat.completion")
	gt.A(t, body.Choices).Length(1).Required()
	gt.Equal(t, body.Choices[0].Message.Role, "assistant")
	gt.Equal(t, body.Choices[0].Message.Content, "x = 2")
	gt.Equal(t, body.Choices[0].FinishReason, "stop")
	gt.N(t, body.Usage.PromptTokens).Greater(0)
	gt.Equal(t, body.Usage.TotalTokens, body.Usage.PromptTokens+body.Usage.CompletionTokens)
}

func TestChatCompletionsRejectsEmptyQuestion(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{}, &fakeRetriever{})

	resp := postJSON(t, srv.URL+"/v1/chat/completions", map[string]any{
		"messages": []map[string]string{},
	})
	gt.Equal(t, resp.StatusCode, http.StatusBadRequest)

	resp = postJSON(t, srv.URL+"/v1/chat/completions", map[string]any{
		"messages": []map[string]string{
			{"role": "assistant", "content": "只有助手的发言"},
		},
	})
	gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestChatCompletionsRejectsInvalidRole(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{}, &fakeRetriever{})

	resp := postJSON(t, srv.URL+"/v1/chat/completions", map[string]any{
		"messages": []map[string]string{
			{"role": "system", "content": "指令"},
			{"role": "user", "content": "你好"},
		},
	})
	gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestChatCompletionsStream(t *testing.T) {
	runtime := &fakeRuntime{fragments: []string{"首先", "移项", "然后", "求解"}}
	srv := newTestServer(t, runtime, &fakeRetriever{})

	resp := postJSON(t, srv.URL+"/v1/chat/completions", map[string]any{
		"stream": true,
		"messages": []map[string]string{
			{"role": "user", "content": "解方程"},
		},
	})
	gt.Equal(t, resp.StatusCode, http.StatusOK)
	gt.S(t, resp.Header.Get("Content-Type")).Contains("text/event-stream")

	var sb strings.Builder
	var gotDone bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			gotDone = true
			break
		}

		var chunk struct {
			Object  string `json:"object"`
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		gt.NoError(t, json.Unmarshal([]byte(payload), &chunk)).Required()
		gt.Equal(t, chunk.Object, "chat.completion.chunk")
		for _, choice := range chunk.Choices {
			sb.WriteString(choice.Delta.Content)
		}
	}
	gt.NoError(t, scanner.Err())

	gt.True(t, gotDone)
	gt.Equal(t, sb.String(), "首先移项然后求解")
}

func TestRelatedQuestions(t *testing.T) {
	runtime := &fakeRuntime{completeText: "如何求函数的极值?\n什么是隐函数求导?"}
	srv := newTestServer(t, runtime, &fakeRetriever{})

	resp := postJSON(t, srv.URL+"/v1/related_questions", map[string]any{
		"question": "如何求导数",
		"n":        5,
	})
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	var body struct {
		Questions []string `json:"questions"`
	}
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body)).Required()
	gt.A(t, body.Questions).Length(2)
}

func TestRelatedQuestionsRequiresQuestion(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{}, &fakeRetriever{})

	resp := postJSON(t, srv.URL+"/v1/related_questions", map[string]any{"n": 3})
	gt.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestRetrieve(t *testing.T) {
	chunk := model.NewChunk("kb/algebra.txt", 12, "求根公式的推导过程")
	srv := newTestServer(t, &fakeRuntime{}, &fakeRetriever{chunks: []*model.Chunk{chunk}})

	resp := postJSON(t, srv.URL+"/v1/retrieve", map[string]any{
		"query": "求根公式",
		"top_k": 3,
	})
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	var body struct {
		Chunks []struct {
			ID         string `json:"id"`
			Content    string `json:"content"`
			Source     string `json:"source"`
			StartIndex int    `json:"start_index"`
		} `json:"chunks"`
	}
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body)).Required()
	gt.A(t, body.Chunks).Length(1).Required()
	gt.Equal(t, body.Chunks[0].ID, string(chunk.ID))
	gt.Equal(t, body.Chunks[0].Content, "求根公式的推导过程")
	gt.Equal(t, body.Chunks[0].Source, "kb/algebra.txt")
	gt.Equal(t, body.Chunks[0].StartIndex, 12)
}

func TestReprocess(t *testing.T) {
	srv := newTestServer(t, &fakeRuntime{}, &fakeRetriever{})

	resp := postJSON(t, srv.URL+"/v1/knowledge/reprocess", map[string]any{})
	gt.Equal(t, resp.StatusCode, http.StatusOK)

	var body struct {
		Reprocessed bool `json:"reprocessed"`
	}
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body)).Required()
	gt.True(t, body.Reprocessed)
}

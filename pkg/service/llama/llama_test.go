package llama_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/service/llama"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.URL.Path, "/api/generate")

		var req map[string]any
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gt.Equal(t, req["model"], "math-7b")
		gt.Equal(t, req["stream"], false)
		gt.Equal(t, req["raw"], true)

		opts := gt.Cast[map[string]any](t, req["options"])
		gt.Equal[any](t, opts["num_predict"], float64(model.MaxNewTokens))
		gt.Equal[any](t, opts["temperature"], model.MathTemperature)
		gt.Equal[any](t, opts["mirostat"], float64(2))

		gt.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"response": "x = 2",
			"done":     true,
		}))
	}))
	defer srv.Close()

	client := llama.New(srv.URL, llama.WithModel("math-7b"))
	text, err := client.Complete(context.Background(), "解方程 3x=6", model.AnswerConfig(true))
	gt.NoError(t, err).Required()
	gt.Equal(t, text, "x = 2")
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading model", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := llama.New(srv.URL)
	_, err := client.Complete(context.Background(), "q", model.AnswerConfig(false))
	gt.Error(t, err)
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gt.Equal(t, req["stream"], true)

		for _, word := range []string{"首先", "移项", "得到"} {
			fmt.Fprintf(w, "{\"response\": %q, \"done\": false}\n", word)
		}
		fmt.Fprint(w, "this line is not json\n")
		fmt.Fprint(w, "{\"response\": \"\", \"done\": true}\n")
	}))
	defer srv.Close()

	client := llama.New(srv.URL)
	ch, err := client.Stream(context.Background(), "解方程", model.AnswerConfig(true))
	gt.NoError(t, err).Required()

	var sb strings.Builder
	var done bool
	for frag := range ch {
		gt.NoError(t, frag.Err)
		sb.WriteString(frag.Text)
		if frag.Done {
			done = true
		}
	}
	gt.True(t, done)
	gt.Equal(t, sb.String(), "首先移项得到")
}

func TestStreamTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{\"response\": \"部分\", \"done\": false}\n")
		// Connection ends without a done marker
	}))
	defer srv.Close()

	client := llama.New(srv.URL)
	ch, err := client.Stream(context.Background(), "q", model.AnswerConfig(false))
	gt.NoError(t, err).Required()

	var fragments []model.StreamFragment
	for frag := range ch {
		fragments = append(fragments, frag)
	}
	gt.A(t, fragments).Length(2).Required()
	gt.Equal(t, fragments[0].Text, "部分")
	gt.True(t, fragments[1].Done)
}

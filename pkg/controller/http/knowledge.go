package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/utils/errutil"
)

type relatedQuestionsRequest struct {
	Question string `json:"question"`
	N        int    `json:"n"`
}

type relatedQuestionsResponse struct {
	Questions []string `json:"questions"`
}

func (s *Server) handleRelatedQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req relatedQuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("question is required"), http.StatusBadRequest)
		return
	}

	questions := s.uc.GenerateRelatedQuestions(ctx, req.Question, req.N)
	if questions == nil {
		questions = []string{}
	}
	writeJSON(ctx, w, relatedQuestionsResponse{Questions: questions})
}

type retrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type retrievedChunk struct {
	ID          string            `json:"id"`
	Content     string            `json:"content"`
	Source      string            `json:"source"`
	StartIndex  int               `json:"start_index"`
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type retrieveResponse struct {
	Chunks []retrievedChunk `json:"chunks"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		errutil.HandleHTTP(ctx, w, goerr.New("query is required"), http.StatusBadRequest)
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}

	chunks := s.uc.Retrieve(ctx, req.Query, req.TopK)
	resp := retrieveResponse{Chunks: make([]retrievedChunk, len(chunks))}
	for i, chunk := range chunks {
		resp.Chunks[i] = retrievedChunk{
			ID:          string(chunk.ID),
			Content:     chunk.Content,
			Source:      chunk.Source,
			StartIndex:  chunk.StartIndex,
			ContentType: chunk.ContentType.String(),
			Metadata:    chunk.Metadata,
		}
	}
	writeJSON(ctx, w, resp)
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := s.uc.ReprocessKnowledge(ctx)
	if err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, result)
}

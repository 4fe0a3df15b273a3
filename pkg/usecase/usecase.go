// Package usecase orchestrates one question-answering request: retrieval,
// classification, prompt construction, generation and response cleanup.
package usecase

import (
	"context"
	"math/rand/v2"

	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/service/knowledge"
)

// FlushPolicy decides whether the stream consumer flushes its buffer after
// a fragment, in addition to the fixed buffer-size flush.
type FlushPolicy func() bool

type UseCases struct {
	runtime     interfaces.ModelRuntime
	retriever   interfaces.Retriever
	classifier  interfaces.Classifier
	knowledge   *knowledge.Service
	shouldFlush FlushPolicy
}

type Option func(*UseCases)

func WithKnowledge(svc *knowledge.Service) Option {
	return func(uc *UseCases) {
		uc.knowledge = svc
	}
}

// WithFlushPolicy replaces the probabilistic stream flush policy
func WithFlushPolicy(policy FlushPolicy) Option {
	return func(uc *UseCases) {
		uc.shouldFlush = policy
	}
}

func New(runtime interfaces.ModelRuntime, retriever interfaces.Retriever, classifier interfaces.Classifier, opts ...Option) *UseCases {
	uc := &UseCases{
		runtime:    runtime,
		retriever:  retriever,
		classifier: classifier,
	}
	uc.shouldFlush = func() bool {
		return rand.Float64() < streamFlushProbability
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Retrieve returns the topK most relevant chunks for a query
func (uc *UseCases) Retrieve(ctx context.Context, query string, topK int) []*model.Chunk {
	return uc.retriever.Retrieve(ctx, query, topK)
}

// ReprocessKnowledge forces a knowledge-base processing pass
func (uc *UseCases) ReprocessKnowledge(ctx context.Context) (*knowledge.Result, error) {
	return uc.knowledge.Process(ctx, true)
}

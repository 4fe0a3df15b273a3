// Package classifier decides whether a user question is a math question.
// An LLM labeler is consulted first; a keyword heuristic covers the cases
// where no labeler is configured or the call fails.
package classifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
)

const (
	labelMath  = "数学问题"
	labelOther = "其他问题"

	systemPrompt = "你是一个问题分类器。判断用户的问题属于以下哪一类，只输出标签本身，不要输出其他内容：" +
		labelMath + "，" + labelOther
)

// keywordThreshold is the minimum number of distinct math keyword hits for
// the heuristic to label a question as math.
const keywordThreshold = 2

var mathKeywords = []string{
	"方程", "函数", "导数", "积分", "矩阵", "概率",
	"几何", "代数", "解", "证明", "公式", "计算",
}

// LabelGenerator produces a label text for a question under a system
// instruction. Implementations should decode deterministically.
type LabelGenerator interface {
	GenerateLabel(ctx context.Context, instruction, question string) (string, error)
}

// Classifier labels questions as math or other
type Classifier struct {
	labeler LabelGenerator
}

var _ interfaces.Classifier = (*Classifier)(nil)

type Option func(*Classifier)

// WithLabeler sets the LLM labeler consulted before the keyword heuristic
func WithLabeler(labeler LabelGenerator) Option {
	return func(c *Classifier) {
		c.labeler = labeler
	}
}

// New creates a classifier. Without a labeler it relies on the keyword
// heuristic alone.
func New(opts ...Option) *Classifier {
	c := &Classifier{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsMath reports whether the question is a math question. Labeler failures
// fall back to the keyword heuristic rather than surfacing an error.
func (c *Classifier) IsMath(ctx context.Context, question string) bool {
	q := strings.TrimSpace(question)
	if q == "" {
		return false
	}
	if !strings.HasSuffix(q, "？") && !strings.HasSuffix(q, "?") {
		q += "？"
	}

	if c.labeler != nil {
		isMath, err := c.classify(ctx, q)
		if err != nil {
			logging.From(ctx).Warn("question labeling failed, using keyword heuristic",
				slog.Any("error", err))
		} else if isMath {
			return true
		}
	}

	// A negative or failed primary signal can still be overridden by
	// keyword matches.
	return c.matchKeywords(q)
}

func (c *Classifier) classify(ctx context.Context, question string) (bool, error) {
	label, err := c.labeler.GenerateLabel(ctx, systemPrompt, question)
	if err != nil {
		return false, goerr.Wrap(err, "failed to generate label")
	}

	switch {
	case strings.Contains(label, labelMath):
		return true, nil
	case strings.Contains(label, labelOther):
		return false, nil
	default:
		return false, goerr.New("unrecognized label", goerr.V("label", label))
	}
}

func (c *Classifier) matchKeywords(question string) bool {
	hits := 0
	for _, keyword := range mathKeywords {
		if strings.Contains(question, keyword) {
			hits++
			if hits >= keywordThreshold {
				return true
			}
		}
	}
	return false
}

package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
)

const (
	// Fixed user-facing texts substituted for internal failures
	answerErrorText   = "系统处理问题时遇到错误，请稍后再试。"
	streamWarningText = "⚠️ 服务响应异常，请稍后重试"

	// answerContextTopK is how many retrieved chunks feed the prompt
	answerContextTopK = 3

	// Stream consumer flush policy: flush at this many buffered fragments
	// or probabilistically per fragment.
	streamFlushCount       = 3
	streamFlushProbability = 0.2

	streamChannelBuffer = 16
)

// Ask answers a question in one shot. Internal failures are logged and
// collapse to a fixed apology text; the caller never sees an error.
func (uc *UseCases) Ask(ctx context.Context, question string, history []model.HistoryEntry) *model.GenerationResult {
	result, err := uc.ask(ctx, question, history)
	if err != nil {
		logging.From(ctx).Error("failed to answer question", slog.Any("error", err))
		return &model.GenerationResult{Text: answerErrorText}
	}
	return result
}

func (uc *UseCases) ask(ctx context.Context, question string, history []model.HistoryEntry) (*model.GenerationResult, error) {
	chunks := uc.retriever.Retrieve(ctx, question, answerContextTopK)
	isMath := uc.classifier.IsMath(ctx, question)
	prompt := BuildPrompt(question, chunks, history, isMath)

	raw, err := uc.runtime.Complete(ctx, prompt, model.AnswerConfig(isMath))
	if err != nil {
		return nil, goerr.Wrap(err, "generation failed")
	}

	return &model.GenerationResult{
		Text:   Postprocess(raw, prompt),
		Prompt: prompt,
		IsMath: isMath,
	}, nil
}

// AskStream answers a question as a sequence of text fragments. Fragments
// are buffered and flushed in groups to bound emission overhead; any
// internal failure yields exactly one fixed warning fragment, then the
// channel closes.
func (uc *UseCases) AskStream(ctx context.Context, question string, history []model.HistoryEntry) <-chan model.StreamFragment {
	out := make(chan model.StreamFragment, streamChannelBuffer)

	go func() {
		defer close(out)

		emit := func(frag model.StreamFragment) bool {
			select {
			case out <- frag:
				return true
			case <-ctx.Done():
				return false
			}
		}
		warn := func(err error) {
			logging.From(ctx).Error("streaming generation failed", slog.Any("error", err))
			emit(model.StreamFragment{Text: streamWarningText, Done: true})
		}

		chunks := uc.retriever.Retrieve(ctx, question, answerContextTopK)
		isMath := uc.classifier.IsMath(ctx, question)
		prompt := BuildPrompt(question, chunks, history, isMath)

		in, err := uc.runtime.Stream(ctx, prompt, model.AnswerConfig(isMath))
		if err != nil {
			warn(err)
			return
		}

		var buffer []string
		flush := func(done bool) bool {
			if len(buffer) == 0 {
				if done {
					return emit(model.StreamFragment{Done: true})
				}
				return true
			}
			joined := strings.Join(buffer, "")
			buffer = buffer[:0]
			return emit(model.StreamFragment{Text: joined, Done: done})
		}

		for frag := range in {
			if frag.Err != nil {
				warn(frag.Err)
				return
			}
			if frag.Text != "" {
				buffer = append(buffer, frag.Text)
				if len(buffer) >= streamFlushCount || uc.shouldFlush() {
					if !flush(false) {
						return
					}
				}
			}
			if frag.Done {
				flush(true)
				return
			}
		}
		flush(true)
	}()

	return out
}

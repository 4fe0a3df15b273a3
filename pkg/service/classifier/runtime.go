package classifier

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// labelConfig pins the decode so the same question yields the same label
func labelConfig() model.GenerationConfig {
	return model.GenerationConfig{
		MaxTokens:   10,
		Temperature: 0,
		TopP:        1,
		Stop:        model.StopSequences(),
		Seed:        1,
	}
}

// RuntimeLabeler labels questions through the local model runtime
type RuntimeLabeler struct {
	runtime interfaces.ModelRuntime
}

var _ LabelGenerator = (*RuntimeLabeler)(nil)

// NewRuntimeLabeler creates a labeler backed by the model runtime
func NewRuntimeLabeler(runtime interfaces.ModelRuntime) *RuntimeLabeler {
	return &RuntimeLabeler{runtime: runtime}
}

func (r *RuntimeLabeler) GenerateLabel(ctx context.Context, instruction, question string) (string, error) {
	prompt := instruction + "\n问题：" + question + "\n标签："
	label, err := r.runtime.Complete(ctx, prompt, labelConfig())
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate label from runtime")
	}
	return label, nil
}

package classifier_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/service/classifier"
)

type fixedLabeler struct {
	label string
	err   error

	gotQuestion string
}

func (f *fixedLabeler) GenerateLabel(_ context.Context, _, question string) (string, error) {
	f.gotQuestion = question
	return f.label, f.err
}

func TestIsMathByLabeler(t *testing.T) {
	labeler := &fixedLabeler{label: "数学问题"}
	c := classifier.New(classifier.WithLabeler(labeler))

	gt.True(t, c.IsMath(context.Background(), "鸡兔同笼怎么算"))
	// Questions are normalized to end with a question mark
	gt.True(t, strings.HasSuffix(labeler.gotQuestion, "？"))
}

func TestIsMathByLabelerOther(t *testing.T) {
	c := classifier.New(classifier.WithLabeler(&fixedLabeler{label: "其他问题"}))

	gt.False(t, c.IsMath(context.Background(), "今天晚饭吃什么"))
	// A negative verdict is reclassified when enough keywords match
	gt.True(t, c.IsMath(context.Background(), "请解方程并证明这个公式"))
}

func TestIsMathKeywordFallbackOnError(t *testing.T) {
	c := classifier.New(classifier.WithLabeler(&fixedLabeler{err: errors.New("timeout")}))

	gt.True(t, c.IsMath(context.Background(), "如何解方程并求函数的导数"))
	gt.False(t, c.IsMath(context.Background(), "今天天气怎么样"))
}

func TestIsMathUnrecognizedLabelFallsBack(t *testing.T) {
	c := classifier.New(classifier.WithLabeler(&fixedLabeler{label: "我不确定"}))

	gt.True(t, c.IsMath(context.Background(), "用求根公式计算这个方程"))
}

type fakeRuntime struct {
	response string

	gotPrompt string
	gotCfg    model.GenerationConfig
}

func (f *fakeRuntime) Complete(_ context.Context, prompt string, cfg model.GenerationConfig) (string, error) {
	f.gotPrompt = prompt
	f.gotCfg = cfg
	return f.response, nil
}

func (f *fakeRuntime) Stream(context.Context, string, model.GenerationConfig) (<-chan model.StreamFragment, error) {
	return nil, errors.New("not implemented")
}

func TestRuntimeLabeler(t *testing.T) {
	runtime := &fakeRuntime{response: "数学问题"}
	c := classifier.New(classifier.WithLabeler(classifier.NewRuntimeLabeler(runtime)))

	gt.True(t, c.IsMath(context.Background(), "鸡兔同笼怎么算"))
	gt.True(t, strings.Contains(runtime.gotPrompt, "鸡兔同笼怎么算？"))
	// Label decoding is short and deterministic
	gt.Equal(t, runtime.gotCfg.MaxTokens, 10)
	gt.Equal(t, runtime.gotCfg.Temperature, 0.0)
	gt.True(t, runtime.gotCfg.Seed > 0)
}

func TestIsMathKeywordHeuristic(t *testing.T) {
	c := classifier.New()

	testCases := map[string]struct {
		question string
		want     bool
	}{
		"two keywords":     {"求这个函数的导数", true},
		"single keyword":   {"什么是矩阵", false},
		"no keywords":      {"推荐一部电影", false},
		"empty question":   {"", false},
		"whitespace only":  {"   ", false},
		"several keywords": {"用公式计算三角形的几何面积", true},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			gt.Equal(t, c.IsMath(context.Background(), tc.question), tc.want)
		})
	}
}

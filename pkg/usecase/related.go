package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
)

// Related-question count bounds and output length window, in runes
const (
	relatedCountMin = 1
	relatedCountMax = 5
	relatedMinRunes = 6
	relatedMaxRunes = 32
)

const relatedPromptTemplate = `<|system|>
请生成%d个独立的、无任何前缀且与原始问题高度相关的问题，严格遵守以下规则：
1. 每个问题独占一行，不要使用任何编号或符号开头
2. 问题长度不超过30个字
3. 不要使用Markdown格式

【原始问题】
%s

</s>
<|user|>
请按要求生成%d个优质相关问题：
</s>
<|assistant|>
`

var (
	// listPrefixPattern matches numbered, bulleted and labeled list
	// prefixes in several scripts.
	listPrefixPattern = regexp.MustCompile(
		`^\s*(?:\d+[.、]?|[一二三四五六七八九十]+[.、]|[•▶➢*\-]|(?:问题|题)\s*\d*\s*[:：]?|[Qq]\s*\d+\s*[:：])?[\s.、，:：]*`)

	questionMarkRunPattern = regexp.MustCompile(`\?+$`)
	trailingPeriodPattern  = regexp.MustCompile(`[。.]$`)
	newlineRuns            = regexp.MustCompile(`[\r\n]+`)
)

func relatedConfig() model.GenerationConfig {
	return model.GenerationConfig{
		MaxTokens:   200,
		Temperature: model.DefaultTemperature,
		TopP:        model.DefaultTopP,
		Stop:        model.StopSequences(),
	}
}

// GenerateRelatedQuestions produces up to n follow-up questions for the
// given question. n is clamped to [1, 5]. Failures are logged and yield an
// empty result.
func (uc *UseCases) GenerateRelatedQuestions(ctx context.Context, question string, n int) []string {
	if n < relatedCountMin {
		n = relatedCountMin
	}
	if n > relatedCountMax {
		n = relatedCountMax
	}

	isMath := uc.classifier.IsMath(ctx, question)
	prompt := fmt.Sprintf(relatedPromptTemplate, n, question, n)

	raw, err := uc.runtime.Complete(ctx, prompt, relatedConfig())
	if err != nil {
		logging.From(ctx).Error("failed to generate related questions", slog.Any("error", err))
		return nil
	}
	if strings.HasPrefix(raw, prompt) {
		raw = raw[len(prompt):]
	}

	return parseQuestions(raw, isMath, n)
}

// parseQuestions extracts well-formed questions from raw model output with
// a layered strategy: strict per-line parsing first, then a lenient second
// pass over sanitized lines when too few survive, then dedup and truncate.
func parseQuestions(raw string, isMath bool, n int) []string {
	text := strings.TrimSpace(newlineRuns.ReplaceAllString(raw, "\n"))
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")

	var valid []string
	for _, line := range lines {
		if q, ok := normalizeQuestion(line, isMath); ok {
			valid = append(valid, q)
		}
	}

	// Lenient pass: sanitize leftover template noise and retry the lines
	// that failed strict parsing.
	if len(valid) < n {
		for _, line := range lines {
			if q, ok := normalizeQuestion(Sanitize(line), isMath); ok {
				valid = append(valid, q)
			}
		}
	}

	seen := make(map[string]bool, len(valid))
	var out []string
	for _, q := range valid {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// normalizeQuestion strips list prefixes and normalizes the trailing
// punctuation of one candidate line, then checks the length window. For a
// non-math question a trailing question mark is required.
func normalizeQuestion(line string, isMath bool) (string, bool) {
	q := listPrefixPattern.ReplaceAllString(strings.TrimSpace(line), "")
	q = questionMarkRunPattern.ReplaceAllString(q, "?")
	if !isMath {
		q = trailingPeriodPattern.ReplaceAllString(q, "?")
	}
	q = strings.TrimSpace(q)

	length := len([]rune(q))
	if length < relatedMinRunes || length > relatedMaxRunes {
		return "", false
	}
	if !isMath && !strings.HasSuffix(q, "?") && !strings.HasSuffix(q, "？") {
		return "", false
	}
	return q, true
}

package usecase

import (
	"regexp"
	"strings"
)

// eosArtifact is a malformed end-of-sequence token some checkpoints emit
const eosArtifact = "<|end▁of▁of▁sentence▁|>"

var (
	contextBlockPattern = regexp.MustCompile(`(?s)【对话上下文】.*?【当前问题】`)
	newlineRunPattern   = regexp.MustCompile(`\n{3,}`)

	templateMarkerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`<\|.*?\|>`),
		regexp.MustCompile(`\[.*?\]`),
		regexp.MustCompile(`【.*?】`),
	}
	debugLinePattern        = regexp.MustCompile(`DEBUG:\s.*`)
	trailingPunctuationRuns = regexp.MustCompile(`[。，！？、,.\s]+$`)
)

var boilerplatePhrases = []string{
	"无近期对话记录", "相关背景知识", "核心指令",
	"回答要求", "当前问题", "请按照上述要求生成回答",
}

// Postprocess cleans raw model output for the answer path: drops an echoed
// prompt prefix, stray template delimiter blocks and the end-of-sequence
// artifact, then normalizes whitespace. Idempotent.
func Postprocess(raw, prompt string) string {
	text := raw
	if prompt != "" && strings.HasPrefix(text, prompt) {
		text = text[len(prompt):]
	}
	text = strings.TrimSpace(text)
	text = contextBlockPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, eosArtifact, "")
	text = newlineRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Sanitize strips every template marker, boilerplate phrase, debug line
// and trailing punctuation run. Used for related-question output, which
// must end up as bare question text. Idempotent.
func Sanitize(text string) string {
	for _, pattern := range templateMarkerPatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	for _, phrase := range boilerplatePhrases {
		text = strings.ReplaceAll(text, phrase, "")
	}
	text = debugLinePattern.ReplaceAllString(text, "")
	text = newlineRunPattern.ReplaceAllString(strings.TrimSpace(text), "\n\n")
	return trailingPunctuationRuns.ReplaceAllString(text, "")
}

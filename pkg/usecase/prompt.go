package usecase

import (
	"fmt"
	"strings"

	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// Prompt budget caps, in runes
const (
	historyEntryCap   = 50
	historyCharBudget = 1000
	contextChunkLimit = 3
	contextChunkCap   = 500
	contextCharBudget = 1500
)

const (
	noHistoryPlaceholder = "无近期对话"
	noContextPlaceholder = "无相关参考"

	mathInstruction = "作为数学专家，请用Markdown分步推导：1)问题分析 2)公式应用 3)计算过程 4)验证"
	chatInstruction = "作为擅长交流的沟通者，请用自然语言回答，涉及公式时用LaTeX，保持口语化"
)

const promptTemplate = `<|system|>
【会话记忆】
%s

【参考知识】
%s

【指令】
%s
</s><|user|>
%s
</s>
<|assistant|>
`

// BuildPrompt assembles the full generation prompt: compacted history and
// retrieved context in the system segment, the instruction matching the
// classification, the literal question and an open assistant marker.
func BuildPrompt(question string, chunks []*model.Chunk, history []model.HistoryEntry, isMath bool) string {
	instruction := chatInstruction
	if isMath {
		instruction = mathInstruction
	}
	return fmt.Sprintf(promptTemplate,
		compactHistory(history),
		compactContext(chunks),
		instruction,
		question,
	)
}

// compactHistory renders history entries newest-first under a running rune
// budget, restores chronological order and keeps the most recent entries.
func compactHistory(history []model.HistoryEntry) string {
	var entries []string
	total := 0
	for i := len(history) - 1; i >= 0; i-- {
		entry := history[i].Role.Label() + "：" + truncateRunes(history[i].Content, historyEntryCap)
		length := len([]rune(entry))
		if total+length > historyCharBudget {
			break
		}
		entries = append(entries, entry)
		total += length
	}
	if len(entries) == 0 {
		return noHistoryPlaceholder
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if len(entries) > model.HistoryLimit {
		entries = entries[len(entries)-model.HistoryLimit:]
	}
	return strings.Join(entries, "\n")
}

// compactContext joins the top retrieved chunks under per-chunk and
// overall rune caps.
func compactContext(chunks []*model.Chunk) string {
	if len(chunks) == 0 {
		return noContextPlaceholder
	}
	if len(chunks) > contextChunkLimit {
		chunks = chunks[:contextChunkLimit]
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = truncateRunes(chunk.Content, contextChunkCap)
	}
	return truncateRunes(strings.Join(parts, "\n"), contextCharBudget)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

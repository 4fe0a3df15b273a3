// Package splitter turns loaded documents into chunks: a semantic pass
// splits at topic boundaries, then a fixed-size/overlap pass bounds chunk
// length per detected content type.
package splitter

import (
	"regexp"
	"strings"

	"github.com/seiri-lab/mathrag/pkg/domain/types"
)

var (
	recordKeyPattern       = regexp.MustCompile(`"instruction"\s*:|"input"\s*:|"output"\s*:`)
	codePattern            = regexp.MustCompile(`def |import |print\(|代码示例`)
	tableRowPattern        = regexp.MustCompile(`\|.+\|`)
	recordKeyStrictPattern = regexp.MustCompile(`"instruction":|"input":|"output":`)
)

// typeRule is one predicate→tag rule of the prioritized detector
type typeRule struct {
	tag   types.ContentType
	match func(text string) bool
}

// typeRules are evaluated in order; the first match wins
var typeRules = []typeRule{
	{types.ContentTypeRecordLines, isRecordLines},
	{types.ContentTypeCode, codePattern.MatchString},
	{types.ContentTypeTable, func(text string) bool {
		return tableRowPattern.MatchString(text) && strings.Contains(text, "%")
	}},
	{types.ContentTypeRecord, recordKeyStrictPattern.MatchString},
}

// DetectContentType classifies a chunk's text to pick its splitter profile
func DetectContentType(text string) types.ContentType {
	for _, rule := range typeRules {
		if rule.match(text) {
			return rule.tag
		}
	}
	return types.ContentTypePlain
}

// isRecordLines matches multi-line text where record keys appear and every
// non-blank line opens with a brace.
func isRecordLines(text string) bool {
	if !recordKeyPattern.MatchString(text) {
		return false
	}
	if strings.Count(text, "\n") < 2 {
		return false
	}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "{") {
			return false
		}
	}
	return true
}

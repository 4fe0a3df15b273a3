package types

import "fmt"

// ContentType is the detected shape of a chunk's text, used to pick the
// secondary splitter window.
type ContentType string

const (
	ContentTypeRecordLines ContentType = "jsonl"  // line-delimited instruction/input/output records
	ContentTypeCode        ContentType = "code"   // code-like text
	ContentTypeTable       ContentType = "table"  // pipe-delimited table rows
	ContentTypeRecord      ContentType = "json"   // single structured record
	ContentTypePlain       ContentType = "normal" // plain prose
)

// AllContentTypes returns all valid content types
func AllContentTypes() []ContentType {
	return []ContentType{
		ContentTypeRecordLines,
		ContentTypeCode,
		ContentTypeTable,
		ContentTypeRecord,
		ContentTypePlain,
	}
}

// IsValid checks if the content type is valid
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeRecordLines,
		ContentTypeCode,
		ContentTypeTable,
		ContentTypeRecord,
		ContentTypePlain:
		return true
	default:
		return false
	}
}

// String returns the string representation of the content type
func (c ContentType) String() string {
	return string(c)
}

// ParseContentType parses a string into a ContentType
func ParseContentType(s string) (ContentType, error) {
	ct := ContentType(s)
	if !ct.IsValid() {
		return "", fmt.Errorf("invalid content type: %s", s)
	}
	return ct, nil
}

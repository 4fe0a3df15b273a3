package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// recordFields are the conventional keys of a structured training record,
// rendered into the document body in this order.
var recordFields = []string{"instruction", "input", "output"}

// formatRecord renders the conventional fields as labeled lines; any other
// fields are preserved as metadata by the caller.
func formatRecord(item map[string]any) string {
	var parts []string
	for _, field := range recordFields {
		if v, ok := item[field]; ok {
			label := strings.ToUpper(field[:1]) + field[1:]
			parts = append(parts, fmt.Sprintf("%s: %v", label, v))
		}
	}
	return strings.Join(parts, "\n")
}

func extraFields(item map[string]any) map[string]string {
	extra := map[string]string{}
	for k, v := range item {
		switch k {
		case "instruction", "input", "output":
		default:
			extra[k] = fmt.Sprintf("%v", v)
		}
	}
	return extra
}

// Record loads a single structured-record file: a JSON array of records
// with instruction/input/output-style fields, one document per record.
type Record struct{}

func (l *Record) Load(ctx context.Context, path string) ([]*model.Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the knowledge base walk
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read record file", goerr.V("path", path))
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, goerr.Wrap(err, "failed to parse record file", goerr.V("path", path))
	}

	docs := make([]*model.Document, 0, len(items))
	for _, item := range items {
		doc := model.NewDocument(path, formatRecord(item))
		doc.Metadata["source"] = path
		for k, v := range extraFields(item) {
			doc.Metadata[k] = v
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

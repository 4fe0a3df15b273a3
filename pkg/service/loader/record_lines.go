package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
)

// RecordLines loads line-delimited structured-record files: one JSON object
// per line with instruction/input/output-style fields. A malformed line is
// logged and skipped without failing the file.
type RecordLines struct{}

func (l *RecordLines) Load(ctx context.Context, path string) ([]*model.Document, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from the knowledge base walk
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open record-lines file", goerr.V("path", path))
	}
	defer f.Close()

	var docs []*model.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item map[string]any
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			logging.From(ctx).Warn("failed to parse record line, skipping",
				"path", path,
				"line", lineNum,
				"error", err.Error(),
			)
			continue
		}

		doc := model.NewDocument(path, formatRecord(item))
		doc.Metadata["source"] = path
		doc.Metadata["line_number"] = strconv.Itoa(lineNum)
		for k, v := range extraFields(item) {
			doc.Metadata[k] = v
		}
		docs = append(docs, doc)
	}

	if err := scanner.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to scan record-lines file", goerr.V("path", path))
	}

	return docs, nil
}

// CountRecords counts the JSON lines of a record-lines file without
// materializing documents, for knowledge-base size validation.
func CountRecords(path string) (int, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from the knowledge base walk
	if err != nil {
		return 0, goerr.Wrap(err, "failed to open record-lines file", goerr.V("path", path))
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, goerr.Wrap(err, "failed to scan record-lines file", goerr.V("path", path))
	}
	return count, nil
}

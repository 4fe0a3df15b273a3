package loader

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// Text loads plain text files as a single document
type Text struct{}

func (l *Text) Load(ctx context.Context, path string) ([]*model.Document, error) {
	content, err := os.ReadFile(path) // #nosec G304 - path comes from the knowledge base walk
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read text file", goerr.V("path", path))
	}

	doc := model.NewDocument(path, string(content))
	doc.Metadata["source"] = path
	return []*model.Document{doc}, nil
}

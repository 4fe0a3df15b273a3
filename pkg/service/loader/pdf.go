package loader

import (
	"context"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

// PDF loads paginated documents, producing one document per page so the
// page number survives as provenance metadata.
type PDF struct{}

func (l *PDF) Load(ctx context.Context, path string) ([]*model.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open pdf", goerr.V("path", path))
	}
	defer f.Close()

	var docs []*model.Document
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to extract pdf page text",
				goerr.V("path", path), goerr.V("page", i))
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		doc := model.NewDocument(path, text)
		doc.Metadata["source"] = path
		doc.Metadata["page"] = strconv.Itoa(i)
		docs = append(docs, doc)
	}

	return docs, nil
}

// Package loader reads heterogeneous knowledge-base files into a uniform
// document representation with provenance metadata.
package loader

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
)

// Loader reads one source file into documents. A file may expand to several
// documents (one per page or per record).
type Loader interface {
	Load(ctx context.Context, path string) ([]*model.Document, error)
}

// Set maps file extensions to loaders and walks a directory tree with them
type Set struct {
	loaders map[string]Loader
}

// NewSet returns the default loader set covering plain text, paginated
// documents and structured-record files.
func NewSet() *Set {
	return &Set{
		loaders: map[string]Loader{
			".txt":   &Text{},
			".md":    &Text{},
			".pdf":   &PDF{},
			".json":  &Record{},
			".jsonl": &RecordLines{},
		},
	}
}

// Supported reports whether a path has a loadable extension
func (s *Set) Supported(path string) bool {
	_, ok := s.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// LoadDir walks root recursively and loads every supported file. A per-file
// failure is logged and skipped; it does not abort the other files.
func (s *Set) LoadDir(ctx context.Context, root string) ([]*model.Document, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && s.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to walk knowledge base", goerr.V("root", root))
	}
	sort.Strings(paths)

	var docs []*model.Document
	for _, path := range paths {
		loader := s.loaders[strings.ToLower(filepath.Ext(path))]
		loaded, err := loader.Load(ctx, path)
		if err != nil {
			logging.From(ctx).Warn("failed to load knowledge file, skipping",
				"path", path,
				"error", err.Error(),
			)
			continue
		}
		docs = append(docs, loaded...)
	}

	return docs, nil
}

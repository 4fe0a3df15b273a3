// Package knowledge processes the knowledge-base directory into embedded
// chunks: it detects file changes, reloads and re-chunks every source on
// change, and swaps the stored chunk set wholesale.
package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/service/loader"
	"github.com/seiri-lab/mathrag/pkg/service/splitter"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
	"github.com/seiri-lab/mathrag/pkg/utils/safe"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// minRecordLines is the record count below which a JSONL training-data
// file is flagged as suspiciously small.
const minRecordLines = 2000

// embedConcurrency bounds parallel embedding calls during processing
const embedConcurrency = 4

// Rebuilder receives the full chunk set after every processing pass
type Rebuilder interface {
	Rebuild(chunks []*model.Chunk)
}

// Service owns the processing pipeline for one knowledge-base directory
type Service struct {
	repo      interfaces.Repository
	embedder  interfaces.Embedder
	rebuilder Rebuilder
	loaders   *loader.Set
	semantic  *splitter.Semantic
	root      string

	group singleflight.Group
}

// Result summarizes one processing pass
type Result struct {
	Reprocessed bool `json:"reprocessed"`
	Files       int  `json:"files"`
	Chunks      int  `json:"chunks"`
}

// New creates a processing service over the directory at root
func New(repo interfaces.Repository, embedder interfaces.Embedder, rebuilder Rebuilder, root string) *Service {
	return &Service{
		repo:      repo,
		embedder:  embedder,
		rebuilder: rebuilder,
		loaders:   loader.NewSet(),
		semantic:  splitter.NewSemantic(embedder),
		root:      root,
	}
}

// Process runs one pass: detect changes, rebuild chunks when anything
// changed (or force is set), and hand the final chunk set to the rebuilder.
// Concurrent calls coalesce into a single pass.
func (s *Service) Process(ctx context.Context, force bool) (*Result, error) {
	v, err, _ := s.group.Do("process", func() (any, error) {
		return s.process(ctx, force)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// ProcessDocuments runs a regular processing pass and returns the chunk
// set currently in the repository.
func (s *Service) ProcessDocuments(ctx context.Context) ([]*model.Chunk, error) {
	if _, err := s.Process(ctx, false); err != nil {
		return nil, err
	}
	return s.repo.Chunk().List(ctx)
}

func (s *Service) process(ctx context.Context, force bool) (*Result, error) {
	logger := logging.From(ctx)

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create knowledge base directory", goerr.V("root", s.root))
	}

	current, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}

	recorded, err := s.repo.FileState().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list file states")
	}

	if !force && !changed(recorded, current) {
		chunks, err := s.repo.Chunk().List(ctx)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list stored chunks")
		}
		s.rebuilder.Rebuild(chunks)
		logger.Debug("knowledge base unchanged", "files", len(current), "chunks", len(chunks))
		return &Result{Reprocessed: false, Files: len(current), Chunks: len(chunks)}, nil
	}

	chunks, err := s.rebuild(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Chunk().ReplaceAll(ctx, chunks); err != nil {
		return nil, goerr.Wrap(err, "failed to store chunks")
	}
	if err := s.saveStates(ctx, recorded, current); err != nil {
		return nil, err
	}

	s.rebuilder.Rebuild(chunks)
	logger.Info("knowledge base processed", "files", len(current), "chunks", len(chunks))
	return &Result{Reprocessed: true, Files: len(current), Chunks: len(chunks)}, nil
}

// scan walks the knowledge base and fingerprints every supported file
func (s *Service) scan(ctx context.Context) ([]*model.FileState, error) {
	var states []*model.FileState
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !s.loaders.Supported(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return goerr.Wrap(err, "failed to stat knowledge file", goerr.V("path", path))
		}
		fingerprint, err := fingerprintFile(ctx, path)
		if err != nil {
			return err
		}
		states = append(states, &model.FileState{
			Path:        path,
			Fingerprint: fingerprint,
			ModifiedAt:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan knowledge base", goerr.V("root", s.root))
	}
	sort.Slice(states, func(i, j int) bool { return states[i].Path < states[j].Path })
	return states, nil
}

// changed reports whether the observed file set differs from the recorded
// one: any added, removed or modified file counts.
func changed(recorded, current []*model.FileState) bool {
	if len(recorded) != len(current) {
		return true
	}
	byPath := make(map[string]*model.FileState, len(recorded))
	for _, state := range recorded {
		byPath[state.Path] = state
	}
	for _, observed := range current {
		prev, ok := byPath[observed.Path]
		if !ok || prev.Changed(observed.Fingerprint, observed.ModifiedAt) {
			return true
		}
	}
	return false
}

// rebuild loads every source file and produces the embedded chunk set
func (s *Service) rebuild(ctx context.Context) ([]*model.Chunk, error) {
	s.validateRecordFiles(ctx)

	docs, err := s.loaders.LoadDir(ctx, s.root)
	if err != nil {
		return nil, err
	}

	segments, err := s.semantic.SplitDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}

	var chunks []*model.Chunk
	for _, segment := range segments {
		chunks = append(chunks, splitSegment(segment)...)
	}

	if err := s.embedChunks(ctx, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

// splitSegment bounds one semantic segment by the fixed-size splitter
// profile of its detected content type.
func splitSegment(segment *model.Document) []*model.Chunk {
	contentType := splitter.DetectContentType(segment.Content)
	profile := splitter.ProfileFor(contentType)

	base := 0
	if v, ok := segment.Metadata["start_index"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			base = n
		}
	}

	var chunks []*model.Chunk
	for _, piece := range profile.Split(segment.Content) {
		chunk := model.NewChunk(segment.Source, base+piece.Offset, piece.Text)
		chunk.ContentType = contentType
		if len(segment.Metadata) > 0 {
			chunk.Metadata = make(map[string]string, len(segment.Metadata))
			for k, v := range segment.Metadata {
				if k == "start_index" {
					continue
				}
				chunk.Metadata[k] = v
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// embedChunks fills in the embedding of every chunk, batched and bounded
func (s *Service) embedChunks(ctx context.Context, chunks []*model.Chunk) error {
	const batchSize = 16

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		eg.Go(func() error {
			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Content
			}
			vectors, err := s.embedder.Embed(ctx, texts)
			if err != nil {
				return goerr.Wrap(err, "failed to embed chunk batch")
			}
			if len(vectors) != len(batch) {
				return goerr.New("embedding count mismatch",
					goerr.V("chunks", len(batch)), goerr.V("vectors", len(vectors)))
			}
			for i, vec := range vectors {
				batch[i].Embedding = vec
			}
			return nil
		})
	}

	return eg.Wait()
}

// validateRecordFiles warns about JSONL files that look too small to be a
// usable training-data dump.
func (s *Service) validateRecordFiles(ctx context.Context) {
	logger := logging.From(ctx)
	_ = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".jsonl") {
			return nil
		}
		count, err := loader.CountRecords(path)
		if err != nil {
			logger.Warn("failed to count records", "path", path, "error", err.Error())
			return nil
		}
		if count < minRecordLines {
			logger.Warn("record file smaller than expected",
				"path", path,
				"records", count,
				"expected_at_least", minRecordLines,
			)
		}
		return nil
	})
}

// saveStates replaces the recorded file states with the observed ones
func (s *Service) saveStates(ctx context.Context, recorded, current []*model.FileState) error {
	seen := make(map[string]bool, len(current))
	for _, state := range current {
		seen[state.Path] = true
		if err := s.repo.FileState().Put(ctx, state); err != nil {
			return goerr.Wrap(err, "failed to save file state", goerr.V("path", state.Path))
		}
	}
	for _, state := range recorded {
		if !seen[state.Path] {
			if err := s.repo.FileState().Delete(ctx, state.Path); err != nil {
				return goerr.Wrap(err, "failed to delete stale file state", goerr.V("path", state.Path))
			}
		}
	}
	return nil
}

func fingerprintFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to open knowledge file", goerr.V("path", path))
	}
	defer safe.Close(ctx, f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", goerr.Wrap(err, "failed to hash knowledge file", goerr.V("path", path))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

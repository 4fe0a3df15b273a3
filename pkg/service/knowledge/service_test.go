package knowledge_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/repository/memory"
	"github.com/seiri-lab/mathrag/pkg/service/knowledge"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)%7 + 1), 1}
	}
	return out, nil
}

type recordingRebuilder struct {
	calls  int
	chunks []*model.Chunk
}

func (r *recordingRebuilder) Rebuild(chunks []*model.Chunk) {
	r.calls++
	r.chunks = chunks
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0644)).Required()
	return path
}

func TestProcessFirstPass(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "algebra.txt", "一元二次方程的解法。配方法和求根公式都可以使用。")

	repo := memory.New()
	rebuilder := &recordingRebuilder{}
	svc := knowledge.New(repo, staticEmbedder{}, rebuilder, dir)

	result, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()
	gt.True(t, result.Reprocessed)
	gt.Equal(t, result.Files, 1)
	gt.N(t, result.Chunks).Greater(0)

	gt.Equal(t, rebuilder.calls, 1)
	gt.A(t, rebuilder.chunks).Length(result.Chunks)

	stored, err := repo.Chunk().List(context.Background())
	gt.NoError(t, err).Required()
	gt.A(t, stored).Length(result.Chunks)

	states, err := repo.FileState().List(context.Background())
	gt.NoError(t, err).Required()
	gt.A(t, states).Length(1)
}

func TestProcessUnchangedSkipsRebuild(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "algebra.txt", "等差数列的求和公式。")

	repo := memory.New()
	rebuilder := &recordingRebuilder{}
	svc := knowledge.New(repo, staticEmbedder{}, rebuilder, dir)

	first, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()
	gt.True(t, first.Reprocessed)

	second, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()
	gt.False(t, second.Reprocessed)
	gt.Equal(t, second.Chunks, first.Chunks)

	// The index is still rehydrated from the stored chunks
	gt.Equal(t, rebuilder.calls, 2)
}

func TestProcessForceReprocesses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "algebra.txt", "函数的单调性。")

	repo := memory.New()
	svc := knowledge.New(repo, staticEmbedder{}, &recordingRebuilder{}, dir)

	_, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()

	result, err := svc.Process(context.Background(), true)
	gt.NoError(t, err).Required()
	gt.True(t, result.Reprocessed)
}

func TestProcessDetectsModifiedTime(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "algebra.txt", "导数的定义。")

	repo := memory.New()
	svc := knowledge.New(repo, staticEmbedder{}, &recordingRebuilder{}, dir)

	_, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()

	// Touching the file without changing its content still triggers
	future := time.Now().Add(time.Hour)
	gt.NoError(t, os.Chtimes(path, future, future)).Required()

	result, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()
	gt.True(t, result.Reprocessed)
}

func TestProcessDetectsContentChangeWithSameModifiedTime(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "algebra.txt", "概率的基本性质。")

	repo := memory.New()
	svc := knowledge.New(repo, staticEmbedder{}, &recordingRebuilder{}, dir)

	_, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()

	info, err := os.Stat(path)
	gt.NoError(t, err).Required()

	writeFile(t, dir, "algebra.txt", "条件概率与独立性。")
	gt.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime())).Required()

	result, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()
	gt.True(t, result.Reprocessed)
}

func TestProcessDetectsRemovedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "集合的运算。")
	path := writeFile(t, dir, "b.txt", "复数的几何表示。")

	repo := memory.New()
	svc := knowledge.New(repo, staticEmbedder{}, &recordingRebuilder{}, dir)

	_, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()

	states, err := repo.FileState().List(context.Background())
	gt.NoError(t, err).Required()
	gt.A(t, states).Length(2)

	gt.NoError(t, os.Remove(path)).Required()

	result, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()
	gt.True(t, result.Reprocessed)

	states, err = repo.FileState().List(context.Background())
	gt.NoError(t, err).Required()
	gt.A(t, states).Length(1)
	gt.Equal(t, states[0].Path, filepath.Join(dir, "a.txt"))
}

func TestProcessCreatesMissingRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kb")

	repo := memory.New()
	svc := knowledge.New(repo, staticEmbedder{}, &recordingRebuilder{}, dir)

	result, err := svc.Process(context.Background(), false)
	gt.NoError(t, err).Required()
	gt.Equal(t, result.Files, 0)
	gt.Equal(t, result.Chunks, 0)

	info, err := os.Stat(dir)
	gt.NoError(t, err).Required()
	gt.True(t, info.IsDir())
}

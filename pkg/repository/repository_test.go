package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/domain/types"
	"github.com/seiri-lab/mathrag/pkg/repository/memory"
	"github.com/seiri-lab/mathrag/pkg/repository/sqlite"
)

func runRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("ReplaceAll swaps the chunk set wholesale", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := []*model.Chunk{
			newTestChunk("kb/a.txt", 0, "导数的定义：函数在一点的瞬时变化率"),
			newTestChunk("kb/a.txt", 120, "积分是导数的逆运算"),
		}
		gt.NoError(t, repo.Chunk().ReplaceAll(ctx, first)).Required()

		listed, err := repo.Chunk().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, listed).Length(2)
		gt.Value(t, listed[0].ID).Equal(first[0].ID)
		gt.Value(t, listed[0].Content).Equal(first[0].Content)
		gt.Value(t, listed[0].ContentType).Equal(types.ContentTypePlain)
		gt.Array(t, listed[0].Embedding).Length(3)

		second := []*model.Chunk{
			newTestChunk("kb/b.jsonl", 0, "Instruction: 解方程\nInput: x^2=4\nOutput: x=±2"),
		}
		gt.NoError(t, repo.Chunk().ReplaceAll(ctx, second)).Required()

		listed, err = repo.Chunk().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, listed).Length(1)
		gt.Value(t, listed[0].Source).Equal("kb/b.jsonl")

		count, err := repo.Chunk().Count(ctx)
		gt.NoError(t, err).Required()
		gt.Number(t, count).Equal(1)
	})

	t.Run("List preserves insertion order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		chunks := []*model.Chunk{
			newTestChunk("kb/c.txt", 300, "third"),
			newTestChunk("kb/c.txt", 0, "first"),
			newTestChunk("kb/c.txt", 150, "second"),
		}
		gt.NoError(t, repo.Chunk().ReplaceAll(ctx, chunks)).Required()

		listed, err := repo.Chunk().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, listed).Length(3)
		gt.Value(t, listed[0].Content).Equal("third")
		gt.Value(t, listed[1].Content).Equal("first")
		gt.Value(t, listed[2].Content).Equal("second")
	})

	t.Run("Listed chunks are copies", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Chunk().ReplaceAll(ctx, []*model.Chunk{
			newTestChunk("kb/d.txt", 0, "original"),
		})).Required()

		listed, err := repo.Chunk().List(ctx)
		gt.NoError(t, err).Required()
		listed[0].Content = "mutated"
		listed[0].Embedding[0] = 99

		again, err := repo.Chunk().List(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, again[0].Content).Equal("original")
		gt.Value(t, again[0].Embedding[0]).Equal(float32(0.1))
	})

	t.Run("FileState Get returns nil for unknown path", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		state, err := repo.FileState().Get(ctx, "kb/never-seen.txt")
		gt.NoError(t, err).Required()
		gt.Value(t, state).Nil()
	})

	t.Run("FileState Put then Get round-trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		modifiedAt := time.Date(2025, 3, 15, 9, 30, 0, 123456789, time.UTC)
		gt.NoError(t, repo.FileState().Put(ctx, &model.FileState{
			Path:        "kb/a.jsonl",
			Fingerprint: "deadbeef",
			ModifiedAt:  modifiedAt,
		})).Required()

		state, err := repo.FileState().Get(ctx, "kb/a.jsonl")
		gt.NoError(t, err).Required()
		gt.Value(t, state).NotNil()
		gt.Value(t, state.Fingerprint).Equal("deadbeef")
		gt.Bool(t, state.ModifiedAt.Equal(modifiedAt)).True()
	})

	t.Run("FileState Put overwrites existing state", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.FileState().Put(ctx, &model.FileState{
			Path:        "kb/a.txt",
			Fingerprint: "old",
			ModifiedAt:  time.Now().UTC(),
		})).Required()
		gt.NoError(t, repo.FileState().Put(ctx, &model.FileState{
			Path:        "kb/a.txt",
			Fingerprint: "new",
			ModifiedAt:  time.Now().UTC(),
		})).Required()

		state, err := repo.FileState().Get(ctx, "kb/a.txt")
		gt.NoError(t, err).Required()
		gt.Value(t, state.Fingerprint).Equal("new")

		states, err := repo.FileState().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, states).Length(1)
	})

	t.Run("FileState Delete removes state", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.FileState().Put(ctx, &model.FileState{
			Path:        "kb/gone.txt",
			Fingerprint: "abc",
			ModifiedAt:  time.Now().UTC(),
		})).Required()
		gt.NoError(t, repo.FileState().Delete(ctx, "kb/gone.txt")).Required()

		state, err := repo.FileState().Get(ctx, "kb/gone.txt")
		gt.NoError(t, err).Required()
		gt.Value(t, state).Nil()
	})
}

func newTestChunk(source string, offset int, content string) *model.Chunk {
	chunk := model.NewChunk(source, offset, content)
	chunk.Embedding = []float32{0.1, 0.2, 0.3}
	chunk.Metadata = map[string]string{"source": source}
	return chunk
}

func TestMemoryRepository(t *testing.T) {
	runRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestSQLiteRepository(t *testing.T) {
	runRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		repo, err := sqlite.New(t.TempDir())
		gt.NoError(t, err).Required()
		t.Cleanup(func() {
			if err := repo.Close(); err != nil {
				t.Logf("failed to close repository: %v", err)
			}
		})
		return repo
	})
}

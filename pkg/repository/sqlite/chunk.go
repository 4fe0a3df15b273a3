package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
	"github.com/seiri-lab/mathrag/pkg/domain/types"
)

type chunkRepository struct {
	mu sync.RWMutex
	db *sql.DB
}

func (r *chunkRepository) ReplaceAll(ctx context.Context, chunks []*model.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return goerr.Wrap(err, "failed to clear chunks")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (position, id, content, source, start_index, content_type, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return goerr.Wrap(err, "failed to encode metadata", goerr.V("id", chunk.ID))
		}
		embedding, err := json.Marshal(chunk.Embedding)
		if err != nil {
			return goerr.Wrap(err, "failed to encode embedding", goerr.V("id", chunk.ID))
		}

		if _, err := stmt.ExecContext(ctx,
			i,
			string(chunk.ID),
			chunk.Content,
			chunk.Source,
			chunk.StartIndex,
			chunk.ContentType.String(),
			string(metadata),
			embedding,
		); err != nil {
			return goerr.Wrap(err, "failed to insert chunk", goerr.V("id", chunk.ID))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit chunk replacement")
	}
	return nil
}

func (r *chunkRepository) List(ctx context.Context) ([]*model.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, source, start_index, content_type, metadata, embedding
		FROM chunks ORDER BY position
	`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chunks")
	}
	defer rows.Close()

	var result []*model.Chunk
	for rows.Next() {
		var (
			chunk       model.Chunk
			id          string
			contentType string
			metadata    string
			embedding   []byte
		)
		if err := rows.Scan(&id, &chunk.Content, &chunk.Source, &chunk.StartIndex, &contentType, &metadata, &embedding); err != nil {
			return nil, goerr.Wrap(err, "failed to scan chunk row")
		}

		chunk.ID = model.ChunkID(id)
		chunk.ContentType = types.ContentType(contentType)
		if err := json.Unmarshal([]byte(metadata), &chunk.Metadata); err != nil {
			return nil, goerr.Wrap(err, "failed to decode metadata", goerr.V("id", id))
		}
		if err := json.Unmarshal(embedding, &chunk.Embedding); err != nil {
			return nil, goerr.Wrap(err, "failed to decode embedding", goerr.V("id", id))
		}

		result = append(result, &chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate chunk rows")
	}
	return result, nil
}

func (r *chunkRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count chunks")
	}
	return count, nil
}

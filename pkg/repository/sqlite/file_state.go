package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/model"
)

type fileStateRepository struct {
	db *sql.DB
}

func (r *fileStateRepository) Get(ctx context.Context, path string) (*model.FileState, error) {
	var (
		state      model.FileState
		modifiedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT path, fingerprint, modified_at FROM file_states WHERE path = ?", path,
	).Scan(&state.Path, &state.Fingerprint, &modifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query file state", goerr.V("path", path))
	}

	state.ModifiedAt = time.Unix(0, modifiedAt).UTC()
	return &state, nil
}

func (r *fileStateRepository) Put(ctx context.Context, state *model.FileState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO file_states (path, fingerprint, modified_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET fingerprint = excluded.fingerprint, modified_at = excluded.modified_at
	`, state.Path, state.Fingerprint, state.ModifiedAt.UnixNano())
	if err != nil {
		return goerr.Wrap(err, "failed to store file state", goerr.V("path", state.Path))
	}
	return nil
}

func (r *fileStateRepository) List(ctx context.Context) ([]*model.FileState, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT path, fingerprint, modified_at FROM file_states ORDER BY path")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query file states")
	}
	defer rows.Close()

	var result []*model.FileState
	for rows.Next() {
		var (
			state      model.FileState
			modifiedAt int64
		)
		if err := rows.Scan(&state.Path, &state.Fingerprint, &modifiedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan file state row")
		}
		state.ModifiedAt = time.Unix(0, modifiedAt).UTC()
		result = append(result, &state)
	}

	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate file state rows")
	}
	return result, nil
}

func (r *fileStateRepository) Delete(ctx context.Context, path string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM file_states WHERE path = ?", path); err != nil {
		return goerr.Wrap(err, "failed to delete file state", goerr.V("path", path))
	}
	return nil
}

// Package sqlite persists the chunk set, chunk embeddings and the
// file-state cache under the vector-store directory, so a restart does not
// force a full re-embedding pass when nothing changed on disk.
package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	position INTEGER PRIMARY KEY,
	id TEXT NOT NULL,
	content TEXT NOT NULL,
	source TEXT NOT NULL,
	start_index INTEGER NOT NULL,
	content_type TEXT NOT NULL,
	metadata TEXT NOT NULL,
	embedding BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS file_states (
	path TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	modified_at INTEGER NOT NULL
);
`

// Client is a Repository backed by a SQLite database file
type Client struct {
	db        *sql.DB
	chunk     *chunkRepository
	fileState *fileStateRepository
}

var _ interfaces.Repository = &Client{}

// New opens (or creates) the store under dir
func New(dir string) (*Client, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create vector store directory", goerr.V("dir", dir))
	}

	dbPath := filepath.Join(dir, "chunks.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("path", dbPath))
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to initialize schema")
	}

	return &Client{
		db:        db,
		chunk:     &chunkRepository{db: db},
		fileState: &fileStateRepository{db: db},
	}, nil
}

func (c *Client) Chunk() interfaces.ChunkRepository {
	return c.chunk
}

func (c *Client) FileState() interfaces.FileStateRepository {
	return c.fileState
}

func (c *Client) Close() error {
	if err := c.db.Close(); err != nil {
		return goerr.Wrap(err, "failed to close database")
	}
	return nil
}

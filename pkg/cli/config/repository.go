package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/domain/interfaces"
	"github.com/seiri-lab/mathrag/pkg/repository/memory"
	"github.com/seiri-lab/mathrag/pkg/repository/sqlite"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend string
	dir     string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (sqlite or memory)",
			Value:       "sqlite",
			Sources:     cli.EnvVars("MATHRAG_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "repository-dir",
			Usage:       "Directory holding the sqlite database",
			Value:       "./data",
			Sources:     cli.EnvVars("MATHRAG_REPOSITORY_DIR"),
			Destination: &r.dir,
		},
	}
}

// LogValue returns log attributes for the repository configuration
func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("dir", r.dir),
	)
}

// Configure initializes and returns a repository based on the configured
// backend. The caller is responsible for calling Close() on the returned
// repository.
func (r *Repository) Configure() (interfaces.Repository, error) {
	switch r.backend {
	case "sqlite":
		repo, err := sqlite.New(r.dir)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite repository")
		}
		logging.Default().Info("Using sqlite repository", "dir", r.dir)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unknown repository backend", goerr.V("backend", r.backend))
	}
}

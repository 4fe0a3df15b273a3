package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Knowledge holds CLI flags for the knowledge base
type Knowledge struct {
	dir             string
	refreshInterval time.Duration
	watch           bool
}

// Flags returns CLI flags for knowledge base configuration
func (x *Knowledge) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "knowledge-dir",
			Usage:       "Directory holding the knowledge base documents",
			Value:       "./knowledge_base",
			Sources:     cli.EnvVars("MATHRAG_KNOWLEDGE_DIR"),
			Destination: &x.dir,
		},
		&cli.DurationFlag{
			Name:        "refresh-interval",
			Usage:       "Interval of periodic knowledge base refresh (0 disables)",
			Value:       10 * time.Minute,
			Sources:     cli.EnvVars("MATHRAG_REFRESH_INTERVAL"),
			Destination: &x.refreshInterval,
		},
		&cli.BoolFlag{
			Name:        "watch",
			Usage:       "Watch the knowledge directory and reprocess on change",
			Value:       true,
			Sources:     cli.EnvVars("MATHRAG_WATCH"),
			Destination: &x.watch,
		},
	}
}

// LogValue returns log attributes for the knowledge configuration
func (x Knowledge) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("dir", x.dir),
		slog.Duration("refresh_interval", x.refreshInterval),
		slog.Bool("watch", x.watch),
	)
}

// Dir returns the knowledge base directory
func (x *Knowledge) Dir() string {
	return x.dir
}

// RefreshInterval returns the periodic refresh interval
func (x *Knowledge) RefreshInterval() time.Duration {
	return x.refreshInterval
}

// Watch reports whether directory watching is enabled
func (x *Knowledge) Watch() bool {
	return x.watch
}

// Validate checks if the knowledge configuration is usable
func (x *Knowledge) Validate() error {
	if x.dir == "" {
		return goerr.Wrap(ErrMissingKnowledge, "knowledge-dir")
	}
	return nil
}

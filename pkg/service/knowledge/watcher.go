package knowledge

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/goerr/v2"
	"github.com/seiri-lab/mathrag/pkg/utils/async"
	"github.com/seiri-lab/mathrag/pkg/utils/logging"
)

// debounceDelay coalesces the event bursts editors and sync tools produce
// into a single processing pass.
const debounceDelay = 2 * time.Second

// Watcher triggers knowledge processing on filesystem events in the
// knowledge base directory.
type Watcher struct {
	service *Service
	watcher *fsnotify.Watcher
	doneCh  chan struct{}
}

// NewWatcher creates a watcher over the service's root directory. The root
// must exist before watching starts.
func NewWatcher(service *Service) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create filesystem watcher")
	}
	if err := watchTree(fsWatcher, service.root); err != nil {
		_ = fsWatcher.Close()
		return nil, goerr.Wrap(err, "failed to watch knowledge base", goerr.V("root", service.root))
	}

	return &Watcher{
		service: service,
		watcher: fsWatcher,
		doneCh:  make(chan struct{}),
	}, nil
}

// watchTree registers the root and every directory below it. fsnotify
// watches are not recursive on their own.
func watchTree(fsWatcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsWatcher.Add(path)
		}
		return nil
	})
}

// WatchList returns the directories currently covered by the watcher
func (w *Watcher) WatchList() []string {
	return w.watcher.WatchList()
}

// Start begins watching in the background
func (w *Watcher) Start(ctx context.Context) {
	logging.Default().Info("knowledge watcher starting", "root", w.service.root)
	go w.run(ctx)
}

// Stop closes the watcher and waits for the loop to exit
func (w *Watcher) Stop() {
	_ = w.watcher.Close()
	<-w.doneCh
	logging.Default().Info("knowledge watcher stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.From(ctx).Debug("knowledge base event", "event", event.String())
			// New subdirectories need their own watch
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(event.Name); err != nil {
						logging.From(ctx).Warn("failed to watch new directory",
							"dir", event.Name, "error", err.Error())
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerCh = timer.C
			} else {
				timer.Reset(debounceDelay)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			// Processing can take a while on large corpora; keep the event
			// loop responsive and let singleflight collapse overlapping runs.
			async.Dispatch(ctx, func(ctx context.Context) error {
				if _, err := w.service.Process(ctx, false); err != nil {
					return goerr.Wrap(err, "knowledge processing after change failed")
				}
				return nil
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.From(ctx).Warn("filesystem watcher error", "error", err.Error())

		case <-ctx.Done():
			return
		}
	}
}

package knowledge

import (
	"context"
	"time"

	"github.com/seiri-lab/mathrag/pkg/utils/logging"
)

// RefreshWorker re-runs knowledge processing on a fixed interval so file
// edits are picked up even without filesystem events.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
type RefreshWorker struct {
	service  *Service
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRefreshWorker creates a worker running the service every interval
func NewRefreshWorker(service *Service, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh loop. The initial pass also runs in
// the background and does not block server startup.
func (w *RefreshWorker) Start(ctx context.Context) {
	logging.Default().Info("knowledge refresh worker starting", "interval", w.interval.String())
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for completion
func (w *RefreshWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("knowledge refresh worker stopped")
}

func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if _, err := w.service.Process(ctx, false); err != nil {
		logging.Default().Error("initial knowledge processing failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.service.Process(ctx, false); err != nil {
				logging.Default().Error("knowledge refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("knowledge refresh worker context cancelled")
			return
		}
	}
}

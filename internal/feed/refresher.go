package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher reloads the feed on a fixed interval.
type Refresher struct {
	scheduler *gocron.Scheduler
	loader    *Loader
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// NewRefresher creates a refresher. Each run is bounded by timeout.
func NewRefresher(loader *Loader, interval, timeout time.Duration, logger *slog.Logger) *Refresher {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Refresher{
		scheduler: s,
		loader:    loader,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the reload job. The first run happens one interval from
// now; the caller is expected to have loaded the feed once already.
func (r *Refresher) Start() error {
	if r.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", r.interval)
	}

	_, err := r.scheduler.Every(r.interval).WaitForSchedule().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		// Load logs and counts its own failures.
		_, _ = r.loader.Load(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule feed refresh: %w", err)
	}

	r.scheduler.StartAsync()
	r.logger.Info("feed refresh scheduled", "interval", r.interval)
	return nil
}

// Stop cancels future runs.
func (r *Refresher) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}

package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Source produces raw feed text.
type Source interface {
	Fetch(ctx context.Context) (string, error)
}

// PointLayer receives the parsed points.
type PointLayer interface {
	SetPointLayer(records []domain.PointRecord, loadedAt time.Time)
}

// Status describes the most recent load attempt.
type Status struct {
	LoadedAt  time.Time `json:"loaded_at,omitzero"`
	Points    int       `json:"points"`
	Dropped   int       `json:"dropped"`
	LastError string    `json:"last_error,omitempty"`
}

// Loader fetches, parses and publishes the feed to the point layer. A failed
// load leaves the previous layer in place.
type Loader struct {
	source  Source
	parser  domain.FeedParser
	layer   PointLayer
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	status Status
}

// NewLoader creates a loader. A nil clock uses real time.
func NewLoader(source Source, ramp domain.Ramp, layer PointLayer, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Loader{
		source:  source,
		parser:  domain.FeedParser{Ramp: ramp},
		layer:   layer,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Load runs one fetch and parse cycle.
func (l *Loader) Load(ctx context.Context) (domain.FeedResult, error) {
	raw, err := l.source.Fetch(ctx)
	if err != nil {
		l.metrics.FeedLoads.WithLabelValues("error").Inc()
		l.logger.Error("feed load failed", "error", err)
		l.mu.Lock()
		l.status.LastError = err.Error()
		l.mu.Unlock()
		return domain.FeedResult{}, err
	}

	result := l.parser.Parse(raw)
	now := l.clock.Now()
	l.layer.SetPointLayer(result.Records, now)

	l.metrics.FeedLoads.WithLabelValues("success").Inc()
	l.metrics.FeedRows.WithLabelValues("parsed").Add(float64(len(result.Records)))
	l.metrics.FeedRows.WithLabelValues("dropped").Add(float64(result.Dropped))
	l.metrics.FeedPoints.Set(float64(len(result.Records)))

	if result.Dropped > 0 {
		l.logger.Warn("dropped malformed feed rows", "dropped", result.Dropped, "rows", result.Rows)
	}
	l.logger.Info("feed loaded", "points", len(result.Records), "ramp", l.parser.Ramp.String())

	l.mu.Lock()
	l.status = Status{LoadedAt: now, Points: len(result.Records), Dropped: result.Dropped}
	l.mu.Unlock()
	return result, nil
}

// Status returns the outcome of the most recent load.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

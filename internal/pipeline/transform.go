package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/jonboulle/clockwork"
)

// SampleTransformer implements Transformer with optional reverse geocoding.
type SampleTransformer struct {
	geocoder domain.ReverseGeocoder
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewTransformer creates a SampleTransformer. Pass a nil geocoder to disable
// geocoding enrichment and a nil clock for real time.
func NewTransformer(geocoder domain.ReverseGeocoder, clock clockwork.Clock, logger *slog.Logger) *SampleTransformer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SampleTransformer{
		geocoder: geocoder,
		clock:    clock,
		logger:   logger,
	}
}

func (t *SampleTransformer) Transform(ctx context.Context, rec domain.SampleRecord) domain.SampleRecord {
	rec = domain.EnrichWithGeocoding(ctx, rec, t.geocoder, t.logger)
	rec.ProcessedAt = t.clock.Now()
	return rec
}

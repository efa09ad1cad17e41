package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/location"
	"github.com/couchcryptid/watchlink/internal/observability"
	"github.com/couchcryptid/watchlink/internal/radio"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Transformer enriches a validated sample record.
type Transformer interface {
	Transform(ctx context.Context, rec domain.SampleRecord) domain.SampleRecord
}

// LiveLayer shows the most recent fix on the map.
type LiveLayer interface {
	UpdateLivePosition(s domain.PositionSample)
}

// Wearable is the connected device that receives each fix.
type Wearable interface {
	State() radio.State
	Send(ctx context.Context, payload []byte) error
}

// SampleSink publishes processed sample records downstream.
type SampleSink interface {
	Publish(ctx context.Context, rec domain.SampleRecord) error
}

// Pipeline forwards position fixes from a location source to the map, the
// wearable and an optional sink.
type Pipeline struct {
	source      location.Source
	transformer Transformer
	live        LiveLayer
	wearable    Wearable
	sink        SampleSink
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	sends       sync.WaitGroup

	mu   sync.Mutex
	last *domain.SampleRecord
}

// New creates a Pipeline. wearable and sink may be nil.
func New(src location.Source, t Transformer, live LiveLayer, wearable Wearable, sink SampleSink, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:      src,
		transformer: t,
		live:        live,
		wearable:    wearable,
		sink:        sink,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once the pipeline has processed a fix.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any position samples yet")
	}
	return nil
}

// LastRecord returns the most recently processed record.
func (p *Pipeline) LastRecord() (domain.SampleRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return domain.SampleRecord{}, false
	}
	return *p.last, true
}

// Run subscribes to the location source and processes fixes until ctx is
// cancelled. Subscription failures are retried with exponential backoff.
// In-flight wearable sends are waited for before Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	defer p.sends.Wait()

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}

		sub, err := p.source.Subscribe(ctx)
		if err != nil {
			p.logger.Error("location subscribe failed", "error", err, "retry_in", backoff)
			if !p.backoffOrStop(ctx, &backoff) {
				return nil
			}
			continue
		}
		backoff = initialBackoff

		err = p.consume(ctx, sub)
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
		p.logger.Warn("location subscription ended", "error", err, "retry_in", backoff)
		if !p.backoffOrStop(ctx, &backoff) {
			return nil
		}
	}
}

// consume drains one subscription. It returns the producer's error once the
// subscription closes.
func (p *Pipeline) consume(ctx context.Context, sub *location.Subscription) error {
	defer sub.Cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case sample, ok := <-sub.C():
			if !ok {
				return sub.Err()
			}
			p.process(ctx, sample)
		}
	}
}

func (p *Pipeline) process(ctx context.Context, sample domain.PositionSample) {
	p.metrics.SamplesReceived.Inc()

	if err := sample.Validate(); err != nil {
		p.metrics.SamplesInvalid.Inc()
		p.logger.Warn("invalid position sample, skipping", "error", err)
		return
	}

	p.live.UpdateLivePosition(sample)

	rec := domain.SampleRecord{Sample: sample}
	if p.wearable != nil {
		st := p.wearable.State()
		if st.Status == radio.StatusConnected {
			rec.SessionID = st.SessionID
			rec.Accel = st.Accel
			p.sendAsync(ctx, sample)
		}
	}

	rec = p.transformer.Transform(ctx, rec)

	if p.sink != nil {
		if err := p.sink.Publish(ctx, rec); err != nil {
			p.metrics.SinkPublishes.WithLabelValues("error").Inc()
			p.logger.Warn("publish sample failed", "error", err)
		} else {
			p.metrics.SinkPublishes.WithLabelValues("success").Inc()
		}
	}

	p.mu.Lock()
	p.last = &rec
	p.mu.Unlock()
	p.ready.Store(true)
}

// sendAsync writes the fix to the wearable without blocking the next one.
// Sends are not ordered with respect to each other.
func (p *Pipeline) sendAsync(ctx context.Context, sample domain.PositionSample) {
	payload := []byte(domain.EncodeSampleCSV(sample))
	p.sends.Add(1)
	go func() {
		defer p.sends.Done()
		if err := p.wearable.Send(ctx, payload); err != nil {
			if errors.Is(err, radio.ErrNotConnected) {
				p.logger.Debug("wearable disconnected before send")
				return
			}
			p.logger.Warn("error sending data", "error", err)
		}
	}()
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

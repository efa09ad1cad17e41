// Package location delivers position fixes as cancellable subscriptions.
package location

import (
	"context"
	"sync"

	"github.com/couchcryptid/watchlink/internal/domain"
)

// Source produces position samples.
type Source interface {
	// Subscribe starts delivery. Samples arrive in order until the
	// subscription is cancelled, ctx ends, or the source fails.
	Subscribe(ctx context.Context) (*Subscription, error)
}

// Subscription is an ordered, unbounded stream of position samples.
// Consumers read C and call Cancel when done; producers call Send and Finish.
type Subscription struct {
	samples chan domain.PositionSample
	ctx     context.Context
	cancel  context.CancelFunc

	finishOnce sync.Once
	mu         sync.Mutex
	err        error
}

// NewSubscription creates a subscription bound to parent. The returned
// context is cancelled when the subscription is; producers should stop on it.
func NewSubscription(parent context.Context) (*Subscription, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Subscription{
		samples: make(chan domain.PositionSample),
		ctx:     ctx,
		cancel:  cancel,
	}, ctx
}

// C returns the sample channel. It is closed once the producer finishes.
func (s *Subscription) C() <-chan domain.PositionSample {
	return s.samples
}

// Cancel stops delivery. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Done is closed when the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Err reports why the producer stopped, or nil after a clean cancel.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Send blocks until the sample is delivered or the subscription is
// cancelled. It returns false once no more samples should be sent.
func (s *Subscription) Send(sample domain.PositionSample) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}

	select {
	case <-s.ctx.Done():
		return false
	case s.samples <- sample:
		return true
	}
}

// Finish closes the sample channel and records err. Only the producer may
// call it; later calls are ignored.
func (s *Subscription) Finish(err error) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.samples)
		s.cancel()
	})
}

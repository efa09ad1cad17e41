// Package radio manages the connection to the wearable.
package radio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNotConnected is returned by Send when no wearable is connected.
	ErrNotConnected = errors.New("radio: not connected")
	// ErrConnectAborted is returned by Connect when Disconnect ran while the
	// connection was still being established.
	ErrConnectAborted = errors.New("radio: connect aborted by disconnect")
)

// Link is a short-range wireless connection to a single device, keyed by the
// service and characteristic of its Profile.
type Link interface {
	// Connect discovers and connects to the device, returning its address.
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context) error
	Write(ctx context.Context, payload []byte) error
	Notify(ctx context.Context, handler func([]byte)) error
	StopNotify(ctx context.Context) error
}

// Status is the user-facing connection state.
type Status string

const (
	StatusDisconnected Status = "Disconnected"
	StatusConnecting   Status = "Connecting..."
	StatusConnected    Status = "Connected"
	StatusFailed       Status = "Connection Failed"
)

// State is a copy of the session for status reporting.
type State struct {
	Status      Status               `json:"status"`
	SessionID   string               `json:"session_id,omitempty"`
	Device      string               `json:"device,omitempty"`
	ConnectedAt time.Time            `json:"connected_at,omitzero"`
	Accel       *domain.AccelReading `json:"accel,omitempty"`
	AccelAt     time.Time            `json:"accel_at,omitzero"`
	LastError   string               `json:"last_error,omitempty"`
}

// Session owns the single wearable connection and everything learned from
// it. Methods are safe for concurrent use.
type Session struct {
	link    Link
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	state State
	// gen advances on every Disconnect so an in-flight Connect can tell it
	// has been superseded.
	gen uint64
}

// NewSession creates a disconnected session.
func NewSession(link Link, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Session{
		link:    link,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
		state:   State{Status: StatusDisconnected},
	}
}

// Connect connects to the wearable and subscribes to its notifications.
// It is a no-op while a connection exists or is being established.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Status == StatusConnected || s.state.Status == StatusConnecting {
		s.mu.Unlock()
		return nil
	}
	s.state = State{Status: StatusConnecting}
	gen := s.gen
	s.mu.Unlock()

	device, err := s.link.Connect(ctx)
	if err != nil {
		s.logger.Error("connection failed", "error", err)
		s.metrics.RadioConnects.WithLabelValues("error").Inc()
		s.mu.Lock()
		if s.gen == gen {
			s.state = State{Status: StatusFailed, LastError: err.Error()}
		}
		s.mu.Unlock()
		return fmt.Errorf("connect wearable: %w", err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.logger.Info("connect superseded by disconnect", "device", device)
		if err := s.link.Disconnect(ctx); err != nil {
			s.logger.Warn("error during disconnect", "step", "disconnect", "device", device, "error", err)
		}
		s.metrics.RadioConnects.WithLabelValues("aborted").Inc()
		return ErrConnectAborted
	}
	s.state = State{
		Status:      StatusConnected,
		SessionID:   uuid.NewString(),
		Device:      device,
		ConnectedAt: s.clock.Now(),
	}
	sessionID := s.state.SessionID
	s.mu.Unlock()

	s.metrics.RadioConnects.WithLabelValues("success").Inc()
	s.metrics.RadioConnected.Set(1)
	s.logger.Info("wearable connected", "device", device, "session_id", sessionID)

	if err := s.link.Notify(ctx, s.handleNotification); err != nil {
		s.logger.Warn("enable notifications failed", "device", device, "error", err)
	}
	return nil
}

// Disconnect tears the connection down best-effort. The session always
// ends Disconnected; link errors are only logged.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	wasConnected := s.state.Status == StatusConnected
	device := s.state.Device
	s.gen++
	s.mu.Unlock()

	if wasConnected {
		if err := s.link.StopNotify(ctx); err != nil {
			s.logger.Warn("error during disconnect", "step", "stop_notify", "device", device, "error", err)
		}
		if err := s.link.Disconnect(ctx); err != nil {
			s.logger.Warn("error during disconnect", "step", "disconnect", "device", device, "error", err)
		}
		s.logger.Info("wearable disconnected", "device", device)
	}

	s.mu.Lock()
	s.state = State{Status: StatusDisconnected}
	s.mu.Unlock()
	s.metrics.RadioConnected.Set(0)
}

// Send writes payload to the wearable once. There is no retry: a failed
// write is reported to the caller and the sample is lost.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	if !s.Connected() {
		return ErrNotConnected
	}

	start := s.clock.Now()
	err := s.link.Write(ctx, payload)
	s.metrics.RadioSendDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		s.metrics.RadioSends.WithLabelValues("error").Inc()
		return fmt.Errorf("write to wearable: %w", err)
	}
	s.metrics.RadioSends.WithLabelValues("success").Inc()
	return nil
}

// Connected reports whether a wearable is currently connected.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status == StatusConnected
}

// State returns a copy of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.Accel != nil {
		a := *st.Accel
		st.Accel = &a
	}
	return st
}

func (s *Session) handleNotification(buf []byte) {
	reading, err := domain.ParseAccelReading(buf)
	if err != nil {
		s.metrics.RadioNotifications.WithLabelValues("invalid").Inc()
		s.logger.Warn("error parsing notification", "error", err, "bytes", len(buf))
		return
	}
	s.metrics.RadioNotifications.WithLabelValues("parsed").Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusConnected {
		return
	}
	s.state.Accel = &reading
	s.state.AccelAt = s.clock.Now()
}

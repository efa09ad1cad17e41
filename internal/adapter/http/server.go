package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/couchcryptid/watchlink/internal/feed"
	"github.com/couchcryptid/watchlink/internal/overlay"
	"github.com/couchcryptid/watchlink/internal/radio"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OverlayView is the map state served to clients.
type OverlayView interface {
	Snapshot() overlay.Snapshot
	TogglePointLayer() bool
}

// RadioController drives the wearable session.
type RadioController interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context)
	State() radio.State
}

// FeedReloader reloads the point feed on demand.
type FeedReloader interface {
	Load(ctx context.Context) (domain.FeedResult, error)
	Status() feed.Status
}

// SampleHistory exposes the last processed fix.
type SampleHistory interface {
	LastRecord() (domain.SampleRecord, bool)
}

// Deps are the components behind the API routes. Radio may be nil when the
// wearable link is disabled.
type Deps struct {
	Ready   sharedobs.ReadinessChecker
	Overlay OverlayView
	Radio   RadioController
	Feed    FeedReloader
	Samples SampleHistory
}

// Server exposes health, readiness, metrics and the map/radio API.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// the /api routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second, // radio connect includes a device scan
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/overlay", s.handleOverlay)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/layer/toggle", s.handleToggleLayer)
	mux.HandleFunc("POST /api/radio/connect", s.handleRadioConnect)
	mux.HandleFunc("POST /api/radio/disconnect", s.handleRadioDisconnect)
	mux.HandleFunc("POST /api/feed/reload", s.handleFeedReload)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleOverlay(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(s.deps.Overlay.Snapshot().GeoJSON()); err != nil {
		s.logger.Warn("write overlay response failed", "error", err)
	}
}

type viewStatus struct {
	Center        *domain.Coordinate `json:"center,omitempty"`
	Zoom          int                `json:"zoom"`
	MaxZoom       int                `json:"max_zoom"`
	TileURL       string             `json:"tile_url"`
	PointsVisible bool               `json:"points_visible"`
	Points        int                `json:"points"`
}

type statusResponse struct {
	Radio   radio.State          `json:"radio"`
	LastFix *domain.SampleRecord `json:"last_fix,omitempty"`
	Feed    feed.Status          `json:"feed"`
	View    viewStatus           `json:"view"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.Overlay.Snapshot()
	resp := statusResponse{
		Radio: radio.State{Status: radio.StatusDisconnected},
		Feed:  s.deps.Feed.Status(),
		View: viewStatus{
			Center:        snap.Center,
			Zoom:          snap.Zoom,
			MaxZoom:       snap.MaxZoom,
			TileURL:       snap.TileURL,
			PointsVisible: snap.PointsVisible,
			Points:        len(snap.Points),
		},
	}
	if s.deps.Radio != nil {
		resp.Radio = s.deps.Radio.State()
	}
	if rec, ok := s.deps.Samples.LastRecord(); ok {
		resp.LastFix = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleToggleLayer(w http.ResponseWriter, _ *http.Request) {
	visible := s.deps.Overlay.TogglePointLayer()
	writeJSON(w, http.StatusOK, map[string]bool{"points_visible": visible})
}

func (s *Server) handleRadioConnect(w http.ResponseWriter, r *http.Request) {
	if s.deps.Radio == nil {
		writeError(w, http.StatusServiceUnavailable, "radio link disabled")
		return
	}
	if err := s.deps.Radio.Connect(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Radio.State())
}

func (s *Server) handleRadioDisconnect(w http.ResponseWriter, r *http.Request) {
	if s.deps.Radio == nil {
		writeError(w, http.StatusServiceUnavailable, "radio link disabled")
		return
	}
	s.deps.Radio.Disconnect(r.Context())
	writeJSON(w, http.StatusOK, s.deps.Radio.State())
}

func (s *Server) handleFeedReload(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Feed.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"rows":    result.Rows,
		"points":  len(result.Records),
		"dropped": result.Dropped,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

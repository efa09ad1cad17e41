// Package overlay holds the state a map surface renders: the intensity-coded
// point layer loaded from the feed and the live position marker.
package overlay

import (
	"sync"
	"time"

	"github.com/couchcryptid/watchlink/internal/domain"
)

// Marker styling shared by every point-layer marker.
const (
	MarkerRadius      = 4
	MarkerWeight      = 2
	MarkerFillOpacity = 0.8

	DefaultZoom    = 15
	MaxZoom        = 19
	DefaultTileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
)

// Marker is a circle marker stroked and filled with the record color.
type Marker struct {
	Coordinate  domain.Coordinate  `json:"coordinate"`
	Intensity   float64            `json:"intensity"`
	Color       domain.RenderColor `json:"color"`
	Label       string             `json:"label"`
	Radius      int                `json:"radius"`
	Weight      int                `json:"weight"`
	FillOpacity float64            `json:"fill_opacity"`
}

// MarkerFromRecord styles a feed record for the point layer.
func MarkerFromRecord(rec domain.PointRecord) Marker {
	return Marker{
		Coordinate:  rec.Coordinate,
		Intensity:   rec.Intensity,
		Color:       rec.Color,
		Label:       rec.DisplayLabel(),
		Radius:      MarkerRadius,
		Weight:      MarkerWeight,
		FillOpacity: MarkerFillOpacity,
	}
}

// LiveMarker is the rotating arrow that tracks the current position.
type LiveMarker struct {
	Coordinate domain.Coordinate `json:"coordinate"`
	Heading    float64           `json:"heading"`
	Accuracy   float64           `json:"accuracy"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Snapshot is a point-in-time copy of the overlay.
type Snapshot struct {
	Points        []Marker           `json:"points"`
	PointsVisible bool               `json:"points_visible"`
	Live          *LiveMarker        `json:"live,omitempty"`
	Center        *domain.Coordinate `json:"center,omitempty"`
	Zoom          int                `json:"zoom"`
	MaxZoom       int                `json:"max_zoom"`
	TileURL       string             `json:"tile_url"`
	FeedLoadedAt  time.Time          `json:"feed_loaded_at,omitzero"`
}

// Overlay is safe for concurrent use. The point layer is replaced as a
// whole on every feed load; only the live marker is updated in place.
type Overlay struct {
	tileURL string

	mu            sync.RWMutex
	points        []Marker
	pointsVisible bool
	live          *LiveMarker
	feedLoadedAt  time.Time
}

// New creates an overlay with the point layer shown.
func New(tileURL string) *Overlay {
	if tileURL == "" {
		tileURL = DefaultTileURL
	}
	return &Overlay{tileURL: tileURL, pointsVisible: true}
}

// SetPointLayer replaces the point layer with markers for records.
func (o *Overlay) SetPointLayer(records []domain.PointRecord, loadedAt time.Time) {
	markers := make([]Marker, len(records))
	for i, rec := range records {
		markers[i] = MarkerFromRecord(rec)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.points = markers
	o.feedLoadedAt = loadedAt
}

// TogglePointLayer flips point layer visibility and returns the new state.
func (o *Overlay) TogglePointLayer() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pointsVisible = !o.pointsVisible
	return o.pointsVisible
}

// ShowPointLayer sets point layer visibility.
func (o *Overlay) ShowPointLayer(visible bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pointsVisible = visible
}

// UpdateLivePosition moves the live marker and recenters the viewport on it.
func (o *Overlay) UpdateLivePosition(s domain.PositionSample) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.live = &LiveMarker{
		Coordinate: s.Coordinate,
		Heading:    s.HeadingOrZero(),
		Accuracy:   s.Accuracy,
		UpdatedAt:  s.Timestamp,
	}
}

// Snapshot copies the current overlay state. The viewport center follows
// the live marker and is nil until the first fix arrives.
func (o *Overlay) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	snap := Snapshot{
		Points:        append([]Marker(nil), o.points...),
		PointsVisible: o.pointsVisible,
		Zoom:          DefaultZoom,
		MaxZoom:       MaxZoom,
		TileURL:       o.tileURL,
		FeedLoadedAt:  o.feedLoadedAt,
	}
	if o.live != nil {
		live := *o.live
		center := live.Coordinate
		snap.Live = &live
		snap.Center = &center
	}
	return snap
}

package location

import (
	"context"
	"math"
	"time"

	"github.com/couchcryptid/watchlink/internal/domain"
	"github.com/jonboulle/clockwork"
)

const metersPerDegree = 111_320.0

// SimConfig describes a simulated walker on a figure-eight track.
type SimConfig struct {
	CenterLat float64
	CenterLon float64
	RadiusM   float64       // defaults to 150 m
	Period    time.Duration // one lap; defaults to 10 minutes
	Interval  time.Duration // fix interval; defaults to 1 second
	Accuracy  float64       // reported accuracy in meters; defaults to 5
}

// SimSource emits deterministic fixes for development and tests.
type SimSource struct {
	cfg   SimConfig
	clock clockwork.Clock
}

// NewSimSource applies defaults to cfg. A nil clock uses real time.
func NewSimSource(cfg SimConfig, clock clockwork.Clock) *SimSource {
	if cfg.RadiusM <= 0 {
		cfg.RadiusM = 150
	}
	if cfg.Period <= 0 {
		cfg.Period = 10 * time.Minute
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Accuracy <= 0 {
		cfg.Accuracy = 5
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SimSource{cfg: cfg, clock: clock}
}

// Subscribe emits one fix per interval until the subscription is cancelled.
func (s *SimSource) Subscribe(ctx context.Context) (*Subscription, error) {
	sub, subCtx := NewSubscription(ctx)

	go func() {
		defer sub.Finish(nil)

		ticker := s.clock.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-subCtx.Done():
				return
			case now := <-ticker.Chan():
				if !sub.Send(s.Sample(now)) {
					return
				}
			}
		}
	}()

	return sub, nil
}

// Sample returns the simulated fix at now.
func (s *SimSource) Sample(now time.Time) domain.PositionSample {
	lat, lon, heading, speed := s.kinematics(now)
	alt := 35.0
	return domain.PositionSample{
		Coordinate: domain.Coordinate{Lat: lat, Lon: lon},
		Altitude:   &alt,
		Accuracy:   s.cfg.Accuracy,
		Heading:    &heading,
		Speed:      &speed,
		Timestamp:  now,
	}
}

// kinematics traces a Lissajous figure-eight that stays within RadiusM:
//
//	x = cos(2πt)   y = 0.5·sin(4πt)
func (s *SimSource) kinematics(now time.Time) (lat, lon, heading, speed float64) {
	period := s.cfg.Period
	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	w := 2 * math.Pi * phase

	x := math.Cos(w)
	y := 0.5 * math.Sin(2*w)

	radiusDeg := s.cfg.RadiusM / metersPerDegree
	lat = s.cfg.CenterLat + radiusDeg*y
	lon = s.cfg.CenterLon + (radiusDeg*x)/math.Cos(s.cfg.CenterLat*math.Pi/180)

	// Velocity in track units per lap; atan2(east, north) gives heading.
	vx := -math.Sin(w)
	vy := math.Cos(2 * w)
	heading = math.Mod(math.Atan2(vx, vy)*180/math.Pi+360, 360)

	angular := 2 * math.Pi / period.Seconds()
	speed = s.cfg.RadiusM * angular * math.Hypot(vx, vy)
	return lat, lon, heading, speed
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// PositionSample is one fix delivered by a location source. Optional
// metadata is nil when the source did not report it.
type PositionSample struct {
	Coordinate
	Altitude         *float64  `json:"altitude,omitempty"`          // meters
	Accuracy         float64   `json:"accuracy"`                    // meters
	AltitudeAccuracy *float64  `json:"altitude_accuracy,omitempty"` // meters
	Heading          *float64  `json:"heading,omitempty"`           // degrees clockwise from true north
	Speed            *float64  `json:"speed,omitempty"`             // meters per second
	Timestamp        time.Time `json:"timestamp"`
}

// Validate rejects fixes whose coordinates are non-finite or out of range.
func (s PositionSample) Validate() error {
	if math.IsNaN(s.Lat) || math.IsInf(s.Lat, 0) || s.Lat < -90 || s.Lat > 90 {
		return fmt.Errorf("invalid latitude %v", s.Lat)
	}
	if math.IsNaN(s.Lon) || math.IsInf(s.Lon, 0) || s.Lon < -180 || s.Lon > 180 {
		return fmt.Errorf("invalid longitude %v", s.Lon)
	}
	return nil
}

// HeadingOrZero returns the heading, or 0 when the source reported none.
func (s PositionSample) HeadingOrZero() float64 {
	if s.Heading == nil {
		return 0
	}
	return *s.Heading
}

// SpeedKMH converts the reported speed to km/h. The second result is false
// when no speed was reported.
func (s PositionSample) SpeedKMH() (float64, bool) {
	if s.Speed == nil {
		return 0, false
	}
	return *s.Speed * 3.6, true
}

// EncodeSampleCSV renders the wire payload written to the wearable:
//
//	lat,lon,altitude,accuracy,altitudeAccuracy,heading,speed,unixMillis
//
// Unreported values are written as 0.
func EncodeSampleCSV(s PositionSample) string {
	fields := []string{
		formatFloat(s.Lat),
		formatFloat(s.Lon),
		formatOptional(s.Altitude),
		formatFloat(s.Accuracy),
		formatOptional(s.AltitudeAccuracy),
		formatOptional(s.Heading),
		formatOptional(s.Speed),
		strconv.FormatInt(s.Timestamp.UnixMilli(), 10),
	}
	return strings.Join(fields, ",")
}

// DecodeSample unmarshals and validates a JSON position sample.
func DecodeSample(data []byte) (PositionSample, error) {
	var s PositionSample
	if err := json.Unmarshal(data, &s); err != nil {
		return PositionSample{}, fmt.Errorf("decode position sample: %w", err)
	}
	if err := s.Validate(); err != nil {
		return PositionSample{}, fmt.Errorf("decode position sample: %w", err)
	}
	return s, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "0"
	}
	return formatFloat(*v)
}

// ErrEmptyNotification is returned for zero-length notification payloads.
var ErrEmptyNotification = errors.New("empty notification payload")

// AccelReading is the accelerometer triple the wearable notifies as JSON.
type AccelReading struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (a AccelReading) String() string {
	return fmt.Sprintf("x:%s y:%s z:%s", formatFloat(a.X), formatFloat(a.Y), formatFloat(a.Z))
}

// ParseAccelReading decodes a notification payload such as {"x":0.1,"y":-0.2,"z":9.8}.
func ParseAccelReading(data []byte) (AccelReading, error) {
	if len(data) == 0 {
		return AccelReading{}, ErrEmptyNotification
	}
	var a AccelReading
	if err := json.Unmarshal(data, &a); err != nil {
		return AccelReading{}, fmt.Errorf("parse accel notification: %w", err)
	}
	return a, nil
}

// SampleRecord is a processed position sample together with the wearable
// session context at the time it was handled. It is the payload published
// to sample sinks.
type SampleRecord struct {
	Sample      PositionSample `json:"sample"`
	SessionID   string         `json:"session_id,omitempty"`
	Accel       *AccelReading  `json:"accel,omitempty"`
	PlaceName   string         `json:"place_name,omitempty"`
	GeoSource   string         `json:"geo_source,omitempty"` // "reverse", "original", "failed"
	ProcessedAt time.Time      `json:"processed_at"`
}

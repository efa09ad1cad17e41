package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate is a WGS-84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PointRecord is one renderable row from a point feed. Color is always
// derived from Intensity by the parser's ramp.
type PointRecord struct {
	Coordinate Coordinate  `json:"coordinate"`
	Intensity  float64     `json:"intensity"`
	Label      string      `json:"label"`
	Color      RenderColor `json:"color"`
}

// DisplayLabel returns the label, or "lat, lon, intensity" rounded to three
// decimals when the feed supplied no label text.
func (p PointRecord) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	return fmt.Sprintf("%.3f, %.3f, %.3f", p.Coordinate.Lat, p.Coordinate.Lon, p.Intensity)
}

// FeedResult holds the records parsed from a feed along with row accounting.
type FeedResult struct {
	Records []PointRecord
	Rows    int // non-blank data lines examined
	Dropped int // rows rejected for missing fields or bad coordinates
}

// FeedParser converts line-oriented point feeds into PointRecords.
// The zero value uses RampLinear.
type FeedParser struct {
	Ramp Ramp
}

// ParseFeed parses raw feed text with the linear ramp.
func ParseFeed(raw string) []PointRecord {
	return FeedParser{}.Parse(raw).Records
}

// Parse never fails: malformed rows are counted and skipped.
func (p FeedParser) Parse(raw string) FeedResult {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	res := FeedResult{Records: make([]PointRecord, 0, len(lines)-1)}

	// lines[0] is the header.
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		res.Rows++

		rec, ok := p.parseLine(line)
		if !ok {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// parseLine splits a row into lat, lon, value and label fragments. A
// non-numeric value column is folded into the label instead.
func (p FeedParser) parseLine(line string) (PointRecord, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return PointRecord{}, false
	}

	lat, ok := parseFiniteFloat(fields[0])
	if !ok {
		return PointRecord{}, false
	}
	lon, ok := parseFiniteFloat(fields[1])
	if !ok {
		return PointRecord{}, false
	}

	var intensity float64
	var label string
	if v, ok := parseValue(fields[2]); ok {
		intensity = ClampIntensity(v)
		label = strings.Join(fields[3:], ",")
	} else {
		label = strings.Join(fields[2:], ",")
	}

	return PointRecord{
		Coordinate: Coordinate{Lat: lat, Lon: lon},
		Intensity:  intensity,
		Label:      strings.TrimSpace(label),
		Color:      p.Ramp.Map(intensity),
	}, true
}

func parseFiniteFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseValue accepts any number, including out-of-range ones that overflow to
// ±Inf; those are clamped like every other value. Textual NaN and infinity
// tokens are not numbers and fall through to the label.
func parseValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	switch {
	case err != nil && !errors.Is(err, strconv.ErrRange):
		return 0, false
	case math.IsNaN(v):
		return 0, false
	case math.IsInf(v, 0) && err == nil:
		return 0, false
	}
	return v, true
}

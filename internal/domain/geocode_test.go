package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord() SampleRecord {
	return SampleRecord{
		Sample: PositionSample{Coordinate: Coordinate{Lat: 30.2672, Lon: -97.7431}},
	}
}

// --- tests ---

func TestEnrichWithGeocoding_NilGeocoder(t *testing.T) {
	result := EnrichWithGeocoding(context.Background(), testRecord(), nil, discardLogger())

	assert.Empty(t, result.GeoSource)
	assert.Empty(t, result.PlaceName)
}

func TestEnrichWithGeocoding_Reverse(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{
			FormattedAddress: "Austin, Travis County, Texas",
			PlaceName:        "Austin",
			Confidence:       0.98,
		},
	}

	result := EnrichWithGeocoding(context.Background(), testRecord(), geo, discardLogger())

	assert.Equal(t, "Austin", result.PlaceName)
	assert.Equal(t, "reverse", result.GeoSource)
	assert.Equal(t, 1, geo.calls)
}

func TestEnrichWithGeocoding_FallsBackToFormattedAddress(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{FormattedAddress: "Travis County, Texas"},
	}

	result := EnrichWithGeocoding(context.Background(), testRecord(), geo, discardLogger())

	assert.Equal(t, "Travis County, Texas", result.PlaceName)
}

func TestEnrichWithGeocoding_Error_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("rate limited")}

	result := EnrichWithGeocoding(context.Background(), testRecord(), geo, discardLogger())

	assert.Equal(t, "failed", result.GeoSource)
	assert.Empty(t, result.PlaceName)
	assert.Equal(t, 30.2672, result.Sample.Lat) // original coordinates preserved
}

func TestEnrichWithGeocoding_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{}

	result := EnrichWithGeocoding(context.Background(), testRecord(), geo, discardLogger())

	assert.Equal(t, "original", result.GeoSource)
	assert.Empty(t, result.PlaceName)
}

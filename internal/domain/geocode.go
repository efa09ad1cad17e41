package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding attempts to attach a place name to a sample record.
// If geocoder is nil or geocoding fails, the record is returned with
// GeoSource set accordingly (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, rec SampleRecord, geocoder ReverseGeocoder, logger *slog.Logger) SampleRecord {
	if geocoder == nil {
		return rec
	}

	result, err := geocoder.ReverseGeocode(ctx, rec.Sample.Lat, rec.Sample.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", rec.Sample.Lat,
			"lon", rec.Sample.Lon,
			"error", err,
		)
		rec.GeoSource = "failed"
		return rec
	}
	if result.FormattedAddress == "" {
		rec.GeoSource = "original"
		return rec
	}

	rec.PlaceName = result.PlaceName
	if rec.PlaceName == "" {
		rec.PlaceName = result.FormattedAddress
	}
	rec.GeoSource = "reverse"
	return rec
}

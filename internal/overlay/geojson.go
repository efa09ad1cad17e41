package overlay

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON point feature.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry is a GeoJSON point geometry.
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

// GeoJSON renders the visible point layer followed by the live marker.
func (s Snapshot) GeoJSON() FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}

	if s.PointsVisible {
		for _, m := range s.Points {
			fc.Features = append(fc.Features, Feature{
				Type:     "Feature",
				Geometry: point(m.Coordinate.Lon, m.Coordinate.Lat),
				Properties: map[string]any{
					"kind":         "point",
					"label":        m.Label,
					"intensity":    m.Intensity,
					"color":        m.Color.String(),
					"fill_color":   m.Color.String(),
					"radius":       m.Radius,
					"weight":       m.Weight,
					"fill_opacity": m.FillOpacity,
				},
			})
		}
	}

	if s.Live != nil {
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: point(s.Live.Coordinate.Lon, s.Live.Coordinate.Lat),
			Properties: map[string]any{
				"kind":       "live",
				"heading":    s.Live.Heading,
				"accuracy":   s.Live.Accuracy,
				"updated_at": s.Live.UpdatedAt,
			},
		})
	}

	return fc
}

func point(lon, lat float64) Geometry {
	return Geometry{Type: "Point", Coordinates: []float64{lon, lat}}
}

package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestEncodeSampleCSV_AllFields(t *testing.T) {
	s := PositionSample{
		Coordinate:       Coordinate{Lat: 37.774929, Lon: -122.419416},
		Altitude:         ptr(12.5),
		Accuracy:         4,
		AltitudeAccuracy: ptr(3.25),
		Heading:          ptr(270),
		Speed:            ptr(1.5),
		Timestamp:        time.UnixMilli(1718000000123),
	}

	assert.Equal(t, "37.774929,-122.419416,12.5,4,3.25,270,1.5,1718000000123", EncodeSampleCSV(s))
}

func TestEncodeSampleCSV_MissingValuesWrittenAsZero(t *testing.T) {
	s := PositionSample{
		Coordinate: Coordinate{Lat: 1, Lon: 2},
		Accuracy:   10,
		Timestamp:  time.UnixMilli(42),
	}

	assert.Equal(t, "1,2,0,10,0,0,0,42", EncodeSampleCSV(s))
}

func TestPositionSample_Validate(t *testing.T) {
	valid := PositionSample{Coordinate: Coordinate{Lat: 45, Lon: 90}}
	require.NoError(t, valid.Validate())

	cases := []Coordinate{
		{Lat: 91, Lon: 0},
		{Lat: -91, Lon: 0},
		{Lat: 0, Lon: 181},
		{Lat: math.NaN(), Lon: 0},
		{Lat: 0, Lon: math.Inf(1)},
	}
	for _, c := range cases {
		assert.Error(t, PositionSample{Coordinate: c}.Validate(), "%+v", c)
	}
}

func TestPositionSample_SpeedAndHeading(t *testing.T) {
	s := PositionSample{}
	_, ok := s.SpeedKMH()
	assert.False(t, ok)
	assert.Zero(t, s.HeadingOrZero())

	s.Speed = ptr(10)
	s.Heading = ptr(45)
	kmh, ok := s.SpeedKMH()
	assert.True(t, ok)
	assert.InEpsilon(t, 36.0, kmh, 1e-9)
	assert.Equal(t, 45.0, s.HeadingOrZero())
}

func TestDecodeSample(t *testing.T) {
	s, err := DecodeSample([]byte(`{"lat":10.5,"lon":-20.25,"accuracy":5,"heading":90,"timestamp":"2024-04-26T15:10:00Z"}`))
	require.NoError(t, err)

	assert.Equal(t, 10.5, s.Lat)
	assert.Equal(t, -20.25, s.Lon)
	assert.Equal(t, 5.0, s.Accuracy)
	require.NotNil(t, s.Heading)
	assert.Equal(t, 90.0, *s.Heading)
	assert.Nil(t, s.Speed)
	assert.Equal(t, time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC), s.Timestamp)
}

func TestDecodeSample_Invalid(t *testing.T) {
	_, err := DecodeSample([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeSample([]byte(`{"lat":100,"lon":0}`))
	assert.Error(t, err)
}

func TestParseAccelReading(t *testing.T) {
	a, err := ParseAccelReading([]byte(`{"x":0.1,"y":-0.2,"z":9.81}`))
	require.NoError(t, err)
	assert.Equal(t, AccelReading{X: 0.1, Y: -0.2, Z: 9.81}, a)
	assert.Equal(t, "x:0.1 y:-0.2 z:9.81", a.String())
}

func TestParseAccelReading_Errors(t *testing.T) {
	_, err := ParseAccelReading(nil)
	assert.ErrorIs(t, err, ErrEmptyNotification)

	_, err = ParseAccelReading([]byte("{x:1"))
	assert.Error(t, err)
}

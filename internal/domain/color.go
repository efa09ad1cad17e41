package domain

import (
	"fmt"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RenderColor is an sRGB triple rendered as a CSS-style "rgb(r,g,b)" string.
type RenderColor struct {
	R uint8
	G uint8
	B uint8
}

func (c RenderColor) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// MarshalText serializes the color in its CSS form so JSON payloads carry "rgb(r,g,b)".
func (c RenderColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Ramp selects the severity ramp used to color intensities.
type Ramp int

const (
	// RampLinear is a single green→red segment: r=round(255v), g=round(255(1-v)).
	RampLinear Ramp = iota
	// RampTrafficLight is a two-segment green→yellow→red ramp with its midpoint at 0.5.
	RampTrafficLight
)

var (
	rampGreen  = colorful.Color{R: 0, G: 1, B: 0}
	rampYellow = colorful.Color{R: 1, G: 1, B: 0}
	rampRed    = colorful.Color{R: 1, G: 0, B: 0}
)

// ParseRamp resolves a ramp name. An empty name selects RampLinear.
func ParseRamp(name string) (Ramp, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "linear":
		return RampLinear, nil
	case "traffic-light", "green-yellow-red":
		return RampTrafficLight, nil
	default:
		return RampLinear, fmt.Errorf("unknown color ramp %q", name)
	}
}

func (r Ramp) String() string {
	if r == RampTrafficLight {
		return "traffic-light"
	}
	return "linear"
}

// ClampIntensity forces v into [0,1]. NaN maps to 0; infinities clamp to the nearest bound.
func ClampIntensity(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}

// MapColor maps an intensity onto the linear green→red ramp.
func MapColor(v float64) RenderColor {
	return RampLinear.Map(v)
}

// Map clamps v and interpolates it across the ramp. Channels are rounded
// half-up, which for the non-negative products involved is the same as
// rounding half away from zero.
func (r Ramp) Map(v float64) RenderColor {
	v = ClampIntensity(v)

	var c colorful.Color
	switch r {
	case RampTrafficLight:
		if v <= 0.5 {
			c = rampGreen.BlendRgb(rampYellow, v/0.5)
		} else {
			c = rampYellow.BlendRgb(rampRed, (v-0.5)/0.5)
		}
	default:
		c = rampGreen.BlendRgb(rampRed, v)
	}

	red, green, blue := c.RGB255()
	return RenderColor{R: red, G: green, B: blue}
}

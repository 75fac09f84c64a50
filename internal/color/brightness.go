package color

import "math"

// Scaler dims a mapped color according to ambient light.
type Scaler struct {
	// FullScaleLux is the reading treated as full brightness.
	FullScaleLux float64
	// Floor keeps the actuator lit in darkness.
	Floor float64
}

var DefaultScaler = Scaler{FullScaleLux: 800, Floor: 0.12}

// Factor returns the brightness multiplier in [Floor, 1]. Unknown (NaN or
// non-positive) readings give Floor.
func (s Scaler) Factor(lux float64) float64 {
	if math.IsNaN(lux) || s.FullScaleLux <= 0 {
		return s.Floor
	}
	k := lux / s.FullScaleLux
	if k < s.Floor {
		k = s.Floor
	}
	if k > 1 {
		k = 1
	}
	return k
}

// Scale multiplies every channel by Factor(lux), truncating.
func (s Scaler) Scale(c RGB, lux float64) RGB {
	k := s.Factor(lux)
	return RGB{
		R: uint8(float64(c.R) * k),
		G: uint8(float64(c.G) * k),
		B: uint8(float64(c.B) * k),
	}
}

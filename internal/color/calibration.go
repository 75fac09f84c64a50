package color

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidBounds = errors.New("invalid calibration bounds")

// Frequencies holds one averaged sensor frequency (Hz) per color filter.
// A zero value means no pulse was observed for that filter.
type Frequencies struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Bounds is the calibrated frequency range of a single channel.
type Bounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (b Bounds) Validate() error {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min < 0 || b.Max <= b.Min {
		return fmt.Errorf("%w: min=%v max=%v", ErrInvalidBounds, b.Min, b.Max)
	}
	return nil
}

// Calibration holds the per-channel bounds. It is read once at startup and
// never modified afterwards.
type Calibration struct {
	Red   Bounds `yaml:"red"`
	Green Bounds `yaml:"green"`
	Blue  Bounds `yaml:"blue"`
}

var DefaultCalibration = Calibration{
	Red:   Bounds{Min: 200, Max: 2500},
	Green: Bounds{Min: 200, Max: 2500},
	Blue:  Bounds{Min: 200, Max: 2500},
}

func (c Calibration) Validate() error {
	if err := c.Red.Validate(); err != nil {
		return fmt.Errorf("red: %w", err)
	}
	if err := c.Green.Validate(); err != nil {
		return fmt.Errorf("green: %w", err)
	}
	if err := c.Blue.Validate(); err != nil {
		return fmt.Errorf("blue: %w", err)
	}
	return nil
}

// Map converts the three filter frequencies into channel intensities.
func (c Calibration) Map(f Frequencies) RGB {
	return RGB{
		R: MapFrequency(f.R, c.Red),
		G: MapFrequency(f.G, c.Green),
		B: MapFrequency(f.B, c.Blue),
	}
}

// MapFrequency linearly maps f from the calibrated range onto 0-255.
// A non-positive frequency means the sensor saw nothing and maps to 0.
// The bounds must satisfy Validate.
func MapFrequency(f float64, b Bounds) uint8 {
	if f <= 0 || math.IsNaN(f) {
		return 0
	}
	if f < b.Min {
		f = b.Min
	}
	if f > b.Max {
		f = b.Max
	}

	x := (f - b.Min) / (b.Max - b.Min)
	return Clamp8(int(math.Round(x * 255)))
}

package color

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSV holds hue in degrees [0,360) and saturation/value in [0,1].
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// ToHSV converts an 8-bit color. Achromatic colors get hue 0.
func ToHSV(c RGB) HSV {
	cf := colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
	h, s, v := cf.Hsv()
	if h >= 360 {
		h -= 360
	}
	return HSV{H: h, S: s, V: v}
}

type Label string

const (
	Black   Label = "black"
	White   Label = "white"
	Gray    Label = "gray"
	Red     Label = "red"
	Orange  Label = "orange"
	Yellow  Label = "yellow"
	Green   Label = "green"
	Cyan    Label = "cyan"
	Blue    Label = "blue"
	Violet  Label = "violet"
	Magenta Label = "magenta"
	Unknown Label = "unknown"
)

const (
	blackValue   = 0.08
	grayscaleSat = 0.12
	whiteValue   = 0.85
)

// Classify buckets a color into a named label. Value and saturation are
// checked before hue since hue is meaningless for dark or washed out colors.
func Classify(c HSV) Label {
	if c.V < blackValue {
		return Black
	}
	if c.S < grayscaleSat {
		if c.V > whiteValue {
			return White
		}
		return Gray
	}

	h := c.H
	switch {
	case h >= 0 && h < 15, h >= 345 && h < 360:
		return Red
	case h >= 15 && h < 45:
		return Orange
	case h >= 45 && h < 70:
		return Yellow
	case h >= 70 && h < 170:
		return Green
	case h >= 170 && h < 200:
		return Cyan
	case h >= 200 && h < 255:
		return Blue
	case h >= 255 && h < 290:
		return Violet
	case h >= 290 && h < 345:
		return Magenta
	}
	return Unknown
}

package color

import "fmt"

// RGB is an 8-bit per channel color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Array returns the channels in r, g, b order.
func (c RGB) Array() [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

// Differs reports whether any channel moved by at least delta.
func (c RGB) Differs(o RGB, delta int) bool {
	return absDiff(c.R, o.R) >= delta ||
		absDiff(c.G, o.G) >= delta ||
		absDiff(c.B, o.B) >= delta
}

func (c RGB) String() string {
	return fmt.Sprintf("(%3d,%3d,%3d)", c.R, c.G, c.B)
}

// Clamp8 clamps an integer into the 0-255 channel range.
func Clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func absDiff(a, b uint8) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

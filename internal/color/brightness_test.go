package color

import (
	"math"
	"testing"
)

func TestScalerFactor(t *testing.T) {
	tests := []struct {
		name string
		lux  float64
		want float64
	}{
		{name: "dark_uses_floor", lux: 0, want: 0.12},
		{name: "unknown_uses_floor", lux: math.NaN(), want: 0.12},
		{name: "negative_uses_floor", lux: -1, want: 0.12},
		{name: "half", lux: 400, want: 0.5},
		{name: "full", lux: 800, want: 1},
		{name: "saturates", lux: 20000, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultScaler.Factor(tt.lux); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Factor(%v) = %v, want %v", tt.lux, got, tt.want)
			}
		})
	}
}

func TestScalerScaleTruncates(t *testing.T) {
	got := DefaultScaler.Scale(RGB{255, 101, 1}, 400)
	want := RGB{127, 50, 0}
	if got != want {
		t.Errorf("Scale() = %v, want %v", got, want)
	}

	got = DefaultScaler.Scale(RGB{255, 255, 255}, 0)
	want = RGB{30, 30, 30}
	if got != want {
		t.Errorf("Scale() in darkness = %v, want %v", got, want)
	}
}

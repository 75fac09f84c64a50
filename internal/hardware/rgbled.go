package hardware

import (
	"gobot.io/x/gobot/drivers/gpio"

	"github.com/denwilliams/go-ambient-match/internal/color"
)

type rgbWriter interface {
	SetRGB(r, g, b byte) error
}

// RGBLed implements actuator.Actuator with a PWM driven RGB LED.
type RGBLed struct {
	drv         rgbWriter
	commonAnode bool
}

func NewRGBLed(b *Board, red, green, blue string, commonAnode bool) (*RGBLed, error) {
	drv := gpio.NewRgbLedDriver(b.adaptor, red, green, blue)
	if err := drv.Start(); err != nil {
		return nil, err
	}
	return &RGBLed{drv: drv, commonAnode: commonAnode}, nil
}

func (l *RGBLed) Apply(c color.RGB) error {
	if l.commonAnode {
		c = color.RGB{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B}
	}
	return l.drv.SetRGB(c.R, c.G, c.B)
}

// Package hardware binds the sensor and actuator interfaces to real devices:
// a TCS3200 color sensor, a BH1750 light meter and a PWM RGB LED on a
// Raspberry Pi through gobot, or a LIFX bulb on the LAN.
package hardware

import (
	"fmt"

	"gobot.io/x/gobot/platforms/raspi"

	"github.com/denwilliams/go-ambient-match/internal/logging"
)

// Board is the Raspberry Pi GPIO/I2C connection shared by all devices.
type Board struct {
	adaptor *raspi.Adaptor
}

func OpenBoard() (*Board, error) {
	a := raspi.NewAdaptor()
	if err := a.Connect(); err != nil {
		return nil, fmt.Errorf("raspi connect: %w", err)
	}
	logging.Info("Connected to %s", a.Name())
	return &Board{adaptor: a}, nil
}

func (b *Board) Close() error {
	return b.adaptor.Finalize()
}

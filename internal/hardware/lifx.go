package hardware

import (
	"context"
	"errors"
	"fmt"
	stdcolor "image/color"
	"math"
	"time"

	"go.yhsif.com/lifxlan"
	"go.yhsif.com/lifxlan/light"

	"github.com/denwilliams/go-ambient-match/internal/color"
	"github.com/denwilliams/go-ambient-match/internal/logging"
)

var ErrNotALight = errors.New("lifx: device cannot show colors")

type lifxKind int

const (
	lifxUnknown lifxKind = iota
	lifxLight
	lifxSwitch
)

// classifyLIFX tells lights from relay switches using the product table.
func classifyLIFX(hw *lifxlan.HardwareVersion) lifxKind {
	if hw == nil || hw.VendorID != 1 {
		return lifxUnknown
	}

	product, ok := lifxlan.ProductMap[lifxlan.ProductMapKey(hw.VendorID, hw.ProductID)]
	if !ok {
		return lifxUnknown
	}
	if r := product.Features.Relays; r != nil && *r {
		return lifxSwitch
	}
	return lifxLight
}

// LIFXBulb implements actuator.Actuator by mirroring colors onto a LIFX bulb.
type LIFXBulb struct {
	dev        light.Device
	kelvin     uint16
	transition time.Duration
	timeout    time.Duration
}

// NewLIFXBulb connects to the bulb at addr (host:port). target is the bulb's
// MAC address; empty matches any device at addr.
func NewLIFXBulb(ctx context.Context, addr, target string, kelvin uint16, transition, timeout time.Duration) (*LIFXBulb, error) {
	t := lifxlan.AllDevices
	if target != "" {
		var err error
		if t, err = lifxlan.ParseTarget(target); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := lifxlan.NewDevice(addr, lifxlan.ServiceUDP, t)
	if err := checkLight(ctx, d); err != nil {
		return nil, err
	}

	ld, err := light.Wrap(ctx, d, false)
	if err != nil {
		return nil, err
	}
	if ld == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotALight, addr)
	}
	logging.Info("Using LIFX bulb %s at %s", ld.Target(), addr)

	return &LIFXBulb{dev: ld, kelvin: kelvin, transition: transition, timeout: timeout}, nil
}

func checkLight(ctx context.Context, d lifxlan.Device) error {
	conn, err := d.Dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := d.GetHardwareVersion(ctx, conn); err != nil {
		return fmt.Errorf("lifx hardware version: %w", err)
	}
	hw := d.HardwareVersion()
	switch classifyLIFX(hw) {
	case lifxSwitch:
		return fmt.Errorf("%w: product %d is a relay switch", ErrNotALight, hw.ProductID)
	case lifxUnknown:
		logging.Warn("Unknown LIFX product, assuming it is a light")
	}
	return nil
}

func (b *LIFXBulb) Apply(c color.RGB) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	conn, err := b.dev.Dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	hsbk := lifxlan.FromColor(stdcolor.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}, b.kelvin)
	logging.Debug("LIFX %s brightness %d%%", c, brightnessPercent(hsbk.Brightness))
	return b.dev.SetColor(ctx, conn, hsbk, b.transition, false)
}

func brightnessPercent(value uint16) uint8 {
	return uint8(math.Round(float64(value) / math.MaxUint16 * 100))
}

package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"gobot.io/x/gobot/drivers/i2c"
)

// BH1750 implements sensor.LightMeter. Reads take a lock file so other
// processes sharing the I2C sensor do not interleave with us.
type BH1750 struct {
	drv      *i2c.BH1750Driver
	lock     *flock.Flock
	lockWait time.Duration
}

func NewBH1750(b *Board, bus, address int, lockFile string) (*BH1750, error) {
	drv := i2c.NewBH1750Driver(b.adaptor, i2c.WithBus(bus), i2c.WithAddress(address))
	if err := drv.Start(); err != nil {
		return nil, fmt.Errorf("bh1750 at 0x%x: %w", address, err)
	}

	m := &BH1750{drv: drv, lockWait: 100 * time.Millisecond}
	if lockFile != "" {
		m.lock = flock.New(lockFile)
	}
	return m, nil
}

func (m *BH1750) Lux(ctx context.Context) (float64, error) {
	if m.lock != nil {
		lctx, cancel := context.WithTimeout(ctx, m.lockWait)
		defer cancel()

		locked, err := m.lock.TryLockContext(lctx, 5*time.Millisecond)
		if err != nil {
			return 0, fmt.Errorf("bh1750 lock: %w", err)
		}
		if !locked {
			return 0, fmt.Errorf("bh1750 lock %s busy", m.lock.Path())
		}
		defer m.lock.Unlock()
	}

	lux, err := m.drv.Lux()
	if err != nil {
		return 0, err
	}
	return float64(lux), nil
}

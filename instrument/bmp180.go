package instrument

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/allbin/cleanroom/reading"
)

const (
	BMP180Name = "bmp180"

	DefaultBMP180Address = 0x77
)

type environmentSensor interface {
	Sense(env *physic.Env) error
	Halt() error
}

type bmp180Opener func() (environmentSensor, io.Closer, error)

// BMP180 reads barometric pressure from a Bosch BMP180 on an I2C bus. The
// bus is opened and the chip probed on the first Sample, and again after a
// failed read, so a sensor missing at startup only costs its own field.
type BMP180 struct {
	mu     sync.Mutex
	open   bmp180Opener
	dev    environmentSensor
	bus    io.Closer
	logger *zap.Logger
}

// NewBMP180 returns a BMP180 at addr on the named I2C bus (empty name means
// the first available). No hardware is touched until Sample.
func NewBMP180(busName string, addr uint16, logger *zap.Logger) *BMP180 {
	if addr == 0 {
		addr = DefaultBMP180Address
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	open := func() (environmentSensor, io.Closer, error) {
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("host init: %w", err)
		}
		bus, err := i2creg.Open(busName)
		if err != nil {
			return nil, nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
		}
		dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
		if err != nil {
			bus.Close()
			return nil, nil, fmt.Errorf("probe 0x%02x: %w", addr, err)
		}
		return dev, bus, nil
	}
	return newBMP180(open, logger.With(zap.String("bus", busName), zap.Uint16("address", addr)))
}

func newBMP180(open bmp180Opener, logger *zap.Logger) *BMP180 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BMP180{
		open:   open,
		logger: logger.With(zap.String("instrument", BMP180Name)),
	}
}

func (b *BMP180) Name() string {
	return BMP180Name
}

// Sample returns the pressure in whole pascal
func (b *BMP180) Sample(ctx context.Context) (reading.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return reading.Fragment{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		dev, bus, err := b.open()
		if err != nil {
			return reading.Fragment{}, err
		}
		b.dev, b.bus = dev, bus
		b.logger.Info("sensor opened")
	}

	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		b.release()
		return reading.Fragment{}, err
	}
	pa := int64(env.Pressure / physic.Pascal)
	b.logger.Debug("sampled", zap.Int64("pressure", pa))
	return reading.Fragment{Pressure: reading.Some(pa)}, nil
}

func (b *BMP180) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.release()
}

// release halts the chip and closes the bus; the next Sample reopens both
func (b *BMP180) release() error {
	if b.dev == nil {
		return nil
	}
	err := b.dev.Halt()
	if b.bus != nil {
		if cerr := b.bus.Close(); err == nil {
			err = cerr
		}
	}
	b.dev, b.bus = nil, nil
	return err
}

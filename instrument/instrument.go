// Package instrument drives the sensors of the cleanroom monitor. Every
// driver reports the fields it measures as a reading.Fragment.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/allbin/cleanroom/reading"
	"github.com/allbin/cleanroom/serial"
)

var (
	// ErrParse is returned when an instrument reply holds no usable numbers
	ErrParse = errors.New("unparseable instrument reply")
	// ErrDisabled is returned when building an instrument that is switched off
	ErrDisabled = errors.New("instrument disabled")
	// ErrInvalidOption is returned for out-of-range driver options
	ErrInvalidOption = errors.New("invalid instrument option")
)

// Instrument is one sensor sampled once per cycle
type Instrument interface {
	Name() string
	Sample(ctx context.Context) (reading.Fragment, error)
	Close() error
}

// Config selects and configures the instruments attached to the monitor
type Config struct {
	DHT22  DHT22Config  `mapstructure:"dht22"`
	BMP180 BMP180Config `mapstructure:"bmp180"`
	DC1700 DC1700Config `mapstructure:"dc1700"`
}

type DHT22Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Pin     string `mapstructure:"pin"`
	Retries int    `mapstructure:"retries"`
}

type BMP180Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Bus     string `mapstructure:"bus"`
	Address uint16 `mapstructure:"address"`
}

type DC1700Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	Port            string        `mapstructure:"port"`
	BaudRate        int           `mapstructure:"baud_rate"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"`
	IntegrationTime time.Duration `mapstructure:"integration_time"`
}

// Enabled lists the names of the switched-on instruments
func (c Config) Enabled() []string {
	var names []string
	if c.DHT22.Enabled {
		names = append(names, DHT22Name)
	}
	if c.BMP180.Enabled {
		names = append(names, BMP180Name)
	}
	if c.DC1700.Enabled {
		names = append(names, DC1700Name)
	}
	return names
}

// FromConfig builds the enabled instruments in sampling order: humidity and
// temperature, pressure, then the particle counter with its long integration.
// Hardware is opened on first use, so only invalid settings fail here.
func FromConfig(cfg Config, logger *zap.Logger) ([]Instrument, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var built []Instrument
	fail := func(err error) ([]Instrument, error) {
		for _, inst := range built {
			inst.Close()
		}
		return nil, err
	}

	if cfg.DHT22.Enabled {
		built = append(built, NewDHT22(cfg.DHT22.Pin,
			WithRetries(cfg.DHT22.Retries),
			WithDHT22Logger(logger)))
	}

	if cfg.BMP180.Enabled {
		built = append(built, NewBMP180(cfg.BMP180.Bus, cfg.BMP180.Address, logger))
	}

	if cfg.DC1700.Enabled {
		baud := cfg.DC1700.BaudRate
		if baud == 0 {
			baud = 9600
		}
		port, err := serial.New(cfg.DC1700.Port,
			serial.WithBaudRate(baud),
			serial.WithDataBits(8),
			serial.WithStopBits(1),
			serial.WithParity(serial.ParityNone),
			serial.WithTermination("\r\n"),
		)
		if err != nil {
			return fail(fmt.Errorf("dc1700: %w", err))
		}

		opts := []DC1700Option{WithDC1700Logger(logger)}
		if cfg.DC1700.SettleDelay > 0 {
			opts = append(opts, WithSettleDelay(cfg.DC1700.SettleDelay))
		}
		if cfg.DC1700.IntegrationTime > 0 {
			opts = append(opts, WithIntegrationTime(cfg.DC1700.IntegrationTime))
		}
		d, err := NewDC1700(port, opts...)
		if err != nil {
			return fail(fmt.Errorf("dc1700: %w", err))
		}
		built = append(built, d)
	}

	return built, nil
}

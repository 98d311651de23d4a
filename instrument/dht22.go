package instrument

import (
	"context"
	"fmt"
	"sync"

	"github.com/MichaelS11/go-dht"
	"go.uber.org/zap"

	"github.com/allbin/cleanroom/reading"
)

const (
	DHT22Name = "dht22"

	DefaultDHT22Pin     = "GPIO4"
	DefaultDHT22Retries = 11
)

type humidityThermometer interface {
	ReadRetry(maxRetries int) (humidity float64, temperature float64, err error)
}

type dht22Opener func() (humidityThermometer, error)

// DHT22 reads temperature and relative humidity from a DHT22 on a GPIO pin.
// The GPIO host is initialised on the first Sample and retried on later
// ones until it succeeds.
type DHT22 struct {
	mu      sync.Mutex
	open    dht22Opener
	sensor  humidityThermometer
	pin     string
	retries int
	logger  *zap.Logger
}

type DHT22Option func(*DHT22)

// WithRetries sets how many reads are attempted per sample
func WithRetries(n int) DHT22Option {
	return func(d *DHT22) {
		if n > 0 {
			d.retries = n
		}
	}
}

func WithDHT22Logger(logger *zap.Logger) DHT22Option {
	return func(d *DHT22) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDHT22 returns a DHT22 on pin without touching the GPIO host
func NewDHT22(pin string, opts ...DHT22Option) *DHT22 {
	if pin == "" {
		pin = DefaultDHT22Pin
	}
	open := func() (humidityThermometer, error) {
		if err := dht.HostInit(); err != nil {
			return nil, fmt.Errorf("host init: %w", err)
		}
		return dht.NewDHT(pin, dht.Celsius, "dht22")
	}
	return newDHT22(open, pin, opts...)
}

func newDHT22(open dht22Opener, pin string, opts ...DHT22Option) *DHT22 {
	d := &DHT22{
		open:    open,
		pin:     pin,
		retries: DefaultDHT22Retries,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(zap.String("instrument", DHT22Name), zap.String("pin", pin))
	return d
}

func (d *DHT22) Name() string {
	return DHT22Name
}

func (d *DHT22) Sample(ctx context.Context) (reading.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return reading.Fragment{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sensor == nil {
		sensor, err := d.open()
		if err != nil {
			return reading.Fragment{}, err
		}
		d.sensor = sensor
		d.logger.Info("sensor opened")
	}

	humidity, temperature, err := d.sensor.ReadRetry(d.retries)
	if err != nil {
		return reading.Fragment{}, err
	}
	d.logger.Debug("sampled", zap.Float64("temperature", temperature), zap.Float64("humidity", humidity))
	return reading.Fragment{
		Temperature: reading.Some(temperature),
		Humidity:    reading.Some(humidity),
	}, nil
}

func (d *DHT22) Close() error {
	return nil
}

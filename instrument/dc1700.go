package instrument

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/allbin/cleanroom/reading"
)

const (
	DC1700Name = "dc1700"

	// dc1700Command requests the counts of the last integration
	dc1700Command = "D"

	DefaultSettleDelay     = time.Second
	DefaultIntegrationTime = 60 * time.Second
	minIntegrationTime     = time.Second
)

// SerialPort is the subset of serial.Port the particle counter uses
type SerialPort interface {
	Open() error
	Close() error
	IsOpen() bool
	Name() string
	Write(data []byte) (int, error)
	Read(buf []byte) (int, error)
	BytesWaiting() (int, error)
}

// Counts holds the two particle channels of the Dylos DC1700
type Counts struct {
	Small float64 // particles > 0.5 um
	Large float64 // particles > 2.5 um
}

// DC1700 drives a Dylos DC1700 particle counter. The counter has no prompt
// or flow control: a query waits out the integration time and then takes
// whatever the device has sent.
type DC1700 struct {
	mu          sync.Mutex
	port        SerialPort
	termination string
	settle      time.Duration
	integration time.Duration
	sleep       func(time.Duration)
	logger      *zap.Logger
}

type DC1700Option func(*DC1700) error

// WithSettleDelay sets the pause before the query command is sent
func WithSettleDelay(d time.Duration) DC1700Option {
	return func(c *DC1700) error {
		if d < 0 {
			return ErrInvalidOption
		}
		c.settle = d
		return nil
	}
}

// WithIntegrationTime sets the wait between the command and reading the
// reply. Optical counting needs time; anything under a second is rejected.
func WithIntegrationTime(d time.Duration) DC1700Option {
	return func(c *DC1700) error {
		if d < minIntegrationTime {
			return ErrInvalidOption
		}
		c.integration = d
		return nil
	}
}

// WithTermination overrides the "\r\n" command terminator
func WithTermination(term string) DC1700Option {
	return func(c *DC1700) error {
		if term == "" {
			return ErrInvalidOption
		}
		c.termination = term
		return nil
	}
}

// WithSleep replaces time.Sleep for the settle and integration waits
func WithSleep(sleep func(time.Duration)) DC1700Option {
	return func(c *DC1700) error {
		if sleep == nil {
			return ErrInvalidOption
		}
		c.sleep = sleep
		return nil
	}
}

func WithDC1700Logger(logger *zap.Logger) DC1700Option {
	return func(c *DC1700) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// NewDC1700 wraps port. The port may be closed; it is opened on first use
// and reopened after a transport failure.
func NewDC1700(port SerialPort, opts ...DC1700Option) (*DC1700, error) {
	if port == nil {
		return nil, ErrInvalidOption
	}
	d := &DC1700{
		port:        port,
		termination: "\r\n",
		settle:      DefaultSettleDelay,
		integration: DefaultIntegrationTime,
		sleep:       time.Sleep,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With(zap.String("instrument", DC1700Name), zap.String("port", port.Name()))
	return d, nil
}

func (d *DC1700) Name() string {
	return DC1700Name
}

// Sample reads both particle channels. It blocks for the settle delay plus
// the integration time.
func (d *DC1700) Sample(ctx context.Context) (reading.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return reading.Fragment{}, err
	}
	c, err := d.Counts()
	if err != nil {
		return reading.Fragment{}, err
	}
	return reading.Fragment{
		Count05: reading.Some(c.Small),
		Count25: reading.Some(c.Large),
	}, nil
}

// ReadParticleCounts returns the 0.5 um and 2.5 um counts, or the sentinel
// pair when the device could not be read or its reply did not parse.
func (d *DC1700) ReadParticleCounts() (float64, float64) {
	c, err := d.Counts()
	if err != nil {
		return reading.Sentinel, reading.Sentinel
	}
	return c.Small, c.Large
}

// Counts runs one query and parses the reply
func (d *DC1700) Counts() (Counts, error) {
	resp, err := d.Query(dc1700Command)
	if err != nil {
		return Counts{}, err
	}
	small, large, err := ParseCounts(resp)
	if err != nil {
		d.logger.Warn("unparseable reply", zap.String("reply", resp), zap.Error(err))
		return Counts{}, err
	}
	return Counts{Small: small, Large: large}, nil
}

// Query sends cmd after the settle delay, waits the integration time and
// returns everything buffered by then. There is no polling or timeout.
func (d *DC1700) Query(cmd string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.port.IsOpen() {
		if err := d.port.Open(); err != nil {
			return "", err
		}
		d.logger.Info("port opened")
	}

	d.sleep(d.settle)
	if _, err := d.port.Write([]byte(cmd + d.termination)); err != nil {
		d.port.Close()
		return "", err
	}
	d.sleep(d.integration)

	var sb strings.Builder
	for {
		waiting, err := d.port.BytesWaiting()
		if err != nil {
			d.port.Close()
			return "", err
		}
		if waiting <= 0 {
			break
		}
		buf := make([]byte, waiting)
		n, err := d.port.Read(buf)
		if err != nil {
			d.port.Close()
			return "", err
		}
		if n == 0 {
			break
		}
		sb.Write(buf[:n])
	}

	d.logger.Debug("reply", zap.String("command", cmd), zap.String("raw", sb.String()))
	return sb.String(), nil
}

// ParseCounts splits a comma-separated reply into the two channels:
//
//	2 tokens: first, second
//	3 tokens: first, third (the middle token is ignored)
//	more:     second-to-last, last
//
// Anything else, or a selected token that is not a number, gives the
// sentinel pair and ErrParse.
func ParseCounts(resp string) (float64, float64, error) {
	tokens := strings.Split(resp, ",")

	var a, b string
	switch n := len(tokens); {
	case n == 2:
		a, b = tokens[0], tokens[1]
	case n == 3:
		a, b = tokens[0], tokens[2]
	case n > 3:
		a, b = tokens[n-2], tokens[n-1]
	default:
		return reading.Sentinel, reading.Sentinel, fmt.Errorf("%w: %d tokens", ErrParse, n)
	}

	small, err := parseToken(a)
	if err != nil {
		return reading.Sentinel, reading.Sentinel, err
	}
	large, err := parseToken(b)
	if err != nil {
		return reading.Sentinel, reading.Sentinel, err
	}
	return small, large, nil
}

func parseToken(tok string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrParse, strings.TrimSpace(tok))
	}
	return v, nil
}

// Close closes the serial port if it is open
func (d *DC1700) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.port.IsOpen() {
		return nil
	}
	return d.port.Close()
}

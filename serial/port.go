package serial

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Port represents a serial port connection interface
type Port interface {
	Open() error
	Close() error
	IsOpen() bool
	Name() string
	Config() Config

	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	BytesWaiting() (int, error)
	FlushInput() error
	FlushOutput() error
	Drain() error
}

// port is the concrete implementation of the Port interface
type port struct {
	mu     sync.RWMutex
	device string
	fd     int
	config Config
	open   bool
}

// Ensure port implements Port interface at compile time
var _ Port = (*port)(nil)

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// New builds a port for device with the given options applied on top of
// DefaultConfig. The port is returned closed.
func New(device string, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	return &port{
		device: device,
		fd:     -1,
		config: config,
	}, nil
}

// Open builds a port and opens it immediately
func Open(device string, opts ...Option) (Port, error) {
	p, err := New(device, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Open(); err != nil {
		return nil, err
	}
	return p, nil
}

// Open opens the device and applies the port configuration
func (p *port) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return transportError("open", p.device, ErrPortOpen)
	}

	fd, err := unix.Open(p.device, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return transportError("open", p.device, mapOpenError(err))
	}

	if err := configurePort(fd, p.config); err != nil {
		unix.Close(fd)
		return transportError("configure", p.device, err)
	}

	p.fd = fd
	p.open = true
	return nil
}

func mapOpenError(err error) error {
	switch {
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return ErrDeviceNotFound
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ErrPermissionDenied
	default:
		return err
	}
}

// configurePort puts the line into raw mode with the configured framing
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	// VMIN=0 turns VTIME into an inter-byte read timeout
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = config.vtime()

	baudRate, err := getBaudRate(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	}

	if config.FlowControl == FlowControlRTSCTS {
		termios.Cflag |= unix.CRTSCTS
	}

	return unix.IoctlSetTermios(fd, unix.TCSETS, termios)
}

// Name returns the device path
func (p *port) Name() string {
	return p.device
}

// Config returns the configuration the port was built with
func (p *port) Config() Config {
	return p.config
}

// IsOpen reports whether the device is currently open
func (p *port) IsOpen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.open
}

// Close closes the serial port
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return transportError("close", p.device, ErrPortClosed)
	}

	err := unix.Close(p.fd)
	p.fd = -1
	p.open = false
	if err != nil {
		return transportError("close", p.device, err)
	}
	return nil
}

// Read reads at most len(buf) bytes. It returns 0, nil when nothing arrived
// within the read timeout.
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0, transportError("read", p.device, ErrPortClosed)
	}

	n, err := unix.Read(p.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			return 0, nil
		}
		return 0, transportError("read", p.device, err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// Write writes data to the serial port, failing with ErrWriteTimeout when
// the configured write timeout elapses first. On timeout n reports how much
// of data reached the driver.
func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0, transportError("write", p.device, ErrPortClosed)
	}

	var (
		n   int
		err error
	)
	if p.config.WriteTimeout <= 0 {
		n, err = writeAll(p.fd, data)
	} else {
		n, err = writeWithin(p.fd, data, time.Now().Add(p.config.WriteTimeout))
	}
	if err != nil {
		return n, transportError("write", p.device, err)
	}
	return n, nil
}

// writeWithin writes in non-blocking mode, polling for room in the output
// queue until deadline. The descriptor is back in blocking mode on return.
func writeWithin(fd int, data []byte, deadline time.Time) (int, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return 0, err
	}
	defer unix.SetNonblock(fd, false)

	written := 0
	for written < len(data) {
		n, err := unix.Write(fd, data[written:])
		if n > 0 {
			written += n
		}
		if err == nil || errors.Is(err, unix.EINTR) {
			continue
		}
		if !errors.Is(err, unix.EAGAIN) {
			return written, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return written, ErrWriteTimeout
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		ms := int((remaining + time.Millisecond - 1) / time.Millisecond)
		if _, err := unix.Poll(fds, ms); err != nil && !errors.Is(err, unix.EINTR) {
			return written, err
		}
	}
	return written, nil
}

func writeAll(fd int, data []byte) (int, error) {
	written := 0
	for written < len(data) {
		n, err := unix.Write(fd, data[written:])
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return written, err
		}
		written += n
	}
	return written, nil
}

// BytesWaiting returns the number of bytes queued in the input buffer
func (p *port) BytesWaiting() (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0, transportError("inq", p.device, ErrPortClosed)
	}

	n, err := unix.IoctlGetInt(p.fd, unix.TIOCINQ)
	if err != nil {
		return 0, transportError("inq", p.device, err)
	}
	return n, nil
}

// Drain waits until all output written to the port has been transmitted
func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return transportError("drain", p.device, ErrPortClosed)
	}

	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return transportError("flush", p.device, ErrPortClosed)
	}

	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH)
}

// FlushOutput discards any unwritten output data
func (p *port) FlushOutput() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return transportError("flush", p.device, ErrPortClosed)
	}

	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCOFLUSH)
}

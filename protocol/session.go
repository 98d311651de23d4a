// Package protocol implements the write-then-poll-until-prompt exchange used
// by bench instruments that echo each command and close every response with
// a prompt glyph.
package protocol

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTimeout is returned when no prompt line arrived within the session timeout
	ErrTimeout = errors.New("timed out waiting for prompt")
	// ErrInvalidOption is returned by NewSession for out-of-range options
	ErrInvalidOption = errors.New("invalid protocol option")
)

// Transport is the subset of serial.Port a Session needs
type Transport interface {
	Write(data []byte) (int, error)
	Read(buf []byte) (int, error)
	BytesWaiting() (int, error)
}

// State of the most recent request
type State int

const (
	StateIdle State = iota
	StateAwaitingPrompt
	StateCompleted
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateAwaitingPrompt:
		return "awaiting-prompt"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed-out"
	default:
		return "idle"
	}
}

// PromptDetector reports whether a received line closes the response
type PromptDetector func(line string) bool

// ContainsMarker matches any line containing marker
func ContainsMarker(marker string) PromptDetector {
	return func(line string) bool {
		return strings.Contains(line, marker)
	}
}

const (
	DefaultTermination  = "\r\n"
	DefaultTimeout      = time.Second
	DefaultPollInterval = time.Millisecond
	DefaultPrompt       = ">"

	maxLineLength = 4096
)

// Session runs requests against one instrument. Requests are serialized.
type Session struct {
	mu sync.Mutex

	port        Transport
	termination string
	timeout     time.Duration
	poll        time.Duration
	detect      PromptDetector
	debug       bool
	logger      *zap.Logger

	now   func() time.Time
	sleep func(time.Duration)

	state State
	lines []string
}

// Option configures a Session
type Option func(*Session) error

// WithTermination sets the string appended to every command
func WithTermination(term string) Option {
	return func(s *Session) error {
		if term == "" {
			return ErrInvalidOption
		}
		s.termination = term
		return nil
	}
}

// WithTimeout bounds a request, measured from the moment the command is written
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) error {
		if timeout <= 0 {
			return ErrInvalidOption
		}
		s.timeout = timeout
		return nil
	}
}

// WithPromptDetector replaces the default ">" marker match
func WithPromptDetector(detect PromptDetector) Option {
	return func(s *Session) error {
		if detect == nil {
			return ErrInvalidOption
		}
		s.detect = detect
		return nil
	}
}

// WithPollInterval sets the pause between polls of the input buffer
func WithPollInterval(interval time.Duration) Option {
	return func(s *Session) error {
		if interval < 0 {
			return ErrInvalidOption
		}
		s.poll = interval
		return nil
	}
}

// WithDebug logs the raw buffered lines of every request. The entries are
// written at info level so they show up without lowering the logger level.
func WithDebug(debug bool) Option {
	return func(s *Session) error {
		s.debug = debug
		return nil
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// WithClock replaces the wall clock and sleep used by the polling loop
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(s *Session) error {
		if now == nil || sleep == nil {
			return ErrInvalidOption
		}
		s.now = now
		s.sleep = sleep
		return nil
	}
}

// NewSession wraps an open transport
func NewSession(port Transport, opts ...Option) (*Session, error) {
	if port == nil {
		return nil, ErrInvalidOption
	}

	s := &Session{
		port:        port,
		termination: DefaultTermination,
		timeout:     DefaultTimeout,
		poll:        DefaultPollInterval,
		detect:      ContainsMarker(DefaultPrompt),
		logger:      zap.NewNop(),
		now:         time.Now,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Write sends cmd and waits for the prompt. It returns nil once the prompt
// arrives and ErrTimeout otherwise.
func (s *Session) Write(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.exchange(cmd)
	return err
}

// Query sends cmd and returns the response lines between the echo and the
// prompt, with line terminators removed. A response of fewer than three
// lines has no payload.
func (s *Session) Query(cmd string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.exchange(cmd)
	if err != nil {
		return nil, err
	}
	return payload(lines), nil
}

// State returns the state of the most recent request
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastLines returns a copy of the raw lines buffered by the most recent request
func (s *Session) LastLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *Session) exchange(cmd string) ([]string, error) {
	s.lines = nil
	s.state = StateAwaitingPrompt
	start := s.now()

	if _, err := s.port.Write([]byte(cmd + s.termination)); err != nil {
		s.state = StateIdle
		return nil, err
	}

	for {
		s.drain()

		for i := len(s.lines) - 1; i >= 0; i-- {
			if s.detect(s.lines[i]) {
				s.state = StateCompleted
				if s.debug {
					s.logger.Info("prompt received",
						zap.String("command", cmd),
						zap.Strings("lines", s.lines))
				}
				return s.lines, nil
			}
		}

		if s.now().Sub(start) > s.timeout {
			s.state = StateTimedOut
			if s.debug {
				s.logger.Info("prompt timeout",
					zap.String("command", cmd),
					zap.Duration("timeout", s.timeout),
					zap.Strings("lines", s.lines))
			}
			return nil, ErrTimeout
		}

		s.sleep(s.poll)
	}
}

// drain reads whole lines while the transport reports queued input. Read
// errors end the drain for this poll.
func (s *Session) drain() {
	for {
		waiting, err := s.port.BytesWaiting()
		if err != nil || waiting <= 0 {
			return
		}
		line, err := s.readLine()
		if line != "" {
			s.lines = append(s.lines, line)
		}
		if err != nil || line == "" {
			return
		}
	}
}

// readLine reads up to and including '\n', or until the transport returns no
// data within its read timeout. A partial line is returned as is.
func (s *Session) readLine() (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for sb.Len() < maxLineLength {
		n, err := s.port.Read(buf)
		if err != nil {
			return sb.String(), err
		}
		if n == 0 {
			break
		}
		sb.WriteByte(buf[0])
		if buf[0] == '\n' {
			break
		}
	}
	return sb.String(), nil
}

func payload(lines []string) []string {
	if len(lines) < 3 {
		return []string{}
	}
	out := make([]string, 0, len(lines)-2)
	for _, line := range lines[1 : len(lines)-1] {
		out = append(out, strings.TrimRight(line, "\r\n"))
	}
	return out
}

package protocol

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeTransport delivers one chunk on Write and another each time the fake
// clock sleeps, simulating an instrument that answers over several polls.
type fakeTransport struct {
	written  []byte
	chunks   []string
	pending  []byte
	readErrs int
	writeErr error
}

func (f *fakeTransport) Write(data []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, data...)
	f.deliver()
	return len(data), nil
}

func (f *fakeTransport) Read(buf []byte) (int, error) {
	if f.readErrs > 0 {
		f.readErrs--
		return 0, errors.New("framing error")
	}
	if len(f.pending) == 0 {
		return 0, nil
	}
	n := copy(buf, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeTransport) BytesWaiting() (int, error) {
	return len(f.pending), nil
}

func (f *fakeTransport) deliver() {
	if len(f.chunks) == 0 {
		return
	}
	f.pending = append(f.pending, f.chunks[0]...)
	f.chunks = f.chunks[1:]
}

type fakeClock struct {
	t     time.Time
	slept time.Duration
	port  *fakeTransport
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.t = c.t.Add(d)
	c.slept += d
	c.port.deliver()
}

func newTestSession(t *testing.T, port *fakeTransport, opts ...Option) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), port: port}
	opts = append([]Option{WithClock(clock.now, clock.sleep)}, opts...)
	s, err := NewSession(port, opts...)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return s, clock
}

func TestQueryStripsEchoAndPrompt(t *testing.T) {
	port := &fakeTransport{chunks: []string{
		"MATRIX.HUMIDITY ?\r\n",
		"41.2\r\n",
		"OK\r\n>",
	}}
	s, _ := newTestSession(t, port)

	got, err := s.Query("MATRIX.HUMIDITY ?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := []string{"41.2", "OK"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Query = %q, want %q", got, want)
	}
	if string(port.written) != "MATRIX.HUMIDITY ?\r\n" {
		t.Errorf("written = %q, want command plus termination", port.written)
	}
	if s.State() != StateCompleted {
		t.Errorf("State = %v, want %v", s.State(), StateCompleted)
	}
	if n := len(s.LastLines()); n != 4 {
		t.Errorf("LastLines has %d lines, want 4", n)
	}
}

func TestDebugLogsRawLinesAtInfoLevel(t *testing.T) {
	tests := []struct {
		name    string
		debug   bool
		chunks  []string
		message string
		entries int
	}{
		{"debug completed", true, []string{"*IDN?\r\n", "ACME,42\r\n", ">"}, "prompt received", 1},
		{"debug timeout", true, []string{"*IDN?\r\n", "ACME,42\r\n"}, "prompt timeout", 1},
		{"quiet", false, []string{"*IDN?\r\n", "ACME,42\r\n", ">"}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			port := &fakeTransport{chunks: tt.chunks}
			s, _ := newTestSession(t, port,
				WithDebug(tt.debug),
				WithLogger(zap.New(core)),
				WithTimeout(50*time.Millisecond),
			)

			got, err := s.Query("*IDN?")
			if tt.message == "prompt received" {
				if err != nil {
					t.Fatalf("Query failed: %v", err)
				}
				if !reflect.DeepEqual(got, []string{"ACME,42"}) {
					t.Errorf("Query = %q, want [ACME,42]", got)
				}
			}

			entries := logs.All()
			if len(entries) != tt.entries {
				t.Fatalf("logged %d entries, want %d", len(entries), tt.entries)
			}
			if tt.entries == 0 {
				return
			}
			e := entries[0]
			if e.Message != tt.message {
				t.Errorf("message = %q, want %q", e.Message, tt.message)
			}
			if e.Level != zapcore.InfoLevel {
				t.Errorf("level = %v, want info", e.Level)
			}
			lines, _ := e.ContextMap()["lines"].([]interface{})
			if len(lines) < 2 || lines[1] != "ACME,42\r\n" {
				t.Errorf("logged lines = %v, want the raw buffered lines", e.ContextMap()["lines"])
			}
		})
	}
}

func TestQueryShortResponseHasNoPayload(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
	}{
		{"prompt only", []string{">"}},
		{"echo and prompt", []string{"KRDG? A\n", ">"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, &fakeTransport{chunks: tt.chunks}, WithTermination("\n"))
			got, err := s.Query("KRDG? A")
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("Query = %#v, want empty payload", got)
			}
		})
	}
}

func TestWriteCompletesOnPrompt(t *testing.T) {
	s, _ := newTestSession(t, &fakeTransport{chunks: []string{"UI.DISPLAY OFF\r\n", "\r\n>"}})

	if err := s.Write("UI.DISPLAY OFF"); err != nil {
		t.Errorf("Write = %v, want nil", err)
	}
}

func TestQueryTimesOutAfterTimeout(t *testing.T) {
	port := &fakeTransport{chunks: []string{"echo\r\n", "data\r\n"}}
	s, clock := newTestSession(t, port,
		WithTimeout(50*time.Millisecond),
		WithPollInterval(10*time.Millisecond))

	got, err := s.Query("X")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Query error = %v, want ErrTimeout", err)
	}
	if got != nil {
		t.Errorf("Query = %q, want nil on timeout", got)
	}
	if clock.slept <= 50*time.Millisecond {
		t.Errorf("gave up after %v, want strictly more than the 50ms timeout", clock.slept)
	}
	if clock.slept > 70*time.Millisecond {
		t.Errorf("gave up after %v, want shortly after the 50ms timeout", clock.slept)
	}
	if s.State() != StateTimedOut {
		t.Errorf("State = %v, want %v", s.State(), StateTimedOut)
	}
}

func TestReverseScanUsesMostRecentPrompt(t *testing.T) {
	var seen []string
	detect := func(line string) bool {
		seen = append(seen, line)
		return line == ">"
	}
	s, _ := newTestSession(t, &fakeTransport{chunks: []string{"a\n", "b\n>"}},
		WithPromptDetector(detect))

	if _, err := s.Query("a"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	// First poll sees only the echo; on the second the newest line matches
	// and older lines are never revisited.
	want := []string{"a\n", ">"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("detector calls = %q, want %q", seen, want)
	}
}

func TestMarkerInPayloadCompletesEarly(t *testing.T) {
	s, _ := newTestSession(t, &fakeTransport{chunks: []string{"cmd\n", "x>y\n", "tail\n", ">"}})

	got, err := s.Query("cmd")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Query = %q, want empty payload (echo + marker line only)", got)
	}
}

func TestReadErrorsAreNotFatal(t *testing.T) {
	port := &fakeTransport{
		chunks:   []string{"cmd\r\n", "7.5\r\n", ">"},
		readErrs: 2,
	}
	s, _ := newTestSession(t, port)

	got, err := s.Query("cmd")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"7.5"}) {
		t.Errorf("Query = %q, want [7.5]", got)
	}
}

func TestWriteFailure(t *testing.T) {
	writeErr := errors.New("port closed")
	s, _ := newTestSession(t, &fakeTransport{writeErr: writeErr})

	if err := s.Write("D"); !errors.Is(err, writeErr) {
		t.Errorf("Write = %v, want %v", err, writeErr)
	}
	if s.State() != StateIdle {
		t.Errorf("State = %v, want %v", s.State(), StateIdle)
	}
}

func TestNewSessionOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero timeout", WithTimeout(0)},
		{"empty termination", WithTermination("")},
		{"nil detector", WithPromptDetector(nil)},
		{"negative poll", WithPollInterval(-time.Millisecond)},
		{"nil clock", WithClock(nil, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSession(&fakeTransport{}, tt.opt); !errors.Is(err, ErrInvalidOption) {
				t.Errorf("NewSession error = %v, want ErrInvalidOption", err)
			}
		})
	}

	if _, err := NewSession(nil); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("NewSession(nil) error = %v, want ErrInvalidOption", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateIdle:           "idle",
		StateAwaitingPrompt: "awaiting-prompt",
		StateCompleted:      "completed",
		StateTimedOut:       "timed-out",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

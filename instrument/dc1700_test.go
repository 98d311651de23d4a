package instrument

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/allbin/cleanroom/reading"
	"github.com/allbin/cleanroom/serial"
)

// fakePort answers every write with reply, made available only after the
// driver has slept through the integration time.
type fakePort struct {
	open     bool
	openErr  error
	writeErr error
	reply    string
	armed    bool
	pending  []byte
	written  []string
	opens    int
}

func (p *fakePort) Open() error {
	if p.openErr != nil {
		return p.openErr
	}
	p.open = true
	p.opens++
	return nil
}

func (p *fakePort) Close() error {
	p.open = false
	return nil
}

func (p *fakePort) IsOpen() bool { return p.open }
func (p *fakePort) Name() string { return "/dev/ttyUSB0" }

func (p *fakePort) Write(data []byte) (int, error) {
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, string(data))
	p.armed = true
	return len(data), nil
}

func (p *fakePort) Read(buf []byte) (int, error) {
	n := copy(buf, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) BytesWaiting() (int, error) {
	return len(p.pending), nil
}

func newTestDC1700(t *testing.T, port *fakePort) (*DC1700, *[]time.Duration) {
	t.Helper()
	var sleeps []time.Duration
	sleep := func(d time.Duration) {
		sleeps = append(sleeps, d)
		if port.armed {
			port.pending = append(port.pending, port.reply...)
			port.armed = false
		}
	}
	d, err := NewDC1700(port, WithSleep(sleep))
	if err != nil {
		t.Fatalf("NewDC1700 failed: %v", err)
	}
	return d, &sleeps
}

func TestParseCounts(t *testing.T) {
	tests := []struct {
		name      string
		resp      string
		wantSmall float64
		wantLarge float64
		wantErr   bool
	}{
		{"two tokens", "500,300", 500, 300, false},
		{"two tokens with terminator", "500,300\r\n", 500, 300, false},
		{"three tokens drop middle", "12,987,45", 12, 45, false},
		{"four tokens take last two", "12,987,45,1023", 45, 1023, false},
		{"many tokens", "1,2,3,4,5,6", 5, 6, false},
		{"two lines buffered", "12,987\r\n45,1023\r\n", 12, 1023, false},
		{"leading noise", "garbage,11,22", -1, -1, true},
		{"noise ignored when not selected", "garbage,x,11,22", 11, 22, false},
		{"single token", "500", -1, -1, true},
		{"empty", "", -1, -1, true},
		{"non-numeric", "abc,def", -1, -1, true},
		{"middle ignored even if junk", "7,junk,9", 7, 9, false},
		{"decimal", "0.5,2.5", 0.5, 2.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			small, large, err := ParseCounts(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseCounts(%q) error = %v, wantErr %v", tt.resp, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrParse) {
				t.Errorf("ParseCounts(%q) error = %v, want ErrParse", tt.resp, err)
			}
			if small != tt.wantSmall || large != tt.wantLarge {
				t.Errorf("ParseCounts(%q) = (%v, %v), want (%v, %v)", tt.resp, small, large, tt.wantSmall, tt.wantLarge)
			}
		})
	}
}

func TestReadParticleCounts(t *testing.T) {
	port := &fakePort{reply: "12,987,45,1023\r\n"}
	d, sleeps := newTestDC1700(t, port)

	small, large := d.ReadParticleCounts()
	if small != 45 || large != 1023 {
		t.Errorf("ReadParticleCounts() = (%v, %v), want (45, 1023)", small, large)
	}
	if len(port.written) != 1 || port.written[0] != "D\r\n" {
		t.Errorf("written = %q, want [\"D\\r\\n\"]", port.written)
	}
	want := []time.Duration{DefaultSettleDelay, DefaultIntegrationTime}
	if len(*sleeps) != 2 || (*sleeps)[0] != want[0] || (*sleeps)[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", *sleeps, want)
	}
	if port.opens != 1 {
		t.Errorf("port opened %d times, want 1", port.opens)
	}
}

func TestReadParticleCountsSentinel(t *testing.T) {
	tests := []struct {
		name string
		port *fakePort
	}{
		{"garbled reply", &fakePort{reply: "Dylos\r\n"}},
		{"no reply", &fakePort{}},
		{"port missing", &fakePort{openErr: serial.ErrDeviceNotFound}},
		{"write fails", &fakePort{writeErr: serial.ErrWriteTimeout}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDC1700(t, tt.port)
			small, large := d.ReadParticleCounts()
			if small != reading.Sentinel || large != reading.Sentinel {
				t.Errorf("ReadParticleCounts() = (%v, %v), want sentinel pair", small, large)
			}
		})
	}
}

func TestDC1700ReopensAfterWriteFailure(t *testing.T) {
	port := &fakePort{writeErr: serial.ErrWriteTimeout, reply: "1,2"}
	d, _ := newTestDC1700(t, port)

	if _, err := d.Counts(); !errors.Is(err, serial.ErrWriteTimeout) {
		t.Fatalf("Counts() error = %v, want ErrWriteTimeout", err)
	}
	if port.IsOpen() {
		t.Fatal("port left open after a transport failure")
	}

	port.writeErr = nil
	c, err := d.Counts()
	if err != nil {
		t.Fatalf("Counts() failed: %v", err)
	}
	if c.Small != 1 || c.Large != 2 {
		t.Errorf("Counts() = %+v, want {1 2}", c)
	}
	if port.opens != 2 {
		t.Errorf("port opened %d times, want 2", port.opens)
	}
}

func TestDC1700Sample(t *testing.T) {
	d, _ := newTestDC1700(t, &fakePort{reply: "500,300"})

	frag, err := d.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if v, ok := frag.Count05.Get(); !ok || v != 500 {
		t.Errorf("Count05 = %v, %v; want 500, true", v, ok)
	}
	if v, ok := frag.Count25.Get(); !ok || v != 300 {
		t.Errorf("Count25 = %v, %v; want 300, true", v, ok)
	}
	if frag.Temperature.Valid() {
		t.Error("particle counter reported a temperature")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Sample(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Sample(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestDC1700Options(t *testing.T) {
	tests := []struct {
		name    string
		opt     DC1700Option
		wantErr bool
	}{
		{"integration 30s", WithIntegrationTime(30 * time.Second), false},
		{"integration too short", WithIntegrationTime(500 * time.Millisecond), true},
		{"negative settle", WithSettleDelay(-time.Second), true},
		{"lf termination", WithTermination("\n"), false},
		{"empty termination", WithTermination(""), true},
		{"nil sleep", WithSleep(nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDC1700(&fakePort{}, tt.opt)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewDC1700 error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

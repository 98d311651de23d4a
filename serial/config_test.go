package serial

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", config.BaudRate)
	}
	if config.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", config.DataBits)
	}
	if config.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", config.StopBits)
	}
	if config.Parity != ParityNone {
		t.Errorf("Parity = %v, want none", config.Parity)
	}
	if config.Termination != "\r\n" {
		t.Errorf("Termination = %q, want %q", config.Termination, "\r\n")
	}
	if config.vtime() != 1 {
		t.Errorf("vtime() = %d, want 1", config.vtime())
	}
}

func TestWithReadTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		wantErr bool
	}{
		{"0ms (non-blocking)", 0, false},
		{"100ms (valid)", 100 * time.Millisecond, false},
		{"2500ms (valid)", 2500 * time.Millisecond, false},
		{"25500ms (max)", 25500 * time.Millisecond, false},
		{"150ms (not multiple of 100ms)", 150 * time.Millisecond, true},
		{"25600ms (exceeds max)", 25600 * time.Millisecond, true},
		{"-100ms (negative)", -100 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := WithReadTimeout(tt.timeout)(&config)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithReadTimeout(%v) error = %v, wantErr %v", tt.timeout, err, tt.wantErr)
			}
			if err == nil && config.ReadTimeout != tt.timeout {
				t.Errorf("ReadTimeout = %v, want %v", config.ReadTimeout, tt.timeout)
			}
		})
	}
}

func TestFunctionalOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr error
	}{
		{"baud 115200", WithBaudRate(115200), nil},
		{"baud 12345", WithBaudRate(12345), ErrInvalidBaudRate},
		{"data bits 7", WithDataBits(7), nil},
		{"data bits 9", WithDataBits(9), ErrInvalidConfig},
		{"stop bits 2", WithStopBits(2), nil},
		{"stop bits 3", WithStopBits(3), ErrInvalidConfig},
		{"parity even", WithParity(ParityEven), nil},
		{"parity out of range", WithParity(Parity(42)), ErrInvalidConfig},
		{"write timeout", WithWriteTimeout(2 * time.Second), nil},
		{"negative write timeout", WithWriteTimeout(-time.Second), ErrInvalidConfig},
		{"termination lf", WithTermination("\n"), nil},
		{"empty termination", WithTermination(""), ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			err := tt.opt(&config)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseParity(t *testing.T) {
	tests := []struct {
		in      string
		want    Parity
		wantErr bool
	}{
		{"none", ParityNone, false},
		{"", ParityNone, false},
		{"N", ParityNone, false},
		{"odd", ParityOdd, false},
		{"E", ParityEven, false},
		{" mark ", ParityMark, false},
		{"space", ParitySpace, false},
		{"bogus", ParityNone, true},
	}

	for _, tt := range tests {
		got, err := ParseParity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseParity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseParity(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if !tt.wantErr && tt.in == "odd" && got.String() != "odd" {
			t.Errorf("String() = %q, want %q", got.String(), "odd")
		}
	}
}

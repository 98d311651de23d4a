package serial

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListPorts(t *testing.T) {
	ports, err := ListPorts()
	if err != nil {
		t.Errorf("ListPorts failed: %v", err)
	}

	for _, port := range ports {
		if !strings.HasPrefix(port, "/dev/") {
			t.Errorf("Port path doesn't start with /dev/: %s", port)
		}
		if !isCharacterDevice(port) {
			t.Errorf("Port is not a character device: %s", port)
		}
	}

	for i := 1; i < len(ports); i++ {
		if ports[i-1] > ports[i] {
			t.Errorf("Ports are not sorted: %s > %s", ports[i-1], ports[i])
		}
	}
}

func TestListPortsSkipsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ttyUSB0", "ttyS1", "tty1"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ports, err := listPortsIn(dir)
	if err != nil {
		t.Fatalf("listPortsIn failed: %v", err)
	}
	if len(ports) != 0 {
		t.Errorf("listPortsIn = %v, want no ports for regular files", ports)
	}
}

func TestIsSerialName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"ttyUSB0", true},
		{"ttyACM12", true},
		{"ttyS0", true},
		{"ttyAMA0", true},
		{"tty1", false},
		{"pts", false},
		{"ttyUSB", false},
		{"console", false},
	}

	for _, tt := range tests {
		if got := isSerialName(tt.name); got != tt.want {
			t.Errorf("isSerialName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/dev/null", true},
		{"/tmp", false},
		{"/nonexistent", false},
	}

	for _, tt := range tests {
		if got := isCharacterDevice(tt.path); got != tt.want {
			t.Errorf("isCharacterDevice(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGetPortDescription(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM0", "USB CDC/ACM Device"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttyO2", "OMAP Serial Port"},
		{"weird", "Serial Port"},
	}

	for _, tt := range tests {
		if got := getPortDescription(tt.name); got != tt.want {
			t.Errorf("getPortDescription(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGetPortInfoMissing(t *testing.T) {
	if _, err := GetPortInfo("/dev/ttyUSB_missing"); err != ErrDeviceNotFound {
		t.Errorf("GetPortInfo() error = %v, want ErrDeviceNotFound", err)
	}
}

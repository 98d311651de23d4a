package instrument

import (
	"context"
	"errors"
	"io"
	"testing"

	"periph.io/x/conn/v3/physic"
)

type fakeDHT struct {
	humidity    float64
	temperature float64
	err         error
	retries     int
}

func (f *fakeDHT) ReadRetry(maxRetries int) (float64, float64, error) {
	f.retries = maxRetries
	return f.humidity, f.temperature, f.err
}

func fixedDHT(sensor humidityThermometer) dht22Opener {
	return func() (humidityThermometer, error) { return sensor, nil }
}

func TestDHT22Sample(t *testing.T) {
	sensor := &fakeDHT{humidity: 41.5, temperature: 21.2}
	d := newDHT22(fixedDHT(sensor), "GPIO4", WithRetries(5))

	frag, err := d.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if v, _ := frag.Temperature.Get(); v != 21.2 {
		t.Errorf("Temperature = %v, want 21.2", v)
	}
	if v, _ := frag.Humidity.Get(); v != 41.5 {
		t.Errorf("Humidity = %v, want 41.5", v)
	}
	if sensor.retries != 5 {
		t.Errorf("ReadRetry called with %d, want 5", sensor.retries)
	}
	if frag.Pressure.Valid() || frag.Count05.Valid() {
		t.Error("DHT22 reported fields it does not measure")
	}
}

func TestDHT22DefaultRetries(t *testing.T) {
	sensor := &fakeDHT{}
	d := newDHT22(fixedDHT(sensor), "GPIO4", WithRetries(0))
	d.Sample(context.Background())
	if sensor.retries != DefaultDHT22Retries {
		t.Errorf("ReadRetry called with %d, want %d", sensor.retries, DefaultDHT22Retries)
	}
}

func TestDHT22Failure(t *testing.T) {
	readErr := errors.New("checksum error")
	d := newDHT22(fixedDHT(&fakeDHT{err: readErr}), "GPIO4")

	frag, err := d.Sample(context.Background())
	if !errors.Is(err, readErr) {
		t.Errorf("Sample error = %v, want %v", err, readErr)
	}
	if frag.Temperature.Valid() {
		t.Error("failed read produced a temperature")
	}
}

func TestDHT22OpensOnFirstSample(t *testing.T) {
	hostErr := errors.New("no gpio host")
	opens := 0
	sensor := &fakeDHT{humidity: 40, temperature: 20}
	d := newDHT22(func() (humidityThermometer, error) {
		opens++
		if opens == 1 {
			return nil, hostErr
		}
		return sensor, nil
	}, "GPIO4")

	if opens != 0 {
		t.Fatalf("constructor opened the sensor %d times, want 0", opens)
	}
	if _, err := d.Sample(context.Background()); !errors.Is(err, hostErr) {
		t.Errorf("first Sample error = %v, want %v", err, hostErr)
	}
	if _, err := d.Sample(context.Background()); err != nil {
		t.Errorf("second Sample failed: %v", err)
	}
	d.Sample(context.Background())
	if opens != 2 {
		t.Errorf("opened %d times, want 2", opens)
	}
}

type fakeEnv struct {
	pressure physic.Pressure
	err      error
	halted   bool
}

func (f *fakeEnv) Sense(env *physic.Env) error {
	if f.err != nil {
		return f.err
	}
	env.Pressure = f.pressure
	return nil
}

func (f *fakeEnv) Halt() error {
	f.halted = true
	return nil
}

type fakeBus struct{ closed bool }

func (b *fakeBus) Close() error {
	b.closed = true
	return nil
}

func fixedBMP(dev environmentSensor, bus *fakeBus) bmp180Opener {
	return func() (environmentSensor, io.Closer, error) {
		if bus == nil {
			return dev, nil, nil
		}
		return dev, bus, nil
	}
}

func TestBMP180Sample(t *testing.T) {
	dev := &fakeEnv{pressure: 101325*physic.Pascal + 600*physic.MilliPascal}
	bus := &fakeBus{}
	b := newBMP180(fixedBMP(dev, bus), nil)

	frag, err := b.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if v, ok := frag.Pressure.Get(); !ok || v != 101325 {
		t.Errorf("Pressure = %v, %v; want 101325, true", v, ok)
	}
	if frag.Temperature.Valid() {
		t.Error("BMP180 must leave temperature to the DHT22")
	}

	if err := b.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !dev.halted || !bus.closed {
		t.Errorf("Close: halted=%v closed=%v, want both", dev.halted, bus.closed)
	}
}

func TestBMP180Failure(t *testing.T) {
	dev := &fakeEnv{err: errors.New("i2c nack")}
	bus := &fakeBus{}
	b := newBMP180(fixedBMP(dev, bus), nil)
	if _, err := b.Sample(context.Background()); err == nil {
		t.Error("Sample succeeded on a failing sensor")
	}
	if !dev.halted || !bus.closed {
		t.Errorf("after failed read: halted=%v closed=%v, want both", dev.halted, bus.closed)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close after release = %v, want nil", err)
	}
}

func TestBMP180ReopensAfterMissingBus(t *testing.T) {
	busErr := errors.New("i2creg: no bus found")
	dev := &fakeEnv{pressure: 99000 * physic.Pascal}
	opens := 0
	b := newBMP180(func() (environmentSensor, io.Closer, error) {
		opens++
		if opens == 1 {
			return nil, nil, busErr
		}
		return dev, &fakeBus{}, nil
	}, nil)

	if _, err := b.Sample(context.Background()); !errors.Is(err, busErr) {
		t.Errorf("first Sample error = %v, want %v", err, busErr)
	}
	frag, err := b.Sample(context.Background())
	if err != nil {
		t.Fatalf("second Sample failed: %v", err)
	}
	if v, _ := frag.Pressure.Get(); v != 99000 {
		t.Errorf("Pressure = %v, want 99000", v)
	}
	if opens != 2 {
		t.Errorf("opened %d times, want 2", opens)
	}
}

func TestConfigEnabled(t *testing.T) {
	cfg := Config{
		DHT22:  DHT22Config{Enabled: true},
		DC1700: DC1700Config{Enabled: true},
	}
	got := cfg.Enabled()
	if len(got) != 2 || got[0] != DHT22Name || got[1] != DC1700Name {
		t.Errorf("Enabled() = %v, want [dht22 dc1700]", got)
	}
}

func TestFromConfigParticleCounterOnly(t *testing.T) {
	cfg := Config{DC1700: DC1700Config{Enabled: true, Port: "/dev/ttyUSB7"}}

	insts, err := FromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if len(insts) != 1 || insts[0].Name() != DC1700Name {
		t.Fatalf("FromConfig built %d instruments, want the dc1700", len(insts))
	}
	dc := insts[0].(*DC1700)
	if dc.integration != DefaultIntegrationTime || dc.settle != DefaultSettleDelay {
		t.Errorf("delays = %v/%v, want defaults", dc.settle, dc.integration)
	}
	if err := dc.Close(); err != nil {
		t.Errorf("Close on never-opened port = %v, want nil", err)
	}
}

func TestFromConfigMissingSensorBus(t *testing.T) {
	cfg := Config{
		BMP180: BMP180Config{Enabled: true, Bus: "/dev/i2c-9"},
		DC1700: DC1700Config{Enabled: true, Port: "/dev/ttyUSB7"},
	}

	insts, err := FromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if len(insts) != 2 || insts[0].Name() != BMP180Name || insts[1].Name() != DC1700Name {
		t.Fatalf("FromConfig built %d instruments, want bmp180 and dc1700", len(insts))
	}
	defer func() {
		for _, inst := range insts {
			inst.Close()
		}
	}()

	frag, err := insts[0].Sample(context.Background())
	if err == nil {
		t.Error("Sample on a missing i2c bus succeeded")
	}
	if frag.Pressure.Valid() {
		t.Error("missing sensor produced a pressure")
	}
}

func TestFromConfigRejectsBadBaud(t *testing.T) {
	cfg := Config{DC1700: DC1700Config{Enabled: true, Port: "/dev/ttyUSB0", BaudRate: 1234}}
	if _, err := FromConfig(cfg, nil); err == nil {
		t.Error("FromConfig accepted an invalid baud rate")
	}
}

func TestFromConfigNothingEnabled(t *testing.T) {
	insts, err := FromConfig(Config{}, nil)
	if err != nil || len(insts) != 0 {
		t.Errorf("FromConfig(empty) = %v, %v; want none", insts, err)
	}
}

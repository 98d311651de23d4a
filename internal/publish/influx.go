// Package publish forwards readings to external time-series and messaging
// systems.
package publish

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/allbin/cleanroom/internal/config"
	"github.com/allbin/cleanroom/reading"
)

// InfluxSink writes one point per reading through the blocking write API
type InfluxSink struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPIBlocking
	measurement string
	logger      *zap.Logger
}

func NewInfluxSink(cfg config.InfluxConfig, logger *zap.Logger) *InfluxSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	measurement := cfg.Measurement
	if measurement == "" {
		measurement = "cleanroom"
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		measurement: measurement,
		logger:      logger.With(zap.String("sink", "influx"), zap.String("bucket", cfg.Bucket)),
	}
}

// Record implements the recorder sink interface
func (s *InfluxSink) Record(ctx context.Context, r reading.Reading) error {
	if err := s.writeAPI.WritePoint(ctx, Point(s.measurement, r)); err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	s.logger.Debug("point written", zap.Time("time", r.Time))
	return nil
}

func (s *InfluxSink) Close() {
	s.client.Close()
}

// Point converts a reading to a line-protocol point. Absent fields are left
// out instead of being written as the sentinel.
func Point(measurement string, r reading.Reading) *write.Point {
	fields := map[string]interface{}{
		"iso_class":   r.ISO,
		"clean_class": r.FedStd,
	}
	if v, ok := r.Temperature.Get(); ok {
		fields["temperature"] = v
	}
	if v, ok := r.Humidity.Get(); ok {
		fields["humidity"] = v
	}
	if v, ok := r.Pressure.Get(); ok {
		fields["pressure"] = v
	}
	if v, ok := r.Count05.Get(); ok {
		fields["count_0_5um"] = v
	}
	if v, ok := r.Count25.Get(); ok {
		fields["count_2_5um"] = v
	}
	return influxdb2.NewPoint(measurement, nil, fields, r.Time)
}

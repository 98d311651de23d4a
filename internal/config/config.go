package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/allbin/cleanroom/instrument"
)

// EnvPrefix prefixes every environment override, e.g. CLEANROOM_DATA_DIR
const EnvPrefix = "CLEANROOM"

// Config represents the application configuration
type Config struct {
	DataDir     string            `mapstructure:"data_dir"`
	Interval    time.Duration     `mapstructure:"interval"`
	Once        bool              `mapstructure:"once"`
	Instruments instrument.Config `mapstructure:"instruments"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Influx      InfluxConfig      `mapstructure:"influx"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
	Plot        PlotConfig        `mapstructure:"plot"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// HTTPConfig represents the HTTP surface served while recording
type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// InfluxConfig represents the InfluxDB sink
type InfluxConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	Org         string `mapstructure:"org"`
	Bucket      string `mapstructure:"bucket"`
	Measurement string `mapstructure:"measurement"`
}

// RedisConfig represents the Redis sink
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
	History  int64  `mapstructure:"history"`
}

// DashboardConfig represents the live terminal dashboard
type DashboardConfig struct {
	Refresh time.Duration `mapstructure:"refresh"`
	Days    int           `mapstructure:"days"`
}

// PlotConfig represents the batch plotter
type PlotConfig struct {
	BiweeklyDays int `mapstructure:"biweekly_days"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SetDefaults registers the default value of every key on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "logs")
	v.SetDefault("interval", 10*time.Second)
	v.SetDefault("once", false)

	v.SetDefault("instruments.dht22.enabled", false)
	v.SetDefault("instruments.dht22.pin", instrument.DefaultDHT22Pin)
	v.SetDefault("instruments.dht22.retries", instrument.DefaultDHT22Retries)
	v.SetDefault("instruments.bmp180.enabled", false)
	v.SetDefault("instruments.bmp180.bus", "")
	v.SetDefault("instruments.bmp180.address", instrument.DefaultBMP180Address)
	v.SetDefault("instruments.dc1700.enabled", false)
	v.SetDefault("instruments.dc1700.port", "/dev/ttyUSB0")
	v.SetDefault("instruments.dc1700.baud_rate", 9600)
	v.SetDefault("instruments.dc1700.settle_delay", instrument.DefaultSettleDelay)
	v.SetDefault("instruments.dc1700.integration_time", instrument.DefaultIntegrationTime)

	v.SetDefault("http.enabled", false)
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "")
	v.SetDefault("influx.bucket", "cleanroom")
	v.SetDefault("influx.measurement", "cleanroom")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "cleanroom:readings")
	v.SetDefault("redis.history", 720)

	v.SetDefault("dashboard.refresh", 3*time.Second)
	v.SetDefault("dashboard.days", 30)

	v.SetDefault("plot.biweekly_days", 14)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("logging.compress", true)
}

// Setup prepares v for Load: defaults, CLEANROOM_ environment overrides and
// the config file search path. An explicit file wins over the search.
func Setup(v *viper.Viper, file string) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return
	}
	v.SetConfigName("cleanroom")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config/cleanroom")
	}
}

// LoadDotEnv exports the variables of a .env file into the process
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the config file (if any) into v, decodes and validates it
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the decoded configuration
func Validate(cfg *Config) error {
	var errs []error

	if cfg.DataDir == "" {
		errs = append(errs, errors.New("data_dir must be set"))
	}
	if cfg.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %v", cfg.Interval))
	}

	dc := cfg.Instruments.DC1700
	if dc.Enabled {
		if dc.Port == "" {
			errs = append(errs, errors.New("instruments.dc1700.port must be set"))
		}
		if dc.IntegrationTime < time.Second {
			errs = append(errs, fmt.Errorf("instruments.dc1700.integration_time must be at least 1s, got %v", dc.IntegrationTime))
		}
		if dc.SettleDelay < 0 {
			errs = append(errs, errors.New("instruments.dc1700.settle_delay must not be negative"))
		}
	}

	if cfg.HTTP.Enabled && cfg.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr must be set"))
	}
	if cfg.Influx.Enabled && (cfg.Influx.URL == "" || cfg.Influx.Bucket == "") {
		errs = append(errs, errors.New("influx.url and influx.bucket must be set"))
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr must be set"))
	}

	if cfg.Dashboard.Refresh <= 0 {
		errs = append(errs, errors.New("dashboard.refresh must be positive"))
	}
	if cfg.Dashboard.Days <= 0 || cfg.Plot.BiweeklyDays <= 0 {
		errs = append(errs, errors.New("dashboard.days and plot.biweekly_days must be positive"))
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %s", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %s", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/i474232898/weather-now/internal/weather"
)

var validate = validator.New()

// Config holds all application configuration.
type Config struct {
	WeatherAPI   WeatherAPIConfig   `mapstructure:"weatherapi"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Location     LocationConfig     `mapstructure:"location"`
	Geocoder     GeocoderConfig     `mapstructure:"geocoder"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
	Server       ServerConfig       `mapstructure:"server"`
	Log          LogConfig          `mapstructure:"log"`
	NATS         NATSConfig         `mapstructure:"nats"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

type WeatherAPIConfig struct {
	Key          string `mapstructure:"key"`
	BaseURL      string `mapstructure:"base_url" validate:"required,url"`
	ForecastDays int    `mapstructure:"forecast_days" validate:"min=1,max=14"`
	EncodeQuery  bool   `mapstructure:"encode_query"`
}

type HTTPConfig struct {
	// Timeout bounds each outbound request; zero disables it.
	Timeout time.Duration `mapstructure:"timeout"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LocationConfig seeds the location provider. Latitude and longitude are
// either both set or both unset.
type LocationConfig struct {
	Latitude  *float64 `mapstructure:"-" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `mapstructure:"-" validate:"omitempty,gte=-180,lte=180"`
	City      string   `mapstructure:"city"`
	Country   string   `mapstructure:"country"`
}

// Coordinate returns the configured coordinate, or nil when none is set.
func (l LocationConfig) Coordinate() *weather.Coordinate {
	if l.Latitude == nil || l.Longitude == nil {
		return nil
	}
	return &weather.Coordinate{Latitude: *l.Latitude, Longitude: *l.Longitude}
}

type GeocoderConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	// Cron, when set, replaces Interval. Standard five-field syntax.
	Cron string `mapstructure:"cron"`
}

type OrchestratorConfig struct {
	DropStale               bool `mapstructure:"drop_stale"`
	ReportMissingCoordinate bool `mapstructure:"report_missing_coordinate"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" validate:"gt=0,lte=65535"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

type NATSConfig struct {
	// URL enables the outcome sink when non-empty.
	URL string `mapstructure:"url"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	ServiceName string `mapstructure:"service_name" validate:"required"`
}

// Load reads .env, an optional config.yaml and WEATHERNOW_* environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	v := viper.New()

	v.SetDefault("weatherapi.key", "")
	v.SetDefault("weatherapi.base_url", weather.DefaultBaseURL)
	v.SetDefault("weatherapi.forecast_days", weather.DefaultForecastDays)
	v.SetDefault("weatherapi.encode_query", false)
	v.SetDefault("http.timeout", weather.DefaultTimeout)
	v.SetDefault("http.breaker.enabled", false)
	v.SetDefault("http.breaker.timeout", 30*time.Second)
	v.SetDefault("location.city", "")
	v.SetDefault("location.country", "")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("scheduler.interval", 15*time.Minute)
	v.SetDefault("scheduler.cron", "")
	v.SetDefault("orchestrator.drop_stale", true)
	v.SetDefault("orchestrator.report_missing_coordinate", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("nats.url", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "weather-now")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// WEATHERNOW_LOCATION_LATITUDE → location.latitude
	v.SetEnvPrefix("WEATHERNOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("location.latitude")
	_ = v.BindEnv("location.longitude")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// No default exists for these, so presence is meaningful.
	if v.IsSet("location.latitude") {
		lat := v.GetFloat64("location.latitude")
		cfg.Location.Latitude = &lat
	}
	if v.IsSet("location.longitude") {
		lon := v.GetFloat64("location.longitude")
		cfg.Location.Longitude = &lon
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that configuration fields are present and sane.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if (c.Location.Latitude == nil) != (c.Location.Longitude == nil) {
		return errors.New("location.latitude and location.longitude must be set together")
	}

	if c.Scheduler.Cron != "" {
		if _, err := cron.ParseStandard(c.Scheduler.Cron); err != nil {
			return fmt.Errorf("invalid scheduler.cron %q: %w", c.Scheduler.Cron, err)
		}
	} else if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", c.Scheduler.Interval)
	}

	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative, got %s", c.HTTP.Timeout)
	}
	return nil
}

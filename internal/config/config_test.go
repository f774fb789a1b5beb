package config

import (
	"strings"
	"testing"
	"time"

	"github.com/i474232898/weather-now/internal/weather"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WeatherAPI.BaseURL != weather.DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.WeatherAPI.BaseURL)
	}
	if cfg.WeatherAPI.ForecastDays != 7 {
		t.Errorf("ForecastDays = %d, want 7", cfg.WeatherAPI.ForecastDays)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("HTTP.Timeout = %s, want 30s", cfg.HTTP.Timeout)
	}
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Errorf("Scheduler.Interval = %s, want 15m", cfg.Scheduler.Interval)
	}
	if !cfg.Orchestrator.DropStale {
		t.Error("DropStale should default to true")
	}
	if cfg.Orchestrator.ReportMissingCoordinate {
		t.Error("ReportMissingCoordinate should default to false")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Location.Coordinate() != nil {
		t.Errorf("expected no coordinate, got %v", cfg.Location.Coordinate())
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("WEATHERNOW_WEATHERAPI_KEY", "secret")
	t.Setenv("WEATHERNOW_WEATHERAPI_FORECAST_DAYS", "3")
	t.Setenv("WEATHERNOW_HTTP_TIMEOUT", "5s")
	t.Setenv("WEATHERNOW_LOCATION_LATITUDE", "30.0444")
	t.Setenv("WEATHERNOW_LOCATION_LONGITUDE", "31.2357")
	t.Setenv("WEATHERNOW_ORCHESTRATOR_DROP_STALE", "false")
	t.Setenv("WEATHERNOW_SCHEDULER_CRON", "*/10 * * * *")
	t.Setenv("WEATHERNOW_SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WeatherAPI.Key != "secret" {
		t.Errorf("Key = %q", cfg.WeatherAPI.Key)
	}
	if cfg.WeatherAPI.ForecastDays != 3 {
		t.Errorf("ForecastDays = %d", cfg.WeatherAPI.ForecastDays)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s", cfg.HTTP.Timeout)
	}
	if cfg.Orchestrator.DropStale {
		t.Error("DropStale should be false")
	}
	if cfg.Scheduler.Cron != "*/10 * * * *" {
		t.Errorf("Cron = %q", cfg.Scheduler.Cron)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}

	c := cfg.Location.Coordinate()
	if c == nil || c.Latitude != 30.0444 || c.Longitude != 31.2357 {
		t.Errorf("Coordinate() = %v", c)
	}
}

func TestLoad_ZeroCoordinateIsSet(t *testing.T) {
	t.Setenv("WEATHERNOW_LOCATION_LATITUDE", "0")
	t.Setenv("WEATHERNOW_LOCATION_LONGITUDE", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c := cfg.Location.Coordinate(); c == nil || *c != (weather.Coordinate{}) {
		t.Errorf("Coordinate() = %v, want 0,0", c)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		errContains string
	}{
		{
			name:        "latitude out of range",
			env:         map[string]string{"WEATHERNOW_LOCATION_LATITUDE": "91", "WEATHERNOW_LOCATION_LONGITUDE": "0"},
			errContains: "Latitude",
		},
		{
			name:        "latitude without longitude",
			env:         map[string]string{"WEATHERNOW_LOCATION_LATITUDE": "10"},
			errContains: "set together",
		},
		{
			name:        "bad cron",
			env:         map[string]string{"WEATHERNOW_SCHEDULER_CRON": "every tuesday"},
			errContains: "scheduler.cron",
		},
		{
			name:        "zero interval",
			env:         map[string]string{"WEATHERNOW_SCHEDULER_INTERVAL": "0s"},
			errContains: "scheduler.interval",
		},
		{
			name:        "unknown log level",
			env:         map[string]string{"WEATHERNOW_LOG_LEVEL": "loud"},
			errContains: "Level",
		},
		{
			name:        "forecast days",
			env:         map[string]string{"WEATHERNOW_WEATHERAPI_FORECAST_DAYS": "0"},
			errContains: "ForecastDays",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.errContains)
			}
		})
	}
}

func TestValidate_TelemetryEndpoint(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "Endpoint") {
		t.Errorf("expected Endpoint error, got %v", err)
	}

	cfg.Telemetry.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled telemetry should not need an endpoint: %v", err)
	}
}

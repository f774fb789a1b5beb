package weather

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

func TestEndpoints_ForecastURL(t *testing.T) {
	tests := []struct {
		name  string
		coord Coordinate
		wantQ string
	}{
		{name: "cairo", coord: Coordinate{Latitude: 30.0444, Longitude: 31.2357}, wantQ: "30.0444,31.2357"},
		{name: "negative", coord: Coordinate{Latitude: -33.8688, Longitude: -151.2093}, wantQ: "-33.8688,-151.2093"},
		{name: "whole degrees", coord: Coordinate{Latitude: 0, Longitude: 180}, wantQ: "0,180"},
		{name: "high precision", coord: Coordinate{Latitude: 39.115391234567, Longitude: -107.658401234567}, wantQ: "39.115391234567,-107.658401234567"},
	}

	e := NewEndpoints("test-key")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := e.ForecastURL(&tt.coord)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if strings.Count(raw, "q=") != 1 {
				t.Fatalf("expected exactly one q= parameter in %s", raw)
			}

			u, err := url.Parse(raw)
			if err != nil {
				t.Fatalf("url does not parse: %v", err)
			}
			q := u.Query()
			if got := q.Get("q"); got != tt.wantQ {
				t.Errorf("q = %q, want %q", got, tt.wantQ)
			}
			if got := q.Get("key"); got != "test-key" {
				t.Errorf("key = %q, want test-key", got)
			}
			if got := q.Get("days"); got != "7" {
				t.Errorf("days = %q, want 7", got)
			}
			if q.Get("aqi") != "no" || q.Get("alerts") != "no" {
				t.Errorf("aqi/alerts flags missing in %s", raw)
			}
			if !strings.HasPrefix(raw, "https://api.weatherapi.com/v1/forecast.json?") {
				t.Errorf("unexpected base in %s", raw)
			}
		})
	}
}

func TestEndpoints_ForecastURL_RawFormat(t *testing.T) {
	e := Endpoints{BaseURL: "https://api.weatherapi.com/v1/", APIKey: "abc", ForecastDays: 3}

	got, err := e.ForecastURL(&Coordinate{Latitude: 30.0444, Longitude: 31.2357})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "https://api.weatherapi.com/v1/forecast.json?key=abc&q=30.0444,31.2357&days=3&aqi=no&alerts=no"
	if got != want {
		t.Errorf("ForecastURL() = %s, want %s", got, want)
	}
}

func TestEndpoints_ForecastURL_Encoded(t *testing.T) {
	e := NewEndpoints("abc")
	e.EncodeQuery = true

	got, err := e.ForecastURL(&Coordinate{Latitude: 30.0444, Longitude: 31.2357})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "q=30.0444%2C31.2357") {
		t.Errorf("expected encoded coordinate in %s", got)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("url does not parse: %v", err)
	}
	if q := u.Query().Get("q"); q != "30.0444,31.2357" {
		t.Errorf("decoded q = %q", q)
	}
}

func TestEndpoints_ForecastURL_MissingCoordinate(t *testing.T) {
	e := NewEndpoints("abc")

	got, err := e.ForecastURL(nil)
	if !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("expected ErrInvalidCoordinate, got %v", err)
	}
	if got != "" {
		t.Errorf("expected empty URL, got %s", got)
	}
}

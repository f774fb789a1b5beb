package weather

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultBaseURL      = "https://api.weatherapi.com/v1"
	DefaultForecastDays = 7
)

// Endpoints builds weatherapi.com request URLs. It never touches the network.
type Endpoints struct {
	BaseURL      string
	APIKey       string
	ForecastDays int
	// EncodeQuery percent-encodes the query string. weatherapi.com accepts
	// the raw "lat,lon" form, so this stays off unless a provider needs it.
	EncodeQuery bool
}

// NewEndpoints returns Endpoints with the package defaults filled in.
func NewEndpoints(apiKey string) Endpoints {
	return Endpoints{
		BaseURL:      DefaultBaseURL,
		APIKey:       apiKey,
		ForecastDays: DefaultForecastDays,
	}
}

// ForecastURL returns the current-plus-forecast URL for c.
func (e Endpoints) ForecastURL(c *Coordinate) (string, error) {
	if c == nil {
		return "", &Error{Kind: KindInvalidCoordinate, Err: fmt.Errorf("coordinate is not available")}
	}

	base := strings.TrimRight(e.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	days := e.ForecastDays
	if days <= 0 {
		days = DefaultForecastDays
	}

	if e.EncodeQuery {
		values := url.Values{}
		values.Set("key", e.APIKey)
		values.Set("q", c.String())
		values.Set("days", strconv.Itoa(days))
		values.Set("aqi", "no")
		values.Set("alerts", "no")
		return fmt.Sprintf("%s/forecast.json?%s", base, values.Encode()), nil
	}

	return fmt.Sprintf("%s/forecast.json?key=%s&q=%s&days=%d&aqi=no&alerts=no",
		base, url.QueryEscape(e.APIKey), c.String(), days), nil
}

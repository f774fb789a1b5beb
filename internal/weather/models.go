package weather

import (
	"strconv"
	"strings"
)

// Coordinate is a device position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// String renders the coordinate the way the provider's q parameter expects it.
func (c Coordinate) String() string {
	return formatDegrees(c.Latitude) + "," + formatDegrees(c.Longitude)
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Location is the place the provider resolved the coordinate to.
type Location struct {
	Region string `json:"region"`
}

// Current holds the present conditions.
type Current struct {
	TemperatureC      float64 `json:"temperatureC"`
	ConditionIconPath string  `json:"conditionIconPath"`
}

// ForecastDay is one day of the forecast horizon.
type ForecastDay struct {
	Date                string  `json:"date"`
	AverageTemperatureC float64 `json:"averageTemperatureC"`
	ConditionIconPath   string  `json:"conditionIconPath"`
}

// WeatherRecord is the fully decoded provider answer for one fetch.
// Forecast entries keep the provider's order (ascending date).
type WeatherRecord struct {
	Location Location      `json:"location"`
	Current  Current       `json:"current"`
	Forecast []ForecastDay `json:"forecast"`
}

// IconURL turns a protocol-relative icon path ("//cdn.weatherapi.com/...")
// into a fetchable https URL. Absolute URLs are returned as is.
func IconURL(path string) string {
	if strings.HasPrefix(path, "//") {
		return "https:" + path
	}
	return path
}

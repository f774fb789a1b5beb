package weather

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Wire shapes of the forecast.json response. Every field the record needs is
// a pointer tagged required, so absence (or an explicit null) is detectable
// and a zero value such as 0°C still counts as present.
type forecastPayload struct {
	Location *payloadLocation `json:"location" validate:"required"`
	Current  *payloadCurrent  `json:"current" validate:"required"`
	Forecast *payloadForecast `json:"forecast" validate:"required"`
}

type payloadLocation struct {
	Region *string `json:"region" validate:"required"`
}

type payloadCondition struct {
	Icon *string `json:"icon" validate:"required"`
}

type payloadCurrent struct {
	TempC     *float64          `json:"temp_c" validate:"required"`
	Condition *payloadCondition `json:"condition" validate:"required"`
}

type payloadForecast struct {
	ForecastDay []payloadForecastDay `json:"forecastday" validate:"required,dive"`
}

type payloadForecastDay struct {
	Date *string     `json:"date" validate:"required"`
	Day  *payloadDay `json:"day" validate:"required"`
}

type payloadDay struct {
	AvgTempC  *float64          `json:"avgtemp_c" validate:"required"`
	Condition *payloadCondition `json:"condition" validate:"required"`
}

// Decode turns a forecast.json body into a WeatherRecord. It is all or
// nothing: any syntax error or missing field yields KindMalformedPayload and
// a zero record.
func Decode(data []byte) (WeatherRecord, error) {
	var p forecastPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return WeatherRecord{}, &Error{Kind: KindMalformedPayload, Err: fmt.Errorf("parse: %w", err)}
	}
	if err := validate.Struct(p); err != nil {
		return WeatherRecord{}, &Error{Kind: KindMalformedPayload, Err: fmt.Errorf("missing field: %w", err)}
	}

	days := make([]ForecastDay, 0, len(p.Forecast.ForecastDay))
	for _, d := range p.Forecast.ForecastDay {
		days = append(days, ForecastDay{
			Date:                *d.Date,
			AverageTemperatureC: *d.Day.AvgTempC,
			ConditionIconPath:   *d.Day.Condition.Icon,
		})
	}

	return WeatherRecord{
		Location: Location{Region: *p.Location.Region},
		Current: Current{
			TemperatureC:      *p.Current.TempC,
			ConditionIconPath: *p.Current.Condition.Icon,
		},
		Forecast: days,
	}, nil
}

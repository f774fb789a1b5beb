package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/i474232898/weather-now/internal/metrics"
	"github.com/i474232898/weather-now/internal/weather"
)

var validate = validator.New()

// Weather is the orchestrator surface the API uses.
type Weather interface {
	Fetch(ctx context.Context, coord *weather.Coordinate) <-chan weather.State
	State() weather.State
	Latest() (weather.Outcome, bool)
	Subscribe(buffer int) (<-chan weather.Outcome, func())
}

// Location is the location provider surface the API uses.
type Location interface {
	Coordinate() *weather.Coordinate
	Set(c weather.Coordinate) error
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, w Weather, loc Location, logger *slog.Logger) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	v1 := app.Group("/api/v1")

	v1.Put("/location", func(c *fiber.Ctx) error {
		var req locationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		coord := req.toCoordinate()
		if err := loc.Set(coord); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"location": coord,
		})
	})

	v1.Get("/location", func(c *fiber.Ctx) error {
		coord := loc.Coordinate()
		if coord == nil {
			return fiber.NewError(fiber.StatusNotFound, "location not known yet")
		}
		return c.JSON(coord)
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		coord := loc.Coordinate()
		// Detached from the request; the fetch outlives the response.
		w.Fetch(context.Background(), coord)

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":        "accepted",
			"locationKnown": coord != nil,
		})
	})

	v1.Get("/weather", func(c *fiber.Ctx) error {
		out, ok := w.Latest()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no weather fetched yet")
		}
		return c.JSON(fiber.Map{
			"state":   w.State(),
			"outcome": out,
		})
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		rec, err := latestRecord(w)
		if err != nil {
			return err
		}
		return c.JSON(currentResponse{
			Region:       rec.Location.Region,
			TemperatureC: rec.Current.TemperatureC,
			IconURL:      weather.IconURL(rec.Current.ConditionIconPath),
		})
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		var q forecastQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := latestRecord(w)
		if err != nil {
			return err
		}

		days := rec.Forecast
		if q.Days > 0 && q.Days < len(days) {
			days = days[:q.Days]
		}

		resp := forecastResponse{
			Region: rec.Location.Region,
			Days:   make([]forecastDayResponse, 0, len(days)),
		}
		for _, d := range days {
			resp.Days = append(resp.Days, forecastDayResponse{
				Date:                d.Date,
				AverageTemperatureC: d.AverageTemperatureC,
				IconURL:             weather.IconURL(d.ConditionIconPath),
			})
		}
		return c.JSON(resp)
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/weather", websocket.New(StreamHandler(w, logger)))
}

// latestRecord returns the record of the latest outcome when it is a success.
func latestRecord(w Weather) (*weather.WeatherRecord, error) {
	out, ok := w.Latest()
	if !ok || out.Kind != weather.OutcomeSuccess || out.Record == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "no weather record available")
	}
	return out.Record, nil
}

// locationRequest is the body of PUT /api/v1/location. Pointers make a
// missing field distinguishable from 0.
type locationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (r locationRequest) toCoordinate() weather.Coordinate {
	return weather.Coordinate{
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
	}
}

// forecastQuery holds query parameters for the forecast endpoint.
type forecastQuery struct {
	// Days limits the number of returned days; zero returns all of them.
	Days int `validate:"omitempty,min=1,max=14"`
}

func (q *forecastQuery) bind(c *fiber.Ctx) error {
	s := c.Query("days")
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("days must be an integer")
	}
	if n == 0 {
		return errors.New("days must be between 1 and 14")
	}
	q.Days = n
	return nil
}

type currentResponse struct {
	Region       string  `json:"region"`
	TemperatureC float64 `json:"temperatureC"`
	IconURL      string  `json:"iconUrl"`
}

type forecastDayResponse struct {
	Date                string  `json:"date"`
	AverageTemperatureC float64 `json:"averageTemperatureC"`
	IconURL             string  `json:"iconUrl"`
}

type forecastResponse struct {
	Region string                `json:"region"`
	Days   []forecastDayResponse `json:"days"`
}

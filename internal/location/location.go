package location

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-now/internal/weather"
)

var validate = validator.New()

// Source produces a best-effort coordinate for the device.
type Source interface {
	Locate(ctx context.Context) (weather.Coordinate, error)
}

// Provider holds the device's last known coordinate. It is constructed once
// and handed to whatever needs a coordinate.
type Provider struct {
	mu        sync.RWMutex
	coord     *weather.Coordinate
	listeners []func(weather.Coordinate)
	logger    *slog.Logger
}

// NewProvider returns a Provider with no coordinate yet.
func NewProvider(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		logger: logger.With("component", "location"),
	}
}

// Coordinate returns a copy of the current coordinate, or nil while unknown.
func (p *Provider) Coordinate() *weather.Coordinate {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.coord == nil {
		return nil
	}
	c := *p.coord
	return &c
}

// OnUpdate registers fn to run after every accepted update.
func (p *Provider) OnUpdate(fn func(weather.Coordinate)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Set validates and stores c, then notifies listeners.
func (p *Provider) Set(c weather.Coordinate) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}

	p.mu.Lock()
	p.coord = &c
	listeners := make([]func(weather.Coordinate), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	p.logger.Info("location updated", "latitude", c.Latitude, "longitude", c.Longitude)

	for _, fn := range listeners {
		fn(c)
	}
	return nil
}

// Resolve asks src for a coordinate and stores it.
func (p *Provider) Resolve(ctx context.Context, src Source) error {
	c, err := src.Locate(ctx)
	if err != nil {
		p.logger.Error("failed to resolve location", "error", err)
		return fmt.Errorf("failed to resolve location: %w", err)
	}
	return p.Set(c)
}

package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/i474232898/weather-now/internal/weather"
)

// SubjectPrefix is followed by the outcome kind, e.g. weather.outcomes.success.
const SubjectPrefix = "weather.outcomes."

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Source is the part of *weather.Orchestrator the sink needs.
type Source interface {
	Subscribe(buffer int) (<-chan weather.Outcome, func())
}

// Connect dials NATS with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("weather-now"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// Sink forwards orchestrator outcomes to NATS as JSON.
type Sink struct {
	pub    Publisher
	logger *slog.Logger
}

func NewSink(pub Publisher, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		pub:    pub,
		logger: logger.With("component", "nats-sink"),
	}
}

// Run relays outcomes from src until ctx is cancelled.
func (s *Sink) Run(ctx context.Context, src Source) {
	events, cancel := src.Subscribe(16)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case out, ok := <-events:
			if !ok {
				return
			}
			if err := s.publish(out); err != nil {
				s.logger.Error("failed to publish outcome", "fetch_id", out.FetchID, "error", err)
			}
		}
	}
}

func (s *Sink) publish(out weather.Outcome) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	return s.pub.Publish(SubjectPrefix+string(out.Kind), data)
}

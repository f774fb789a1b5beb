package weather

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"github.com/i474232898/weather-now/internal/metrics"
)

// State is the orchestrator's position in Idle → Loading → {Success, Failure}.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateFailure State = "failure"
	// StateSuperseded is returned to the caller of a fetch whose completion
	// was discarded because a newer fetch had started. The orchestrator
	// itself never enters it.
	StateSuperseded State = "superseded"
)

// OutcomeKind tags an Outcome.
type OutcomeKind string

const (
	OutcomeLoading OutcomeKind = "loading"
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is one event on the publish channel. Loading outcomes carry the
// Loading flag, Success carries Record, Failure carries ErrorKind and Message.
type Outcome struct {
	Kind      OutcomeKind    `json:"kind"`
	Loading   bool           `json:"loading"`
	Record    *WeatherRecord `json:"record,omitempty"`
	ErrorKind ErrorKind      `json:"errorKind,omitempty"`
	Message   string         `json:"message,omitempty"`
	FetchID   string         `json:"fetchId"`
	Seq       uint64         `json:"seq"`
	At        time.Time      `json:"at"`
}

// URLBuilder produces the request URL for a coordinate.
type URLBuilder interface {
	ForecastURL(c *Coordinate) (string, error)
}

// BodyFetcher performs the single GET of a fetch.
type BodyFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Options tune orchestrator behaviour.
type Options struct {
	// DropStale discards completions of fetches that were overtaken by a
	// newer one (latest request wins). When false the last completion to
	// arrive wins.
	DropStale bool
	// ReportMissingCoordinate publishes Failure(InvalidCoordinate) for a nil
	// coordinate instead of silently staying idle.
	ReportMissingCoordinate bool
}

type subscriber struct {
	ch   chan Outcome
	done chan struct{}
	once sync.Once
}

// Orchestrator runs the coordinate → URL → GET → decode pipeline and
// publishes its outcomes to subscribers.
type Orchestrator struct {
	endpoints URLBuilder
	fetcher   BodyFetcher
	decode    func([]byte) (WeatherRecord, error)
	logger    *slog.Logger
	tracer    trace.Tracer
	opts      Options

	seq   *atomic.Uint64
	state *atomic.String

	// mu serialises emission and guards subs and nextSub.
	mu      sync.Mutex
	subs    map[uint64]*subscriber
	nextSub uint64

	latestMu sync.RWMutex
	latest   *Outcome
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(endpoints URLBuilder, fetcher BodyFetcher, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		endpoints: endpoints,
		fetcher:   fetcher,
		decode:    Decode,
		logger:    logger.With("component", "orchestrator"),
		tracer:    otel.Tracer("github.com/i474232898/weather-now/internal/weather"),
		opts:      opts,
		seq:       atomic.NewUint64(0),
		state:     atomic.NewString(string(StateIdle)),
		subs:      make(map[uint64]*subscriber),
	}
}

// State reports the current state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Latest returns the most recent outcome of the current fetch cycle.
// Starting a fetch replaces any earlier outcome with its Loading outcome.
func (o *Orchestrator) Latest() (Outcome, bool) {
	o.latestMu.RLock()
	defer o.latestMu.RUnlock()
	if o.latest == nil {
		return Outcome{}, false
	}
	return *o.latest, true
}

// Subscribe registers a listener with a channel of the given buffer size.
// Delivery never blocks the publisher: an outcome that does not fit in the
// buffer is dropped for that listener and counted. cancel closes the
// returned channel.
func (o *Orchestrator) Subscribe(buffer int) (<-chan Outcome, func()) {
	sub := &subscriber{
		ch:   make(chan Outcome, buffer),
		done: make(chan struct{}),
	}

	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = sub
	o.mu.Unlock()

	cancel := func() {
		sub.once.Do(func() {
			close(sub.done)
			o.mu.Lock()
			delete(o.subs, id)
			close(sub.ch)
			o.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Fetch starts a fetch in its own goroutine. The returned channel yields the
// state the fetch ended in and is then closed.
func (o *Orchestrator) Fetch(ctx context.Context, coord *Coordinate) <-chan State {
	if coord != nil {
		c := *coord
		coord = &c
	}
	done := make(chan State, 1)
	go func() {
		defer close(done)
		done <- o.FetchAndPublish(ctx, coord)
	}()
	return done
}

// FetchAndPublish runs one fetch to completion on the calling goroutine.
func (o *Orchestrator) FetchAndPublish(ctx context.Context, coord *Coordinate) State {
	if coord == nil {
		if o.opts.ReportMissingCoordinate {
			return o.reportMissingCoordinate()
		}
		o.logger.Debug("no coordinate available; fetch skipped")
		return o.State()
	}

	ctx, span := o.tracer.Start(ctx, "weather.fetch", trace.WithAttributes(
		attribute.Float64("weather.latitude", coord.Latitude),
		attribute.Float64("weather.longitude", coord.Longitude),
	))
	defer span.End()

	seq, fetchID := o.begin()
	span.SetAttributes(attribute.String("weather.fetch_id", fetchID))

	record, err := o.run(ctx, coord)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
	}
	return o.finish(seq, fetchID, record, err)
}

func (o *Orchestrator) run(ctx context.Context, coord *Coordinate) (WeatherRecord, error) {
	rawURL, err := o.endpoints.ForecastURL(coord)
	if err != nil {
		return WeatherRecord{}, err
	}

	body, err := o.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return WeatherRecord{}, err
	}

	_, span := o.tracer.Start(ctx, "weather.decode")
	defer span.End()
	return o.decode(body)
}

// begin moves to Loading and announces it. Any previous outcome is dropped.
func (o *Orchestrator) begin() (uint64, string) {
	fetchID := uuid.NewString()

	o.mu.Lock()
	defer o.mu.Unlock()

	seq := o.seq.Inc()
	o.state.Store(string(StateLoading))
	o.emit(Outcome{Kind: OutcomeLoading, Loading: true, FetchID: fetchID, Seq: seq})

	o.logger.Debug("fetch started", "fetch_id", fetchID, "seq", seq)
	return seq, fetchID
}

// finish publishes Loading=false followed by Success or Failure.
func (o *Orchestrator) finish(seq uint64, fetchID string, record WeatherRecord, err error) State {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.opts.DropStale && seq != o.seq.Load() {
		metrics.StaleCompletion()
		o.logger.Info("discarding stale fetch completion",
			"fetch_id", fetchID,
			"seq", seq,
			"latest_seq", o.seq.Load(),
		)
		return StateSuperseded
	}

	o.emit(Outcome{Kind: OutcomeLoading, Loading: false, FetchID: fetchID, Seq: seq})

	if err != nil {
		o.state.Store(string(StateFailure))
		o.emit(Outcome{
			Kind:      OutcomeFailure,
			ErrorKind: KindOf(err),
			Message:   userMessage(err),
			FetchID:   fetchID,
			Seq:       seq,
		})
		o.logger.Warn("weather fetch failed",
			"fetch_id", fetchID,
			"kind", KindOf(err),
			"error", err,
		)
		return StateFailure
	}

	o.state.Store(string(StateSuccess))
	o.emit(Outcome{Kind: OutcomeSuccess, Record: &record, FetchID: fetchID, Seq: seq})
	o.logger.Info("weather fetched",
		"fetch_id", fetchID,
		"region", record.Location.Region,
		"temperature_c", record.Current.TemperatureC,
		"forecast_days", len(record.Forecast),
	)
	return StateSuccess
}

func (o *Orchestrator) reportMissingCoordinate() State {
	fetchID := uuid.NewString()
	err := &Error{Kind: KindInvalidCoordinate}

	o.mu.Lock()
	defer o.mu.Unlock()

	seq := o.seq.Inc()
	o.state.Store(string(StateFailure))
	o.emit(Outcome{
		Kind:      OutcomeFailure,
		ErrorKind: KindInvalidCoordinate,
		Message:   userMessage(err),
		FetchID:   fetchID,
		Seq:       seq,
	})
	return StateFailure
}

// emit must be called with o.mu held. Sends are non-blocking, so the lock is
// never held waiting on a listener.
func (o *Orchestrator) emit(out Outcome) {
	out.At = time.Now().UTC()
	stored := out
	o.latestMu.Lock()
	o.latest = &stored
	o.latestMu.Unlock()
	metrics.OutcomePublished(string(out.Kind))

	for _, sub := range o.subs {
		select {
		case <-sub.done:
			continue
		default:
		}
		select {
		case sub.ch <- out:
		default:
			metrics.OutcomeDropped()
			o.logger.Debug("subscriber buffer full; outcome dropped", "kind", out.Kind, "fetch_id", out.FetchID)
		}
	}
}

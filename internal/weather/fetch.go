package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-now/internal/metrics"
)

// DefaultTimeout bounds one upstream call.
const DefaultTimeout = 30 * time.Second

// Fetcher issues exactly one GET per call and maps the answer onto the
// error taxonomy. It never retries.
type Fetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// FetcherOption customises a Fetcher.
type FetcherOption func(*Fetcher)

// WithCircuitBreaker guards the upstream with a breaker that opens after
// consecutive transport or upstream failures. While open, Fetch fails fast
// with KindUpstreamFailure and sends nothing.
func WithCircuitBreaker(name string, openFor time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     openFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				f.logger.Warn("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		})
	}
}

// WithFetchLogger sets the logger used for request diagnostics.
func WithFetchLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher builds a Fetcher around client. A nil client gets DefaultTimeout.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	f := &Fetcher{
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "fetcher")
	return f
}

// Fetch returns the raw response body of a successful GET to rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	body, err := f.execute(ctx, rawURL)

	result := "ok"
	if err != nil {
		result = string(KindOf(err))
		f.logger.Debug("upstream fetch failed", "error", err, "elapsed", time.Since(start))
	}
	metrics.ObserveFetch(result, time.Since(start))

	return body, err
}

func (f *Fetcher) execute(ctx context.Context, rawURL string) ([]byte, error) {
	if f.breaker == nil {
		return f.get(ctx, rawURL)
	}

	// Only failures that say something about upstream health count against
	// the breaker; a rejected key or bad request must not open it.
	var passthrough error
	result, err := f.breaker.Execute(func() (interface{}, error) {
		body, err := f.get(ctx, rawURL)
		if err != nil && !tripsBreaker(err) {
			passthrough = err
			return nil, nil
		}
		return body, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &Error{Kind: KindUpstreamFailure, Err: fmt.Errorf("circuit breaker open: %w", err)}
		}
		return nil, err
	}
	if passthrough != nil {
		return nil, passthrough
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransportFailure, Err: err}
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransportFailure, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if kind, failed := classifyStatus(resp.StatusCode); failed {
		return nil, &Error{Kind: kind, StatusCode: resp.StatusCode, Detail: providerMessage(body)}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &Error{Kind: KindEmptyResponse, StatusCode: resp.StatusCode}
	}

	return body, nil
}

// classifyStatus maps a non-2xx status onto an error kind.
func classifyStatus(code int) (ErrorKind, bool) {
	switch {
	case code >= 200 && code < 300:
		return "", false
	case code == http.StatusBadRequest:
		return KindInvalidRequest, true
	case code == http.StatusUnauthorized:
		return KindMissingAPIKey, true
	case code == http.StatusForbidden:
		return KindQuotaExceeded, true
	case code == http.StatusNotFound, code == http.StatusTooManyRequests:
		return KindUpstreamFailure, true
	case code >= 500 && code <= 998:
		return KindUpstreamFailure, true
	default:
		return KindGenericHTTPFailure, true
	}
}

func tripsBreaker(err error) bool {
	switch KindOf(err) {
	case KindTransportFailure, KindUpstreamFailure:
		return true
	default:
		return false
	}
}

// providerMessage pulls the message out of weatherapi's error envelope:
// {"error":{"code":1006,"message":"No matching location found."}}
func providerMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Message
}

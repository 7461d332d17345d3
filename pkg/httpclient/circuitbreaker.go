package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig tunes when an outbound dependency is considered down.
type CircuitBreakerConfig struct {
	// Name identifies the protected dependency in metrics and logs.
	Name string

	// MaxRequests caps probe requests while half-open. 0 allows a single probe.
	MaxRequests uint32

	// Interval is how often closed-state counters reset. 0 never resets.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureRatio trips the breaker once this share of requests fail.
	FailureRatio float64

	// MinRequests is the sample size required before FailureRatio applies.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns the defaults used for collaborator
// services (auth verify, geocoding).
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// FallbackFunc substitutes a response while the breaker is open. It receives
// the rejection error (normally ErrCircuitOpen).
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

var (
	breakerStateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "httpclient_circuit_breaker_state",
			Help: "Circuit breaker state per dependency (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	breakerFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpclient_circuit_breaker_fallbacks_total",
			Help: "Requests served by the configured fallback while the breaker was open",
		},
		[]string{"name"},
	)
)

func gaugeValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

// ErrCircuitOpen is returned when the breaker rejects a request outright.
var ErrCircuitOpen = gobreaker.ErrOpenState

// CircuitBreakerClient guards a Client against a failing dependency. 5xx
// responses count as failures.
type CircuitBreakerClient struct {
	client   *Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	logger   *slog.Logger
	fallback FallbackFunc
	name     string
}

// NewCircuitBreakerClient wraps client with breaker protection.
func NewCircuitBreakerClient(client *Client, cfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerStateGauge.WithLabelValues(name).Set(gaugeValue(to))
		},
	})

	breakerStateGauge.WithLabelValues(cfg.Name).Set(gaugeValue(gobreaker.StateClosed))

	return &CircuitBreakerClient{
		client:  client,
		breaker: breaker,
		logger:  logger,
		name:    cfg.Name,
	}
}

// WithFallback returns a copy that serves fallback responses instead of
// surfacing ErrCircuitOpen.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	cpy := *c
	cpy.fallback = fn
	return &cpy
}

// Do executes the request through the breaker.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.attempt(ctx, req)
	})
	if err == nil {
		return resp, nil
	}

	if c.fallback != nil && errors.Is(err, ErrCircuitOpen) {
		breakerFallbacks.WithLabelValues(c.name).Inc()
		c.logger.WarnContext(ctx, "circuit breaker open, serving fallback",
			slog.String("breaker", c.name),
		)
		return c.fallback(ctx, err)
	}

	return nil, err
}

func (c *CircuitBreakerClient) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 500 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			body = nil
		}
		_ = resp.Body.Close()
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}

// Get issues a GET request through the breaker.
func (c *CircuitBreakerClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// Post issues a POST request through the breaker.
func (c *CircuitBreakerClient) Post(ctx context.Context, url string, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// State reports the breaker's current state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

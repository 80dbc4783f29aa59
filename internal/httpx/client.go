// Package httpx wraps outbound requests with bounded retry, exponential
// backoff, a circuit breaker, and a shared politeness gate. Every other
// component performs its network calls through a Client so upstream rate
// limits are respected under one budget regardless of worker count.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited and ErrServerError mark transient upstream failures
	// that are retried until the budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	ErrServerError = errors.New("server error")

	// ErrCircuitOpen is returned when the breaker refuses further calls.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// StatusError is a terminal HTTP outcome (non-2xx other than 429/5xx).
// It is never retried.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Config bundles client and resilience settings.
type Config struct {
	Timeout    time.Duration
	Backoff    BackoffConfig
	Politeness time.Duration // minimum spacing between outbound requests; 0 disables the gate
}

// Client is the resilient HTTP collaborator injected into API clients.
// Safe for concurrent use; all callers share the same politeness budget.
type Client struct {
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	backoff BackoffConfig
	log     *slog.Logger
}

// New creates a Client named after the upstream it talks to. The name only
// labels the circuit breaker.
func New(name string, cfg Config, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	backoff := cfg.Backoff
	if backoff.InitialInterval <= 0 {
		backoff.InitialInterval = 500 * time.Millisecond
	}
	if backoff.MaxInterval <= 0 {
		backoff.MaxInterval = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.Politeness > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Politeness), 1)
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		circuit: cb,
		limiter: limiter,
		backoff: backoff,
		log:     logger.With("component", "httpx", "upstream", name),
	}
}

// GetJSON issues a GET for baseURL?params and decodes the 2xx body into out.
// Transient failures (429, 5xx, transport errors) are retried with
// exponential backoff up to the configured budget; any other non-2xx status
// fails immediately with a *StatusError. Failures are returned, never
// panicked, so callers can choose skip-and-continue versus abort.
func (c *Client) GetJSON(ctx context.Context, baseURL string, params url.Values, out any) error {
	body, err := c.Get(ctx, baseURL, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Get issues a GET for baseURL?params and returns the 2xx body.
func (c *Client) Get(ctx context.Context, baseURL string, params url.Values) ([]byte, error) {
	reqURL := baseURL
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", baseURL, params.Encode())
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, err
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.http.Do(req)
			if execErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrServerError, execErr)
			}
			defer resp.Body.Close()

			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrServerError, readErr)
			}

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, ErrRateLimited
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
			}

			return body, nil
		})

		if err == nil {
			body, ok := result.([]byte)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return body, nil
		}

		// If the circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}

		// Terminal statuses are not worth retrying.
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, statusErr
		}

		lastErr = err
		if attempt >= c.backoff.MaxRetries {
			return nil, lastErr
		}

		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.backoff.MaxInterval {
			delay = c.backoff.MaxInterval
		}
		c.log.Debug("retrying request", "url", baseURL, "attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

// IsTransient reports whether err sits in the retried part of the failure
// taxonomy (budget exhausted upstream failures, open breaker).
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerError) || errors.Is(err, ErrCircuitOpen)
}

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"airbnb-explorer/utils"
)

// StatusError is a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// HTTPOptions configure an HTTPFetcher.
type HTTPOptions struct {
	Timeout          time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	BreakerThreshold uint32
	Logger           *utils.Logger
	Client           *http.Client
}

// HTTPFetcher downloads http(s) locators with retry and a circuit breaker.
// Server errors count against the breaker; client errors fail immediately.
type HTTPFetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	retry   *utils.RetryConfig
	logger  *utils.Logger
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	threshold := opts.BreakerThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "source-http",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[fetcher] circuit breaker %s: %v -> %v", name, from, to)
		},
	})

	return &HTTPFetcher{
		client:  client,
		breaker: breaker,
		logger:  logger,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   opts.RetryBaseDelay,
			Logger:      logger,
			Retryable:   retryableHTTP,
		},
	}
}

// Fetch issues a GET and returns the response body.
func (h *HTTPFetcher) Fetch(ctx context.Context, locator string) (io.ReadCloser, error) {
	var body io.ReadCloser

	err := h.retry.Do(ctx, "GET "+locator, func(ctx context.Context) error {
		out, err := h.breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
			if err != nil {
				return nil, err
			}
			resp, err := h.client.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 500 {
				_ = resp.Body.Close()
				return nil, &StatusError{URL: locator, Code: resp.StatusCode}
			}
			return resp, nil
		})
		if err != nil {
			return err
		}

		resp := out.(*http.Response)
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_ = resp.Body.Close()
			return &StatusError{URL: locator, Code: resp.StatusCode}
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}

	h.logger.Debug("[fetcher] downloaded headers for %s", locator)
	return body, nil
}

func retryableHTTP(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return true
}

// Package fetcher implements C4: fetching original image bytes from the
// upstream file API, guarded by a circuit breaker so a failing upstream
// fails fast instead of piling up slow requests.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"imgproxy/internal/imageid"
)

// Error is the typed failure returned when fetching from upstream fails,
// surfaced to callers as FileApiError per spec.md §7.
type Error struct {
	Reason     string
	HTTPStatus *int
}

func (e *Error) Error() string {
	if e.HTTPStatus != nil {
		return fmt.Sprintf("file api error: %s (status %d)", e.Reason, *e.HTTPStatus)
	}
	return fmt.Sprintf("file api error: %s", e.Reason)
}

func newError(reason string, status *int) *Error {
	return &Error{Reason: reason, HTTPStatus: status}
}

// Backend is the upstream fetch contract (C4).
type Backend interface {
	Fetch(ctx context.Context, id imageid.ID) ([]byte, error)
}

// Config configures the HTTP client and circuit breaker wrapping it.
type Config struct {
	BaseURL        string
	TimeoutSeconds int // 0 defaults to 30, matching the original's SimpleFileApiBackend.

	// Circuit breaker tuning; zero values fall back to the defaults below.
	BreakerMinRequests      uint32
	BreakerFailureThreshold float64
	BreakerOpenTimeout      time.Duration
}

// SimpleBackend is the HTTP implementation of Backend: GET {base_url}/{id},
// bounded by a total timeout, a connect timeout of a third of that, and a
// circuit breaker so a string of upstream failures opens the circuit instead
// of piling up slow requests behind it.
type SimpleBackend struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewSimpleBackend builds a SimpleBackend against cfg.
func NewSimpleBackend(cfg Config, logger *zap.Logger) *SimpleBackend {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			// Go's http.Transport has no separate connect-timeout knob on the
			// client itself; DialContext below carries it instead.
			DialContext: (&net.Dialer{Timeout: timeout / 3}).DialContext,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	minRequests := cfg.BreakerMinRequests
	if minRequests == 0 {
		minRequests = 3
	}
	failureThreshold := cfg.BreakerFailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 0.6
	}
	openTimeout := cfg.BreakerOpenTimeout
	if openTimeout == 0 {
		openTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "file-api",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("file api circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &SimpleBackend{
		baseURL: trimTrailingSlash(cfg.BaseURL),
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

// Fetch requests an image's bytes from the upstream file API. A non-200
// response or a transport-level failure is wrapped in *Error; an open
// circuit also surfaces as *Error so callers don't need to special-case
// gobreaker's sentinel errors.
func (b *SimpleBackend) Fetch(ctx context.Context, id imageid.ID) ([]byte, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.doFetch(ctx, id)
	})
	if err != nil {
		if fe, ok := err.(*Error); ok {
			return nil, fe
		}
		// gobreaker.ErrOpenState / ErrTooManyRequests land here.
		b.logger.Debug("file api circuit breaker rejected request",
			zap.String("image_id", id.String()), zap.Error(err))
		return nil, newError("file api temporarily unavailable", nil)
	}
	return result.([]byte), nil
}

func (b *SimpleBackend) doFetch(ctx context.Context, id imageid.ID) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", b.baseURL, id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError("failed to build upstream request", nil)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Debug("file api request failed",
			zap.String("image_id", id.String()), zap.Error(err))
		return nil, newError("failed to request image from base api", nil)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 100))
		b.logger.Debug("file api returned non-200",
			zap.Int("status", resp.StatusCode), zap.ByteString("body_preview", body))
		status := resp.StatusCode
		return nil, newError("got error from file api", &status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError("failed to read file api response body", nil)
	}
	return data, nil
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

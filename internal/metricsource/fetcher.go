// Package metricsource fetches payloads from the third-party metric
// APIs declared in the parameter catalog. Fetches are best effort: the
// aggregator drops failed sources instead of failing the lookup.
package metricsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mx32-chat/backend/internal/metrics"
	"github.com/mx32-chat/backend/pkg/circuitbreaker"
	"github.com/mx32-chat/backend/pkg/logger"
	"github.com/mx32-chat/backend/pkg/retry"
)

// Result is one metric source's response. Payload stays untyped: the
// upstream APIs have no shared schema and the composer serializes the
// payload straight into the prompt.
type Result struct {
	Source  string `json:"source"`
	URL     string `json:"url"`
	Payload any    `json:"payload"`
}

type Fetcher struct {
	httpClient  *http.Client
	retryConfig retry.Config

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

func NewFetcher(timeout time.Duration, maxAttempts int) *Fetcher {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if maxAttempts == 0 {
		maxAttempts = 2
	}

	retryConfig := retry.Config{
		MaxAttempts:    maxAttempts,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	return &Fetcher{
		httpClient:  &http.Client{Timeout: timeout},
		retryConfig: retryConfig,
		breakers:    make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// breaker returns the circuit breaker for one source, creating it on
// first use. Each source trips independently so a dead upstream never
// blocks fetches from the healthy ones.
func (f *Fetcher) breaker(name string) *circuitbreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	cb, ok := f.breakers[name]
	if !ok {
		cb = circuitbreaker.New("metricsource:"+name, circuitbreaker.Config{
			MaxRequests:      5,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 10,
			SuccessThreshold: 2,
			Logger:           logger.GetLogger(),
		})
		f.breakers[name] = cb
	}
	return cb
}

// Fetch performs a GET against one resolved source URL and decodes the
// JSON body. Non-2xx statuses and decode failures are errors; the
// caller decides whether to drop the result.
func (f *Fetcher) Fetch(ctx context.Context, name, url string) (*Result, error) {
	var result *Result

	err := f.breaker(name).Execute(ctx, func() error {
		return retry.Do(ctx, f.retryConfig, func() error {
			payload, err := f.get(ctx, url)
			if err != nil {
				return err
			}
			result = &Result{Source: name, URL: url, Payload: payload}
			return nil
		})
	})

	if err != nil {
		metrics.MetricSourceFailures.WithLabelValues(name).Inc()
		logger.Warn("Metric source fetch failed",
			zap.String("source", name),
			zap.String("url", url),
			zap.Error(err),
		)
		return nil, err
	}

	return result, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metric source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metric source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode metric payload: %w", err)
	}

	return payload, nil
}

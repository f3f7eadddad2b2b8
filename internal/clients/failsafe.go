package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"neutron-agent/internal/logging"
)

// DefaultShouldRetry retries network errors, server errors (5xx) and rate limits (429).
func DefaultShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// HTTPExecutorConfig configures the HTTP executor
type HTTPExecutorConfig struct {
	// MaxRetries of 0 disables the retry policy entirely.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// BreakerName enables a circuit breaker when non-empty.
	BreakerName  string
	BreakerDelay time.Duration
	Logger       logging.Logger

	ShouldRetry func(resp *http.Response, err error) bool
}

// ReadExecutorConfig retries idempotent reads.
func ReadExecutorConfig() HTTPExecutorConfig {
	return HTTPExecutorConfig{
		MaxRetries:  2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		ShouldRetry: DefaultShouldRetry,
	}
}

// WriteExecutorConfig never retries; writes either land once or are reported as failed.
func WriteExecutorConfig() HTTPExecutorConfig {
	return HTTPExecutorConfig{MaxRetries: 0}
}

func normalizeHTTPExecutorConfig(cfg HTTPExecutorConfig) HTTPExecutorConfig {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.BreakerDelay <= 0 {
		cfg.BreakerDelay = 30 * time.Second
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = DefaultShouldRetry
	}
	return cfg
}

// NewHTTPExecutor combines an optional retry policy with an optional circuit breaker.
// It returns nil when neither is configured; callers then call the client directly.
//
//nolint:bodyclose // false positive: [*http.Response] is a generic type parameter, not an actual response
func NewHTTPExecutor(cfg HTTPExecutorConfig) failsafe.Executor[*http.Response] {
	cfg = normalizeHTTPExecutorConfig(cfg)

	var policies []failsafe.Policy[*http.Response]
	if cfg.MaxRetries > 0 {
		policies = append(policies, retrypolicy.NewBuilder[*http.Response]().
			WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
			WithMaxRetries(cfg.MaxRetries).
			WithJitterFactor(0.1).
			HandleIf(cfg.ShouldRetry).
			Build())
	}

	if cfg.BreakerName != "" {
		name := cfg.BreakerName
		logger := cfg.Logger
		builder := circuitbreaker.NewBuilder[*http.Response]().
			WithFailureThresholdRatio(5, 10).
			WithDelay(cfg.BreakerDelay).
			WithSuccessThreshold(1).
			HandleIf(func(resp *http.Response, err error) bool {
				if err != nil {
					return true
				}
				return resp != nil && resp.StatusCode >= 500
			})
		if logger != nil {
			builder = builder.OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
				logger.WithFields(logging.Fields{
					"circuit_breaker": name,
					"from_state":      stateName(event.OldState),
					"to_state":        stateName(event.NewState),
				}).Warn("circuit breaker state change")
			})
		}
		policies = append(policies, builder.Build())
	}

	if len(policies) == 0 {
		return nil
	}
	return failsafe.With(policies...)
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}

// ExecuteHTTP runs fn through executor, or directly when executor is nil.
// Responses that will be retried are closed before the next attempt.
func ExecuteHTTP(ctx context.Context, executor failsafe.Executor[*http.Response], shouldRetry func(*http.Response, error) bool, fn func() (*http.Response, error)) (*http.Response, error) {
	if executor == nil {
		return fn()
	}
	return executor.WithContext(ctx).Get(func() (*http.Response, error) {
		resp, err := fn()
		if shouldRetry != nil && shouldRetry(resp, err) && resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return resp, err
	})
}

package model

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/neuraloverlay/apex-go-sdk/logging"
)

// BreakerConfig configures the circuit breaker wrapping a Model.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// ReadyToTripRatio is the failure ratio that opens the breaker.
	// Requires at least 3 observed requests before tripping.
	ReadyToTripRatio float64
}

// DefaultBreakerConfig returns conservative defaults: 60s open timeout,
// trip at 60% failures.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		ReadyToTripRatio: 0.6,
	}
}

type breakerModel struct {
	inner Model
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps a Model with circuit breaking. While the breaker is
// open, Complete fails fast without reaching the backend.
func WithBreaker(m Model, cfg BreakerConfig, logger logging.Logger) Model {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	st := gobreaker.Settings{
		Name:        m.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("model circuit breaker state change",
				"model", name, "from", from.String(), "to", to.String())
		},
	}

	return &breakerModel{
		inner: m,
		cb:    gobreaker.NewCircuitBreaker(st),
	}
}

func (b *breakerModel) Name() string { return b.inner.Name() }

func (b *breakerModel) Complete(ctx context.Context, req *Request) (*Response, error) {
	resp, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*Response), nil
}

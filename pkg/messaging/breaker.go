package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abgdnv/gocatalog/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// ErrPublisherUnavailable is returned while the breaker is open and events are rejected without being sent.
var ErrPublisherUnavailable = errors.New("event publisher unavailable")

// BreakerPublisher retries a failed publish with exponential backoff and trips a circuit breaker
// after repeated failures, so a broker outage costs one fast rejection per event.
type BreakerPublisher struct {
	next    Publisher
	breaker *gobreaker.CircuitBreaker[struct{}]
	retry   config.RetryConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewBreakerPublisher wraps next using the resilience settings.
func NewBreakerPublisher(name string, next Publisher, cfg config.ResilienceConfig) *BreakerPublisher {
	cb := cfg.CircuitBreaker
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cb.HalfOpenRequests,
		Timeout:     cb.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cb.ConsecutiveFailures ||
				(total > cb.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cb.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			// the caller giving up is not a broker failure
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerPublisher{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[struct{}](st),
		retry:   cfg.Retry,
		sleep:   sleepContext,
	}
}

func (p *BreakerPublisher) Publish(ctx context.Context, event Event) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publishWithRetry(ctx, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %w", ErrPublisherUnavailable, event.Subject(), err)
	}
	return err
}

// State reports the breaker state, mostly for logs and tests.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.breaker.State()
}

func (p *BreakerPublisher) publishWithRetry(ctx context.Context, event Event) error {
	attempts := max(p.retry.MaxAttempts, 1)
	backoff := p.retry.InitialBackoff
	var err error
	for attempt := uint(1); attempt <= attempts; attempt++ {
		if err = p.next.Publish(ctx, event); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if sleepErr := p.sleep(ctx, backoff); sleepErr != nil {
			return sleepErr
		}
		backoff *= 2
		if p.retry.MaxBackoff > 0 && backoff > p.retry.MaxBackoff {
			backoff = p.retry.MaxBackoff
		}
	}
	return fmt.Errorf("publish %s failed after %d attempts: %w", event.Subject(), attempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

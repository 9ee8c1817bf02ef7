package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker in front of a remote cache
type BreakerConfig struct {
	Name                string        `yaml:"name"`
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	ErrorRateThreshold  float64       `yaml:"error_rate_threshold"` // percent, after 10 requests
}

// DefaultBreakerConfig trips after 5 consecutive failures and probes again after 30s
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "redis-cache",
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
		ErrorRateThreshold:  50,
	}
}

// BreakerCache guards a Cache with a circuit breaker. While the circuit is
// open every Get is a miss and every Set is dropped, so valuation requests
// bypass a failing Redis instead of waiting on it.
type BreakerCache struct {
	next    Cache
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerCache wraps next; onChange, when set, sees every state transition
func NewBreakerCache(next Cache, cfg BreakerConfig, onChange func(from, to string)) *BreakerCache {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			if counts.Requests >= 10 {
				rate := float64(counts.TotalFailures) / float64(counts.Requests) * 100
				return rate >= cfg.ErrorRateThreshold
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
			if onChange != nil {
				onChange(from.String(), to.String())
			}
		},
	}
	return &BreakerCache{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state ("closed", "half-open", "open")
func (b *BreakerCache) State() string {
	return b.breaker.State().String()
}

type getResult struct {
	val []byte
	ok  bool
}

func (b *BreakerCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		v, ok, err := b.next.Get(ctx, key)
		return getResult{val: v, ok: ok}, err
	})
	if err != nil {
		if bypassed(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	r := res.(getResult)
	return r.val, r.ok, nil
}

func (b *BreakerCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.Set(ctx, key, val, ttl)
	})
	if bypassed(err) {
		return nil
	}
	return err
}

func bypassed(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Package resilient guards a remote progress store with a circuit breaker and
// a bulkhead. Calls are never retried; a failed write is reported to the
// caller as-is.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
)

// Config holds configuration for the resilient store wrapper
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit (default: 5)
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open before probing (default: 30s)
	OpenTimeout time.Duration

	// MaxConcurrent bounds in-flight store calls (default: 10)
	MaxConcurrent int

	// QueueTimeout bounds how long a call waits for a bulkhead slot (default: 5s)
	QueueTimeout time.Duration

	// Name identifies the store in logs
	Name string
}

// DefaultConfig returns defaults suited to a network database
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		MaxConcurrent:    10,
		QueueTimeout:     5 * time.Second,
		Name:             "store",
	}
}

// outcome carries results through fortify. Expected domain errors ride in
// err so they are not counted as breaker failures.
type outcome struct {
	progress *domain.UserProgress
	xp       int
	err      error
}

// Store wraps a progress.Store with fortify resilience patterns
type Store struct {
	next     progress.Store
	breaker  circuitbreaker.CircuitBreaker[outcome]
	bulkhead bulkhead.Bulkhead[outcome]
	name     string
}

// IncrementingStore is a Store whose backend also supports atomic XP increments
type IncrementingStore struct {
	*Store
	inc progress.XPIncrementer
}

var (
	_ progress.Store         = (*Store)(nil)
	_ progress.XPIncrementer = (*IncrementingStore)(nil)
)

// Wrap guards next. The result implements progress.XPIncrementer when next does.
func Wrap(next progress.Store, cfg Config) progress.Store {
	s := newStore(next, cfg)
	if inc, ok := next.(progress.XPIncrementer); ok {
		return &IncrementingStore{Store: s, inc: inc}
	}
	return s
}

func newStore(next progress.Store, cfg Config) *Store {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = def.QueueTimeout
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}

	s := &Store{next: next, name: cfg.Name}
	threshold := cfg.FailureThreshold
	s.breaker = circuitbreaker.New[outcome](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= threshold
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			slog.Warn("store circuit breaker state change",
				"store", cfg.Name,
				"from", from.String(),
				"to", to.String())
		},
	})
	s.bulkhead = bulkhead.New[outcome](bulkhead.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		MaxQueue:      cfg.MaxConcurrent * 2,
		QueueTimeout:  cfg.QueueTimeout,
	})
	return s
}

// Get loads a record through the breaker
func (s *Store) Get(ctx context.Context, learnerID string) (*domain.UserProgress, error) {
	out, err := s.execute(ctx, func(ctx context.Context) outcome {
		p, err := s.next.Get(ctx, learnerID)
		return outcome{progress: p, err: err}
	})
	if err != nil {
		return nil, err
	}
	return out.progress, out.err
}

// Save writes a record through the breaker
func (s *Store) Save(ctx context.Context, p *domain.UserProgress) error {
	out, err := s.execute(ctx, func(ctx context.Context) outcome {
		return outcome{err: s.next.Save(ctx, p)}
	})
	if err != nil {
		return err
	}
	return out.err
}

// IncrementXP delegates the atomic increment through the breaker
func (s *IncrementingStore) IncrementXP(ctx context.Context, learnerID string, amount int) (int, error) {
	out, err := s.execute(ctx, func(ctx context.Context) outcome {
		xp, err := s.inc.IncrementXP(ctx, learnerID, amount)
		return outcome{xp: xp, err: err}
	})
	if err != nil {
		return 0, err
	}
	return out.xp, out.err
}

// execute runs call inside the bulkhead and breaker. Errors that are part of
// the store contract are returned in the outcome and do not trip the breaker;
// anything else counts as a failure. A call rejected before reaching the
// backend is reported as domain.ErrStoreUnavailable.
func (s *Store) execute(ctx context.Context, call func(context.Context) outcome) (outcome, error) {
	reached := false
	out, err := s.breaker.Execute(ctx, func(ctx context.Context) (outcome, error) {
		return s.bulkhead.Execute(ctx, func(ctx context.Context) (outcome, error) {
			reached = true
			out := call(ctx)
			if out.err != nil && !isExpected(out.err) {
				return outcome{}, out.err
			}
			return out, nil
		})
	})
	if err == nil {
		return out, nil
	}
	if !reached && ctx.Err() == nil {
		return outcome{}, fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, s.name, err)
	}
	return outcome{}, err
}

func isExpected(err error) bool {
	return errors.Is(err, domain.ErrProfileNotFound) || errors.Is(err, domain.ErrInvalidInput)
}

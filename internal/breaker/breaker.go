// v1
// breaker.go
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// StateObserver mirrors breaker transitions into metrics.
type StateObserver interface {
	SetCircuitBreakerState(target string, state float64)
}

type Config struct {
	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // how long to stay open before probing
}

// Breaker guards a flaky downstream (the event broker) so a dead dependency
// fast-fails callers instead of blocking the ingest pass on every publish.
type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger
	obs    StateObserver

	mu          sync.Mutex
	state       State
	recentFails int
	openedAt    time.Time
}

func New(name string, cfg Config, logger *slog.Logger, obs StateObserver) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 10 * time.Second
	}
	return &Breaker{name: name, cfg: cfg, logger: logger, obs: obs, state: Closed}
}

// Execute runs op under the breaker. While open and within the reset timeout it
// returns ErrOpen without invoking op; after the timeout a single half-open
// attempt decides whether to close or re-open.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	if state == Open {
		if time.Since(openedAt) < b.cfg.ResetTimeout {
			return ErrOpen
		}
		return b.probe(ctx, op)
	}

	if err := op(ctx); err != nil {
		b.onFailure(err)
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) probe(ctx context.Context, op func(ctx context.Context) error) error {
	b.setState(HalfOpen)
	b.logger.Info("breaker probing", "name", b.name)

	if err := op(ctx); err != nil {
		b.mu.Lock()
		b.state = Open
		b.openedAt = time.Now()
		b.mu.Unlock()
		b.observe(Open)
		b.logger.Warn("breaker probe failed, re-opened", "name", b.name, "error", err)
		return err
	}

	b.mu.Lock()
	b.state = Closed
	b.recentFails = 0
	b.mu.Unlock()
	b.observe(Closed)
	b.logger.Info("breaker closed after probe", "name", b.name)
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	b.recentFails = 0
	b.mu.Unlock()
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	b.recentFails++
	opened := b.recentFails >= b.cfg.MaxFailures && b.state == Closed
	if opened {
		b.state = Open
		b.openedAt = time.Now()
	}
	fails := b.recentFails
	b.mu.Unlock()
	if opened {
		b.observe(Open)
		b.logger.Warn("breaker opened", "name", b.name, "failures", fails, "error", err)
	}
}

func (b *Breaker) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
	b.observe(s)
}

func (b *Breaker) observe(s State) {
	if b.obs == nil {
		return
	}
	b.obs.SetCircuitBreakerState(b.name, float64(s))
}

// CurrentState reports the breaker state for tests and introspection.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

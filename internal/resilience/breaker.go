// Package resilience provides a circuit breaker for calls to backends that
// can go away, such as the PostgreSQL store.
//
// A [Breaker] counts consecutive failures. Once the threshold is reached it
// opens and rejects calls with [ErrOpen] for a cool-down period, then lets a
// limited number of probe calls through. Successful probes close it again.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] while the breaker rejects calls.
var ErrOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [Breaker].
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes a [Breaker]. Zero fields take defaults.
type Config struct {
	// Name labels log lines.
	Name string

	// Threshold is the number of consecutive failures that opens the
	// breaker. Default: 5.
	Threshold int

	// Cooldown is how long the breaker stays open. Default: 30s.
	Cooldown time.Duration

	// Probes is the number of successful half-open calls needed to close.
	// Default: 2.
	Probes int

	// IsFailure decides whether an error counts against the backend. Nil
	// counts every non-nil error.
	IsFailure func(error) bool

	// Now is the clock. Default: time.Now.
	Now func() time.Time
}

// Breaker is safe for concurrent use.
type Breaker struct {
	cfg Config

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	inFlight int // half-open probes running
	passed   int // half-open probes succeeded
}

// New creates a closed Breaker.
func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 2
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{cfg: cfg}
}

// Do calls fn unless the breaker is open and returns fn's error. Errors for
// which IsFailure is false are returned but count as success.
func (b *Breaker) Do(fn func() error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}
	err = fn()
	b.settle(probe, err != nil && b.cfg.IsFailure(err))
	return err
}

func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open {
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.Cooldown {
			return false, ErrOpen
		}
		b.transition(HalfOpen)
	}
	if b.state == HalfOpen {
		if b.inFlight+b.passed >= b.cfg.Probes {
			return false, ErrOpen
		}
		b.inFlight++
		return true, nil
	}
	return false, nil
}

func (b *Breaker) settle(probe, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.inFlight--
		if b.state != HalfOpen {
			return
		}
		if failed {
			b.trip()
			return
		}
		b.passed++
		if b.passed >= b.cfg.Probes {
			b.failures = 0
			b.transition(Closed)
		}
		return
	}

	if !failed {
		b.failures = 0
		return
	}
	b.failures++
	if b.state == Closed && b.failures >= b.cfg.Threshold {
		b.trip()
	}
}

// trip opens the breaker. Must hold b.mu.
func (b *Breaker) trip() {
	b.openedAt = b.cfg.Now()
	b.transition(Open)
	slog.Warn("circuit breaker opened", "name", b.cfg.Name, "failures", b.failures, "cooldown", b.cfg.Cooldown)
}

// transition changes state and resets probe accounting. Must hold b.mu.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	if to != Open {
		slog.Info("circuit breaker state change", "name", b.cfg.Name, "from", b.state, "to", to)
	}
	b.state = to
	b.inFlight = 0
	b.passed = 0
}

// State reports the current state. An open breaker whose cooldown has passed
// reports [HalfOpen]; the transition itself happens on the next call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.cfg.Now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return HalfOpen
	}
	return b.state
}

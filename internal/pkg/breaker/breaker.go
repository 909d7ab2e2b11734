package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/avrebrov/store-api/internal/config"
)

var ErrOpenState = errors.New("circuit breaker is open")

type State uint8

const (
	Closed State = iota
	Open
	HalfOpen
)

// Breaker opens after cfg.Threshold consecutive failures, blocks requests
// for cfg.OpenTimeout, then admits up to cfg.MaxHalfOpen trial requests.
// Outcomes must be reported explicitly via Success/Failure.
type Breaker struct {
	mu  sync.Mutex
	cfg config.Breaker

	state      State
	failCount  uint32
	trials     uint32
	lastChange time.Time
}

func New(cfg config.Breaker) *Breaker {
	return &Breaker{
		cfg:        cfg,
		state:      Closed,
		lastChange: time.Now(),
	}
}

// Allow reports whether a request may proceed. It returns ErrOpenState while
// the circuit is open or the half-open trial budget is spent, and moves
// Open -> HalfOpen once OpenTimeout has elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.lastChange) >= b.cfg.OpenTimeout {
			b.transitionTo(HalfOpen)
			b.trials++
			return nil
		}
		return ErrOpenState
	case HalfOpen:
		if b.trials >= b.cfg.MaxHalfOpen {
			return ErrOpenState
		}
		b.trials++
		return nil
	default:
		return nil
	}
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.transitionTo(Closed)
	case Closed:
		b.failCount = 0
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.transitionTo(Open)
	case Closed:
		b.failCount++
		if b.failCount >= b.cfg.Threshold {
			b.transitionTo(Open)
		}
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transitionTo(next State) {
	b.state = next
	b.lastChange = time.Now()
	b.trials = 0
	if next == Closed {
		b.failCount = 0
	}
}

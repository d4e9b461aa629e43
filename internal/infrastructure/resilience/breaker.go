package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxFailures is the number of consecutive failed launches that opens
	// the breaker. Zero disables it.
	MaxFailures uint32
	// Cooldown is how long the breaker stays open before one trial launch
	// is allowed. Zero keeps it open for the rest of the run.
	Cooldown time.Duration
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// Counts holds the statistics for the circuit breaker
type Counts struct {
	Launches            uint32
	Failures            uint32
	ConsecutiveFailures uint32
	Rejected            uint32
}

// Breaker stops repeatedly spawning a transcoder that cannot start, so a
// misconfigured binary fails fast instead of once per grid.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu      sync.Mutex
	state   State
	counts  Counts
	openAt  time.Time
	lastErr error
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	return &Breaker{
		name:     name,
		settings: settings,
		now:      time.Now,
		state:    StateClosed,
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Counts returns a copy of the internal counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Call runs launch unless the breaker is open. A nil breaker always runs
// it. The error returned while open wraps ErrCircuitOpen and the launch
// error that tripped it.
func Call[T any](b *Breaker, launch func() (T, error)) (T, error) {
	if b == nil {
		return launch()
	}
	if err := b.before(); err != nil {
		var zero T
		return zero, err
	}
	v, err := launch()
	b.after(err)
	return v, err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.currentState() == StateOpen {
		b.counts.Rejected++
		return fmt.Errorf("%s: %w (last launch error: %w)", b.name, ErrCircuitOpen, b.lastErr)
	}
	b.counts.Launches++
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentState()
	if err == nil {
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen {
			b.setState(StateClosed)
		}
		return
	}

	b.lastErr = err
	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	switch state {
	case StateClosed:
		if b.settings.MaxFailures > 0 && b.counts.ConsecutiveFailures >= b.settings.MaxFailures {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

// currentState moves an open breaker to half-open once its cooldown has
// elapsed. Callers hold mu.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.settings.Cooldown > 0 && b.now().Sub(b.openAt) >= b.settings.Cooldown {
		b.setState(StateHalfOpen)
	}
	return b.state
}

// setState changes the state of the circuit breaker
func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	if state == StateOpen {
		b.openAt = b.now()
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}

package payment

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Gateway executes the two settlement primitives against the token network.
// Authorize must precede Settle within one payment invocation; the session
// enforces that ordering.
type Gateway interface {
	Authorize(ctx context.Context, amount decimal.Decimal) error
	Settle(ctx context.Context, amount decimal.Decimal) error
}

const (
	defaultApproveFailureRate = 0.15
	defaultSettleFailureRate  = 0.10
	defaultSettlementDelay    = 1500 * time.Millisecond
)

// Simulator stands in for real ledger/contract calls: each primitive succeeds
// after a fixed delay unless the failure threshold trips. Failure rates and
// the random source are injectable so tests can force either path.
type Simulator struct {
	mutex              sync.Mutex
	approveFailureRate float64
	settleFailureRate  float64
	delay              time.Duration
	randomFloat        func() float64
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithApproveFailureRate sets the authorize denial probability in [0,1].
func WithApproveFailureRate(rate float64) SimulatorOption {
	return func(simulator *Simulator) {
		simulator.approveFailureRate = rate
	}
}

// WithSettleFailureRate sets the settle failure probability in [0,1].
func WithSettleFailureRate(rate float64) SimulatorOption {
	return func(simulator *Simulator) {
		simulator.settleFailureRate = rate
	}
}

// WithSettlementDelay overrides the per-call delay (zero disables it).
func WithSettlementDelay(delay time.Duration) SimulatorOption {
	return func(simulator *Simulator) {
		simulator.delay = delay
	}
}

// WithRandomSource replaces the random source used for failure injection.
func WithRandomSource(randomFloat func() float64) SimulatorOption {
	return func(simulator *Simulator) {
		if randomFloat != nil {
			simulator.randomFloat = randomFloat
		}
	}
}

// NewSimulator wires a Simulator with the demo defaults.
func NewSimulator(options ...SimulatorOption) *Simulator {
	simulator := &Simulator{
		approveFailureRate: defaultApproveFailureRate,
		settleFailureRate:  defaultSettleFailureRate,
		delay:              defaultSettlementDelay,
		randomFloat:        rand.Float64,
	}
	for _, option := range options {
		if option != nil {
			option(simulator)
		}
	}
	return simulator
}

// Authorize approves spending of amount, failing with ErrUserDenied when the
// simulated user declines the signature.
func (simulator *Simulator) Authorize(ctx context.Context, amount decimal.Decimal) error {
	if err := simulator.wait(ctx); err != nil {
		return err
	}
	if simulator.trip(simulator.approveFailureRate) {
		return ErrUserDenied
	}
	return nil
}

// Settle transfers amount, failing with ErrInsufficientFunds when the
// simulated network rejects the transfer.
func (simulator *Simulator) Settle(ctx context.Context, amount decimal.Decimal) error {
	if err := simulator.wait(ctx); err != nil {
		return err
	}
	if simulator.trip(simulator.settleFailureRate) {
		return ErrInsufficientFunds
	}
	return nil
}

func (simulator *Simulator) wait(ctx context.Context) error {
	if simulator.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(simulator.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (simulator *Simulator) trip(rate float64) bool {
	if rate <= 0 {
		return false
	}
	simulator.mutex.Lock()
	defer simulator.mutex.Unlock()
	return simulator.randomFloat() < rate
}

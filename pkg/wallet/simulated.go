package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	demoAddress      = "0x71C...9A23"
	demoBalanceMNEE  = "1540.00"
	defaultConnDelay = 800 * time.Millisecond
)

// SimulatedProvider produces a deterministic placeholder identity with a
// fixed demo balance after a short delay, standing in for a browser wallet.
type SimulatedProvider struct {
	address string
	balance decimal.Decimal
	delay   time.Duration
}

// SimulatedProviderOption configures a SimulatedProvider.
type SimulatedProviderOption func(*SimulatedProvider)

// WithSimulatedIdentity overrides the placeholder address and balance.
func WithSimulatedIdentity(address string, balance decimal.Decimal) SimulatedProviderOption {
	return func(provider *SimulatedProvider) {
		provider.address = address
		provider.balance = balance
	}
}

// WithSimulatedDelay overrides the connection delay (zero disables it).
func WithSimulatedDelay(delay time.Duration) SimulatedProviderOption {
	return func(provider *SimulatedProvider) {
		provider.delay = delay
	}
}

// NewSimulatedProvider wires a SimulatedProvider with the demo defaults.
func NewSimulatedProvider(options ...SimulatedProviderOption) *SimulatedProvider {
	provider := &SimulatedProvider{
		address: demoAddress,
		balance: decimal.RequireFromString(demoBalanceMNEE),
		delay:   defaultConnDelay,
	}
	for _, option := range options {
		if option != nil {
			option(provider)
		}
	}
	return provider
}

// RequestAccount returns the placeholder identity after the configured delay.
func (provider *SimulatedProvider) RequestAccount(ctx context.Context) (Identity, error) {
	if provider.delay > 0 {
		timer := time.NewTimer(provider.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Identity{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Identity{Address: provider.address, BalanceMNEE: provider.balance}, nil
}

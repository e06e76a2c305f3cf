package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Identity is an address plus balance supplied by a wallet provider.
type Identity struct {
	Address     string
	BalanceMNEE decimal.Decimal
}

// Provider hands out externally managed wallet identities. A provider
// rejecting the request (the user declined) returns an error which the
// connector surfaces as ErrConnectionDenied.
type Provider interface {
	RequestAccount(ctx context.Context) (Identity, error)
}

// State describes the connector's current view of the user's wallet.
type State struct {
	Connected   bool
	Address     string
	BalanceMNEE decimal.Decimal
}

// Connector acquires and tracks a single wallet identity per session.
type Connector struct {
	mutex    sync.Mutex
	provider Provider
	fallback Provider
	state    State
}

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithProvider wires an external wallet provider. Without one the connector
// always falls back to the simulated identity.
func WithProvider(provider Provider) ConnectorOption {
	return func(connector *Connector) {
		connector.provider = provider
	}
}

// WithFallbackProvider replaces the default simulated identity source.
func WithFallbackProvider(fallback Provider) ConnectorOption {
	return func(connector *Connector) {
		connector.fallback = fallback
	}
}

// NewConnector wires a Connector.
func NewConnector(options ...ConnectorOption) *Connector {
	connector := &Connector{fallback: NewSimulatedProvider()}
	for _, option := range options {
		if option != nil {
			option(connector)
		}
	}
	return connector
}

// Connect acquires an identity from the external provider, falling back to
// the simulated identity when no provider is configured. A provider rejection
// leaves the state unchanged and surfaces the provider's message.
func (connector *Connector) Connect(ctx context.Context) (State, error) {
	provider := connector.provider
	if provider == nil {
		provider = connector.fallback
	}
	identity, err := provider.RequestAccount(ctx)
	if err != nil {
		return connector.CurrentState(), fmt.Errorf("%w: %v", ErrConnectionDenied, err)
	}
	connector.mutex.Lock()
	defer connector.mutex.Unlock()
	connector.state = State{
		Connected:   true,
		Address:     identity.Address,
		BalanceMNEE: identity.BalanceMNEE,
	}
	return connector.state, nil
}

// Disconnect resets the connector to the unconnected state. Cascade teardown
// of dependent payment/chat sessions belongs to the caller.
func (connector *Connector) Disconnect() State {
	connector.mutex.Lock()
	defer connector.mutex.Unlock()
	connector.state = State{BalanceMNEE: decimal.Zero}
	return connector.state
}

// CurrentState returns a copy of the wallet state.
func (connector *Connector) CurrentState() State {
	connector.mutex.Lock()
	defer connector.mutex.Unlock()
	return connector.state
}

// Debit reduces the displayed balance by amount after a successful payment.
func (connector *Connector) Debit(amount decimal.Decimal) (State, error) {
	if amount.IsNegative() {
		return connector.CurrentState(), fmt.Errorf("%w: must not be negative", ErrInvalidAmount)
	}
	connector.mutex.Lock()
	defer connector.mutex.Unlock()
	if !connector.state.Connected {
		return connector.state, ErrNotConnected
	}
	connector.state.BalanceMNEE = connector.state.BalanceMNEE.Sub(amount)
	return connector.state, nil
}

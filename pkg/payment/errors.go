package payment

import "errors"

// Domain-level error values returned by the payment session.
var (
	ErrAuthorizationDenied  = errors.New("authorization denied")
	ErrSettlementFailed     = errors.New("settlement failed")
	ErrPaymentInFlight      = errors.New("payment already in flight")
	ErrSessionCompleted     = errors.New("payment session completed")
	ErrSessionClosed        = errors.New("payment session closed")
	ErrInvalidSessionConfig = errors.New("invalid payment session config")
)

// Error values produced by the simulated settlement gateway.
var (
	ErrUserDenied        = errors.New("user denied transaction signature")
	ErrInsufficientFunds = errors.New("insufficient MNEE balance or gas")
)

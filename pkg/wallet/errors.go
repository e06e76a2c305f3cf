package wallet

import "errors"

// Domain-level error values returned by the wallet connector.
var (
	ErrConnectionDenied = errors.New("wallet connection denied")
	ErrNotConnected     = errors.New("wallet not connected")
	ErrInvalidAmount    = errors.New("invalid debit amount")
)

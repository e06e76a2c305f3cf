package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// SessionOption configures a Session instance.
type SessionOption func(*Session)

// OperationLogger records domain-level events emitted by session operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one settlement primitive invocation.
type OperationLog struct {
	Operation string
	ListingID string
	Amount    decimal.Decimal
	Phase     Phase
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every
// authorize/settle invocation.
func WithOperationLogger(logger OperationLogger) SessionOption {
	return func(session *Session) {
		session.logger = logger
	}
}

// WithDecimals sets the token precision used when rounding the total.
func WithDecimals(decimals int32) SessionOption {
	return func(session *Session) {
		if decimals >= 0 {
			session.decimals = decimals
		}
	}
}

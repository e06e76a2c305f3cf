package txledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionStatus defines transaction outcomes as recorded in history.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "Completed"
	TransactionFailed    TransactionStatus = "Failed"
)

// ParseTransactionStatus validates a stored status value.
func ParseTransactionStatus(raw string) (TransactionStatus, error) {
	switch TransactionStatus(raw) {
	case TransactionCompleted, TransactionFailed:
		return TransactionStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionStatus, raw)
}

// Transaction is a single immutable line in the payment history.
type Transaction struct {
	ID                 string
	ServiceName        string
	AmountMNEE         decimal.Decimal
	TimestampUnixMilli int64
	Status             TransactionStatus
	TxHash             string
}

// NewTransaction validates a transaction record before it enters the ledger.
func NewTransaction(id string, serviceName string, amount decimal.Decimal, timestampUnixMilli int64, status TransactionStatus, txHash string) (Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return Transaction{}, fmt.Errorf("%w: empty value", ErrInvalidTransactionID)
	}
	if strings.TrimSpace(serviceName) == "" {
		return Transaction{}, fmt.Errorf("%w: empty value", ErrInvalidServiceName)
	}
	if _, err := ParseTransactionStatus(string(status)); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:                 strings.TrimSpace(id),
		ServiceName:        strings.TrimSpace(serviceName),
		AmountMNEE:         amount,
		TimestampUnixMilli: timestampUnixMilli,
		Status:             status,
		TxHash:             txHash,
	}, nil
}

// NewSettlementReference produces an opaque 0x-prefixed reference for a
// settled payment.
func NewSettlementReference() string {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "0x" + strings.Repeat("0", 40)
	}
	return "0x" + hex.EncodeToString(raw)
}

// Store is the persistence contract used by Ledger.
type Store interface {
	InsertTransaction(ctx context.Context, namespace string, transaction Transaction) error
	ListTransactions(ctx context.Context, namespace string) ([]Transaction, error)
}

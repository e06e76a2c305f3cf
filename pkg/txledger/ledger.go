package txledger

import (
	"context"
	"fmt"
	"sync"
)

// DefaultNamespace is the fixed storage key the payment history lives under.
const DefaultNamespace = "agentpay_transactions"

const (
	operationRecord = "record"
	operationLoad   = "load"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)

// LedgerOption configures a Ledger instance.
type LedgerOption func(*Ledger)

// OperationLogger records domain-level events emitted by ledger operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a ledger operation.
type OperationLog struct {
	Operation     string
	Namespace     string
	TransactionID string
	Status        string
	Error         error
}

// WithOperationLogger wires a logger that receives callbacks for every
// record and load.
func WithOperationLogger(logger OperationLogger) LedgerOption {
	return func(ledger *Ledger) {
		ledger.logger = logger
	}
}

// Ledger is the append-only payment history, most recent first. Records are
// never updated or removed. The in-memory sequence is mirrored to a Store
// under a fixed namespace so it survives restarts.
type Ledger struct {
	mutex     sync.Mutex
	store     Store
	namespace string
	logger    OperationLogger

	transactions []Transaction
}

// NewLedger wires a Ledger over a Store.
func NewLedger(store Store, namespace string, options ...LedgerOption) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidLedgerConfig)
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	ledger := &Ledger{store: store, namespace: namespace}
	for _, option := range options {
		if option != nil {
			option(ledger)
		}
	}
	return ledger, nil
}

// Load replaces the in-memory sequence with the stored history. Unreadable
// or corrupt history is logged and replaced by an empty sequence; startup
// never fails on it.
func (ledger *Ledger) Load(ctx context.Context) {
	transactions, err := ledger.store.ListTransactions(ctx, ledger.namespace)
	ledger.logOperation(ctx, OperationLog{
		Operation: operationLoad,
		Namespace: ledger.namespace,
		Error:     err,
	})
	if err != nil {
		transactions = nil
	}
	ledger.mutex.Lock()
	defer ledger.mutex.Unlock()
	ledger.transactions = transactions
}

// Record prepends a transaction and persists it. The in-memory prepend holds
// even when persistence fails; the store error is reported for diagnostics
// and the caller decides whether it is fatal.
func (ledger *Ledger) Record(ctx context.Context, transaction Transaction) error {
	validated, err := NewTransaction(
		transaction.ID,
		transaction.ServiceName,
		transaction.AmountMNEE,
		transaction.TimestampUnixMilli,
		transaction.Status,
		transaction.TxHash,
	)
	if err != nil {
		return err
	}

	ledger.mutex.Lock()
	ledger.transactions = append([]Transaction{validated}, ledger.transactions...)
	ledger.mutex.Unlock()

	storeErr := ledger.store.InsertTransaction(ctx, ledger.namespace, validated)
	ledger.logOperation(ctx, OperationLog{
		Operation:     operationRecord,
		Namespace:     ledger.namespace,
		TransactionID: validated.ID,
		Error:         storeErr,
	})
	return storeErr
}

// Transactions returns a copy of the history, most recent first.
func (ledger *Ledger) Transactions() []Transaction {
	ledger.mutex.Lock()
	defer ledger.mutex.Unlock()
	result := make([]Transaction, len(ledger.transactions))
	copy(result, ledger.transactions)
	return result
}

// Count returns the number of recorded transactions.
func (ledger *Ledger) Count() int {
	ledger.mutex.Lock()
	defer ledger.mutex.Unlock()
	return len(ledger.transactions)
}

func (ledger *Ledger) logOperation(ctx context.Context, entry OperationLog) {
	if ledger.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	ledger.logger.LogOperation(ctx, entry)
}

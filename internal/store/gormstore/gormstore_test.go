package gormstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/smartpay/pkg/txledger"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newTestStore(test *testing.T) *Store {
	test.Helper()
	database, err := gorm.Open(sqlite.Open(test.TempDir()+"/smartpay.db"), &gorm.Config{})
	if err != nil {
		test.Fatalf("sqlite open failed: %v", err)
	}
	if err := Migrate(database); err != nil {
		test.Fatalf("automigrate failed: %v", err)
	}
	return New(database)
}

func mustStoredTransaction(test *testing.T, timestampUnixMilli int64) txledger.Transaction {
	test.Helper()
	transaction, err := txledger.NewTransaction(
		uuid.NewString(),
		"Atlas",
		decimal.RequireFromString("5.00"),
		timestampUnixMilli,
		txledger.TransactionCompleted,
		txledger.NewSettlementReference(),
	)
	if err != nil {
		test.Fatalf("transaction init failed: %v", err)
	}
	return transaction
}

func TestInsertAndListRoundTrip(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	transaction := mustStoredTransaction(test, time.Now().UnixMilli())

	if err := store.InsertTransaction(context.Background(), txledger.DefaultNamespace, transaction); err != nil {
		test.Fatalf("insert: %v", err)
	}

	listed, err := store.ListTransactions(context.Background(), txledger.DefaultNamespace)
	if err != nil {
		test.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		test.Fatalf("expected one transaction, got %d", len(listed))
	}
	stored := listed[0]
	if stored.ID != transaction.ID || stored.ServiceName != transaction.ServiceName {
		test.Fatalf("unexpected record: %+v", stored)
	}
	if !stored.AmountMNEE.Equal(transaction.AmountMNEE) {
		test.Fatalf("expected amount %s, got %s", transaction.AmountMNEE, stored.AmountMNEE)
	}
	if stored.Status != txledger.TransactionCompleted {
		test.Fatalf("expected completed, got %s", stored.Status)
	}
	if stored.TxHash != transaction.TxHash {
		test.Fatalf("expected hash %s, got %s", transaction.TxHash, stored.TxHash)
	}
}

func TestListReturnsMostRecentFirst(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	var inserted []txledger.Transaction
	for index := 0; index < 3; index++ {
		transaction := mustStoredTransaction(test, base+int64(index)*60_000)
		if err := store.InsertTransaction(context.Background(), txledger.DefaultNamespace, transaction); err != nil {
			test.Fatalf("insert %d: %v", index, err)
		}
		inserted = append(inserted, transaction)
	}

	listed, err := store.ListTransactions(context.Background(), txledger.DefaultNamespace)
	if err != nil {
		test.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		test.Fatalf("expected 3 transactions, got %d", len(listed))
	}
	if listed[0].ID != inserted[2].ID || listed[2].ID != inserted[0].ID {
		test.Fatalf("expected descending creation order")
	}
}

func TestListBreaksTimestampTiesByInsertionOrder(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	sharedTimestamp := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	var inserted []txledger.Transaction
	for index := 0; index < 3; index++ {
		transaction := mustStoredTransaction(test, sharedTimestamp)
		if err := store.InsertTransaction(context.Background(), txledger.DefaultNamespace, transaction); err != nil {
			test.Fatalf("insert %d: %v", index, err)
		}
		inserted = append(inserted, transaction)
	}

	for attempt := 0; attempt < 2; attempt++ {
		listed, err := store.ListTransactions(context.Background(), txledger.DefaultNamespace)
		if err != nil {
			test.Fatalf("list attempt %d: %v", attempt, err)
		}
		if len(listed) != 3 {
			test.Fatalf("expected 3 transactions, got %d", len(listed))
		}
		for index := 0; index < 3; index++ {
			if listed[index].ID != inserted[2-index].ID {
				test.Fatalf("attempt %d: position %d holds %s, expected %s", attempt, index, listed[index].ID, inserted[2-index].ID)
			}
		}
	}
}

func TestInsertDuplicateReturnsSentinel(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	transaction := mustStoredTransaction(test, time.Now().UnixMilli())

	if err := store.InsertTransaction(context.Background(), txledger.DefaultNamespace, transaction); err != nil {
		test.Fatalf("first insert: %v", err)
	}
	err := store.InsertTransaction(context.Background(), txledger.DefaultNamespace, transaction)
	if !errors.Is(err, txledger.ErrDuplicateTransaction) {
		test.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}
	var operationError txledger.OperationError
	if !errors.As(err, &operationError) {
		test.Fatalf("expected OperationError, got %T", err)
	}
	if operationError.Code() != errorCodeDuplicate {
		test.Fatalf("unexpected code: %s", operationError.Code())
	}
}

func TestNamespacesAreIsolated(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	for index := 0; index < 2; index++ {
		transaction := mustStoredTransaction(test, time.Now().UnixMilli())
		namespace := fmt.Sprintf("namespace-%d", index)
		if err := store.InsertTransaction(context.Background(), namespace, transaction); err != nil {
			test.Fatalf("insert into %s: %v", namespace, err)
		}
	}

	listed, err := store.ListTransactions(context.Background(), "namespace-0")
	if err != nil {
		test.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		test.Fatalf("expected one transaction in namespace-0, got %d", len(listed))
	}
	empty, err := store.ListTransactions(context.Background(), "namespace-missing")
	if err != nil {
		test.Fatalf("list empty namespace: %v", err)
	}
	if len(empty) != 0 {
		test.Fatalf("expected empty namespace, got %d", len(empty))
	}
}

func TestListRejectsCorruptAmount(test *testing.T) {
	test.Parallel()
	store := newTestStore(test)
	transaction := mustStoredTransaction(test, time.Now().UnixMilli())
	if err := store.InsertTransaction(context.Background(), txledger.DefaultNamespace, transaction); err != nil {
		test.Fatalf("insert: %v", err)
	}
	if err := store.db.Model(&TransactionRow{}).
		Where("transaction_id = ?", transaction.ID).
		Update("amount_mnee", "not-a-number").Error; err != nil {
		test.Fatalf("corrupt row: %v", err)
	}

	_, err := store.ListTransactions(context.Background(), txledger.DefaultNamespace)
	if err == nil {
		test.Fatalf("expected corrupt amount to fail the load")
	}
	var operationError txledger.OperationError
	if !errors.As(err, &operationError) {
		test.Fatalf("expected OperationError, got %T", err)
	}
	if operationError.Code() != errorCodeInvalid {
		test.Fatalf("unexpected code: %s", operationError.Code())
	}
}

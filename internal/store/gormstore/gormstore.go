package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/smartpay/pkg/txledger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	constraintTransactionID = "idx_transactions_transaction_id"
	pgUniqueViolationCode   = "23505"
	sqliteConstraintCode    = 19
	errorOperationStore     = "store"
	errorSubjectTransaction = "transaction"
	errorCodeDuplicate      = "duplicate"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
)

// Store implements txledger.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate prepares the transactions table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&TransactionRow{})
}

// metadataEnvelope is what lands in the Metadata JSON column. It repeats the
// typed columns so a newer reader can recover fields an older schema lacked.
type metadataEnvelope struct {
	ID          string `json:"id"`
	ServiceName string `json:"serviceName"`
	Amount      string `json:"amount"`
	Timestamp   int64  `json:"timestamp"`
	Status      string `json:"status"`
	TxHash      string `json:"txHash"`
}

// InsertTransaction appends one transaction record under the namespace.
func (store *Store) InsertTransaction(ctx context.Context, namespace string, transaction txledger.Transaction) error {
	metadata, err := json.Marshal(metadataEnvelope{
		ID:          transaction.ID,
		ServiceName: transaction.ServiceName,
		Amount:      transaction.AmountMNEE.String(),
		Timestamp:   transaction.TimestampUnixMilli,
		Status:      string(transaction.Status),
		TxHash:      transaction.TxHash,
	})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
	}
	row := TransactionRow{
		TransactionID: transaction.ID,
		Namespace:     namespace,
		ServiceName:   transaction.ServiceName,
		AmountMNEE:    transaction.AmountMNEE.String(),
		Status:        string(transaction.Status),
		TxHash:        transaction.TxHash,
		Metadata:      datatypes.JSON(metadata),
		CreatedAt:     time.UnixMilli(transaction.TimestampUnixMilli).UTC(),
	}
	insertErr := store.db.WithContext(ctx).Create(&row).Error
	if isTransactionConflict(insertErr) {
		return wrapStoreError(errorSubjectTransaction, errorCodeDuplicate, txledger.ErrDuplicateTransaction)
	}
	if insertErr != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeInsert, insertErr)
	}
	return nil
}

// ListTransactions returns the namespace's history, most recent first.
func (store *Store) ListTransactions(ctx context.Context, namespace string) ([]txledger.Transaction, error) {
	var rows []TransactionRow
	err := store.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Order("created_at DESC, sequence DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}

	transactions := make([]txledger.Transaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapTransactionRow(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func mapTransactionRow(row TransactionRow) (txledger.Transaction, error) {
	amount, err := decimal.NewFromString(row.AmountMNEE)
	if err != nil {
		return txledger.Transaction{}, err
	}
	status, err := txledger.ParseTransactionStatus(row.Status)
	if err != nil {
		return txledger.Transaction{}, err
	}
	return txledger.NewTransaction(
		row.TransactionID,
		row.ServiceName,
		amount,
		row.CreatedAt.UnixMilli(),
		status,
		row.TxHash,
	)
}

func wrapStoreError(subject string, code string, err error) error {
	return txledger.WrapError(errorOperationStore, subject, code, err)
}

func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintTransactionID
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

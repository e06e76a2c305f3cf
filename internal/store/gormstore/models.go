package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionRow mirrors the transactions table. Sequence breaks created_at
// ties so reload order matches insertion order. Metadata carries the full
// serialized record so readers tolerate fields this schema does not know.
type TransactionRow struct {
	Sequence      int64          `gorm:"primaryKey;autoIncrement"`
	TransactionID string         `gorm:"type:uuid;not null;uniqueIndex:idx_transactions_transaction_id"`
	Namespace     string         `gorm:"not null;index:idx_transactions_namespace_created,priority:1"`
	ServiceName   string         `gorm:"not null"`
	AmountMNEE    string         `gorm:"not null"`
	Status        string         `gorm:"not null"`
	TxHash        string         `gorm:"not null"`
	Metadata      datatypes.JSON `gorm:"not null"`
	CreatedAt     time.Time      `gorm:"not null;index:idx_transactions_namespace_created,priority:2"`
}

func (TransactionRow) TableName() string { return "transactions" }

func (row *TransactionRow) BeforeCreate(tx *gorm.DB) error {
	if row.TransactionID == "" {
		row.TransactionID = uuid.NewString()
	}
	return nil
}

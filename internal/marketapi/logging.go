package marketapi

import (
	"context"

	"github.com/MarkoPoloResearchLab/smartpay/pkg/payment"
	"github.com/MarkoPoloResearchLab/smartpay/pkg/txledger"
	"go.uber.org/zap"
)

// paymentOperationLogger bridges payment session events onto zap.
type paymentOperationLogger struct {
	logger *zap.Logger
}

func (operationLogger paymentOperationLogger) LogOperation(_ context.Context, entry payment.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("listing_id", entry.ListingID),
		zap.String("amount_mnee", entry.Amount.String()),
		zap.String("status", entry.Status),
	}
	if entry.Error != nil {
		fields = append(fields, zap.String("phase", string(entry.Phase)), zap.Error(entry.Error))
		operationLogger.logger.Warn("settlement call failed", fields...)
		return
	}
	operationLogger.logger.Info("settlement call ok", fields...)
}

// NewLedgerOperationLogger bridges transaction ledger events onto zap.
func NewLedgerOperationLogger(logger *zap.Logger) txledger.OperationLogger {
	return ledgerOperationLogger{logger: logger}
}

type ledgerOperationLogger struct {
	logger *zap.Logger
}

func (operationLogger ledgerOperationLogger) LogOperation(_ context.Context, entry txledger.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("namespace", entry.Namespace),
		zap.String("status", entry.Status),
	}
	if entry.TransactionID != "" {
		fields = append(fields, zap.String("transaction_id", entry.TransactionID))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		operationLogger.logger.Warn("ledger operation failed", fields...)
		return
	}
	operationLogger.logger.Info("ledger operation ok", fields...)
}

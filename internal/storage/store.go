package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"fraudguard/internal/models"
)

const defaultMerchantName = "Unknown Merchant"

var ErrNotFound = errors.New("transaction not found")

// TransactionStore persists scored transactions. A record is created unscored
// and later updated with its scoring outcome.
type TransactionStore interface {
	Create(ctx context.Context, tx models.NewTransaction) (models.TransactionRecord, error)
	Update(ctx context.Context, transactionID string, update models.ScoreUpdate) (models.TransactionRecord, error)
	Get(ctx context.Context, transactionID string) (models.TransactionRecord, error)
	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]models.TransactionRecord, error)
	Close() error
}

func newTransactionID() string {
	return "TX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func newRecord(id int64, tx models.NewTransaction) models.TransactionRecord {
	merchant := strings.TrimSpace(tx.MerchantName)
	if merchant == "" {
		merchant = defaultMerchantName
	}
	return models.TransactionRecord{
		ID:               id,
		TransactionID:    newTransactionID(),
		Amount:           tx.Amount,
		MerchantName:     merchant,
		MerchantCategory: tx.MerchantCategory,
		Location:         tx.Location,
		IPAddress:        tx.IPAddress,
		CardEntryMethod:  tx.CardEntryMethod,
		Timestamp:        tx.Timestamp.UTC(),
		RiskLevel:        models.RiskLow,
		Status:           models.StatusSafe,
	}
}

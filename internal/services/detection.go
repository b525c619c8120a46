package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fraudguard/internal/models"
	"fraudguard/internal/scoring"
	"fraudguard/internal/storage"
)

// DetectionService scores a single transaction and persists the outcome.
type DetectionService struct {
	evaluator Evaluator
	store     storage.TransactionStore
	now       func() time.Time
	logger    *slog.Logger
}

func NewDetectionService(evaluator Evaluator, store storage.TransactionStore, logger *slog.Logger) *DetectionService {
	return &DetectionService{
		evaluator: evaluator,
		store:     store,
		now:       time.Now,
		logger:    logger,
	}
}

// Detect evaluates tx and stores it. Nothing is persisted when evaluation
// fails, so a strict-policy outage or a validation error leaves no record.
func (s *DetectionService) Detect(ctx context.Context, tx models.RawTransaction) (models.ScoringResult, models.TransactionRecord, error) {
	tx = s.prepare(tx)

	result, err := s.evaluator.Evaluate(ctx, tx)
	if err != nil {
		return models.ScoringResult{}, models.TransactionRecord{}, err
	}

	rec, err := s.store.Create(ctx, newTransaction(tx))
	if err != nil {
		return models.ScoringResult{}, models.TransactionRecord{}, fmt.Errorf("store transaction: %w", err)
	}

	rec, err = s.store.Update(ctx, rec.TransactionID, models.ScoreUpdateFor(result))
	if err != nil {
		return models.ScoringResult{}, models.TransactionRecord{}, fmt.Errorf("store score: %w", err)
	}

	s.logger.Info("transaction scored",
		"transaction_id", rec.TransactionID,
		"risk_level", result.RiskLevel,
		"status", rec.Status,
		"source", result.Source,
	)

	return result, rec, nil
}

// Record stores tx without scoring it. The record keeps the store's
// defaults (low risk, safe) until it is scored.
func (s *DetectionService) Record(ctx context.Context, tx models.RawTransaction) (models.TransactionRecord, error) {
	tx = s.prepare(tx)
	if err := scoring.Validate(tx); err != nil {
		return models.TransactionRecord{}, err
	}

	rec, err := s.store.Create(ctx, newTransaction(tx))
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("store transaction: %w", err)
	}
	s.logger.Info("transaction recorded", "transaction_id", rec.TransactionID)
	return rec, nil
}

func (s *DetectionService) prepare(tx models.RawTransaction) models.RawTransaction {
	tx = scoring.Normalize(tx)
	if tx.Timestamp == nil {
		now := s.now()
		tx.Timestamp = &now
	}
	return tx
}

func newTransaction(tx models.RawTransaction) models.NewTransaction {
	return models.NewTransaction{
		Amount:           tx.Amount,
		MerchantName:     tx.MerchantName,
		MerchantCategory: tx.MerchantCategory,
		Location:         tx.Location,
		IPAddress:        tx.IPAddress,
		CardEntryMethod:  tx.CardEntryMethod,
		Timestamp:        *tx.Timestamp,
	}
}

func (s *DetectionService) Transaction(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	return s.store.Get(ctx, transactionID)
}

func (s *DetectionService) Transactions(ctx context.Context, limit, offset int) ([]models.TransactionRecord, error) {
	return s.store.List(ctx, limit, offset)
}

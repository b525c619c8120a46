package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"fraudguard/internal/models"
	"fraudguard/internal/storage"
)

const (
	statsWindow        = 1000
	topFraudCategories = 5
	riskLevelUnscored  = "unscored"
)

// Analytics serves dashboard aggregates: stats over recent stored
// transactions and the most recent bulk batch summary.
type Analytics struct {
	mu               sync.RWMutex
	latest           *models.BulkAnalysisSummary
	latestAt         time.Time
	store            storage.TransactionStore
	batchesProcessed atomic.Int64
	rowsProcessed    atomic.Int64
	logger           *slog.Logger
}

func NewAnalytics(store storage.TransactionStore, logger *slog.Logger) *Analytics {
	return &Analytics{
		store:  store,
		logger: logger,
	}
}

// RecordBatch makes summary the latest batch.
func (a *Analytics) RecordBatch(summary *models.BulkAnalysisSummary) {
	if summary == nil {
		return
	}

	a.mu.Lock()
	a.latest = summary
	a.latestAt = time.Now()
	a.mu.Unlock()

	a.batchesProcessed.Add(1)
	a.rowsProcessed.Add(int64(summary.TotalTransactions + summary.ErrorCount))
}

func (a *Analytics) LatestBatch() (*models.BulkAnalysisSummary, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest, a.latest != nil
}

// DashboardStats aggregates the most recent stored transactions.
func (a *Analytics) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	records, err := a.store.List(ctx, statsWindow, 0)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("load recent transactions: %w", err)
	}
	return computeDashboardStats(records), nil
}

func computeDashboardStats(records []models.TransactionRecord) models.DashboardStats {
	stats := models.DashboardStats{TotalTransactions: len(records)}

	riskGroups := map[string]int{
		string(models.RiskLow):    0,
		string(models.RiskMedium): 0,
		string(models.RiskHigh):   0,
	}
	fraudCategories := make(map[string]int)

	for _, rec := range records {
		riskGroups[riskLabel(rec.RiskLevel)]++
		switch rec.Status {
		case models.StatusFraudulent:
			stats.FraudDetected++
			fraudCategories[rec.MerchantCategory]++
		case models.StatusSuspicious:
			stats.SuspiciousTransactions++
		}
	}

	stats.ByRiskLevel = sortCounts(riskGroups)
	stats.TopFraudCategories = sortCounts(fraudCategories)
	if len(stats.TopFraudCategories) > topFraudCategories {
		stats.TopFraudCategories = stats.TopFraudCategories[:topFraudCategories]
	}
	return stats
}

func riskLabel(l models.RiskLevel) string {
	if !l.Valid() {
		return riskLevelUnscored
	}
	return string(l)
}

// Stats reports processing counters for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"batches_processed": a.batchesProcessed.Load(),
		"rows_processed":    a.rowsProcessed.Load(),
	}
	if a.latest != nil {
		stats["latest_batch_id"] = a.latest.BatchID
		stats["latest_batch_at"] = a.latestAt
	}
	return stats
}

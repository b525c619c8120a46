package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudguard/internal/models"
	"fraudguard/internal/storage"
)

func seedRecord(t *testing.T, store storage.TransactionStore, category string, u models.ScoreUpdate) {
	t.Helper()
	rec, err := store.Create(context.Background(), models.NewTransaction{
		Amount:           10,
		MerchantCategory: category,
		CardEntryMethod:  "chip",
		Timestamp:        fixedNow,
	})
	require.NoError(t, err)
	_, err = store.Update(context.Background(), rec.TransactionID, u)
	require.NoError(t, err)
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics(storage.NewMemoryStore(), testLogger())
	require.NotNil(t, a)

	latest, ok := a.LatestBatch()
	assert.False(t, ok)
	assert.Nil(t, latest)
}

func TestAnalytics_DashboardStats(t *testing.T) {
	store := storage.NewMemoryStore()
	fraud := models.ScoreUpdate{IsFraud: true, Confidence: 0.9, RiskLevel: models.RiskHigh, Status: models.StatusFraudulent}
	suspicious := models.ScoreUpdate{Confidence: 0.6, RiskLevel: models.RiskMedium, Status: models.StatusSuspicious}
	safe := models.ScoreUpdate{Confidence: 0.05, RiskLevel: models.RiskLow, Status: models.StatusSafe}

	seedRecord(t, store, "travel", fraud)
	seedRecord(t, store, "travel", fraud)
	seedRecord(t, store, "ecommerce", fraud)
	seedRecord(t, store, "grocery", suspicious)
	seedRecord(t, store, "grocery", safe)

	a := NewAnalytics(store, testLogger())
	stats, err := a.DashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalTransactions)
	assert.Equal(t, 3, stats.FraudDetected)
	assert.Equal(t, 1, stats.SuspiciousTransactions)
	assert.Equal(t, []models.CountEntry{
		{Name: "high", Value: 3},
		{Name: "low", Value: 1},
		{Name: "medium", Value: 1},
	}, stats.ByRiskLevel)
	assert.Equal(t, []models.CountEntry{
		{Name: "travel", Value: 2},
		{Name: "ecommerce", Value: 1},
	}, stats.TopFraudCategories)
}

func TestAnalytics_DashboardStatsEmpty(t *testing.T) {
	a := NewAnalytics(storage.NewMemoryStore(), testLogger())
	stats, err := a.DashboardStats(context.Background())
	require.NoError(t, err)

	assert.Zero(t, stats.TotalTransactions)
	assert.Len(t, stats.ByRiskLevel, 3, "every risk level is listed even when empty")
	assert.Empty(t, stats.TopFraudCategories)
}

func TestComputeDashboardStats_TopCategoriesCapped(t *testing.T) {
	var records []models.TransactionRecord
	for _, c := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		records = append(records, models.TransactionRecord{
			MerchantCategory: c,
			RiskLevel:        models.RiskHigh,
			Status:           models.StatusFraudulent,
		})
	}

	stats := computeDashboardStats(records)
	assert.Len(t, stats.TopFraudCategories, topFraudCategories)
	assert.Equal(t, "a", stats.TopFraudCategories[0].Name)
}

func TestAnalytics_RecordBatch(t *testing.T) {
	a := NewAnalytics(storage.NewMemoryStore(), testLogger())

	a.RecordBatch(nil)
	_, ok := a.LatestBatch()
	assert.False(t, ok)

	first := &models.BulkAnalysisSummary{BatchID: "one", TotalTransactions: 3, ErrorCount: 1}
	second := &models.BulkAnalysisSummary{BatchID: "two", TotalTransactions: 2}
	a.RecordBatch(first)
	a.RecordBatch(second)

	latest, ok := a.LatestBatch()
	require.True(t, ok)
	assert.Equal(t, "two", latest.BatchID)

	stats := a.Stats()
	assert.Equal(t, int64(2), stats["batches_processed"])
	assert.Equal(t, int64(6), stats["rows_processed"])
	assert.Equal(t, "two", stats["latest_batch_id"])
	assert.IsType(t, time.Time{}, stats["latest_batch_at"])
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := NewAnalytics(storage.NewMemoryStore(), testLogger())

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.RecordBatch(&models.BulkAnalysisSummary{TotalTransactions: i})
		}()
		go func() {
			defer wg.Done()
			_, _ = a.LatestBatch()
			_ = a.Stats()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), a.Stats()["batches_processed"])
}

package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudguard/internal/models"
)

var baseTime = time.Date(2024, 3, 13, 14, 0, 0, 0, time.UTC)

func newTx(amount float64, ts time.Time) models.NewTransaction {
	return models.NewTransaction{
		Amount:           amount,
		MerchantCategory: "grocery",
		CardEntryMethod:  "chip",
		Timestamp:        ts,
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec, err := s.Create(ctx, newTx(12.5, baseTime))
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.ID)
	assert.True(t, strings.HasPrefix(rec.TransactionID, "TX-"))
	assert.Len(t, rec.TransactionID, 11)
	assert.Equal(t, defaultMerchantName, rec.MerchantName)
	assert.Equal(t, models.RiskLow, rec.RiskLevel)
	assert.Equal(t, models.StatusSafe, rec.Status)
	assert.False(t, rec.IsFraud)

	got, err := s.Get(ctx, rec.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestMemoryStore_TimestampStoredInUTC(t *testing.T) {
	s := NewMemoryStore()
	loc := time.FixedZone("UTC+2", 2*60*60)

	rec, err := s.Create(context.Background(), newTx(1, time.Date(2024, 3, 13, 16, 0, 0, 0, loc)))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, rec.Timestamp.Location())
	assert.True(t, rec.Timestamp.Equal(baseTime))
}

func TestMemoryStore_Update(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	rec, err := s.Create(ctx, newTx(3500, baseTime))
	require.NoError(t, err)

	updated, err := s.Update(ctx, rec.TransactionID, models.ScoreUpdate{
		IsFraud:    true,
		Confidence: 0.95,
		RiskLevel:  models.RiskHigh,
		Status:     models.StatusFraudulent,
	})
	require.NoError(t, err)

	assert.Equal(t, rec.TransactionID, updated.TransactionID)
	assert.Equal(t, rec.Amount, updated.Amount)
	assert.True(t, updated.IsFraud)
	assert.Equal(t, 0.95, updated.Confidence)
	assert.Equal(t, models.RiskHigh, updated.RiskLevel)
	assert.Equal(t, models.StatusFraudulent, updated.Status)

	got, err := s.Get(ctx, rec.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestMemoryStore_NotFound(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "TX-MISSING")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Update(ctx, "TX-MISSING", models.ScoreUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	older, err := s.Create(ctx, newTx(1, baseTime.Add(-time.Hour)))
	require.NoError(t, err)
	tieFirst, err := s.Create(ctx, newTx(2, baseTime))
	require.NoError(t, err)
	tieSecond, err := s.Create(ctx, newTx(3, baseTime))
	require.NoError(t, err)

	got, err := s.List(ctx, 10, 0)
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.TransactionID)
	}
	assert.Equal(t, []string{tieSecond.TransactionID, tieFirst.TransactionID, older.TransactionID}, ids)
}

func TestMemoryStore_ListPaging(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := range 5 {
		_, err := s.Create(ctx, newTx(float64(i+1), baseTime.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	tests := []struct {
		limit, offset int
		wantAmounts   []float64
	}{
		{2, 0, []float64{5, 4}},
		{2, 2, []float64{3, 2}},
		{10, 4, []float64{1}},
		{10, 5, nil},
		{0, 0, nil},
		{3, -1, []float64{5, 4, 3}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d offset=%d", tt.limit, tt.offset), func(t *testing.T) {
			got, err := s.List(ctx, tt.limit, tt.offset)
			require.NoError(t, err)
			require.NotNil(t, got)

			var amounts []float64
			for _, r := range got {
				amounts = append(amounts, r.Amount)
			}
			assert.Equal(t, tt.wantAmounts, amounts)
		})
	}
}

func TestMemoryStore_ConcurrentCreate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			_, err := s.Create(ctx, newTx(1, baseTime))
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	all, err := s.List(ctx, 100, 0)
	require.NoError(t, err)
	assert.Len(t, all, 50)

	seen := make(map[int64]bool)
	for _, r := range all {
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
	}
}

func TestNewRecord_MerchantName(t *testing.T) {
	tx := newTx(1, baseTime)
	tx.MerchantName = "  Corner Shop "
	assert.Equal(t, "Corner Shop", newRecord(1, tx).MerchantName)

	tx.MerchantName = "   "
	assert.Equal(t, defaultMerchantName, newRecord(1, tx).MerchantName)
}

package storage

import (
	"context"
	"slices"
	"sync"

	"fraudguard/internal/models"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.TransactionRecord
	nextID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.TransactionRecord),
		nextID:  1,
	}
}

func (s *MemoryStore) Create(_ context.Context, tx models.NewTransaction) (models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := newRecord(s.nextID, tx)
	s.nextID++
	s.records[rec.TransactionID] = rec
	return rec, nil
}

func (s *MemoryStore) Update(_ context.Context, transactionID string, u models.ScoreUpdate) (models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[transactionID]
	if !ok {
		return models.TransactionRecord{}, ErrNotFound
	}
	rec.IsFraud = u.IsFraud
	rec.Confidence = u.Confidence
	rec.RiskLevel = u.RiskLevel
	rec.Status = u.Status
	s.records[transactionID] = rec
	return rec, nil
}

func (s *MemoryStore) Get(_ context.Context, transactionID string) (models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[transactionID]
	if !ok {
		return models.TransactionRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]models.TransactionRecord, error) {
	s.mu.RLock()
	all := make([]models.TransactionRecord, 0, len(s.records))
	for _, rec := range s.records {
		all = append(all, rec)
	}
	s.mu.RUnlock()

	slices.SortFunc(all, func(a, b models.TransactionRecord) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		// Later inserts first when timestamps tie.
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	offset = max(offset, 0)
	if limit <= 0 || offset >= len(all) {
		return []models.TransactionRecord{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (s *MemoryStore) Close() error {
	return nil
}

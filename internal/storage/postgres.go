package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"fraudguard/internal/models"
)

// PostgresStore implements TransactionStore on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InitSchema creates the transactions table if it does not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id SERIAL PRIMARY KEY,
		transaction_id TEXT NOT NULL UNIQUE,
		amount DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		merchant_name TEXT NOT NULL,
		merchant_category TEXT NOT NULL,
		location TEXT,
		ip_address TEXT,
		card_entry_method TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_fraud BOOLEAN NOT NULL DEFAULT FALSE,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		risk_level TEXT NOT NULL DEFAULT 'low' CHECK (risk_level IN ('low', 'medium', 'high')),
		status TEXT NOT NULL DEFAULT 'safe' CHECK (status IN ('safe', 'suspicious', 'fraudulent'))
	);

	-- Backs List (newest first)
	CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(timestamp DESC, id DESC);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

const selectColumns = `id, transaction_id, amount, merchant_name, merchant_category,
	COALESCE(location, ''), COALESCE(ip_address, ''), card_entry_method, timestamp,
	is_fraud, confidence, risk_level, status`

func (s *PostgresStore) Create(ctx context.Context, tx models.NewTransaction) (models.TransactionRecord, error) {
	rec := newRecord(0, tx)

	query := `
		INSERT INTO transactions (transaction_id, amount, merchant_name, merchant_category,
			location, ip_address, card_entry_method, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		rec.TransactionID,
		rec.Amount,
		rec.MerchantName,
		rec.MerchantCategory,
		rec.Location,
		rec.IPAddress,
		rec.CardEntryMethod,
		rec.Timestamp,
	).Scan(&rec.ID)
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("failed to insert transaction: %w", err)
	}

	return rec, nil
}

func (s *PostgresStore) Update(ctx context.Context, transactionID string, u models.ScoreUpdate) (models.TransactionRecord, error) {
	query := `
		UPDATE transactions
		SET is_fraud = $2, confidence = $3, risk_level = $4, status = $5
		WHERE transaction_id = $1
		RETURNING ` + selectColumns

	row := s.db.QueryRowContext(ctx, query,
		transactionID,
		u.IsFraud,
		u.Confidence,
		string(u.RiskLevel),
		string(u.Status),
	)
	rec, err := scanRecord(row)
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("failed to update transaction %s: %w", transactionID, err)
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE transaction_id = $1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, transactionID))
	if err != nil {
		return models.TransactionRecord{}, fmt.Errorf("failed to get transaction %s: %w", transactionID, err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]models.TransactionRecord, error) {
	query := `SELECT ` + selectColumns + `
		FROM transactions
		ORDER BY timestamp DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	records := make([]models.TransactionRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.TransactionRecord, error) {
	var rec models.TransactionRecord
	var riskLevel, status string

	err := row.Scan(
		&rec.ID,
		&rec.TransactionID,
		&rec.Amount,
		&rec.MerchantName,
		&rec.MerchantCategory,
		&rec.Location,
		&rec.IPAddress,
		&rec.CardEntryMethod,
		&rec.Timestamp,
		&rec.IsFraud,
		&rec.Confidence,
		&riskLevel,
		&status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransactionRecord{}, ErrNotFound
	}
	if err != nil {
		return models.TransactionRecord{}, err
	}

	rec.RiskLevel = models.RiskLevel(riskLevel)
	rec.Status = models.Status(status)
	return rec, nil
}

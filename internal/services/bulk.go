package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"fraudguard/internal/metrics"
	"fraudguard/internal/models"
	"fraudguard/internal/observability"
	"fraudguard/internal/scoring"
)

const (
	defaultConcurrency = 8
	defaultSampleSize  = 100
)

const (
	colAmount           = "amount"
	colMerchantName     = "merchantName"
	colMerchantCategory = "merchantCategory"
	colLocation         = "location"
	colIPAddress        = "ipAddress"
	colCardEntryMethod  = "cardEntryMethod"
	colTimestamp        = "timestamp"
)

var requiredColumns = []string{colAmount, colMerchantCategory, colCardEntryMethod}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

type amountBucket struct {
	name  string
	lower float64
	upper float64
}

var amountBuckets = []amountBucket{
	{name: "$0-$100", lower: 0, upper: 100},
	{name: "$100-$500", lower: 100, upper: 500},
	{name: "$500-$1000", lower: 500, upper: 1000},
	{name: "$1000-$5000", lower: 1000, upper: 5000},
	{name: "$5000+", lower: 5000, upper: math.Inf(1)},
}

// Evaluator scores one transaction. *scoring.Evaluator satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, tx models.RawTransaction) (models.ScoringResult, error)
}

// BulkRow is one decoded CSV record keyed by header name. Row is the 1-based
// data row number.
type BulkRow struct {
	Row    int
	Fields map[string]string
}

// RowError is a failure isolated to a single row.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type rowOutcome struct {
	result models.BulkRowResult
	err    *RowError
}

// BulkAnalyzer scores batches of transactions with a bounded number of
// concurrent evaluations and reduces the outcomes into a summary.
type BulkAnalyzer struct {
	evaluator   Evaluator
	concurrency int
	sampleSize  int
	logger      *slog.Logger
}

func NewBulkAnalyzer(evaluator Evaluator, concurrency, sampleSize int, logger *slog.Logger) *BulkAnalyzer {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	if sampleSize < 0 {
		sampleSize = defaultSampleSize
	}
	return &BulkAnalyzer{
		evaluator:   evaluator,
		concurrency: concurrency,
		sampleSize:  sampleSize,
		logger:      logger,
	}
}

// Analyze runs the full pipeline over CSV input. Batch-level failures
// (ErrMalformedInput, *scoring.SchemaError, ErrBatchCancelled) return no
// summary; row failures only increase ErrorCount.
func (b *BulkAnalyzer) Analyze(ctx context.Context, r io.Reader, verbose bool) (*models.BulkAnalysisSummary, error) {
	start := time.Now()
	batchID := uuid.NewString()

	ctx, span := observability.StartSpan(ctx, "bulk.analyze", attribute.String("batch.id", batchID))
	defer span.End()

	header, rows, err := ParseBatch(r)
	if err != nil {
		metrics.RecordBatch("malformed", 0, 0, 0)
		span.RecordError(err)
		return nil, err
	}

	if err := CheckSchema(header); err != nil {
		metrics.RecordBatch("rejected", 0, 0, 0)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("batch.rows", len(rows)))
	b.logger.Info("bulk analysis started",
		"batch_id", batchID,
		"rows", len(rows),
		"concurrency", b.concurrency,
	)

	outcomes, err := b.scoreRows(ctx, rows)
	if err != nil {
		metrics.RecordBatch("cancelled", 0, 0, 0)
		span.RecordError(err)
		b.logger.Warn("bulk analysis cancelled", "batch_id", batchID, "error", err)
		return nil, err
	}

	summary := Aggregate(outcomes, b.sampleSize, verbose)
	summary.BatchID = batchID
	summary.ProcessedAt = time.Now().UTC()

	duration := time.Since(start)
	metrics.RecordBatch("completed", summary.TotalTransactions, summary.ErrorCount, duration)
	b.logger.Info("bulk analysis complete",
		"batch_id", batchID,
		"scored", summary.TotalTransactions,
		"fraudulent", summary.FraudulentTransactions,
		"errors", summary.ErrorCount,
		"duration", duration,
	)

	return summary, nil
}

// ParseBatch decodes CSV text with a header row into ordered rows.
func ParseBatch(r io.Reader) ([]string, []BulkRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: empty file", scoring.ErrMalformedInput)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read header: %w", scoring.ErrMalformedInput, err)
	}

	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = h
	}

	var rows []BulkRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", scoring.ErrMalformedInput, err)
		}

		fields := make(map[string]string, len(header))
		for i, value := range record {
			if i >= len(header) {
				break
			}
			fields[header[i]] = strings.TrimSpace(value)
		}
		rows = append(rows, BulkRow{Row: len(rows) + 1, Fields: fields})
	}

	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: no transaction rows found", scoring.ErrMalformedInput)
	}

	return header, rows, nil
}

// CheckSchema reports required columns missing from the header.
func CheckSchema(header []string) error {
	var missing []string
	for _, col := range requiredColumns {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &scoring.SchemaError{Missing: missing}
	}
	return nil
}

// scoreRows fans rows out to the evaluator, at most b.concurrency at a time.
// Each task writes only its own slot, so the join needs no locking.
func (b *BulkAnalyzer) scoreRows(ctx context.Context, rows []BulkRow) ([]rowOutcome, error) {
	outcomes := make([]rowOutcome, len(rows))

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, row := range rows {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = b.scoreRow(ctx, row)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", scoring.ErrBatchCancelled, err)
	}
	return outcomes, nil
}

func (b *BulkAnalyzer) scoreRow(ctx context.Context, row BulkRow) rowOutcome {
	tx, err := ParseRow(row)
	if err != nil {
		return b.rowFailure(row.Row, err)
	}

	result, err := b.evaluator.Evaluate(ctx, tx)
	if err != nil {
		return b.rowFailure(row.Row, err)
	}

	return rowOutcome{result: models.BulkRowResult{
		Row:              row.Row,
		Amount:           tx.Amount,
		MerchantName:     tx.MerchantName,
		MerchantCategory: tx.MerchantCategory,
		CardEntryMethod:  tx.CardEntryMethod,
		Location:         tx.Location,
		IsFraud:          result.IsFraud,
		Confidence:       result.Confidence,
		RiskLevel:        result.RiskLevel,
		Status:           models.StatusFor(result),
		Source:           result.Source,
	}}
}

func (b *BulkAnalyzer) rowFailure(row int, err error) rowOutcome {
	b.logger.Debug("bulk row rejected", "row", row)
	return rowOutcome{err: &RowError{Row: row, Err: err}}
}

// ParseRow converts a decoded row into a RawTransaction.
func ParseRow(row BulkRow) (models.RawTransaction, error) {
	raw, ok := row.Fields[colAmount]
	if !ok || raw == "" {
		return models.RawTransaction{}, errors.New("amount is required")
	}
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return models.RawTransaction{}, fmt.Errorf("amount %q is not a number", raw)
	}
	if amount <= 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return models.RawTransaction{}, fmt.Errorf("amount %q must be a positive number", raw)
	}

	tx := models.RawTransaction{
		Amount:           amount,
		MerchantName:     row.Fields[colMerchantName],
		MerchantCategory: row.Fields[colMerchantCategory],
		Location:         row.Fields[colLocation],
		IPAddress:        row.Fields[colIPAddress],
		CardEntryMethod:  row.Fields[colCardEntryMethod],
	}

	if ts := row.Fields[colTimestamp]; ts != "" {
		at, err := parseTimestamp(ts)
		if err != nil {
			return models.RawTransaction{}, err
		}
		tx.Timestamp = &at
	}

	return tx, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q is not a recognised date-time", s)
}

// Aggregate reduces row outcomes into a summary. Failed rows only count
// towards ErrorCount. The sample keeps the first sampleSize scored rows in
// row order.
func Aggregate(outcomes []rowOutcome, sampleSize int, verbose bool) *models.BulkAnalysisSummary {
	summary := &models.BulkAnalysisSummary{
		SampleResults: []models.BulkRowResult{},
	}

	byCategory := make(map[string]int)
	byEntryMethod := make(map[string]int)
	buckets := make([]models.AmountBucketCount, len(amountBuckets))
	for i, ab := range amountBuckets {
		buckets[i].Name = ab.name
	}

	for _, o := range outcomes {
		if o.err != nil {
			summary.ErrorCount++
			if verbose {
				summary.RowErrors = append(summary.RowErrors, models.RowFailure{
					Row:     o.err.Row,
					Message: o.err.Err.Error(),
				})
			}
			continue
		}

		res := o.result
		summary.TotalTransactions++

		switch res.Status {
		case models.StatusFraudulent:
			summary.FraudulentTransactions++
			byCategory[res.MerchantCategory]++
			byEntryMethod[res.CardEntryMethod]++
		case models.StatusSuspicious:
			summary.SuspiciousTransactions++
		default:
			summary.SafeTransactions++
		}

		idx := bucketIndex(res.Amount)
		if res.IsFraud {
			buckets[idx].Fraudulent++
		} else {
			buckets[idx].Legitimate++
		}

		if len(summary.SampleResults) < sampleSize {
			summary.SampleResults = append(summary.SampleResults, res)
		}
	}

	summary.FraudByMerchantCategory = sortCounts(byCategory)
	summary.FraudByCardEntryMethod = sortCounts(byEntryMethod)
	summary.AmountDistribution = buckets

	return summary
}

func bucketIndex(amount float64) int {
	for i, ab := range amountBuckets {
		if amount >= ab.lower && amount < ab.upper {
			return i
		}
	}
	return len(amountBuckets) - 1
}

// sortCounts orders by count descending, then name.
func sortCounts(groups map[string]int) []models.CountEntry {
	result := make([]models.CountEntry, 0, len(groups))
	for name, n := range groups {
		result = append(result, models.CountEntry{Name: name, Value: n})
	}
	slices.SortFunc(result, func(a, b models.CountEntry) int {
		if a.Value > b.Value {
			return -1
		}
		if a.Value < b.Value {
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return result
}

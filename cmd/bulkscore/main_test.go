package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudguard/internal/config"
	"fraudguard/internal/models"
	"fraudguard/internal/scoring"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestParseFlags(t *testing.T) {
	cfg := loadConfig(t)

	opts, err := parseFlags([]string{"-file", "tx.csv", "-policy", "strict", "-concurrency", "3"}, cfg, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "tx.csv", opts.file)
	assert.Equal(t, "strict", opts.policy)
	assert.Equal(t, 3, opts.concurrency)
	assert.Equal(t, 100, opts.sampleSize)

	_, err = parseFlags(nil, cfg, io.Discard)
	assert.Error(t, err, "file is required")

	_, err = parseFlags([]string{"-file", "x.csv", "-concurrency", "0"}, cfg, io.Discard)
	assert.Error(t, err)
}

func TestParseFlags_DefaultsFromEnvironment(t *testing.T) {
	t.Setenv("BULK_CONCURRENCY", "3")
	t.Setenv("BULK_SAMPLE_SIZE", "25")
	t.Setenv("SCORING_SERVICE_URL", "http://scorer:8000")
	t.Setenv("SCORING_FALLBACK_POLICY", "Strict")
	t.Setenv("SCORING_TIMEOUT", "750ms")
	t.Setenv("SCORING_BREAKER_FAILURES", "2")
	t.Setenv("LOG_LEVEL", "debug")

	opts, err := parseFlags([]string{"-file", "tx.csv"}, loadConfig(t), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.concurrency)
	assert.Equal(t, 25, opts.sampleSize)
	assert.Equal(t, "http://scorer:8000", opts.scoringURL)
	assert.Equal(t, "strict", opts.policy)
	assert.Equal(t, 750*time.Millisecond, opts.timeout)
	assert.Equal(t, uint32(2), opts.breakerFailures)
	assert.Equal(t, "debug", opts.logLevel)

	opts, err = parseFlags([]string{"-file", "tx.csv", "-concurrency", "6", "-policy", "degrade"}, loadConfig(t), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 6, opts.concurrency)
	assert.Equal(t, "degrade", opts.policy)
}

func TestRun(t *testing.T) {
	path := writeCSV(t, "amount,merchantCategory,cardEntryMethod\n5000,retail,manual\n10,grocery,chip\nx,grocery,chip\n")

	var out bytes.Buffer
	err := run(context.Background(), options{
		file:        path,
		policy:      "degrade",
		concurrency: 2,
		sampleSize:  10,
		verbose:     true,
		logLevel:    "error",
	}, &out)
	require.NoError(t, err)

	var summary models.BulkAnalysisSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalTransactions)
	assert.Equal(t, 1, summary.FraudulentTransactions)
	assert.Equal(t, 1, summary.ErrorCount)
	require.Len(t, summary.RowErrors, 1)
	assert.Equal(t, 3, summary.RowErrors[0].Row)
}

func TestRun_Errors(t *testing.T) {
	path := writeCSV(t, "amount\n10\n")

	err := run(context.Background(), options{file: path, policy: "degrade", concurrency: 1, logLevel: "error"}, io.Discard)
	assert.ErrorIs(t, err, scoring.ErrSchema)

	err = run(context.Background(), options{file: path, policy: "strict", concurrency: 1, logLevel: "error"}, io.Discard)
	assert.ErrorContains(t, err, "strict policy requires")

	err = run(context.Background(), options{file: filepath.Join(t.TempDir(), "missing.csv"), policy: "degrade", concurrency: 1, logLevel: "error"}, io.Discard)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

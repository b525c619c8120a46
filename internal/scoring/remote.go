package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"fraudguard/internal/metrics"
	"fraudguard/internal/models"
	"fraudguard/internal/observability"
)

const (
	predictPath        = "/predict"
	maxErrorBodyBytes  = 512
	maxResultBodyBytes = 64 * 1024
)

type RemoteConfig struct {
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// RemoteClient calls the external scoring service. Each Score call makes at
// most one attempt; an open breaker fails immediately.
type RemoteClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[models.ScoringResult]
	logger     *slog.Logger
}

func NewRemoteClient(cfg RemoteConfig, logger *slog.Logger) *RemoteClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	c := &RemoteClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}

	failures := cfg.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker[models.ScoringResult](gobreaker.Settings{
		Name:        "scoring-service",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Failures caused by the caller's context are not counted.
		IsExcluded: func(err error) bool {
			var aborted *callerAbortedError
			return errors.As(err, &aborted)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerState(name, to.String())
			logger.Warn("scoring breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return c
}

// callerAbortedError marks a failure caused by the caller's context ending,
// as opposed to the per-call timeout or the service itself.
type callerAbortedError struct {
	err error
}

func (e *callerAbortedError) Error() string { return e.err.Error() }

func (e *callerAbortedError) Unwrap() error { return e.err }

type predictRequest struct {
	Amount           float64 `json:"amount"`
	MerchantCategory string  `json:"merchantCategory"`
	Location         string  `json:"location,omitempty"`
	IPAddress        string  `json:"ipAddress,omitempty"`
	CardEntryMethod  string  `json:"cardEntryMethod"`
	Timestamp        string  `json:"timestamp,omitempty"`
	models.FeatureSet
}

type predictResponse struct {
	IsFraud    *bool    `json:"is_fraud"`
	Confidence *float64 `json:"confidence"`
	RiskLevel  string   `json:"risk_level"`
}

// Score asks the remote service for a verdict. Every failure, including
// timeouts, non-2xx responses and malformed bodies, is an *UnavailableError.
func (c *RemoteClient) Score(ctx context.Context, tx models.RawTransaction, f models.FeatureSet) (models.ScoringResult, error) {
	ctx, span := observability.StartSpan(ctx, "scoring.remote",
		attribute.String("merchant.category", tx.MerchantCategory),
		attribute.String("card.entry_method", tx.CardEntryMethod),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return models.ScoringResult{}, &UnavailableError{Cause: err}
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (models.ScoringResult, error) {
		res, err := c.predict(ctx, tx, f)
		if err != nil && ctx.Err() != nil {
			return res, &callerAbortedError{err: err}
		}
		return res, err
	})

	var aborted *callerAbortedError
	if errors.As(err, &aborted) {
		return models.ScoringResult{}, &UnavailableError{Cause: ctx.Err()}
	}
	metrics.ObserveRemoteCall(time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote scoring failed")
		return models.ScoringResult{}, &UnavailableError{Cause: err}
	}

	return out, nil
}

func (c *RemoteClient) predict(ctx context.Context, tx models.RawTransaction, f models.FeatureSet) (models.ScoringResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := predictRequest{
		Amount:           tx.Amount,
		MerchantCategory: tx.MerchantCategory,
		Location:         tx.Location,
		IPAddress:        tx.IPAddress,
		CardEntryMethod:  tx.CardEntryMethod,
		FeatureSet:       f,
	}
	if tx.Timestamp != nil {
		payload.Timestamp = tx.Timestamp.Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return models.ScoringResult{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictPath, bytes.NewReader(body))
	if err != nil {
		return models.ScoringResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID := observability.GetRequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ScoringResult{}, fmt.Errorf("post %s: %w", predictPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return models.ScoringResult{}, fmt.Errorf("scoring service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var pr predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResultBodyBytes)).Decode(&pr); err != nil {
		return models.ScoringResult{}, fmt.Errorf("decode response: %w", err)
	}

	return pr.result()
}

func (pr predictResponse) result() (models.ScoringResult, error) {
	if pr.IsFraud == nil || pr.Confidence == nil {
		return models.ScoringResult{}, errors.New("response missing is_fraud or confidence")
	}
	if *pr.Confidence < 0 || *pr.Confidence > 1 {
		return models.ScoringResult{}, fmt.Errorf("confidence %v outside [0,1]", *pr.Confidence)
	}
	level := models.RiskLevel(pr.RiskLevel)
	if !level.Valid() {
		return models.ScoringResult{}, fmt.Errorf("unknown risk level %q", pr.RiskLevel)
	}

	return models.ScoringResult{
		IsFraud:    *pr.IsFraud,
		Confidence: *pr.Confidence,
		RiskLevel:  level,
		Source:     models.SourceRemote,
	}, nil
}

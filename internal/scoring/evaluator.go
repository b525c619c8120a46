package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"fraudguard/internal/metrics"
	"fraudguard/internal/models"
	"fraudguard/internal/observability"
)

// Policy selects what happens when the remote scorer cannot answer.
type Policy int

const (
	// PolicyStrict surfaces ErrServiceUnavailable to the caller.
	PolicyStrict Policy = iota
	// PolicyDegrade answers with the local heuristic scorer instead.
	PolicyDegrade
)

func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyDegrade:
		return "degrade"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return PolicyStrict, nil
	case "degrade":
		return PolicyDegrade, nil
	default:
		return 0, fmt.Errorf("unknown fallback policy %q, must be strict or degrade", s)
	}
}

// RemoteScorer is the contract of the external scoring service.
type RemoteScorer interface {
	Score(ctx context.Context, tx models.RawTransaction, f models.FeatureSet) (models.ScoringResult, error)
}

var errNoRemote = errors.New("no scoring service configured")

type Evaluator struct {
	remote RemoteScorer
	policy Policy
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Evaluator)

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// NewEvaluator builds the single-transaction evaluator. remote may be nil, in
// which case every evaluation goes through the fallback policy.
func NewEvaluator(remote RemoteScorer, policy Policy, logger *slog.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		remote: remote,
		policy: policy,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Policy() Policy {
	return e.policy
}

// Evaluate validates tx, derives its features once and scores it under the
// configured policy.
func (e *Evaluator) Evaluate(ctx context.Context, tx models.RawTransaction) (models.ScoringResult, error) {
	tx = Normalize(tx)

	if err := Validate(tx); err != nil {
		return models.ScoringResult{}, err
	}

	now := e.now()
	if tx.Timestamp == nil {
		tx.Timestamp = &now
	}
	features := Derive(tx, now)

	ctx, span := observability.StartSpan(ctx, "scoring.evaluate",
		attribute.String("fallback.policy", e.policy.String()),
	)
	defer span.End()

	result, err := e.scoreRemote(ctx, tx, features)
	if err == nil {
		metrics.RecordEvaluation(result)
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.ScoringResult{}, ctxErr
	}

	if e.policy == PolicyStrict {
		span.RecordError(err)
		return models.ScoringResult{}, err
	}

	if errors.Is(err, errNoRemote) {
		e.logger.Debug("scoring locally, no remote configured")
	} else {
		e.logger.Warn("remote scoring unavailable, using local heuristic",
			"error", err,
			"request_id", observability.GetRequestID(ctx),
		)
	}

	result = LocalResult(tx, features)
	if e.logger.Enabled(ctx, slog.LevelDebug) {
		e.logger.Debug("local heuristic signals",
			"signals", LocalSignals(tx, features),
			"confidence", result.Confidence,
		)
	}
	span.SetAttributes(attribute.Bool("scoring.degraded", true))
	metrics.RecordEvaluation(result)

	return result, nil
}

func (e *Evaluator) scoreRemote(ctx context.Context, tx models.RawTransaction, f models.FeatureSet) (models.ScoringResult, error) {
	if e.remote == nil {
		return models.ScoringResult{}, &UnavailableError{Cause: errNoRemote}
	}
	result, err := e.remote.Score(ctx, tx, f)
	if err != nil && !errors.Is(err, ErrServiceUnavailable) {
		err = &UnavailableError{Cause: err}
	}
	return result, err
}

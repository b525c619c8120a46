package scoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudguard/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubRemote struct {
	result   models.ScoringResult
	err      error
	calls    int
	features models.FeatureSet
}

func (s *stubRemote) Score(ctx context.Context, _ models.RawTransaction, f models.FeatureSet) (models.ScoringResult, error) {
	s.calls++
	s.features = f
	if err := ctx.Err(); err != nil {
		return models.ScoringResult{}, err
	}
	return s.result, s.err
}

func fixedClock() Option {
	return WithClock(func() time.Time { return weekdayAfternoon })
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" Strict ")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p)

	p, err = ParsePolicy("degrade")
	require.NoError(t, err)
	assert.Equal(t, PolicyDegrade, p)
	assert.Equal(t, "degrade", p.String())

	_, err = ParsePolicy("maybe")
	assert.Error(t, err)
}

func TestEvaluator_RemoteResultPassesThrough(t *testing.T) {
	remote := &stubRemote{result: models.ScoringResult{IsFraud: true, Confidence: 0.42, RiskLevel: models.RiskMedium, Source: models.SourceRemote}}
	ev := NewEvaluator(remote, PolicyStrict, discardLogger(), fixedClock())

	tx := models.RawTransaction{Amount: 10, MerchantCategory: "ecommerce", CardEntryMethod: "online"}
	res, err := ev.Evaluate(context.Background(), tx)
	require.NoError(t, err)

	assert.Equal(t, remote.result, res)
	assert.Equal(t, 1, remote.calls)
	assert.Equal(t, models.FeatureSet{HourOfDay: 14, IsOnline: true, IsEcommerce: true}, remote.features)
}

func TestEvaluator_DegradeEqualsLocalScorer(t *testing.T) {
	cases := []models.RawTransaction{
		{Amount: 45.99, MerchantCategory: "grocery", CardEntryMethod: "chip"},
		{Amount: 3500, MerchantCategory: "ecommerce", Location: "abnormal", CardEntryMethod: "manual", Timestamp: at(time.Date(2024, 3, 13, 3, 0, 0, 0, time.UTC))},
		{Amount: 1299.99, MerchantCategory: "electronics", CardEntryMethod: "online"},
	}

	remotes := map[string]RemoteScorer{
		"failing remote": &stubRemote{err: errors.New("connection refused")},
		"no remote":      nil,
	}

	for name, remote := range remotes {
		t.Run(name, func(t *testing.T) {
			ev := NewEvaluator(remote, PolicyDegrade, discardLogger(), fixedClock())
			for _, tx := range cases {
				got, err := ev.Evaluate(context.Background(), tx)
				require.NoError(t, err)

				want := LocalResult(tx, Derive(tx, weekdayAfternoon))
				assert.Equal(t, want, got)
				assert.Equal(t, models.SourceFallback, got.Source)
			}
		})
	}
}

func TestEvaluator_StrictSurfacesUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	remote := &stubRemote{err: cause}
	ev := NewEvaluator(remote, PolicyStrict, discardLogger(), fixedClock())

	_, err := ev.Evaluate(context.Background(), models.RawTransaction{Amount: 10, MerchantCategory: "grocery", CardEntryMethod: "chip"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, remote.calls, "single attempt")
}

func TestEvaluator_StrictWithoutRemote(t *testing.T) {
	ev := NewEvaluator(nil, PolicyStrict, discardLogger())
	_, err := ev.Evaluate(context.Background(), models.RawTransaction{Amount: 10, MerchantCategory: "grocery", CardEntryMethod: "chip"})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestEvaluator_ValidationBeforeScoring(t *testing.T) {
	remote := &stubRemote{}
	ev := NewEvaluator(remote, PolicyDegrade, discardLogger(), fixedClock())

	_, err := ev.Evaluate(context.Background(), models.RawTransaction{Amount: -1, MerchantCategory: " ", CardEntryMethod: "chip"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, remote.calls)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "amount")
	assert.Contains(t, verr.Fields, "merchantCategory")
}

func TestEvaluator_CancelledContextIsNotDegraded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev := NewEvaluator(&stubRemote{}, PolicyDegrade, discardLogger(), fixedClock())
	_, err := ev.Evaluate(ctx, models.RawTransaction{Amount: 10, MerchantCategory: "grocery", CardEntryMethod: "chip"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluator_DoesNotMutateCallerTransaction(t *testing.T) {
	ev := NewEvaluator(nil, PolicyDegrade, discardLogger(), fixedClock())
	tx := models.RawTransaction{Amount: 10, MerchantCategory: " grocery ", CardEntryMethod: "chip"}

	_, err := ev.Evaluate(context.Background(), tx)
	require.NoError(t, err)
	assert.Nil(t, tx.Timestamp)
	assert.Equal(t, " grocery ", tx.MerchantCategory)
}

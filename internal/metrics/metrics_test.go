package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudguard/internal/models"
)

func TestBreakerStateValue(t *testing.T) {
	assert.Equal(t, 0.0, breakerStateValue("closed"))
	assert.Equal(t, 0.5, breakerStateValue("half-open"))
	assert.Equal(t, 1.0, breakerStateValue("open"))
	assert.Equal(t, -1.0, breakerStateValue("mystery"))
}

func TestStatusBucket(t *testing.T) {
	tests := map[int]string{
		101: "1xx",
		200: "2xx",
		204: "2xx",
		304: "3xx",
		400: "4xx",
		413: "4xx",
		500: "5xx",
		503: "5xx",
	}
	for code, want := range tests {
		assert.Equal(t, want, statusBucket(code), "status %d", code)
	}
}

func TestRecordBreakerState(t *testing.T) {
	RecordBreakerState("test-breaker", "open")

	var m dto.Metric
	require.NoError(t, BreakerState.WithLabelValues("test-breaker").Write(&m))
	assert.Equal(t, 1.0, m.GetGauge().GetValue())

	RecordBreakerState("test-breaker", "closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(BreakerState.WithLabelValues("test-breaker")))
}

func TestRecordEvaluation(t *testing.T) {
	c := EvaluationsTotal.WithLabelValues("fallback", "high")
	before := testutil.ToFloat64(c)

	RecordEvaluation(models.ScoringResult{RiskLevel: models.RiskHigh, Source: models.SourceFallback})
	RecordEvaluation(models.ScoringResult{RiskLevel: models.RiskHigh, Source: models.SourceFallback})

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}

func TestRecordBatch(t *testing.T) {
	completed := BulkBatchesTotal.WithLabelValues("completed")
	rejected := BulkBatchesTotal.WithLabelValues("rejected")
	scored := BulkRowsTotal.WithLabelValues("scored")
	failed := BulkRowsTotal.WithLabelValues("error")

	beforeCompleted := testutil.ToFloat64(completed)
	beforeRejected := testutil.ToFloat64(rejected)
	beforeScored := testutil.ToFloat64(scored)
	beforeFailed := testutil.ToFloat64(failed)

	RecordBatch("completed", 4, 1, 50*time.Millisecond)
	RecordBatch("rejected", 0, 0, 0)

	assert.Equal(t, beforeCompleted+1, testutil.ToFloat64(completed))
	assert.Equal(t, beforeRejected+1, testutil.ToFloat64(rejected))
	assert.Equal(t, beforeScored+4, testutil.ToFloat64(scored))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestObserveRemoteCall(t *testing.T) {
	ObserveRemoteCall(20*time.Millisecond, nil)
	ObserveRemoteCall(time.Second, errors.New("timeout"))
	assert.Equal(t, 2, testutil.CollectAndCount(RemoteCallDuration))
}

func TestObserveHTTPRequest(t *testing.T) {
	c := HTTPRequestsTotal.WithLabelValues("POST", "POST /api/detect-fraud", "4xx")
	before := testutil.ToFloat64(c)

	ObserveHTTPRequest("POST", "POST /api/detect-fraud", http.StatusBadRequest, 3*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestHandler(t *testing.T) {
	RecordEvaluation(models.ScoringResult{RiskLevel: models.RiskLow, Source: models.SourceRemote})

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fraudguard_evaluations_total")
}

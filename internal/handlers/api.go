package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"fraudguard/internal/errors"
	"fraudguard/internal/models"
	"fraudguard/internal/observability"
	"fraudguard/internal/services"
)

const (
	maxJSONBodyBytes = 1 << 20
	defaultPageLimit = 10
	maxPageLimit     = 100
	uploadFieldName  = "file"
)

// BulkSettings bounds a single analyze-csv request.
type BulkSettings struct {
	MaxUploadBytes int64
	Timeout        time.Duration
}

type APIHandlers struct {
	detection *services.DetectionService
	bulk      *services.BulkAnalyzer
	analytics *services.Analytics
	settings  BulkSettings
	policy    string
	logger    *slog.Logger
}

func NewAPIHandlers(
	detection *services.DetectionService,
	bulk *services.BulkAnalyzer,
	analytics *services.Analytics,
	settings BulkSettings,
	policy string,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		detection: detection,
		bulk:      bulk,
		analytics: analytics,
		settings:  settings,
		policy:    policy,
		logger:    logger,
	}
}

type detectResponse struct {
	FraudResult models.ScoringResult     `json:"fraudResult"`
	Transaction models.TransactionRecord `json:"transaction"`
}

func (h *APIHandlers) HandleDetectFraud(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var tx models.RawTransaction
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(&tx); err != nil {
		h.writeBodyError(w, errors.BadRequestWrap(err, "Request body must be a JSON transaction"), requestID)
		return
	}

	result, rec, err := h.detection.Detect(r.Context(), tx)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, detectResponse{FraudResult: result, Transaction: rec})
}

// HandleCreateTransaction stores a transaction without scoring it.
func (h *APIHandlers) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var tx models.RawTransaction
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(&tx); err != nil {
		h.writeBodyError(w, errors.BadRequestWrap(err, "Request body must be a JSON transaction"), requestID)
		return
	}

	rec, err := h.detection.Record(r.Context(), tx)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccessWithStatus(w, http.StatusCreated, rec)
}

// HandleAnalyzeCSV accepts either a multipart upload in the "file" field or a
// raw CSV body.
func (h *APIHandlers) HandleAnalyzeCSV(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	verbose := false
	if v := r.URL.Query().Get("verbose"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			errors.WriteError(w, h.logger, errors.BadRequest("verbose must be true or false"), requestID)
			return
		}
		verbose = parsed
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.settings.MaxUploadBytes)

	body, err := h.csvBody(r)
	if err != nil {
		h.writeBodyError(w, err, requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.settings.Timeout)
	defer cancel()

	summary, err := h.bulk.Analyze(ctx, body, verbose)
	if err != nil {
		h.writeBodyError(w, err, requestID)
		return
	}

	h.analytics.RecordBatch(summary)
	errors.WriteSuccess(w, summary)
}

func (h *APIHandlers) csvBody(r *http.Request) (io.Reader, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.BadRequestWrap(err, "Invalid multipart body")
	}
	for {
		part, err := mr.NextPart()
		if stderrors.Is(err, io.EOF) {
			return nil, errors.BadRequest("No file uploaded")
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == uploadFieldName {
			return part, nil
		}
	}
}

// writeBodyError reports an oversized request body as 413 and everything else
// through the domain mapping.
func (h *APIHandlers) writeBodyError(w http.ResponseWriter, err error, requestID string) {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		err = errors.TooLarge("Upload exceeds " + strconv.FormatInt(maxErr.Limit, 10) + " bytes")
	}
	errors.WriteError(w, h.logger, err, requestID)
}

func (h *APIHandlers) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil || limit < 1 || limit > maxPageLimit {
		errors.WriteError(w, h.logger, errors.BadRequest("limit must be between 1 and 100"), requestID)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		errors.WriteError(w, h.logger, errors.BadRequest("offset must be a non-negative integer"), requestID)
		return
	}

	records, err := h.detection.Transactions(r.Context(), limit, offset)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccess(w, records)
}

func (h *APIHandlers) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	rec, err := h.detection.Transaction(r.Context(), r.PathValue("id"))
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccess(w, rec)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.DashboardStats(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	headers := map[string]string{
		"Cache-Control": "no-store",
	}

	errors.WriteSuccessWithHeaders(w, stats, headers)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":          "healthy",
		"timestamp":       time.Now().Format(time.RFC3339),
		"version":         observability.Version,
		"fallback_policy": h.policy,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleAdminStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()
	stats["fallback_policy"] = h.policy

	errors.WriteSuccess(w, stats)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

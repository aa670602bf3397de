package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/voxpense/voxpense/internal/capture"
	"github.com/voxpense/voxpense/internal/ledger"
	"github.com/voxpense/voxpense/internal/notify"
	"github.com/voxpense/voxpense/pkg/events"
	"github.com/voxpense/voxpense/pkg/transcript"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MiB

	defaultRecordLimit = 50
	maxRecordLimit     = 500
)

// Handler provides REST endpoints for captures, records, vocabularies
// and notification sinks.
type Handler struct {
	manager   *capture.Manager
	repo      *ledger.Repository
	publisher *events.Publisher
	profiles  *transcript.Loader
	notifier  *notify.Notifier
}

// NewHandler creates a new capture API handler.
func NewHandler(manager *capture.Manager, repo *ledger.Repository, publisher *events.Publisher, profiles *transcript.Loader, notifier *notify.Notifier) *Handler {
	return &Handler{
		manager:   manager,
		repo:      repo,
		publisher: publisher,
		profiles:  profiles,
		notifier:  notifier,
	}
}

// RegisterRoutes registers all capture API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/captures", h.CreateCapture)
	mux.HandleFunc("GET /api/v1/captures", h.ListCaptures)
	mux.HandleFunc("GET /api/v1/captures/{id}", h.GetCapture)
	mux.HandleFunc("POST /api/v1/captures/{id}/events", h.DeliverEvent)
	mux.HandleFunc("POST /api/v1/captures/{id}/start", h.StartCapture)
	mux.HandleFunc("POST /api/v1/captures/{id}/stop", h.StopCapture)
	mux.HandleFunc("DELETE /api/v1/captures/{id}", h.DeleteCapture)
	mux.HandleFunc("GET /api/v1/records", h.ListRecords)
	mux.HandleFunc("GET /api/v1/records/summary", h.Summary)
	mux.HandleFunc("GET /api/v1/records/{id}", h.GetRecord)
	mux.HandleFunc("DELETE /api/v1/records/{id}", h.DeleteRecord)
	mux.HandleFunc("GET /api/v1/vocabularies", h.ListVocabularies)
	mux.HandleFunc("GET /api/v1/sinks", h.ListSinks)
	mux.HandleFunc("POST /api/v1/sinks/test", h.TestSinks)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeCaptureError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, capture.ErrNotFound):
		writeError(w, http.StatusNotFound, "capture not found")
	case errors.Is(err, capture.ErrClientBusy):
		writeError(w, http.StatusConflict, "client already has an active capture")
	case errors.Is(err, capture.ErrNotActive):
		writeError(w, http.StatusConflict, "capture is not listening")
	case errors.Is(err, capture.ErrCapacity):
		writeError(w, http.StatusTooManyRequests, "capture capacity reached")
	case errors.Is(err, capture.ErrClientKeyRequired):
		writeError(w, http.StatusBadRequest, "client_key is required")
	case errors.Is(err, capture.ErrUnknownProfile):
		writeError(w, http.StatusBadRequest, "unknown vocabulary profile")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toCaptureResponse(v capture.View) CaptureResponse {
	resp := CaptureResponse{
		ID:             v.ID,
		ClientKey:      v.ClientKey,
		State:          string(v.State),
		Profile:        v.Profile,
		Language:       v.Config.Language,
		Continuous:     v.Config.Continuous,
		InterimResults: v.Config.InterimResults,
		Transcript:     v.Transcript,
		CreatedAt:      v.CreatedAt.Format(time.RFC3339),
	}
	if v.LastError != nil {
		resp.LastError = &RecognitionErrorResponse{
			Category: string(v.LastError.Category),
			Code:     v.LastError.Code,
		}
	}
	return resp
}

func toRecordResponse(rec *ledger.Record) RecordResponse {
	return RecordResponse{
		ID:          rec.ID,
		Description: rec.Description,
		Amount:      rec.Amount.StringFixed(2),
		Transcript:  rec.Transcript,
		CaptureID:   rec.CaptureID,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
}

// CreateCapture handles POST /api/v1/captures
func (h *Handler) CreateCapture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req CreateCaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v, err := h.manager.Create(r.Context(), capture.CreateRequest{
		ClientKey:      req.ClientKey,
		Language:       req.Language,
		Continuous:     req.Continuous,
		InterimResults: req.InterimResults,
		Profile:        req.Profile,
	})
	if err != nil {
		writeCaptureError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCaptureResponse(v))
}

// ListCaptures handles GET /api/v1/captures
func (h *Handler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	views := h.manager.List()
	resp := make([]CaptureResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toCaptureResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCapture handles GET /api/v1/captures/{id}
func (h *Handler) GetCapture(w http.ResponseWriter, r *http.Request) {
	v, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCaptureResponse(v))
}

// DeliverEvent handles POST /api/v1/captures/{id}/events
func (h *Handler) DeliverEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req HostEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch capture.EventType(req.Type) {
	case capture.EventFinal, capture.EventError, capture.EventEnd:
	default:
		writeError(w, http.StatusBadRequest, "type must be final, error or end")
		return
	}

	v, err := h.manager.Deliver(r.Context(), r.PathValue("id"), capture.Event{
		Type: capture.EventType(req.Type),
		Text: req.Text,
		Code: req.Code,
	})
	if err != nil {
		writeCaptureError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCaptureResponse(v))
}

// StartCapture handles POST /api/v1/captures/{id}/start
func (h *Handler) StartCapture(w http.ResponseWriter, r *http.Request) {
	v, err := h.manager.Start(r.Context(), r.PathValue("id"))
	if err != nil {
		writeCaptureError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCaptureResponse(v))
}

// StopCapture handles POST /api/v1/captures/{id}/stop
func (h *Handler) StopCapture(w http.ResponseWriter, r *http.Request) {
	v, err := h.manager.Stop(r.Context(), r.PathValue("id"))
	if err != nil {
		writeCaptureError(w, err)
		return
	}
	// The capture drains until the client's end event arrives.
	writeJSON(w, http.StatusAccepted, toCaptureResponse(v))
}

// DeleteCapture handles DELETE /api/v1/captures/{id}
func (h *Handler) DeleteCapture(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Close(r.Context(), r.PathValue("id")); err != nil {
		writeCaptureError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRecords handles GET /api/v1/records
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecordLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRecordLimit)
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	var (
		records []ledger.Record
		err     error
	)
	if captureID := r.URL.Query().Get("capture_id"); captureID != "" {
		records, err = h.repo.ListByCapture(r.Context(), captureID)
	} else {
		records, err = h.repo.List(r.Context(), limit, offset)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	resp := make([]RecordResponse, 0, len(records))
	for i := range records {
		resp = append(resp, toRecordResponse(&records[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRecord handles GET /api/v1/records/{id}
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.repo.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

// DeleteRecord handles DELETE /api/v1/records/{id}
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := h.repo.GetByID(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}

	if h.publisher != nil {
		_ = h.publisher.Emit(r.Context(), events.RecordDeleted, "", events.RecordDeletedData{RecordID: id})
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /api/v1/records/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	// Defaults to the start of the current day, UTC.
	now := time.Now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if s := r.URL.Query().Get("since"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = parsed
	}

	total, count, err := h.repo.TotalSince(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	writeJSON(w, http.StatusOK, SummaryResponse{
		Since: since.Format(time.RFC3339),
		Count: count,
		Total: total.StringFixed(2),
	})
}

// ListVocabularies handles GET /api/v1/vocabularies
func (h *Handler) ListVocabularies(w http.ResponseWriter, r *http.Request) {
	resp := make([]VocabularyResponse, 0)
	if h.profiles != nil {
		for name, p := range h.profiles.All() {
			resp = append(resp, VocabularyResponse{
				Name:            name,
				CurrencySymbols: p.Vocabulary.CurrencySymbols,
				CurrencyWords:   p.Vocabulary.CurrencyWords,
				Delimiters:      p.Vocabulary.Delimiters,
				Fillers:         p.Vocabulary.Fillers,
			})
		}
	}
	sort.Slice(resp, func(i, j int) bool { return resp[i].Name < resp[j].Name })
	writeJSON(w, http.StatusOK, resp)
}

// ListSinks handles GET /api/v1/sinks
func (h *Handler) ListSinks(w http.ResponseWriter, r *http.Request) {
	if h.notifier == nil {
		writeJSON(w, http.StatusOK, []notify.SinkStatus{})
		return
	}
	writeJSON(w, http.StatusOK, h.notifier.Statuses())
}

// TestSinks handles POST /api/v1/sinks/test
func (h *Handler) TestSinks(w http.ResponseWriter, r *http.Request) {
	if h.notifier == nil || h.notifier.SinkCount() == 0 {
		writeError(w, http.StatusBadRequest, "no notification sinks configured")
		return
	}

	testData := events.WebhookTestData{
		Message: "This is a test delivery from voxpense",
	}
	if h.publisher != nil {
		if err := h.publisher.Emit(r.Context(), events.WebhookTest, "", testData); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to publish test event")
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "test event published"})
}

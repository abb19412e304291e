package intake

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/fertility-intake-platform/pkg/logging"
)

// Handler exposes the intake engine over HTTP.
type Handler struct {
	engine  *Engine
	archive *ArchiveStore
	logger  *logging.Logger
}

// NewHandler creates an intake handler. The archive store may be nil; the
// admin listing endpoint then reports the feature as unavailable.
func NewHandler(engine *Engine, archive *ArchiveStore, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:  engine,
		archive: archive,
		logger:  logger.WithComponent("intake_http"),
	}
}

// MessageRequest is the body for POST /intake/message.
type MessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// UploadRequest is the body for POST /intake/upload. The platform stores
// report files elsewhere; the engine only needs the filename to classify the
// test kind.
type UploadRequest struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
}

// StateResponse is the body for GET /intake/sessions/{sessionID}.
type StateResponse struct {
	Record *Record `json:"record"`
	Step   Step    `json:"step"`
}

// StartSession handles POST /intake/sessions.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.StartSession(r.Context())
	if err != nil {
		h.logger.Error("failed to start session", "error", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	h.logger.Info("session started", "session_id", result.SessionID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(result)
}

// Message handles POST /intake/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		http.Error(w, "missing session_id", http.StatusBadRequest)
		return
	}

	result, err := h.engine.HandleMessage(r.Context(), req.SessionID, req.Message)
	if err != nil {
		h.logger.Error("turn failed", "error", err, "session_id", req.SessionID)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Upload handles POST /intake/upload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.Filename == "" {
		http.Error(w, "missing session_id or filename", http.StatusBadRequest)
		return
	}

	result, err := h.engine.UploadDocument(r.Context(), req.SessionID, req.Filename)
	switch {
	case errors.Is(err, ErrUnknownTestKind):
		http.Error(w, "could not identify the test from the filename; please rename the file after the test it contains", http.StatusUnprocessableEntity)
		return
	case errors.Is(err, ErrUnreportedTest):
		http.Error(w, "this test was not mentioned during the interview; please message first so the record can be corrected", http.StatusUnprocessableEntity)
		return
	case errors.Is(err, ErrSessionNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error("upload failed", "error", err, "session_id", req.SessionID)
		http.Error(w, "failed to process upload", http.StatusInternalServerError)
		return
	}

	h.logger.Info("document uploaded", "session_id", req.SessionID, "filename", req.Filename)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// State handles GET /intake/sessions/{sessionID}.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	rec, step, err := h.engine.State(r.Context(), sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load state", "error", err, "session_id", sessionID)
		http.Error(w, "failed to load state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StateResponse{Record: rec, Step: step})
}

// EndSession handles DELETE /intake/sessions/{sessionID}.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	if err := h.engine.EndSession(r.Context(), sessionID); err != nil {
		h.logger.Error("failed to end session", "error", err, "session_id", sessionID)
		http.Error(w, "failed to end session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRecordsResponse is the body for the admin archive listing.
type ListRecordsResponse struct {
	SessionIDs []string `json:"session_ids"`
	Count      int      `json:"count"`
}

// ListRecords handles GET /admin/intake/records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "archive not configured", http.StatusServiceUnavailable)
		return
	}

	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 365 {
			days = parsed
		}
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	ids, err := h.archive.ListRecent(r.Context(), since, limit)
	if err != nil {
		h.logger.Error("failed to list archived records", "error", err)
		http.Error(w, "failed to list records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListRecordsResponse{SessionIDs: ids, Count: len(ids)})
}

// GetRecord handles GET /admin/intake/records/{sessionID}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "archive not configured", http.StatusServiceUnavailable)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	rec, err := h.archive.Get(r.Context(), sessionID)
	if errors.Is(err, ErrArchiveNotFound) {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load archived record", "error", err, "session_id", sessionID)
		http.Error(w, "failed to load record", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

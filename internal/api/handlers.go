package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SoSerious194/ptflow-messaging/internal/model"
	"github.com/SoSerious194/ptflow-messaging/internal/repo"
	"github.com/SoSerious194/ptflow-messaging/internal/scheduler"
	"github.com/SoSerious194/ptflow-messaging/internal/service"
)

// MessageProcessor is the slice of service.Processor the handlers need.
type MessageProcessor interface {
	ProcessSingle(ctx context.Context, messageID uuid.UUID, coachID *uuid.UUID, now time.Time) (service.Result, error)
	Sweep(ctx context.Context, now time.Time, recurringOnly bool) (service.Result, error)
}

type Handler struct {
	processor  MessageProcessor
	sweeper    *scheduler.Sweeper
	deliveries repo.DeliveryRepository
	secret     string
}

func NewHandler(p MessageProcessor, s *scheduler.Sweeper, d repo.DeliveryRepository, secret string) *Handler {
	return &Handler{processor: p, sweeper: s, deliveries: d, secret: secret}
}

type processRequest struct {
	MessageID *string `json:"messageId"`
	CoachID   *string `json:"coachId"`
	Recurring bool    `json:"recurring"`
}

type processResponse struct {
	Message   string                `json:"message"`
	Processed int                   `json:"processed"`
	Total     int                   `json:"total"`
	Errors    []model.DeliveryError `json:"errors"`
}

// ProcessMessages is the scheduled-message processing endpoint. With a
// messageId it handles the external scheduler's callback for that one
// message; without one it sweeps every due message.
func (h *Handler) ProcessMessages(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}

	var req processRequest
	if r.Body != nil {
		// An empty body means sweep mode; anything else must be valid JSON.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
			return
		}
	}

	now := time.Now().UTC()

	if req.MessageID != nil {
		h.processSingle(w, r, req, now)
		return
	}

	res, err := h.processor.Sweep(r.Context(), now, req.Recurring)
	if err != nil {
		slog.Error("sweep failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to process messages"})
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Message:   "processed scheduled messages",
		Processed: res.Processed,
		Total:     res.Dispatched,
		Errors:    errorsOrEmpty(res.Errors),
	})
}

func (h *Handler) processSingle(w http.ResponseWriter, r *http.Request, req processRequest, now time.Time) {
	messageID, err := uuid.Parse(*req.MessageID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "message not found"})
		return
	}

	var coachID *uuid.UUID
	if req.CoachID != nil {
		id, err := uuid.Parse(*req.CoachID)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "message not found"})
			return
		}
		coachID = &id
	}

	res, err := h.processor.ProcessSingle(r.Context(), messageID, coachID, now)
	if errors.Is(err, repo.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "message not found"})
		return
	}
	if err != nil {
		slog.Error("single-message processing failed", "message_id", messageID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to process message"})
		return
	}

	msg := "message processed"
	if res.Dispatched == 0 && len(res.Errors) == 0 {
		msg = "message not yet due"
	}

	writeJSON(w, http.StatusOK, processResponse{
		Message:   msg,
		Processed: res.Processed,
		Total:     res.Dispatched,
		Errors:    errorsOrEmpty(res.Errors),
	})
}

func (h *Handler) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SweeperStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sweeper.IsRunning()})
}

func (h *Handler) SweeperStart(w http.ResponseWriter, r *http.Request) {
	h.sweeper.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sweeper.IsRunning()})
}

func (h *Handler) SweeperStop(w http.ResponseWriter, r *http.Request) {
	h.sweeper.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.sweeper.IsRunning()})
}

func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 50)
	offset := parseInt(r.URL.Query().Get("offset"), 0)

	items, err := h.deliveries.ListRecent(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func errorsOrEmpty(errs []model.DeliveryError) []model.DeliveryError {
	if errs == nil {
		return []model.DeliveryError{}
	}
	return errs
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

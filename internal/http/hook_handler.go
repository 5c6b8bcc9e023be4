package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jeksecret/schedule-coordination-tool/internal/application"
)

type hookService interface {
	SubmitEvaluatorResponse(ctx context.Context, token string, submission application.ResponseSubmission) (application.SessionStatusView, error)
	RecordFacilityReply(ctx context.Context, sessionID, slotID, note string) (application.SessionStatusView, error)
}

// HookHandler receives callbacks from the external form frontends: evaluator
// answers arriving via invite token and the facility's final reply.
type HookHandler struct {
	service   hookService
	responder responder
	logger    *slog.Logger
}

func NewHookHandler(service hookService, logger *slog.Logger) *HookHandler {
	base := defaultLogger(logger)
	return &HookHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *HookHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "HookHandler", operation, attrs...)
}

func (h *HookHandler) EvaluatorResponse(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req evaluatorResponseHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "EvaluatorResponse", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode evaluator response hook", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		h.log(r.Context(), "EvaluatorResponse", "error_kind", "bad_request").ErrorContext(r.Context(), "missing invite token on evaluator response hook")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingInviteToken)
		return
	}

	logger := h.log(r.Context(), "EvaluatorResponse")
	view, err := h.service.SubmitEvaluatorResponse(r.Context(), strings.TrimSpace(req.Token), application.ResponseSubmission{
		Note:    req.Note,
		Answers: req.Answers,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "evaluator response hook failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", view.ID).InfoContext(r.Context(), "evaluator response recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionStatusResponse{Session: toStatusDTO(view)})
}

func (h *HookHandler) FacilityResponse(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req facilityResponseHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "FacilityResponse", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode facility response hook", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		h.log(r.Context(), "FacilityResponse", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id on facility response hook")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	if strings.TrimSpace(req.SlotID) == "" {
		h.log(r.Context(), "FacilityResponse", "session_id", req.SessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "missing slot id on facility response hook")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	logger := h.log(r.Context(), "FacilityResponse", "session_id", req.SessionID, "slot_id", req.SlotID)
	view, err := h.service.RecordFacilityReply(r.Context(), strings.TrimSpace(req.SessionID), strings.TrimSpace(req.SlotID), req.Note)
	if err != nil {
		logger.ErrorContext(r.Context(), "facility response hook failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "facility reply recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionStatusResponse{Session: toStatusDTO(view)})
}

type evaluatorResponseHookRequest struct {
	Token   string            `json:"token"`
	Note    *string           `json:"note"`
	Answers map[string]string `json:"answers"`
}

type facilityResponseHookRequest struct {
	SessionID string `json:"session_id"`
	SlotID    string `json:"slot_id"`
	Note      string `json:"note"`
}

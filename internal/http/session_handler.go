package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jeksecret/schedule-coordination-tool/internal/application"
	"github.com/jeksecret/schedule-coordination-tool/internal/engine"
)

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.CreateSessionResult, error)
	GetSessionStatus(ctx context.Context, sessionID string) (application.SessionStatusView, error)
	ListSessions(ctx context.Context) ([]application.SessionListItem, error)
	UpdateSessionFields(ctx context.Context, sessionID string, update engine.FieldUpdate) (application.SessionStatusView, error)
	UpdateEvaluatorResponses(ctx context.Context, sessionID, evaluatorID string, submission application.ResponseSubmission) (application.SessionStatusView, error)
	CheckSlotEveryoneOk(ctx context.Context, sessionID, slotID string) (engine.ConsensusResult, error)
	ProposeSlot(ctx context.Context, sessionID, slotID string) (application.SessionStatusView, error)
	ClearProposal(ctx context.Context, sessionID string) (application.SessionStatusView, error)
	ConfirmationSummary(ctx context.Context, sessionID string) (engine.ConfirmationSummary, error)
}

type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	result, err := h.service.CreateSession(r.Context(), req.toParams())
	if err != nil {
		logger.ErrorContext(r.Context(), "session creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", result.Session.ID).InfoContext(r.Context(), "session created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createSessionResponse{
		SessionID:    result.Session.ID,
		Status:       string(result.Session.Status()),
		InviteTokens: result.InviteTokens,
	})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	items, err := h.service.ListSessions(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "session list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(items)).InfoContext(r.Context(), "sessions listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toListItemDTOs(items)})
}

func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Status", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for status")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "Status", "session_id", sessionID)
	view, err := h.service.GetSessionStatus(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "session status failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionStatusResponse{Session: toStatusDTO(view)})
}

func (h *SessionHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "UpdateFields", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateFields", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateFields", "session_id", sessionID)
	view, err := h.service.UpdateSessionFields(r.Context(), sessionID, engine.FieldUpdate{
		Purpose:          req.Purpose,
		ResponseDeadline: req.ResponseDeadline,
		PresentationDate: req.PresentationDate,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "session update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "session updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionStatusResponse{Session: toStatusDTO(view)})
}

func (h *SessionHandler) UpdateEvaluatorResponses(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "UpdateEvaluatorResponses", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for response update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	evaluatorID, ok := EvaluatorIDFromContext(r.Context())
	if !ok || strings.TrimSpace(evaluatorID) == "" {
		h.log(r.Context(), "UpdateEvaluatorResponses", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "missing evaluator id for response update")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEvaluatorID)
		return
	}

	var req responseSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateEvaluatorResponses", "session_id", sessionID, "evaluator_id", evaluatorID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode response update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateEvaluatorResponses", "session_id", sessionID, "evaluator_id", evaluatorID)
	view, err := h.service.UpdateEvaluatorResponses(r.Context(), sessionID, evaluatorID, req.toSubmission())
	if err != nil {
		logger.ErrorContext(r.Context(), "response update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "evaluator responses updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionStatusResponse{Session: toStatusDTO(view)})
}

func (h *SessionHandler) EveryoneOk(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "EveryoneOk", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for consensus check")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	slotID, ok := SlotIDFromContext(r.Context())
	if !ok || strings.TrimSpace(slotID) == "" {
		h.log(r.Context(), "EveryoneOk", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "missing slot id for consensus check")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	logger := h.log(r.Context(), "EveryoneOk", "session_id", sessionID, "slot_id", slotID)
	result, err := h.service.CheckSlotEveryoneOk(r.Context(), sessionID, slotID)
	if err != nil {
		logger.ErrorContext(r.Context(), "consensus check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, consensusResponse{
		SlotID:     result.SlotID,
		EveryoneOk: result.EveryoneOk,
		Missing:    result.Missing,
		Dissenting: result.Dissenting,
	})
}

func (h *SessionHandler) Propose(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Propose", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for proposal")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req proposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Propose", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode proposal request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if strings.TrimSpace(req.SlotID) == "" {
		h.log(r.Context(), "Propose", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(r.Context(), "missing slot id for proposal")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	logger := h.log(r.Context(), "Propose", "session_id", sessionID, "slot_id", req.SlotID)
	view, err := h.service.ProposeSlot(r.Context(), sessionID, strings.TrimSpace(req.SlotID))
	if err != nil {
		logger.ErrorContext(r.Context(), "slot proposal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "slot proposed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionStatusResponse{Session: toStatusDTO(view)})
}

func (h *SessionHandler) ClearProposal(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "ClearProposal", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for proposal withdrawal")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "ClearProposal", "session_id", sessionID)
	view, err := h.service.ClearProposal(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "proposal withdrawal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "proposal cleared")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionStatusResponse{Session: toStatusDTO(view)})
}

func (h *SessionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.log(r.Context(), "Summary", "error_kind", "bad_request").ErrorContext(r.Context(), "missing session id for summary")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), "Summary", "session_id", sessionID)
	summary, err := h.service.ConfirmationSummary(r.Context(), sessionID)
	if err != nil {
		logger.ErrorContext(r.Context(), "confirmation summary failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, summaryResponse{Summary: toSummaryDTO(summary)})
}

type createSessionRequest struct {
	FacilityURL      string         `json:"facility_url"`
	Purpose          string         `json:"purpose"`
	ResponseDeadline string         `json:"response_deadline"`
	PresentationDate string         `json:"presentation_date"`
	Slots            []slotInputDTO `json:"slots"`
}

type slotInputDTO struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

func (r createSessionRequest) toParams() application.CreateSessionParams {
	slots := make([]application.SlotInput, 0, len(r.Slots))
	for _, slot := range r.Slots {
		slots = append(slots, application.SlotInput{
			Date:  strings.TrimSpace(slot.Date),
			Label: strings.TrimSpace(slot.Label),
		})
	}
	return application.CreateSessionParams{
		FacilityURL:      strings.TrimSpace(r.FacilityURL),
		Purpose:          strings.TrimSpace(r.Purpose),
		ResponseDeadline: strings.TrimSpace(r.ResponseDeadline),
		PresentationDate: strings.TrimSpace(r.PresentationDate),
		Slots:            slots,
	}
}

type createSessionResponse struct {
	SessionID    string            `json:"session_id"`
	Status       string            `json:"status"`
	InviteTokens map[string]string `json:"invite_tokens,omitempty"`
}

type updateSessionRequest struct {
	Purpose          *string `json:"purpose"`
	ResponseDeadline *string `json:"response_deadline"`
	PresentationDate *string `json:"presentation_date"`
}

type responseSubmissionRequest struct {
	Note    *string           `json:"note"`
	Answers map[string]string `json:"answers"`
}

func (r responseSubmissionRequest) toSubmission() application.ResponseSubmission {
	return application.ResponseSubmission{Note: r.Note, Answers: r.Answers}
}

type proposalRequest struct {
	SlotID string `json:"slot_id"`
}

type sessionStatusResponse struct {
	Session sessionStatusDTO `json:"session"`
}

type listSessionsResponse struct {
	Sessions []sessionListItemDTO `json:"sessions"`
}

type consensusResponse struct {
	SlotID     string   `json:"slot_id"`
	EveryoneOk bool     `json:"everyone_ok"`
	Missing    []string `json:"missing,omitempty"`
	Dissenting []string `json:"dissenting,omitempty"`
}

type summaryResponse struct {
	Summary summaryDTO `json:"summary"`
}

type facilityDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ReferenceURL string `json:"reference_url"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

type evaluatorDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Note       string  `json:"note,omitempty"`
	AnsweredAt *string `json:"answered_at,omitempty"`
}

type slotDTO struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Label string `json:"label"`
}

type facilityReplyDTO struct {
	SlotID    string `json:"slot_id"`
	Note      string `json:"note,omitempty"`
	RepliedAt string `json:"replied_at"`
}

type sessionStatusDTO struct {
	ID               string                       `json:"id"`
	Facility         facilityDTO                  `json:"facility"`
	Purpose          string                       `json:"purpose"`
	Status           string                       `json:"status"`
	ResponseDeadline string                       `json:"response_deadline"`
	PresentationDate string                       `json:"presentation_date"`
	ProposedSlotID   *string                      `json:"proposed_slot_id,omitempty"`
	Evaluators       []evaluatorDTO               `json:"evaluators"`
	Slots            []slotDTO                    `json:"slots"`
	Answers          map[string]map[string]string `json:"answers"`
	FacilityReply    *facilityReplyDTO            `json:"facility_reply,omitempty"`
	CreatedAt        string                       `json:"created_at"`
	UpdatedAt        string                       `json:"updated_at"`
}

type sessionListItemDTO struct {
	ID             string `json:"id"`
	FacilityName   string `json:"facility_name"`
	Purpose        string `json:"purpose"`
	Status         string `json:"status"`
	ConfirmedDate  string `json:"confirmed_date,omitempty"`
	Answered       int    `json:"answered"`
	EvaluatorCount int    `json:"evaluator_count"`
	UpdatedAt      string `json:"updated_at"`
}

type summaryEvaluatorDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type summaryDTO struct {
	SessionID    string                `json:"session_id"`
	Facility     facilityDTO           `json:"facility"`
	Purpose      string                `json:"purpose"`
	Status       string                `json:"status"`
	RepliedAt    string                `json:"replied_at"`
	SlotID       string                `json:"slot_id"`
	SlotDate     string                `json:"slot_date"`
	SlotLabel    string                `json:"slot_label"`
	FacilityNote string                `json:"facility_note,omitempty"`
	Evaluators   []summaryEvaluatorDTO `json:"evaluators"`
}

func toFacilityDTO(facility engine.Facility) facilityDTO {
	return facilityDTO{
		ID:           facility.ID,
		Name:         facility.Name,
		ReferenceURL: facility.ReferenceURL,
		ContactName:  facility.ContactName,
		ContactEmail: facility.ContactEmail,
	}
}

func toStatusDTO(view application.SessionStatusView) sessionStatusDTO {
	dto := sessionStatusDTO{
		ID:               view.ID,
		Facility:         toFacilityDTO(view.Facility),
		Purpose:          view.Purpose,
		Status:           string(view.Status),
		ResponseDeadline: view.ResponseDeadline,
		PresentationDate: view.PresentationDate,
		ProposedSlotID:   view.ProposedSlotID,
		Answers:          view.Answers,
		CreatedAt:        view.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:        view.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}

	dto.Evaluators = make([]evaluatorDTO, 0, len(view.Evaluators))
	for _, evaluator := range view.Evaluators {
		item := evaluatorDTO{
			ID:    evaluator.ID,
			Name:  evaluator.Name,
			Email: evaluator.Email,
			Note:  evaluator.Note,
		}
		if evaluator.AnsweredAt != nil {
			answeredAt := evaluator.AnsweredAt.UTC().Format(time.RFC3339Nano)
			item.AnsweredAt = &answeredAt
		}
		dto.Evaluators = append(dto.Evaluators, item)
	}

	dto.Slots = make([]slotDTO, 0, len(view.Slots))
	for _, slot := range view.Slots {
		dto.Slots = append(dto.Slots, slotDTO{ID: slot.ID, Date: slot.Date, Label: slot.Label})
	}

	if view.FacilityReply != nil {
		dto.FacilityReply = &facilityReplyDTO{
			SlotID:    view.FacilityReply.SlotID,
			Note:      view.FacilityReply.Note,
			RepliedAt: view.FacilityReply.RepliedAt.UTC().Format(time.RFC3339Nano),
		}
	}

	return dto
}

func toListItemDTOs(items []application.SessionListItem) []sessionListItemDTO {
	if len(items) == 0 {
		return nil
	}
	out := make([]sessionListItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, sessionListItemDTO{
			ID:             item.ID,
			FacilityName:   item.FacilityName,
			Purpose:        item.Purpose,
			Status:         string(item.Status),
			ConfirmedDate:  item.ConfirmedDate,
			Answered:       item.Answered,
			EvaluatorCount: item.EvaluatorCount,
			UpdatedAt:      item.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}

func toSummaryDTO(summary engine.ConfirmationSummary) summaryDTO {
	dto := summaryDTO{
		SessionID:    summary.SessionID,
		Facility:     toFacilityDTO(summary.Facility),
		Purpose:      summary.Purpose,
		Status:       string(summary.Status),
		RepliedAt:    summary.RepliedAt.UTC().Format(time.RFC3339Nano),
		SlotID:       summary.SlotID,
		SlotDate:     string(summary.SlotDate),
		SlotLabel:    summary.SlotLabel,
		FacilityNote: summary.FacilityNote,
	}
	dto.Evaluators = make([]summaryEvaluatorDTO, 0, len(summary.Evaluators))
	for _, evaluator := range summary.Evaluators {
		dto.Evaluators = append(dto.Evaluators, summaryEvaluatorDTO{
			ID:    evaluator.ID,
			Name:  evaluator.Name,
			Email: evaluator.Email,
		})
	}
	return dto
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jeksecret/schedule-coordination-tool/internal/engine"
	"github.com/jeksecret/schedule-coordination-tool/internal/persistence"
)

// SessionRepository captures the persistence interactions needed by the service.
type SessionRepository interface {
	CreateSession(ctx context.Context, record persistence.SessionRecord) error
	GetSession(ctx context.Context, id string) (persistence.SessionRecord, error)
	UpdateSession(ctx context.Context, record persistence.SessionRecord) error
	ListSessions(ctx context.Context) ([]persistence.SessionRecord, error)
	GetSessionByInviteToken(ctx context.Context, token string) (persistence.SessionRecord, string, error)
}

// SessionService orchestrates validation, directory lookups, and persistence
// for scheduling coordination sessions.
type SessionService struct {
	sessions       SessionRepository
	directory      FacilityDirectory
	purposes       engine.PurposeSet
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(sessions SessionRepository, directory FacilityDirectory, purposes engine.PurposeSet, idGenerator, tokenGenerator func() string, now func() time.Time) *SessionService {
	return NewSessionServiceWithLogger(sessions, directory, purposes, idGenerator, tokenGenerator, now, nil)
}

// NewSessionServiceWithLogger constructs a session service with a specified logger.
func NewSessionServiceWithLogger(sessions SessionRepository, directory FacilityDirectory, purposes engine.PurposeSet, idGenerator, tokenGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = idGenerator
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:       sessions,
		directory:      directory,
		purposes:       purposes,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession resolves the facility and its evaluator roster from the
// directory, validates the draft, issues invite tokens, and persists the new
// session.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (result CreateSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if s.directory == nil {
		err = fmt.Errorf("facility directory not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateSession")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", result.Session.ID).InfoContext(ctx, "session created")
	}()

	referenceURL := strings.TrimSpace(params.FacilityURL)
	if vErr := validateFacilityURL(referenceURL); vErr.HasErrors() {
		err = vErr
		return
	}

	facility, err := s.directory.LookupFacility(ctx, referenceURL)
	if err != nil {
		err = fmt.Errorf("lookup facility: %w", err)
		return
	}

	now := s.now()
	evaluators := make([]engine.Evaluator, 0, len(facility.Evaluators))
	for _, member := range facility.Evaluators {
		evaluators = append(evaluators, engine.Evaluator{
			ID:    s.idGenerator(),
			Name:  member.Name,
			Email: member.Email,
		})
	}
	slots := make([]engine.SlotInput, 0, len(params.Slots))
	for _, slot := range params.Slots {
		slots = append(slots, engine.SlotInput{
			ID:    s.idGenerator(),
			Date:  slot.Date,
			Label: slot.Label,
		})
	}

	sess, err := engine.NewSession(engine.NewSessionParams{
		ID: s.idGenerator(),
		Facility: engine.Facility{
			ID:           s.idGenerator(),
			Name:         facility.Name,
			ReferenceURL: referenceURL,
			ContactName:  facility.ContactName,
			ContactEmail: facility.ContactEmail,
		},
		Purpose:          params.Purpose,
		ResponseDeadline: params.ResponseDeadline,
		PresentationDate: params.PresentationDate,
		Evaluators:       evaluators,
		Slots:            slots,
	}, s.purposes, now)
	if err != nil {
		return
	}

	tokens := make(map[string]string, len(sess.Evaluators))
	for _, evaluator := range sess.Evaluators {
		tokens[evaluator.ID] = s.tokenGenerator()
	}

	if err = s.sessions.CreateSession(ctx, sessionToRecord(sess, tokens)); err != nil {
		err = mapRepoError(err)
		return
	}

	result = CreateSessionResult{Session: sess, InviteTokens: tokens}
	return
}

// GetSessionStatus assembles the full status board view for one session.
func (s *SessionService) GetSessionStatus(ctx context.Context, sessionID string) (view SessionStatusView, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "GetSessionStatus", "session_id", sessionID)

	record, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to load session", "error", err, "error_kind", ErrorKind(err))
		return
	}

	view = statusView(sessionFromRecord(record))
	return
}

// ListSessions returns the overview rows for every session, most recently
// updated first.
func (s *SessionService) ListSessions(ctx context.Context) (items []SessionListItem, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListSessions")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list sessions", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(items)).InfoContext(ctx, "sessions listed")
	}()

	records, err := s.sessions.ListSessions(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	items = make([]SessionListItem, 0, len(records))
	for _, record := range records {
		sess := sessionFromRecord(record)
		item := SessionListItem{
			ID:             sess.ID,
			FacilityName:   sess.Facility.Name,
			Purpose:        sess.Purpose,
			Status:         sess.Status(),
			EvaluatorCount: len(sess.Evaluators),
			UpdatedAt:      sess.UpdatedAt,
		}
		for _, evaluator := range sess.Evaluators {
			if evaluator.AnsweredAt != nil {
				item.Answered++
			}
		}
		if sess.FacilityReply != nil {
			if slot, ok := sess.Slot(sess.FacilityReply.SlotID); ok {
				item.ConfirmedDate = string(slot.Date)
			}
		}
		items = append(items, item)
	}
	return
}

// UpdateSessionFields applies an all-or-nothing partial update to the
// session header fields.
func (s *SessionService) UpdateSessionFields(ctx context.Context, sessionID string, update engine.FieldUpdate) (view SessionStatusView, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSessionFields", "session_id", sessionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update session fields", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session fields updated")
	}()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return
	}

	if err = sess.UpdateFields(update, s.purposes, s.now()); err != nil {
		return
	}

	if err = s.save(ctx, sess); err != nil {
		return
	}

	view = statusView(sess)
	return
}

// UpdateEvaluatorResponses edits one evaluator's note and answers on behalf
// of the coordinator. Answers are applied in slot id order; the whole edit is
// rejected when the session is locked or an id is unknown.
func (s *SessionService) UpdateEvaluatorResponses(ctx context.Context, sessionID, evaluatorID string, submission ResponseSubmission) (view SessionStatusView, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateEvaluatorResponses",
		"session_id", sessionID,
		"evaluator_id", evaluatorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update evaluator responses", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "evaluator responses updated")
	}()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return
	}

	if err = applySubmission(sess, evaluatorID, submission, s.now()); err != nil {
		return
	}

	if err = s.save(ctx, sess); err != nil {
		return
	}

	view = statusView(sess)
	return
}

// SubmitEvaluatorResponse records a response arriving from the external form
// via invite token. A second submission through the same token is rejected.
func (s *SessionService) SubmitEvaluatorResponse(ctx context.Context, token string, submission ResponseSubmission) (view SessionStatusView, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SubmitEvaluatorResponse")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit evaluator response", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "evaluator response submitted")
	}()

	record, evaluatorID, err := s.sessions.GetSessionByInviteToken(ctx, strings.TrimSpace(token))
	if err != nil {
		err = mapRepoError(err)
		return
	}
	logger = logger.With("session_id", record.Session.ID, "evaluator_id", evaluatorID)

	sess := sessionFromRecord(record)
	if evaluator, ok := sess.Evaluator(evaluatorID); ok && evaluator.AnsweredAt != nil {
		err = fmt.Errorf("response for evaluator %s: %w", evaluatorID, engine.ErrAlreadyExists)
		return
	}

	now := s.now()
	if err = sess.MarkAnswered(evaluatorID, now); err != nil {
		return
	}
	if err = applySubmission(sess, evaluatorID, submission, now); err != nil {
		return
	}

	if err = s.save(ctx, sess); err != nil {
		return
	}

	view = statusView(sess)
	return
}

// CheckSlotEveryoneOk reports whether every evaluator approved the slot,
// without mutating anything.
func (s *SessionService) CheckSlotEveryoneOk(ctx context.Context, sessionID, slotID string) (result engine.ConsensusResult, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CheckSlotEveryoneOk",
		"session_id", sessionID,
		"slot_id", slotID,
	)

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load session", "error", err, "error_kind", ErrorKind(err))
		return
	}

	result, err = sess.CheckEveryoneOk(slotID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to check consensus", "error", err, "error_kind", ErrorKind(err))
	}
	return
}

// ProposeSlot locks the session on a unanimously approved slot and tells the
// facility side that this is the time being asked for.
func (s *SessionService) ProposeSlot(ctx context.Context, sessionID, slotID string) (view SessionStatusView, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ProposeSlot",
		"session_id", sessionID,
		"slot_id", slotID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to propose slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot proposed")
	}()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return
	}

	if err = sess.ProposeSlot(slotID, s.now()); err != nil {
		return
	}

	if err = s.save(ctx, sess); err != nil {
		return
	}

	view = statusView(sess)
	return
}

// ClearProposal withdraws the proposed slot and unlocks the session. It is
// the only way back from the locked state and is refused once the facility
// has replied.
func (s *SessionService) ClearProposal(ctx context.Context, sessionID string) (view SessionStatusView, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ClearProposal", "session_id", sessionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to clear proposal", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "proposal cleared")
	}()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return
	}

	if err = sess.ClearProposal(s.now()); err != nil {
		return
	}

	if err = s.save(ctx, sess); err != nil {
		return
	}

	view = statusView(sess)
	return
}

// RecordFacilityReply stores the facility's final answer for the proposed
// slot and moves the session to its terminal status.
func (s *SessionService) RecordFacilityReply(ctx context.Context, sessionID, slotID, note string) (view SessionStatusView, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "RecordFacilityReply",
		"session_id", sessionID,
		"slot_id", slotID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record facility reply", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "facility reply recorded")
	}()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return
	}

	if err = sess.RecordFacilityReply(slotID, note, s.now()); err != nil {
		return
	}

	if err = s.save(ctx, sess); err != nil {
		return
	}

	view = statusView(sess)
	return
}

// ConfirmationSummary returns the confirmed-session digest used for the
// outbound notification to attendees.
func (s *SessionService) ConfirmationSummary(ctx context.Context, sessionID string) (summary engine.ConfirmationSummary, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ConfirmationSummary", "session_id", sessionID)

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load session", "error", err, "error_kind", ErrorKind(err))
		return
	}

	summary, err = sess.ConfirmationSummary()
	if err != nil {
		logger.ErrorContext(ctx, "failed to build confirmation summary", "error", err, "error_kind", ErrorKind(err))
	}
	return
}

func (s *SessionService) load(ctx context.Context, sessionID string) (*engine.Session, error) {
	record, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return sessionFromRecord(record), nil
}

func (s *SessionService) save(ctx context.Context, sess *engine.Session) error {
	if err := s.sessions.UpdateSession(ctx, sessionToRecord(sess, nil)); err != nil {
		return mapRepoError(err)
	}
	return nil
}

// applySubmission writes the note and the answers onto the aggregate. Slot
// ids are visited in sorted order so failures are deterministic.
func applySubmission(sess *engine.Session, evaluatorID string, submission ResponseSubmission, now time.Time) error {
	slotIDs := make([]string, 0, len(submission.Answers))
	for slotID := range submission.Answers {
		slotIDs = append(slotIDs, slotID)
	}
	sort.Strings(slotIDs)

	for _, slotID := range slotIDs {
		if _, err := sess.SetAnswer(evaluatorID, slotID, submission.Answers[slotID], now); err != nil {
			return err
		}
	}

	if submission.Note != nil {
		if err := sess.SetNote(evaluatorID, *submission.Note, now); err != nil {
			return err
		}
	}
	return nil
}

func statusView(sess *engine.Session) SessionStatusView {
	view := SessionStatusView{
		ID:               sess.ID,
		Facility:         sess.Facility,
		Purpose:          sess.Purpose,
		Status:           sess.Status(),
		ResponseDeadline: string(sess.ResponseDeadline),
		PresentationDate: string(sess.PresentationDate),
		ProposedSlotID:   sess.ProposedSlotID,
		Answers:          make(map[string]map[string]string, len(sess.Evaluators)),
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        sess.UpdatedAt,
	}

	view.Evaluators = make([]EvaluatorView, 0, len(sess.Evaluators))
	for _, evaluator := range sess.Evaluators {
		view.Evaluators = append(view.Evaluators, EvaluatorView{
			ID:         evaluator.ID,
			Name:       evaluator.Name,
			Email:      evaluator.Email,
			Note:       evaluator.Note,
			AnsweredAt: evaluator.AnsweredAt,
		})
	}

	view.Slots = make([]SlotView, 0, len(sess.Slots))
	for _, slot := range sess.Slots {
		view.Slots = append(view.Slots, SlotView{
			ID:    slot.ID,
			Date:  string(slot.Date),
			Label: slot.Label,
		})
	}

	for key, vote := range sess.Answers {
		row := view.Answers[key.EvaluatorID]
		if row == nil {
			row = make(map[string]string)
			view.Answers[key.EvaluatorID] = row
		}
		row[key.SlotID] = string(vote)
	}

	if sess.FacilityReply != nil {
		view.FacilityReply = &FacilityReplyView{
			SlotID:    sess.FacilityReply.SlotID,
			Note:      sess.FacilityReply.Note,
			RepliedAt: sess.FacilityReply.RepliedAt,
		}
	}

	return view
}

func validateFacilityURL(referenceURL string) *engine.ValidationError {
	vErr := &engine.ValidationError{}
	if referenceURL == "" {
		vErr.Add("facility_url", "facility URL is required")
		return vErr
	}
	parsed, err := url.Parse(referenceURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		vErr.Add("facility_url", "facility URL must be absolute")
	}
	return vErr
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return engine.ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return engine.ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &engine.ValidationError{}
		vErr.Add("answers", "answer values must be O, M, or X")
		return vErr
	}
	return err
}

package engine

import (
	"fmt"
	"strings"
	"time"
)

// Facility identifies the external party a visit is being negotiated with.
// It is treated as a value snapshot taken at session creation; only the
// contact fields may be refreshed from an external lookup afterwards.
type Facility struct {
	ID           string
	Name         string
	ReferenceURL string
	ContactName  string
	ContactEmail string
}

// Evaluator is a member of the internal roster voting on candidate slots.
// The roster is fixed at session creation.
type Evaluator struct {
	ID         string
	Name       string
	Email      string
	Note       string
	AnsweredAt *time.Time
}

// CandidateSlot is one proposed visit time. No two slots in a session may
// share the same (date, label) pair.
type CandidateSlot struct {
	ID        string
	Date      Date
	Label     string
	SortOrder int
}

// FacilityReply records the facility's final answer and terminates the
// session lifecycle at Confirmed.
type FacilityReply struct {
	SlotID    string
	Note      string
	RepliedAt time.Time
}

// AnswerKey addresses one cell of the sparse answer matrix.
type AnswerKey struct {
	EvaluatorID string
	SlotID      string
}

// Session is the aggregate root for one scheduling negotiation. Lifecycle
// status is always derived from these facts, never stored alongside them.
//
// The aggregate assumes a single authoritative mutator at a time; callers
// must serialize operations per session id.
type Session struct {
	ID               string
	Facility         Facility
	Purpose          string
	ResponseDeadline Date
	PresentationDate Date
	Evaluators       []Evaluator
	Slots            []CandidateSlot
	Answers          map[AnswerKey]Vote
	ProposedSlotID   *string
	FacilityReply    *FacilityReply
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SlotInput carries caller provided candidate slot fields at creation time.
type SlotInput struct {
	ID    string
	Date  string
	Label string
}

// NewSessionParams wraps the data required to create a session.
type NewSessionParams struct {
	ID               string
	Facility         Facility
	Purpose          string
	ResponseDeadline string
	PresentationDate string
	Evaluators       []Evaluator
	Slots            []SlotInput
}

// NewSession validates params and builds a session aggregate. An empty
// evaluator roster is accepted; such a session can never reach unanimous
// approval.
func NewSession(params NewSessionParams, purposes PurposeSet, now time.Time) (*Session, error) {
	vErr := &ValidationError{}

	purpose := strings.TrimSpace(params.Purpose)
	if purpose == "" {
		vErr.Add("purpose", "purpose is required")
	} else if len(purposes) > 0 && !purposes.Contains(purpose) {
		vErr.Add("purpose", "unknown purpose")
	}

	responseDeadline, err := ParseDate(params.ResponseDeadline)
	if err != nil {
		vErr.Add("response_deadline", "must be a YYYY-MM-DD date")
	}
	presentationDate, err := ParseDate(params.PresentationDate)
	if err != nil {
		vErr.Add("presentation_date", "must be a YYYY-MM-DD date")
	}

	slots := make([]CandidateSlot, 0, len(params.Slots))
	seenSlots := make(map[string]struct{}, len(params.Slots))
	for i, input := range params.Slots {
		label := strings.TrimSpace(input.Label)
		if input.ID == "" || label == "" {
			vErr.Add(fmt.Sprintf("slots[%d]", i), "slot id and label are required")
			continue
		}
		date, err := ParseDate(input.Date)
		if err != nil {
			vErr.Add(fmt.Sprintf("slots[%d].date", i), "must be a YYYY-MM-DD date")
			continue
		}
		key := string(date) + "\x00" + label
		if _, dup := seenSlots[key]; dup {
			vErr.Add(fmt.Sprintf("slots[%d]", i), "duplicate date and label")
			continue
		}
		seenSlots[key] = struct{}{}
		slots = append(slots, CandidateSlot{ID: input.ID, Date: date, Label: label, SortOrder: i})
	}

	evaluators := make([]Evaluator, 0, len(params.Evaluators))
	seenEvaluators := make(map[string]struct{}, len(params.Evaluators))
	for i, evaluator := range params.Evaluators {
		if evaluator.ID == "" {
			vErr.Add(fmt.Sprintf("evaluators[%d]", i), "evaluator id is required")
			continue
		}
		if _, dup := seenEvaluators[evaluator.ID]; dup {
			vErr.Add(fmt.Sprintf("evaluators[%d]", i), "duplicate evaluator id")
			continue
		}
		seenEvaluators[evaluator.ID] = struct{}{}
		evaluators = append(evaluators, Evaluator{
			ID:    evaluator.ID,
			Name:  strings.TrimSpace(evaluator.Name),
			Email: strings.TrimSpace(evaluator.Email),
		})
	}

	if vErr.HasErrors() {
		return nil, vErr
	}

	return &Session{
		ID:               params.ID,
		Facility:         params.Facility,
		Purpose:          purpose,
		ResponseDeadline: responseDeadline,
		PresentationDate: presentationDate,
		Evaluators:       evaluators,
		Slots:            slots,
		Answers:          make(map[AnswerKey]Vote),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Locked reports whether answer edits are currently rejected, either because
// a slot has been proposed to the facility or the facility has replied.
func (s *Session) Locked() bool {
	return s.ProposedSlotID != nil || s.FacilityReply != nil
}

// Confirmed reports whether the facility reply has been recorded.
func (s *Session) Confirmed() bool {
	return s.FacilityReply != nil
}

// Status derives the current lifecycle status.
func (s *Session) Status() Status {
	return DeriveStatus(s)
}

// Evaluator returns the roster entry with the given id.
func (s *Session) Evaluator(id string) (*Evaluator, bool) {
	for i := range s.Evaluators {
		if s.Evaluators[i].ID == id {
			return &s.Evaluators[i], true
		}
	}
	return nil, false
}

// Slot returns the candidate slot with the given id.
func (s *Session) Slot(id string) (*CandidateSlot, bool) {
	for i := range s.Slots {
		if s.Slots[i].ID == id {
			return &s.Slots[i], true
		}
	}
	return nil, false
}

// Answer returns the recorded vote for the given cell; VoteUnset when absent.
func (s *Session) Answer(evaluatorID, slotID string) Vote {
	return s.Answers[AnswerKey{EvaluatorID: evaluatorID, SlotID: slotID}]
}

// SetAnswer normalizes raw and records it for the evaluator and slot. The
// evaluator's AnsweredAt is stamped on the first accepted call regardless of
// whether the raw value normalized to a vote, so an unrecognized value still
// counts as having responded. A normalized VoteUnset clears the cell.
func (s *Session) SetAnswer(evaluatorID, slotID, raw string, now time.Time) (Vote, error) {
	if s.Locked() {
		return VoteUnset, ErrSessionLocked
	}
	evaluator, ok := s.Evaluator(evaluatorID)
	if !ok {
		return VoteUnset, fmt.Errorf("evaluator %s: %w", evaluatorID, ErrNotFound)
	}
	if _, ok := s.Slot(slotID); !ok {
		return VoteUnset, fmt.Errorf("slot %s: %w", slotID, ErrNotFound)
	}

	vote := NormalizeVote(raw)
	key := AnswerKey{EvaluatorID: evaluatorID, SlotID: slotID}
	if vote == VoteUnset {
		delete(s.Answers, key)
	} else {
		if s.Answers == nil {
			s.Answers = make(map[AnswerKey]Vote)
		}
		s.Answers[key] = vote
	}

	if evaluator.AnsweredAt == nil {
		answeredAt := now
		evaluator.AnsweredAt = &answeredAt
	}
	s.UpdatedAt = now
	return vote, nil
}

// MarkAnswered stamps the evaluator's AnsweredAt without touching the answer
// matrix. Used when a response submission carries no slot answers at all;
// the evaluator has still responded.
func (s *Session) MarkAnswered(evaluatorID string, now time.Time) error {
	if s.Locked() {
		return ErrSessionLocked
	}
	evaluator, ok := s.Evaluator(evaluatorID)
	if !ok {
		return fmt.Errorf("evaluator %s: %w", evaluatorID, ErrNotFound)
	}
	if evaluator.AnsweredAt == nil {
		answeredAt := now
		evaluator.AnsweredAt = &answeredAt
		s.UpdatedAt = now
	}
	return nil
}

// SetNote stores the evaluator's free-text note. Notes stay editable while a
// proposal is locked; they are frozen once the facility has replied.
func (s *Session) SetNote(evaluatorID, note string, now time.Time) error {
	if s.Confirmed() {
		return ErrSessionLocked
	}
	evaluator, ok := s.Evaluator(evaluatorID)
	if !ok {
		return fmt.Errorf("evaluator %s: %w", evaluatorID, ErrNotFound)
	}
	evaluator.Note = note
	s.UpdatedAt = now
	return nil
}

// FieldUpdate carries a partial update of the editable session header fields.
// Nil means "leave unchanged"; an empty string is ignored the same way.
type FieldUpdate struct {
	Purpose          *string
	ResponseDeadline *string
	PresentationDate *string
}

// UpdateFields applies a partial header update. Validation covers every
// provided field before anything is written, so a single malformed value
// leaves the session untouched.
func (s *Session) UpdateFields(update FieldUpdate, purposes PurposeSet, now time.Time) error {
	vErr := &ValidationError{}

	var purpose string
	applyPurpose := false
	if update.Purpose != nil {
		purpose = strings.TrimSpace(*update.Purpose)
		if purpose != "" {
			if len(purposes) > 0 && !purposes.Contains(purpose) {
				vErr.Add("purpose", "unknown purpose")
			} else {
				applyPurpose = true
			}
		}
	}

	var responseDeadline Date
	applyResponseDeadline := false
	if update.ResponseDeadline != nil {
		parsed, err := ParseDate(*update.ResponseDeadline)
		if err != nil {
			vErr.Add("response_deadline", "must be a YYYY-MM-DD date")
		} else {
			responseDeadline = parsed
			applyResponseDeadline = true
		}
	}

	var presentationDate Date
	applyPresentationDate := false
	if update.PresentationDate != nil {
		parsed, err := ParseDate(*update.PresentationDate)
		if err != nil {
			vErr.Add("presentation_date", "must be a YYYY-MM-DD date")
		} else {
			presentationDate = parsed
			applyPresentationDate = true
		}
	}

	if vErr.HasErrors() {
		return vErr
	}

	if applyPurpose {
		s.Purpose = purpose
	}
	if applyResponseDeadline {
		s.ResponseDeadline = responseDeadline
	}
	if applyPresentationDate {
		s.PresentationDate = presentationDate
	}
	if applyPurpose || applyResponseDeadline || applyPresentationDate {
		s.UpdatedAt = now
	}
	return nil
}

// RecordFacilityReply stores the facility's final answer. The replied slot
// must be the currently proposed one, and only one reply is ever accepted.
func (s *Session) RecordFacilityReply(slotID, note string, now time.Time) error {
	if s.FacilityReply != nil {
		return fmt.Errorf("facility reply: %w", ErrAlreadyExists)
	}
	if _, ok := s.Slot(slotID); !ok {
		return fmt.Errorf("slot %s: %w", slotID, ErrNotFound)
	}
	vErr := &ValidationError{}
	if s.ProposedSlotID == nil {
		vErr.Add("slot_id", "no slot has been proposed to the facility")
	} else if *s.ProposedSlotID != slotID {
		vErr.Add("slot_id", "reply does not match the proposed slot")
	}
	if vErr.HasErrors() {
		return vErr
	}

	s.FacilityReply = &FacilityReply{SlotID: slotID, Note: note, RepliedAt: now}
	s.UpdatedAt = now
	return nil
}

package persistence

import "time"

// Facility is the stored snapshot of the external party for one session.
type Facility struct {
	ID           string
	Name         string
	ReferenceURL string
	ContactName  string
	ContactEmail string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is the stored header row of a coordination session.
type Session struct {
	ID               string
	FacilityID       string
	Purpose          string
	ResponseDeadline string
	PresentationDate string
	ProposedSlotID   *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SessionEvaluator links an evaluator to a session and carries the
// per-session response state plus the invite token used by the external
// response form.
type SessionEvaluator struct {
	ID          string
	SessionID   string
	Name        string
	Email       string
	Note        string
	InviteToken string
	AnsweredAt  *time.Time
}

// CandidateSlot is one stored candidate time for a session.
type CandidateSlot struct {
	ID        string
	SessionID string
	SlotDate  string
	SlotLabel string
	SortOrder int
}

// EvaluatorResponse is one cell of the stored answer matrix. Absent rows
// mean no vote was cast.
type EvaluatorResponse struct {
	SessionEvaluatorID string
	CandidateSlotID    string
	Choice             string
}

// FacilityReply is the facility's final answer, at most one per session.
type FacilityReply struct {
	SessionID      string
	SelectedSlotID string
	Note           string
	AnsweredAt     time.Time
}

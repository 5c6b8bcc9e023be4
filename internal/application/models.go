package application

import (
	"time"

	"github.com/jeksecret/schedule-coordination-tool/internal/engine"
)

// SlotInput carries one candidate slot supplied at session creation.
type SlotInput struct {
	Date  string
	Label string
}

// CreateSessionParams wraps the data required to draft a new session. The
// evaluator roster and facility contact are resolved through the facility
// directory from FacilityURL.
type CreateSessionParams struct {
	FacilityURL      string
	Purpose          string
	ResponseDeadline string
	PresentationDate string
	Slots            []SlotInput
}

// CreateSessionResult returns the drafted session together with the invite
// tokens issued per evaluator. Tokens are only surfaced here; afterwards they
// live in storage and resolve submissions from the external response form.
type CreateSessionResult struct {
	Session *engine.Session
	// InviteTokens maps evaluator id to the issued token.
	InviteTokens map[string]string
}

// ResponseSubmission is one evaluator's response payload: an optional note
// and raw answer values keyed by candidate slot id.
type ResponseSubmission struct {
	Note    *string
	Answers map[string]string
}

// EvaluatorView is the per-evaluator response state shown on the status board.
type EvaluatorView struct {
	ID         string
	Name       string
	Email      string
	Note       string
	AnsweredAt *time.Time
}

// SlotView is one candidate slot as shown on the status board.
type SlotView struct {
	ID    string
	Date  string
	Label string
}

// FacilityReplyView is the facility's final answer as shown on the status board.
type FacilityReplyView struct {
	SlotID    string
	Note      string
	RepliedAt time.Time
}

// SessionStatusView is the full read model for one session: header fields,
// derived status, roster, slots, and the sparse answer matrix keyed by
// evaluator id then slot id.
type SessionStatusView struct {
	ID               string
	Facility         engine.Facility
	Purpose          string
	Status           engine.Status
	ResponseDeadline string
	PresentationDate string
	ProposedSlotID   *string
	Evaluators       []EvaluatorView
	Slots            []SlotView
	Answers          map[string]map[string]string
	FacilityReply    *FacilityReplyView
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SessionListItem is one row of the session overview list.
type SessionListItem struct {
	ID             string
	FacilityName   string
	Purpose        string
	Status         engine.Status
	ConfirmedDate  string
	Answered       int
	EvaluatorCount int
	UpdatedAt      time.Time
}

package persistence

import "context"

// SessionRecord groups every row that makes up one session aggregate.
type SessionRecord struct {
	Session    Session
	Facility   Facility
	Evaluators []SessionEvaluator
	Slots      []CandidateSlot
	Responses  []EvaluatorResponse
	Reply      *FacilityReply
}

// SessionRepository stores session aggregates and their child rows.
type SessionRepository interface {
	CreateSession(ctx context.Context, record SessionRecord) error
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	// UpdateSession replaces the mutable parts of the aggregate: the session
	// header, evaluator response state, the answer matrix, and the facility
	// reply. Roster membership and the slot set are fixed at creation.
	UpdateSession(ctx context.Context, record SessionRecord) error
	ListSessions(ctx context.Context) ([]SessionRecord, error)
	// GetSessionByInviteToken resolves the session owning the token and the
	// session-evaluator id the token was issued to.
	GetSessionByInviteToken(ctx context.Context, token string) (SessionRecord, string, error)
}

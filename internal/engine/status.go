package engine

// Status is the derived lifecycle stage of a session. It is recomputed from
// aggregate facts on demand and never persisted, so stored state and status
// cannot drift apart.
type Status string

const (
	// StatusDrafting indicates no evaluator has responded yet.
	StatusDrafting Status = "Drafting"
	// StatusAwaitingEvaluators indicates some, but not all, evaluators have responded.
	StatusAwaitingEvaluators Status = "AwaitingEvaluators"
	// StatusAwaitingFacility indicates every evaluator has responded and the facility has not replied.
	StatusAwaitingFacility Status = "AwaitingFacility"
	// StatusConfirmed indicates the facility reply has been recorded.
	StatusConfirmed Status = "Confirmed"
)

// DeriveStatus computes the lifecycle status from current aggregate state.
// Rules are evaluated in order, first match wins:
//
//  1. Confirmed when a facility reply exists.
//  2. AwaitingFacility when every evaluator has responded. A session with an
//     empty roster never reaches this stage; with nobody to wait for, there
//     is also nothing to present, so it stays at Drafting until confirmed.
//  3. AwaitingEvaluators when at least one evaluator has responded, or a slot
//     has been proposed while responses are still outstanding. Proposing a
//     slot never advances the status past evaluator completion on its own.
//  4. Drafting otherwise.
func DeriveStatus(s *Session) Status {
	if s == nil {
		return StatusDrafting
	}
	if s.FacilityReply != nil {
		return StatusConfirmed
	}

	answered := 0
	for i := range s.Evaluators {
		if s.Evaluators[i].AnsweredAt != nil {
			answered++
		}
	}

	if len(s.Evaluators) > 0 && answered == len(s.Evaluators) {
		return StatusAwaitingFacility
	}
	if answered > 0 || s.ProposedSlotID != nil {
		return StatusAwaitingEvaluators
	}
	return StatusDrafting
}

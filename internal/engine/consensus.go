package engine

import (
	"fmt"
	"time"
)

// ConsensusResult reports the unanimity check for one candidate slot. The
// Missing and Dissenting lists identify which evaluators are blocking, for
// callers who want to surface that detail.
type ConsensusResult struct {
	SlotID     string
	EveryoneOk bool
	Missing    []string
	Dissenting []string
}

// CheckEveryoneOk reports whether every evaluator has approved the given
// slot. An empty roster is never unanimous: unanimity of nobody confirms
// nothing. The check is read-only.
func (s *Session) CheckEveryoneOk(slotID string) (ConsensusResult, error) {
	if _, ok := s.Slot(slotID); !ok {
		return ConsensusResult{}, fmt.Errorf("slot %s: %w", slotID, ErrNotFound)
	}

	result := ConsensusResult{SlotID: slotID}
	for i := range s.Evaluators {
		switch s.Answer(s.Evaluators[i].ID, slotID) {
		case VoteApprove:
		case VoteUnset:
			result.Missing = append(result.Missing, s.Evaluators[i].ID)
		default:
			result.Dissenting = append(result.Dissenting, s.Evaluators[i].ID)
		}
	}
	result.EveryoneOk = len(s.Evaluators) > 0 && len(result.Missing) == 0 && len(result.Dissenting) == 0
	return result, nil
}

// ProposeSlot locks the slot as the facility-facing proposal. The slot must
// have unanimous approval. Every evaluator's answer for the slot is
// re-recorded as VoteApprove so the fact survives later normalization
// changes; answers on other slots are left intact but become read-only until
// ClearProposal. Proposing the already-proposed slot is a no-op.
func (s *Session) ProposeSlot(slotID string, now time.Time) error {
	if _, ok := s.Slot(slotID); !ok {
		return fmt.Errorf("slot %s: %w", slotID, ErrNotFound)
	}
	if s.FacilityReply != nil {
		return ErrSessionLocked
	}
	if s.ProposedSlotID != nil {
		if *s.ProposedSlotID == slotID {
			return nil
		}
		return ErrSessionLocked
	}

	result, err := s.CheckEveryoneOk(slotID)
	if err != nil {
		return err
	}
	if !result.EveryoneOk {
		return fmt.Errorf("slot %s: %w", slotID, ErrConsensusNotReached)
	}

	if s.Answers == nil {
		s.Answers = make(map[AnswerKey]Vote)
	}
	for i := range s.Evaluators {
		s.Answers[AnswerKey{EvaluatorID: s.Evaluators[i].ID, SlotID: slotID}] = VoteApprove
	}
	proposed := slotID
	s.ProposedSlotID = &proposed
	s.UpdatedAt = now
	return nil
}

// ClearProposal unlocks the session so answer edits resume. It is the only
// operation that does so, and it is unavailable once the facility has
// replied. Clearing a session with no proposal is a no-op.
func (s *Session) ClearProposal(now time.Time) error {
	if s.FacilityReply != nil {
		return ErrSessionLocked
	}
	if s.ProposedSlotID == nil {
		return nil
	}
	s.ProposedSlotID = nil
	s.UpdatedAt = now
	return nil
}

package engine

import "time"

// EvaluatorContact is one roster entry in the confirmation summary.
type EvaluatorContact struct {
	ID    string
	Name  string
	Email string
}

// ConfirmationSummary is the read-only view produced once the facility has
// replied.
type ConfirmationSummary struct {
	SessionID    string
	Facility     Facility
	Purpose      string
	Status       Status
	RepliedAt    time.Time
	SlotID       string
	SlotDate     Date
	SlotLabel    string
	FacilityNote string
	Evaluators   []EvaluatorContact
}

// ConfirmationSummary projects the terminal summary view. Callers are
// expected to check the derived status first; the projector re-validates
// and fails with ErrNotReady when no facility reply exists.
func (s *Session) ConfirmationSummary() (ConfirmationSummary, error) {
	if s.FacilityReply == nil {
		return ConfirmationSummary{}, ErrNotReady
	}

	summary := ConfirmationSummary{
		SessionID:    s.ID,
		Facility:     s.Facility,
		Purpose:      s.Purpose,
		Status:       DeriveStatus(s),
		RepliedAt:    s.FacilityReply.RepliedAt,
		SlotID:       s.FacilityReply.SlotID,
		FacilityNote: s.FacilityReply.Note,
	}
	if slot, ok := s.Slot(s.FacilityReply.SlotID); ok {
		summary.SlotDate = slot.Date
		summary.SlotLabel = slot.Label
	}
	summary.Evaluators = make([]EvaluatorContact, 0, len(s.Evaluators))
	for i := range s.Evaluators {
		summary.Evaluators = append(summary.Evaluators, EvaluatorContact{
			ID:    s.Evaluators[i].ID,
			Name:  s.Evaluators[i].Name,
			Email: s.Evaluators[i].Email,
		})
	}
	return summary, nil
}

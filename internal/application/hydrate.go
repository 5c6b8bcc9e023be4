package application

import (
	"sort"

	"github.com/jeksecret/schedule-coordination-tool/internal/engine"
	"github.com/jeksecret/schedule-coordination-tool/internal/persistence"
)

// sessionToRecord flattens the aggregate into storage rows. tokens maps
// evaluator id to invite token and may be nil on updates; the repository
// never rewrites tokens after creation.
func sessionToRecord(sess *engine.Session, tokens map[string]string) persistence.SessionRecord {
	record := persistence.SessionRecord{
		Session: persistence.Session{
			ID:               sess.ID,
			FacilityID:       sess.Facility.ID,
			Purpose:          sess.Purpose,
			ResponseDeadline: string(sess.ResponseDeadline),
			PresentationDate: string(sess.PresentationDate),
			ProposedSlotID:   sess.ProposedSlotID,
			CreatedAt:        sess.CreatedAt,
			UpdatedAt:        sess.UpdatedAt,
		},
		Facility: persistence.Facility{
			ID:           sess.Facility.ID,
			Name:         sess.Facility.Name,
			ReferenceURL: sess.Facility.ReferenceURL,
			ContactName:  sess.Facility.ContactName,
			ContactEmail: sess.Facility.ContactEmail,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
		},
	}

	record.Evaluators = make([]persistence.SessionEvaluator, 0, len(sess.Evaluators))
	for _, evaluator := range sess.Evaluators {
		record.Evaluators = append(record.Evaluators, persistence.SessionEvaluator{
			ID:          evaluator.ID,
			SessionID:   sess.ID,
			Name:        evaluator.Name,
			Email:       evaluator.Email,
			Note:        evaluator.Note,
			InviteToken: tokens[evaluator.ID],
			AnsweredAt:  evaluator.AnsweredAt,
		})
	}

	record.Slots = make([]persistence.CandidateSlot, 0, len(sess.Slots))
	for _, slot := range sess.Slots {
		record.Slots = append(record.Slots, persistence.CandidateSlot{
			ID:        slot.ID,
			SessionID: sess.ID,
			SlotDate:  string(slot.Date),
			SlotLabel: slot.Label,
			SortOrder: slot.SortOrder,
		})
	}

	record.Responses = make([]persistence.EvaluatorResponse, 0, len(sess.Answers))
	for key, vote := range sess.Answers {
		record.Responses = append(record.Responses, persistence.EvaluatorResponse{
			SessionEvaluatorID: key.EvaluatorID,
			CandidateSlotID:    key.SlotID,
			Choice:             string(vote),
		})
	}
	sort.Slice(record.Responses, func(i, j int) bool {
		if record.Responses[i].SessionEvaluatorID == record.Responses[j].SessionEvaluatorID {
			return record.Responses[i].CandidateSlotID < record.Responses[j].CandidateSlotID
		}
		return record.Responses[i].SessionEvaluatorID < record.Responses[j].SessionEvaluatorID
	})

	if sess.FacilityReply != nil {
		record.Reply = &persistence.FacilityReply{
			SessionID:      sess.ID,
			SelectedSlotID: sess.FacilityReply.SlotID,
			Note:           sess.FacilityReply.Note,
			AnsweredAt:     sess.FacilityReply.RepliedAt,
		}
	}

	return record
}

// sessionFromRecord rebuilds the aggregate from storage rows. Validation
// already ran at creation, so fields are taken as stored.
func sessionFromRecord(record persistence.SessionRecord) *engine.Session {
	sess := &engine.Session{
		ID: record.Session.ID,
		Facility: engine.Facility{
			ID:           record.Facility.ID,
			Name:         record.Facility.Name,
			ReferenceURL: record.Facility.ReferenceURL,
			ContactName:  record.Facility.ContactName,
			ContactEmail: record.Facility.ContactEmail,
		},
		Purpose:          record.Session.Purpose,
		ResponseDeadline: engine.Date(record.Session.ResponseDeadline),
		PresentationDate: engine.Date(record.Session.PresentationDate),
		ProposedSlotID:   record.Session.ProposedSlotID,
		Answers:          make(map[engine.AnswerKey]engine.Vote, len(record.Responses)),
		CreatedAt:        record.Session.CreatedAt,
		UpdatedAt:        record.Session.UpdatedAt,
	}

	sess.Evaluators = make([]engine.Evaluator, 0, len(record.Evaluators))
	for _, row := range record.Evaluators {
		sess.Evaluators = append(sess.Evaluators, engine.Evaluator{
			ID:         row.ID,
			Name:       row.Name,
			Email:      row.Email,
			Note:       row.Note,
			AnsweredAt: row.AnsweredAt,
		})
	}

	sess.Slots = make([]engine.CandidateSlot, 0, len(record.Slots))
	for _, row := range record.Slots {
		sess.Slots = append(sess.Slots, engine.CandidateSlot{
			ID:        row.ID,
			Date:      engine.Date(row.SlotDate),
			Label:     row.SlotLabel,
			SortOrder: row.SortOrder,
		})
	}

	for _, row := range record.Responses {
		vote := engine.Vote(row.Choice)
		if !vote.Valid() || vote == engine.VoteUnset {
			continue
		}
		key := engine.AnswerKey{EvaluatorID: row.SessionEvaluatorID, SlotID: row.CandidateSlotID}
		sess.Answers[key] = vote
	}

	if record.Reply != nil {
		sess.FacilityReply = &engine.FacilityReply{
			SlotID:    record.Reply.SelectedSlotID,
			Note:      record.Reply.Note,
			RepliedAt: record.Reply.AnsweredAt,
		}
	}

	return sess
}

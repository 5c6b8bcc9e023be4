package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jeksecret/schedule-coordination-tool/internal/persistence"
)

var sessionCounter uint64

var referenceTime = time.Date(2025, time.June, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// SessionRecordOption configures the generated session record fixture.
type SessionRecordOption func(*persistence.SessionRecord)

// WithEvaluatorCount overrides the number of roster members.
func WithEvaluatorCount(count int) SessionRecordOption {
	return func(record *persistence.SessionRecord) {
		record.Evaluators = record.Evaluators[:0]
		for i := 0; i < count; i++ {
			record.Evaluators = append(record.Evaluators, persistence.SessionEvaluator{
				ID:          fmt.Sprintf("%s-ev-%d", record.Session.ID, i+1),
				SessionID:   record.Session.ID,
				Name:        fmt.Sprintf("評価者%d", i+1),
				Email:       fmt.Sprintf("evaluator%d@example.jp", i+1),
				InviteToken: fmt.Sprintf("%s-token-%d", record.Session.ID, i+1),
			})
		}
	}
}

// WithProposedSlot marks the first candidate slot as proposed.
func WithProposedSlot() SessionRecordOption {
	return func(record *persistence.SessionRecord) {
		if len(record.Slots) > 0 {
			slotID := record.Slots[0].ID
			record.Session.ProposedSlotID = &slotID
		}
	}
}

// NewSessionRecord returns a deterministic session aggregate fixture: a
// facility, two evaluators with invite tokens, and two candidate slots on the
// same date.
func NewSessionRecord(opts ...SessionRecordOption) persistence.SessionRecord {
	idx := atomic.AddUint64(&sessionCounter, 1)
	id := fmt.Sprintf("session-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)

	record := persistence.SessionRecord{
		Session: persistence.Session{
			ID:               id,
			FacilityID:       id + "-facility",
			Purpose:          "訪問調査",
			ResponseDeadline: "2025-06-20",
			PresentationDate: "2025-06-27",
			CreatedAt:        created,
			UpdatedAt:        created,
		},
		Facility: persistence.Facility{
			ID:           id + "-facility",
			Name:         "テスト事業所",
			ReferenceURL: "https://directory.example.jp/facilities/" + id,
			ContactName:  "担当者",
			ContactEmail: "contact@example.jp",
			CreatedAt:    created,
			UpdatedAt:    created,
		},
		Slots: []persistence.CandidateSlot{
			{ID: id + "-slot-1", SessionID: id, SlotDate: "2025-07-01", SlotLabel: "午前", SortOrder: 0},
			{ID: id + "-slot-2", SessionID: id, SlotDate: "2025-07-01", SlotLabel: "午後", SortOrder: 1},
		},
	}
	WithEvaluatorCount(2)(&record)

	for _, opt := range opts {
		opt(&record)
	}
	return record
}

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jeksecret/schedule-coordination-tool/internal/persistence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func baseRecord(id string, created time.Time) persistence.SessionRecord {
	return persistence.SessionRecord{
		Session: persistence.Session{
			ID:               id,
			FacilityID:       "facility-" + id,
			Purpose:          "訪問調査",
			ResponseDeadline: "2025-06-20",
			PresentationDate: "2025-06-27",
			CreatedAt:        created,
			UpdatedAt:        created,
		},
		Facility: persistence.Facility{
			ID:           "facility-" + id,
			Name:         "テスト事業所",
			ReferenceURL: "https://example.com/facilities/" + id,
			ContactName:  "担当者",
			ContactEmail: "contact@example.com",
			CreatedAt:    created,
			UpdatedAt:    created,
		},
		Evaluators: []persistence.SessionEvaluator{
			{ID: "se-" + id + "-1", SessionID: id, Name: "Evaluator One", Email: "one@example.com", InviteToken: "token-" + id + "-1"},
			{ID: "se-" + id + "-2", SessionID: id, Name: "Evaluator Two", Email: "two@example.com", InviteToken: "token-" + id + "-2"},
		},
		Slots: []persistence.CandidateSlot{
			{ID: "slot-" + id + "-1", SessionID: id, SlotDate: "2025-07-01", SlotLabel: "AM", SortOrder: 0},
			{ID: "slot-" + id + "-2", SessionID: id, SlotDate: "2025-07-01", SlotLabel: "PM", SortOrder: 1},
		},
	}
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

	record := baseRecord("s1", created)
	if err := store.CreateSession(ctx, record); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	loaded, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if loaded.Session.Purpose != "訪問調査" {
		t.Fatalf("Purpose = %q", loaded.Session.Purpose)
	}
	if loaded.Facility.Name != "テスト事業所" {
		t.Fatalf("Facility.Name = %q", loaded.Facility.Name)
	}
	if len(loaded.Evaluators) != 2 || len(loaded.Slots) != 2 {
		t.Fatalf("children = %d evaluators, %d slots", len(loaded.Evaluators), len(loaded.Slots))
	}
	if loaded.Slots[0].SlotLabel != "AM" || loaded.Slots[1].SlotLabel != "PM" {
		t.Fatalf("slots out of order: %+v", loaded.Slots)
	}
	if loaded.Reply != nil {
		t.Fatalf("Reply = %+v, want nil", loaded.Reply)
	}
	if !loaded.Session.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", loaded.Session.CreatedAt, created)
	}
}

func TestSessionRepositoryUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

	record := baseRecord("s1", created)
	if err := store.CreateSession(ctx, record); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	answeredAt := created.Add(time.Hour)
	proposed := "slot-s1-1"
	record.Session.Purpose = "聞き取り"
	record.Session.ProposedSlotID = &proposed
	record.Session.UpdatedAt = answeredAt
	record.Evaluators[0].Note = "調整済み"
	record.Evaluators[0].AnsweredAt = &answeredAt
	record.Responses = []persistence.EvaluatorResponse{
		{SessionEvaluatorID: "se-s1-1", CandidateSlotID: "slot-s1-1", Choice: "O"},
		{SessionEvaluatorID: "se-s1-2", CandidateSlotID: "slot-s1-1", Choice: "O"},
	}
	record.Reply = &persistence.FacilityReply{
		SessionID:      "s1",
		SelectedSlotID: "slot-s1-1",
		Note:           "OK",
		AnsweredAt:     answeredAt.Add(time.Hour),
	}

	if err := store.UpdateSession(ctx, record); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	loaded, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if loaded.Session.Purpose != "聞き取り" {
		t.Fatalf("Purpose = %q", loaded.Session.Purpose)
	}
	if loaded.Session.ProposedSlotID == nil || *loaded.Session.ProposedSlotID != proposed {
		t.Fatalf("ProposedSlotID = %v", loaded.Session.ProposedSlotID)
	}
	if loaded.Evaluators[0].Note != "調整済み" {
		t.Fatalf("Note = %q", loaded.Evaluators[0].Note)
	}
	if loaded.Evaluators[0].AnsweredAt == nil || !loaded.Evaluators[0].AnsweredAt.Equal(answeredAt) {
		t.Fatalf("AnsweredAt = %v, want %v", loaded.Evaluators[0].AnsweredAt, answeredAt)
	}
	if len(loaded.Responses) != 2 {
		t.Fatalf("Responses = %+v, want 2 rows", loaded.Responses)
	}
	if loaded.Reply == nil || loaded.Reply.Note != "OK" {
		t.Fatalf("Reply = %+v", loaded.Reply)
	}

	// Replace the matrix with a cleared cell; the deleted row must not return.
	record.Responses = record.Responses[:1]
	if err := store.UpdateSession(ctx, record); err != nil {
		t.Fatalf("second UpdateSession: %v", err)
	}
	loaded, err = store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(loaded.Responses) != 1 {
		t.Fatalf("Responses after clear = %+v, want 1 row", loaded.Responses)
	}
}

func TestSessionRepositoryNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetSession(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("GetSession error = %v, want ErrNotFound", err)
	}

	record := baseRecord("missing", time.Now().UTC())
	record.Evaluators = nil
	record.Slots = nil
	if err := store.UpdateSession(ctx, record); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("UpdateSession error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepositoryInviteToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

	if err := store.CreateSession(ctx, baseRecord("s1", created)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	record, evaluatorID, err := store.GetSessionByInviteToken(ctx, "token-s1-2")
	if err != nil {
		t.Fatalf("GetSessionByInviteToken: %v", err)
	}
	if record.Session.ID != "s1" {
		t.Fatalf("session = %q, want s1", record.Session.ID)
	}
	if evaluatorID != "se-s1-2" {
		t.Fatalf("evaluator = %q, want se-s1-2", evaluatorID)
	}

	if _, _, err := store.GetSessionByInviteToken(ctx, "bogus"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepositoryConstraints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

	if err := store.CreateSession(ctx, baseRecord("s1", created)); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	t.Run("duplicate session id", func(t *testing.T) {
		if err := store.CreateSession(ctx, baseRecord("s1", created)); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("error = %v, want ErrDuplicate", err)
		}
	})

	t.Run("duplicate slot date and label", func(t *testing.T) {
		record := baseRecord("s2", created)
		record.Slots[1].SlotDate = record.Slots[0].SlotDate
		record.Slots[1].SlotLabel = record.Slots[0].SlotLabel
		if err := store.CreateSession(ctx, record); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("error = %v, want ErrDuplicate", err)
		}
	})

	t.Run("duplicate invite token", func(t *testing.T) {
		record := baseRecord("s3", created)
		record.Evaluators[0].InviteToken = "token-s1-1"
		if err := store.CreateSession(ctx, record); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("error = %v, want ErrDuplicate", err)
		}
	})
}

func TestSessionRepositoryList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

	first := baseRecord("s1", created)
	second := baseRecord("s2", created.Add(time.Hour))
	if err := store.CreateSession(ctx, first); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.CreateSession(ctx, second); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	records, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].Session.ID != "s2" || records[1].Session.ID != "s1" {
		t.Fatalf("order = %q, %q; want most recently updated first", records[0].Session.ID, records[1].Session.ID)
	}
}

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeksecret/schedule-coordination-tool/internal/application"
	"github.com/jeksecret/schedule-coordination-tool/internal/engine"
)

type sessionServiceStub struct {
	createResult application.CreateSessionResult
	createErr    error

	statusView application.SessionStatusView
	statusErr  error

	listItems []application.SessionListItem
	listErr   error

	updateView application.SessionStatusView
	updateErr  error

	responsesView application.SessionStatusView
	responsesErr  error

	consensus    engine.ConsensusResult
	consensusErr error

	proposeView application.SessionStatusView
	proposeErr  error

	clearView application.SessionStatusView
	clearErr  error

	summary    engine.ConfirmationSummary
	summaryErr error

	submitView application.SessionStatusView
	submitErr  error

	replyView application.SessionStatusView
	replyErr  error

	lastSessionID   string
	lastEvaluatorID string
	lastSlotID      string
	lastToken       string
}

func (s *sessionServiceStub) CreateSession(ctx context.Context, params application.CreateSessionParams) (application.CreateSessionResult, error) {
	return s.createResult, s.createErr
}

func (s *sessionServiceStub) GetSessionStatus(ctx context.Context, sessionID string) (application.SessionStatusView, error) {
	s.lastSessionID = sessionID
	return s.statusView, s.statusErr
}

func (s *sessionServiceStub) ListSessions(ctx context.Context) ([]application.SessionListItem, error) {
	return s.listItems, s.listErr
}

func (s *sessionServiceStub) UpdateSessionFields(ctx context.Context, sessionID string, update engine.FieldUpdate) (application.SessionStatusView, error) {
	s.lastSessionID = sessionID
	return s.updateView, s.updateErr
}

func (s *sessionServiceStub) UpdateEvaluatorResponses(ctx context.Context, sessionID, evaluatorID string, submission application.ResponseSubmission) (application.SessionStatusView, error) {
	s.lastSessionID = sessionID
	s.lastEvaluatorID = evaluatorID
	return s.responsesView, s.responsesErr
}

func (s *sessionServiceStub) CheckSlotEveryoneOk(ctx context.Context, sessionID, slotID string) (engine.ConsensusResult, error) {
	s.lastSessionID = sessionID
	s.lastSlotID = slotID
	return s.consensus, s.consensusErr
}

func (s *sessionServiceStub) ProposeSlot(ctx context.Context, sessionID, slotID string) (application.SessionStatusView, error) {
	s.lastSessionID = sessionID
	s.lastSlotID = slotID
	return s.proposeView, s.proposeErr
}

func (s *sessionServiceStub) ClearProposal(ctx context.Context, sessionID string) (application.SessionStatusView, error) {
	s.lastSessionID = sessionID
	return s.clearView, s.clearErr
}

func (s *sessionServiceStub) ConfirmationSummary(ctx context.Context, sessionID string) (engine.ConfirmationSummary, error) {
	s.lastSessionID = sessionID
	return s.summary, s.summaryErr
}

func (s *sessionServiceStub) SubmitEvaluatorResponse(ctx context.Context, token string, submission application.ResponseSubmission) (application.SessionStatusView, error) {
	s.lastToken = token
	return s.submitView, s.submitErr
}

func (s *sessionServiceStub) RecordFacilityReply(ctx context.Context, sessionID, slotID, note string) (application.SessionStatusView, error) {
	s.lastSessionID = sessionID
	s.lastSlotID = slotID
	return s.replyView, s.replyErr
}

func newTestRouter(stub *sessionServiceStub) http.Handler {
	return NewRouter(RouterConfig{
		Sessions: NewSessionHandler(stub, nil),
		Hooks:    NewHookHandler(stub, nil),
	})
}

func sampleView() application.SessionStatusView {
	now := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	return application.SessionStatusView{
		ID: "session-1",
		Facility: engine.Facility{
			ID:           "facility-1",
			Name:         "テスト事業所",
			ReferenceURL: "https://directory.example.jp/facilities/42",
		},
		Purpose:          "訪問調査",
		Status:           engine.StatusDrafting,
		ResponseDeadline: "2025-06-20",
		PresentationDate: "2025-06-27",
		Evaluators: []application.EvaluatorView{
			{ID: "ev-1", Name: "評価者A", Email: "a@example.jp"},
		},
		Slots: []application.SlotView{
			{ID: "slot-1", Date: "2025-07-01", Label: "午前"},
		},
		Answers:   map[string]map[string]string{"ev-1": {"slot-1": "O"}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestSessionHandler_Create(t *testing.T) {
	t.Run("returns the new session id and invite tokens", func(t *testing.T) {
		view := sampleView()
		stub := &sessionServiceStub{createResult: application.CreateSessionResult{
			Session: &engine.Session{
				ID:         view.ID,
				Evaluators: []engine.Evaluator{{ID: "ev-1"}},
				Slots:      []engine.CandidateSlot{{ID: "slot-1"}},
			},
			InviteTokens: map[string]string{"ev-1": "token-1"},
		}}
		router := newTestRouter(stub)

		payload := `{"facility_url":"https://directory.example.jp/facilities/42","purpose":"訪問調査","response_deadline":"2025-06-20","presentation_date":"2025-06-27","slots":[{"date":"2025-07-01","label":"午前"}]}`
		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(payload))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
		}
		body := decodeBody(t, res)
		if body["session_id"] != "session-1" {
			t.Fatalf("unexpected session id: %v", body["session_id"])
		}
		tokens, ok := body["invite_tokens"].(map[string]any)
		if !ok || tokens["ev-1"] != "token-1" {
			t.Fatalf("unexpected invite tokens: %v", body["invite_tokens"])
		}
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		router := newTestRouter(&sessionServiceStub{})

		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte("{not json")))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", res.Code)
		}
	})

	t.Run("localizes validation errors", func(t *testing.T) {
		vErr := &engine.ValidationError{}
		vErr.Add("purpose", "purpose is required")
		stub := &sessionServiceStub{createErr: vErr}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", res.Code)
		}
		body := decodeBody(t, res)
		details, ok := body["errors"].(map[string]any)
		if !ok || details["purpose"] != "目的は必須です。" {
			t.Fatalf("unexpected validation details: %v", body["errors"])
		}
	})
}

func TestSessionHandler_Status(t *testing.T) {
	t.Run("returns the status board view", func(t *testing.T) {
		stub := &sessionServiceStub{statusView: sampleView()}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodGet, "/sessions/session-1/status", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
		}
		if stub.lastSessionID != "session-1" {
			t.Fatalf("expected session id to reach the service, got %q", stub.lastSessionID)
		}
		body := decodeBody(t, res)
		session, ok := body["session"].(map[string]any)
		if !ok || session["status"] != "Drafting" {
			t.Fatalf("unexpected session payload: %v", body["session"])
		}
	})

	t.Run("maps not found to 404", func(t *testing.T) {
		stub := &sessionServiceStub{statusErr: engine.ErrNotFound}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodGet, "/sessions/missing/status", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", res.Code)
		}
	})
}

func TestSessionHandler_List(t *testing.T) {
	stub := &sessionServiceStub{listItems: []application.SessionListItem{
		{ID: "session-1", FacilityName: "テスト事業所", Status: engine.StatusConfirmed, ConfirmedDate: "2025-07-01"},
	}}
	router := newTestRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	sessions, ok := body["sessions"].([]any)
	if !ok || len(sessions) != 1 {
		t.Fatalf("unexpected sessions payload: %v", body["sessions"])
	}
}

func TestSessionHandler_UpdateEvaluatorResponses(t *testing.T) {
	t.Run("passes both path identifiers to the service", func(t *testing.T) {
		stub := &sessionServiceStub{responsesView: sampleView()}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodPut, "/sessions/session-1/evaluators/ev-1/responses", strings.NewReader(`{"answers":{"slot-1":"○"}}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
		}
		if stub.lastSessionID != "session-1" || stub.lastEvaluatorID != "ev-1" {
			t.Fatalf("identifiers did not reach the service: %q %q", stub.lastSessionID, stub.lastEvaluatorID)
		}
	})

	t.Run("maps a locked session to 409", func(t *testing.T) {
		stub := &sessionServiceStub{responsesErr: engine.ErrSessionLocked}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodPut, "/sessions/session-1/evaluators/ev-1/responses", strings.NewReader(`{"answers":{"slot-1":"X"}}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", res.Code)
		}
		body := decodeBody(t, res)
		if body["error_code"] != "SESSION_LOCKED" {
			t.Fatalf("expected SESSION_LOCKED, got %v", body["error_code"])
		}
	})
}

func TestSessionHandler_EveryoneOk(t *testing.T) {
	stub := &sessionServiceStub{consensus: engine.ConsensusResult{
		SlotID:     "slot-1",
		EveryoneOk: false,
		Missing:    []string{"ev-2"},
	}}
	router := newTestRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/sessions/session-1/slots/slot-1/everyone-ok", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if stub.lastSlotID != "slot-1" {
		t.Fatalf("expected slot id to reach the service, got %q", stub.lastSlotID)
	}
	body := decodeBody(t, res)
	if body["everyone_ok"] != false {
		t.Fatalf("expected everyone_ok=false, got %v", body["everyone_ok"])
	}
	missing, ok := body["missing"].([]any)
	if !ok || len(missing) != 1 || missing[0] != "ev-2" {
		t.Fatalf("unexpected missing list: %v", body["missing"])
	}
}

func TestSessionHandler_Proposal(t *testing.T) {
	t.Run("maps missing consensus to 422", func(t *testing.T) {
		stub := &sessionServiceStub{proposeErr: engine.ErrConsensusNotReached}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/sessions/session-1/proposal", strings.NewReader(`{"slot_id":"slot-1"}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", res.Code)
		}
		body := decodeBody(t, res)
		if body["error_code"] != "CONSENSUS_NOT_REACHED" {
			t.Fatalf("expected CONSENSUS_NOT_REACHED, got %v", body["error_code"])
		}
	})

	t.Run("requires a slot id", func(t *testing.T) {
		router := newTestRouter(&sessionServiceStub{})

		req := httptest.NewRequest(http.MethodPost, "/sessions/session-1/proposal", strings.NewReader(`{}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", res.Code)
		}
	})

	t.Run("withdraws the proposal", func(t *testing.T) {
		stub := &sessionServiceStub{clearView: sampleView()}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/session-1/proposal", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
		}
		if stub.lastSessionID != "session-1" {
			t.Fatalf("expected session id to reach the service, got %q", stub.lastSessionID)
		}
	})
}

func TestSessionHandler_Summary(t *testing.T) {
	t.Run("maps an unconfirmed session to 409", func(t *testing.T) {
		stub := &sessionServiceStub{summaryErr: engine.ErrNotReady}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodGet, "/sessions/session-1/summary", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", res.Code)
		}
	})

	t.Run("returns the confirmation digest", func(t *testing.T) {
		stub := &sessionServiceStub{summary: engine.ConfirmationSummary{
			SessionID: "session-1",
			Status:    engine.StatusConfirmed,
			SlotID:    "slot-1",
			SlotDate:  "2025-07-01",
			SlotLabel: "午前",
		}}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodGet, "/sessions/session-1/summary", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
		}
		body := decodeBody(t, res)
		summary, ok := body["summary"].(map[string]any)
		if !ok || summary["slot_date"] != "2025-07-01" {
			t.Fatalf("unexpected summary payload: %v", body["summary"])
		}
	})
}

func TestHookHandler_EvaluatorResponse(t *testing.T) {
	t.Run("resolves the submission by invite token", func(t *testing.T) {
		stub := &sessionServiceStub{submitView: sampleView()}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/hooks/evaluator-response", strings.NewReader(`{"token":"token-1","answers":{"slot-1":"○"}}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
		}
		if stub.lastToken != "token-1" {
			t.Fatalf("expected token to reach the service, got %q", stub.lastToken)
		}
	})

	t.Run("requires an invite token", func(t *testing.T) {
		router := newTestRouter(&sessionServiceStub{})

		req := httptest.NewRequest(http.MethodPost, "/hooks/evaluator-response", strings.NewReader(`{"answers":{}}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", res.Code)
		}
	})

	t.Run("maps a duplicate submission to 409", func(t *testing.T) {
		stub := &sessionServiceStub{submitErr: engine.ErrAlreadyExists}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/hooks/evaluator-response", strings.NewReader(`{"token":"token-1"}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", res.Code)
		}
		body := decodeBody(t, res)
		if body["error_code"] != "ALREADY_EXISTS" {
			t.Fatalf("expected ALREADY_EXISTS, got %v", body["error_code"])
		}
	})
}

func TestHookHandler_FacilityResponse(t *testing.T) {
	t.Run("records the facility reply", func(t *testing.T) {
		stub := &sessionServiceStub{replyView: sampleView()}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/hooks/facility-response", strings.NewReader(`{"session_id":"session-1","slot_id":"slot-1","note":"第1希望で承ります"}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
		}
		if stub.lastSessionID != "session-1" || stub.lastSlotID != "slot-1" {
			t.Fatalf("identifiers did not reach the service: %q %q", stub.lastSessionID, stub.lastSlotID)
		}
	})

	t.Run("maps a mismatched slot to 422", func(t *testing.T) {
		vErr := &engine.ValidationError{}
		vErr.Add("slot_id", "reply does not match the proposed slot")
		stub := &sessionServiceStub{replyErr: vErr}
		router := newTestRouter(stub)

		req := httptest.NewRequest(http.MethodPost, "/hooks/facility-response", strings.NewReader(`{"session_id":"session-1","slot_id":"slot-2"}`))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)

		if res.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", res.Code)
		}
		body := decodeBody(t, res)
		details, ok := body["errors"].(map[string]any)
		if !ok || details["slot_id"] != "提示した候補日と回答が一致しません。" {
			t.Fatalf("unexpected validation details: %v", body["errors"])
		}
	})
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(&sessionServiceStub{})

	req := httptest.NewRequest(http.MethodDelete, "/sessions", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
	if allow := res.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Fatalf("expected Allow header to include POST, got %q", allow)
	}
}

func TestRouter_UnknownSubresource(t *testing.T) {
	router := newTestRouter(&sessionServiceStub{})

	req := httptest.NewRequest(http.MethodGet, "/sessions/session-1/unknown", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestResponder_UnexpectedError(t *testing.T) {
	stub := &sessionServiceStub{statusErr: errors.New("boom")}
	router := newTestRouter(stub)

	req := httptest.NewRequest(http.MethodGet, "/sessions/session-1/status", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	body := decodeBody(t, res)
	if body["message"] != "サーバー内部でエラーが発生しました。" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jeksecret/schedule-coordination-tool/internal/engine"
)

var (
	errBadRequestBody     = errors.New("無効なリクエスト形式です。")
	errInvalidSessionID   = errors.New("無効なセッション ID です。")
	errInvalidSlotID      = errors.New("無効な候補日 ID です。")
	errInvalidEvaluatorID = errors.New("無効な評価者 ID です。")
	errMissingInviteToken = errors.New("回答用トークンを指定してください。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, engine.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, engine.ErrSessionLocked):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SESSION_LOCKED",
			Message:   "候補日を提示中のため変更できません。",
		})
	case errors.Is(err, engine.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "回答は既に登録されています。",
		})
	case errors.Is(err, engine.ErrNotReady):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "セッションはまだ確定していません。"})
	case errors.Is(err, engine.ErrConsensusNotReached):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "CONSENSUS_NOT_REACHED",
			Message:   "全員の承認が得られていない候補日は提示できません。",
		})
	default:
		var vErr *engine.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *engine.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "purpose is required":
		return "目的は必須です。"
	case "unknown purpose":
		return "目的が選択肢にありません。"
	case "must be a YYYY-MM-DD date":
		return "日付は YYYY-MM-DD 形式で指定してください。"
	case "slot id and label are required":
		return "候補日の ID とラベルは必須です。"
	case "duplicate date and label":
		return "同じ日付とラベルの候補日が重複しています。"
	case "evaluator id is required":
		return "評価者 ID は必須です。"
	case "duplicate evaluator id":
		return "評価者 ID が重複しています。"
	case "facility URL is required":
		return "事業所 URL は必須です。"
	case "facility URL must be absolute":
		return "事業所 URL は絶対 URL で指定してください。"
	case "no slot has been proposed to the facility":
		return "提示中の候補日がありません。"
	case "reply does not match the proposed slot":
		return "提示した候補日と回答が一致しません。"
	case "answer values must be O, M, or X":
		return "回答は ○・△・x のいずれかで指定してください。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

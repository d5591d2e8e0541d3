package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/club-reservations/internal/application"
)

var (
	errBadRequestBody    = errors.New("無効なリクエスト形式です。")
	errMissingClubMember = errors.New("クラブメンバー ID を指定してください。")
	errInvalidTime       = errors.New("日時は RFC 3339 形式で指定してください。")
	errInvalidQuery      = errors.New("検索条件が正しくありません。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
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
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrMutexContention):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_BUSY",
			Message:   "指定された時間帯は予約できません。",
		})
	case errors.Is(err, application.ErrPeriodConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "PERIOD_CONFLICT",
			Message:   "指定された時間帯は予約できません。",
		})
	case errors.Is(err, application.ErrIllegalTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ILLEGAL_TRANSITION",
			Message:   "現在の状態ではこの操作を実行できません。",
		})
	case errors.Is(err, application.ErrInvalidPeriod):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INVALID_PERIOD",
			Message:   "終了日時は開始日時より後である必要があります。",
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Message: "リクエストが中断されました。"})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err, "error_kind", application.ErrorKind(err))
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
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
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

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
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
	case "title is required":
		return "タイトルは必須です。"
	case "name is required":
		return "名前は必須です。"
	case "resource is required":
		return "リソースを指定してください。"
	case "club is required":
		return "クラブを指定してください。"
	case "resource belongs to another club":
		return "別のクラブのリソースは指定できません。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}

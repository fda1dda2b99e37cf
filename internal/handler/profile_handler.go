package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/tienda/internal/middleware"
	"github.com/hitoshi/tienda/internal/model"
	"github.com/hitoshi/tienda/internal/user"
)

// UserServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetProfile はユーザーのプロフィールを取得する。
	GetProfile(ctx context.Context, userID string) (*user.Profile, error)
	// UpdateProfile はプロフィールを更新する。ユーザー名は変更不可。
	UpdateProfile(ctx context.Context, userID string, input user.UpdateProfileInput) error
	// ChangePassword はパスワードを変更し、強制変更フラグを解除する。
	ChangePassword(ctx context.Context, userID, newPassword string) error
}

// ProfileHandler はプロフィール管理のHTTPハンドラー。
type ProfileHandler struct {
	service UserServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service UserServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// changePasswordRequest はパスワード変更のリクエスト。
type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// GetProfile は自分のプロフィールを返す。
// GET /profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.AuthFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	profile, err := h.service.GetProfile(r.Context(), auth.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// UpdateProfile は自分のプロフィールを更新する。
// PUT /profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.AuthFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var input user.UpdateProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("cuerpo JSON mal formado"))
		return
	}

	if err := h.service.UpdateProfile(r.Context(), auth.UserID, input); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ChangePassword はパスワードを変更する。
// POST /change-password
// 初回ログイン時の強制変更フローでも通常の変更でも同じエンドポイントを使う。
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.AuthFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("cuerpo JSON mal formado"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), auth.UserID, req.NewPassword); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

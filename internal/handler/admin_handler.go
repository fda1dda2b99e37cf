package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/tienda/internal/model"
	"github.com/hitoshi/tienda/internal/user"
)

// AdminServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	// CreateUser は新規ユーザーを作成し、一時パスワードをメールで送付する。
	CreateUser(ctx context.Context, input user.CreateUserInput) (*user.CreatedUser, error)
}

// AdminHandler は管理者操作のHTTPハンドラー。
// RequireAdminミドルウェアの後段に配置する。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// CreateUser は新規ユーザーを作成する。
// POST /admin/users
// ユーザー名は氏名から自動生成され、一時パスワードは本人と運用者への
// メールでのみ届く。レスポンスにパスワードは含めない。
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input user.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("cuerpo JSON mal formado"))
		return
	}

	if input.Name == "" || input.Surname == "" || input.Email == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("nombre, apellidos y email son obligatorios"))
		return
	}

	created, err := h.service.CreateUser(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

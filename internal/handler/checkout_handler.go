package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/tienda/internal/invoice"
	"github.com/hitoshi/tienda/internal/middleware"
	"github.com/hitoshi/tienda/internal/model"
)

// CheckoutServiceInterface は決済確定ハンドラーが必要とするサービスインターフェース。
type CheckoutServiceInterface interface {
	// Checkout はサーバー側カートスナップショットから請求書を生成・送付する。
	Checkout(ctx context.Context, userID string) (*invoice.CheckoutResult, error)
	// ListOrders はユーザーの請求書履歴を新しい順で返す。
	ListOrders(ctx context.Context, userID string) ([]model.InvoiceSummary, error)
}

// CheckoutHandler は決済確定と注文履歴のHTTPハンドラー。
type CheckoutHandler struct {
	service CheckoutServiceInterface
}

// NewCheckoutHandler はCheckoutHandlerを生成する。
func NewCheckoutHandler(service CheckoutServiceInterface) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// ProceedPayment は決済を確定し請求書を生成する。
// POST /api/proceed-payment
// リクエストボディは受け取らない。課金対象はサーバー側のカート
// スナップショットのみであり、クライアントから送られた金額・数量は
// 一切信用しない。
func (h *CheckoutHandler) ProceedPayment(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.AuthFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	result, err := h.service.Checkout(r.Context(), auth.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListOrders はユーザーの注文履歴（請求書サマリー）を返す。
// GET /orders
func (h *CheckoutHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.AuthFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	orders, err := h.service.ListOrders(r.Context(), auth.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.InvoiceSummary{"orders": orders})
}

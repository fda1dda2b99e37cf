package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hitoshi/tienda/internal/cart"
	"github.com/hitoshi/tienda/internal/middleware"
	"github.com/hitoshi/tienda/internal/model"
)

// CartServiceInterface はカートハンドラーが必要とするサービスインターフェース。
type CartServiceInterface interface {
	// Add は商品をカートに追加する。数量は注文規則に照らして補正される。
	Add(ctx context.Context, userID, productID string, quantity int) (*cart.ValidationResult, error)
	// Remove は商品をカートから除去する。存在しない行の除去は成功扱い。
	Remove(ctx context.Context, userID, productID string) error
	// View はカート内容を表示用に返す。
	View(ctx context.Context, userID string) ([]model.CartViewLine, error)
}

// CartMetrics はカート操作のメトリクス記録インターフェース。
type CartMetrics interface {
	RecordCartOperation(operation string)
}

// CartHandler はカート操作のHTTPハンドラー。
type CartHandler struct {
	service CartServiceInterface
	metrics CartMetrics
}

// NewCartHandler はCartHandlerを生成する。metricsはnil可。
func NewCartHandler(service CartServiceInterface, metrics CartMetrics) *CartHandler {
	return &CartHandler{
		service: service,
		metrics: metrics,
	}
}

// addLineRequest はカート追加1行のリクエスト。
// 数量は整数以外の値も受け取れるようjson.Numberで保持する。
type addLineRequest struct {
	ProductID string      `json:"product_id"`
	Quantity  json.Number `json:"quantity"`
}

// quantityValue は数量フィールドをintに正規化する。
// 整数として解釈できない値（小数、欠落）は0を返し、
// 数量検証のINVALID_NUMBER補正に委ねる。
func (l addLineRequest) quantityValue() int {
	n, err := l.Quantity.Int64()
	if err != nil {
		return 0
	}
	return int(n)
}

// addLineResult はカート追加1行の結果。
type addLineResult struct {
	ProductID string        `json:"product_id"`
	Accepted  int           `json:"accepted"`
	Warning   *cart.Warning `json:"warning,omitempty"`
}

// addResponse はカート追加のレスポンス。
type addResponse struct {
	OK       bool            `json:"ok"`
	Results  []addLineResult `json:"results"`
	Warnings []cart.Warning  `json:"warnings,omitempty"`
}

// removeRequest はカート除去のリクエスト。
type removeRequest struct {
	ProductID string `json:"product_id"`
}

// cartViewResponse はカート表示のレスポンス。
type cartViewResponse struct {
	Cart []model.CartViewLine `json:"cart"`
}

// Add は商品をカートに追加する。
// POST /cart/add
// ボディは単一オブジェクト {product_id, quantity} または同形式の配列を受け付ける。
// 数量の補正は警告付きの200であり、HTTPエラーにはしない。
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.AuthFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	lines, apiErr := decodeAddRequest(r.Body)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	resp := addResponse{OK: true, Results: make([]addLineResult, 0, len(lines))}
	for _, line := range lines {
		result, err := h.service.Add(r.Context(), auth.UserID, line.ProductID, line.quantityValue())
		if err != nil {
			handleServiceError(w, err)
			return
		}

		lr := addLineResult{
			ProductID: line.ProductID,
			Accepted:  result.Accepted,
			Warning:   result.Warning,
		}
		resp.Results = append(resp.Results, lr)
		if result.Warning != nil {
			resp.Warnings = append(resp.Warnings, *result.Warning)
		}
	}

	if h.metrics != nil {
		h.metrics.RecordCartOperation("add")
	}

	writeJSON(w, http.StatusOK, resp)
}

// Remove は商品をカートから除去する。
// POST /cart/remove
// 存在しない行の除去も成功として200を返す（冪等）。
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.AuthFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("cuerpo JSON mal formado"))
		return
	}
	if req.ProductID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("product_id es obligatorio"))
		return
	}

	if err := h.service.Remove(r.Context(), auth.UserID, req.ProductID); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCartOperation("remove")
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// View はカート内容を返す。
// GET /cart/view
// カタログに存在しなくなった商品の行は応答から除外される。
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	auth, err := middleware.AuthFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	lines, err := h.service.View(r.Context(), auth.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCartOperation("view")
	}

	writeJSON(w, http.StatusOK, cartViewResponse{Cart: lines})
}

// decodeAddRequest はカート追加のボディを解析する。
// 単一オブジェクトと配列の両形式を受け付け、常に行スライスに正規化する。
func decodeAddRequest(body io.Reader) ([]addLineRequest, *model.APIError) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, model.NewInvalidRequestError("no se pudo leer el cuerpo de la petición")
	}

	var lines []addLineRequest
	if err := json.Unmarshal(raw, &lines); err != nil {
		var single addLineRequest
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, model.NewInvalidRequestError("cuerpo JSON mal formado")
		}
		lines = []addLineRequest{single}
	}

	if len(lines) == 0 {
		return nil, model.NewInvalidRequestError("la petición no contiene líneas")
	}
	for _, line := range lines {
		if line.ProductID == "" {
			return nil, model.NewInvalidRequestError("product_id es obligatorio")
		}
	}

	return lines, nil
}

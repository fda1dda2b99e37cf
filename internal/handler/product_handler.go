package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tienda/internal/catalog"
	"github.com/hitoshi/tienda/internal/middleware"
	"github.com/hitoshi/tienda/internal/model"
)

// CatalogInterface は商品ハンドラーが必要とするカタログインターフェース。
type CatalogInterface interface {
	// ListByCategory はカテゴリ内の全商品を返す。
	ListByCategory(category string) ([]*model.Product, error)
	// FindProduct はIDで商品を検索する。見つからない場合はnilを返す。
	FindProduct(id string) (*model.Product, error)
	// Search は名前と説明文の部分一致で商品を検索する。
	Search(query string) ([]*model.Product, error)
}

// ProductHandler はカタログ閲覧のHTTPハンドラー。
// 全エンドポイントが未認証でもアクセス可能で、認証状態は価格の可視性のみを
// 左右する。未認証レスポンスではpriceフィールド自体が省略される
// （nullや0ではなく）。
type ProductHandler struct {
	catalog CatalogInterface
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(c CatalogInterface) *ProductHandler {
	return &ProductHandler{catalog: c}
}

// ListByCategory はカテゴリ内の商品一覧を返す。
// GET /api/products/{category}
// 存在しないカテゴリは空配列を返す（読み取り系の規約として404にしない）。
func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	products, err := h.catalog.ListByCategory(category)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeCategoryNotFound {
			writeJSON(w, http.StatusOK, []catalog.ProductView{})
			return
		}
		handleServiceError(w, err)
		return
	}

	authenticated := middleware.IsAuthenticated(r.Context())
	writeJSON(w, http.StatusOK, catalog.FilterPrices(products, authenticated))
}

// GetDetails は商品1件の詳細を返す。
// GET /api/product-details/{id}
func (h *ProductHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.catalog.FindProduct(id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if product == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewProductNotFoundError(id))
		return
	}

	authenticated := middleware.IsAuthenticated(r.Context())
	writeJSON(w, http.StatusOK, catalog.FilterPrice(product, authenticated))
}

// Search は商品をキーワード検索する。
// GET /api/products?q=palabra
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, []catalog.ProductView{})
		return
	}

	products, err := h.catalog.Search(query)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	authenticated := middleware.IsAuthenticated(r.Context())
	writeJSON(w, http.StatusOK, catalog.FilterPrices(products, authenticated))
}

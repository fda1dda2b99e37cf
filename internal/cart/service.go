package cart

import (
	"context"
	"fmt"

	"github.com/hitoshi/tienda/internal/model"
	"github.com/hitoshi/tienda/internal/repository"
)

// CatalogStore はカートサービスが必要とするカタログ操作のインターフェース。
type CatalogStore interface {
	// FindProduct は指定IDの商品を返す。見つからない場合はnilを返す。
	FindProduct(id string) (*model.Product, error)
}

// Service はカート操作のサービス層。
// 追加時の数量検証と、カタログと結合したカート表示を提供する。
type Service struct {
	catalog  CatalogStore
	cartRepo repository.CartRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(catalog CatalogStore, cartRepo repository.CartRepository) *Service {
	return &Service{
		catalog:  catalog,
		cartRepo: cartRepo,
	}
}

// Add は商品をカートに追加する。
// 数量は商品の注文規則に照らして検証・補正され、補正があった場合は
// 警告として返す。同一商品が既にカートにある場合は数量を置き換える。
// 受理数量が0（在庫なし）の場合はカートを変更せず警告のみを返す。
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) (*ValidationResult, error) {
	product, err := s.catalog.FindProduct(productID)
	if err != nil {
		return nil, fmt.Errorf("商品の検索に失敗しました: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(productID)
	}

	result := ValidateQuantity(quantity, product.Rule)
	if result.Accepted <= 0 {
		return &result, nil
	}

	line := &model.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  result.Accepted,
	}
	if err := s.cartRepo.UpsertLine(ctx, line); err != nil {
		return nil, fmt.Errorf("カート行の保存に失敗しました: %w", err)
	}

	return &result, nil
}

// Remove は商品をカートから削除する。存在しない商品の削除も成功とする（冪等）。
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	if err := s.cartRepo.DeleteLine(ctx, userID, productID); err != nil {
		return fmt.Errorf("カート行の削除に失敗しました: %w", err)
	}
	return nil
}

// View はカート行を現在のカタログ情報と結合して返す。
// カタログから消えた商品の行はビューから除外する（エラーにはしない）。
// 請求書生成と異なり、表示は利用可能な情報での近似で構わない。
func (s *Service) View(ctx context.Context, userID string) ([]model.CartViewLine, error) {
	lines, err := s.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("カートの取得に失敗しました: %w", err)
	}

	views := make([]model.CartViewLine, 0, len(lines))
	for _, line := range lines {
		product, err := s.catalog.FindProduct(line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("商品の検索に失敗しました: %w", err)
		}
		if product == nil {
			// カタログから消えた商品は表示から除外する
			continue
		}
		view := model.CartViewLine{
			ProductID: line.ProductID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Price:     product.Price,
		}
		if len(product.Images) > 0 {
			view.ImageURL = product.Images[0]
		}
		views = append(views, view)
	}

	return views, nil
}

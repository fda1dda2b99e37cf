package catalog

import "github.com/hitoshi/tienda/internal/model"

// ProductView は価格可視性フィルタ適用後のAPI応答用商品表現。
// Priceは認証済みの場合のみ設定され、未認証の応答からはフィールド自体が
// 省略される（nullや0ではなく欠落）。
type ProductView struct {
	ID          string          `json:"id"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Images      []string        `json:"images"`
	Rule        model.OrderRule `json:"order_rule"`
	Price       *float64        `json:"price,omitempty"`
	Care        string          `json:"care"`
}

// FilterPrice は商品1件に価格可視性フィルタを適用した応答コピーを返す。
// 共有されるカタログレコードは変更しない。
// 認証状態に関わらず全ての商品に対して定義される（部分関数にしない）。
func FilterPrice(p *model.Product, authenticated bool) ProductView {
	view := ProductView{
		ID:          p.ID,
		Category:    p.Category,
		Name:        p.Name,
		Description: p.Description,
		Images:      p.Images,
		Rule:        p.Rule,
		Care:        p.Care,
	}
	if authenticated {
		price := p.Price
		view.Price = &price
	}
	return view
}

// FilterPrices は商品一覧に価格可視性フィルタを適用する。
// 入力が空の場合も空スライスを返す（nilにしない）。
func FilterPrices(products []*model.Product, authenticated bool) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, FilterPrice(p, authenticated))
	}
	return views
}

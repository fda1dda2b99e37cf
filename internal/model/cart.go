package model

import "time"

// CartLine はユーザーのカート内の1行を表す。
// (user_id, product_id) の組で一意であり、同一商品の再追加は
// 行の複製ではなく数量の置き換えとなる。
type CartLine struct {
	UserID    string
	ProductID string
	Quantity  int
	UpdatedAt time.Time
}

// CartViewLine はカート行を現在のカタログ情報と結合した表示用の行。
// カタログから消えた商品の行はビューから除外される（エラーにはしない）。
type CartViewLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url,omitempty"`
}

package model

// OrderRule は注文数量の制約を表す。
// メートル単位で販売される生地・テープ類のような連続量商品を想定し、
// 最小値・最大値・刻み幅・在庫で注文可能な数量を規定する。
type OrderRule struct {
	Min       int `json:"min"`
	Max       int `json:"max"` // 0は上限なしを意味する
	Step      int `json:"step"`
	Available int `json:"available"`
}

// Product はカタログ上の商品を表す。
// カタログストアが所有する読み取り専用データであり、
// ストアフロント側から変更されることはない。
type Product struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Rule        OrderRule `json:"order_rule"`
	Price       float64   `json:"price"` // 単価（通貨小数）
	Care        string    `json:"care"`
}

// MaxOrDefault は上限値を返す。未設定（0）の場合はフォールバック値を返す。
func (r OrderRule) MaxOrDefault(fallback int) int {
	if r.Max <= 0 {
		return fallback
	}
	return r.Max
}

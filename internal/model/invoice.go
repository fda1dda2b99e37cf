package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLine は請求書の1明細行を表す。
// 金額は全て完全精度のまま保持し、丸めは表示・保存時に1回だけ行う。
type InvoiceLine struct {
	ProductID    string
	Description  string
	Quantity     int
	UnitPrice    decimal.Decimal
	LineSubtotal decimal.Decimal
	TaxRate      decimal.Decimal
	LineTotal    decimal.Decimal
}

// Invoice は確定したカートの凍結スナップショットを表す。
// 生成後は一切変更されない成果物であり、明細はカタログやカートへの
// 参照ではなく値として複製される。
type Invoice struct {
	Number     int64
	Date       time.Time
	Customer   CustomerSnapshot
	Lines      []InvoiceLine
	Subtotal   decimal.Decimal // 丸め前の合計
	TaxTotal   decimal.Decimal
	GrandTotal decimal.Decimal
}

// CustomerSnapshot は請求書発行時点の顧客情報の複製。
// 後からプロフィールが変更されても請求書には影響しない。
type CustomerSnapshot struct {
	UserID     string
	Name       string
	Surname    string
	Email      string
	TaxID      string
	Street     string
	StreetNum  string
	PostalCode string
	City       string
}

// InvoiceSummary は注文履歴一覧用の要約行。
type InvoiceSummary struct {
	Number     int64     `json:"number"`
	Date       time.Time `json:"date"`
	GrandTotal string    `json:"grand_total"`
	LineCount  int       `json:"line_count"`
}

// RoundMoney は通貨値を小数点以下2桁に丸める（四捨五入）。
// 中間計算は完全精度で積み上げ、最終表示の直前にのみ適用する。
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Package invoice は請求書の計算・描画・決済確定パイプラインを提供する。
package invoice

import (
	"time"

	"github.com/hitoshi/tienda/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate は標準のIVA税率（21%）。
var DefaultTaxRate = decimal.NewFromFloat(0.21)

// Compute はカート行と商品情報から請求書を計算する。
//
// 金額は全行にわたり完全精度のdecimalで積み上げ、丸めは行わない。
// 小数点以下2桁への丸め（四捨五入）は保存・表示の直前に1回だけ適用する。
// 行ごとに丸めてから合計すると1セントの不整合が生じうるため、
// 途中経過を丸めた値を合計に使ってはならない。
//
// カートが空の場合はEMPTY_CART、いずれかの行の商品が商品情報に
// 存在しない場合はUNKNOWN_PRODUCTエラーを返す。カート表示と異なり、
// 課金対象の行を黙って落とすことは許されない。
func Compute(lines []*model.CartLine, products map[string]*model.Product, taxRate decimal.Decimal) (*model.Invoice, error) {
	if len(lines) == 0 {
		return nil, model.NewEmptyCartError()
	}

	inv := &model.Invoice{
		Date:       time.Now(),
		Lines:      make([]model.InvoiceLine, 0, len(lines)),
		Subtotal:   decimal.Zero,
		TaxTotal:   decimal.Zero,
		GrandTotal: decimal.Zero,
	}

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok || product == nil {
			return nil, model.NewUnknownProductError(line.ProductID)
		}

		unitPrice := decimal.NewFromFloat(product.Price)
		quantity := decimal.NewFromInt(int64(line.Quantity))
		lineSubtotal := unitPrice.Mul(quantity)
		lineTax := lineSubtotal.Mul(taxRate)
		lineTotal := lineSubtotal.Add(lineTax)

		inv.Lines = append(inv.Lines, model.InvoiceLine{
			ProductID:    line.ProductID,
			Description:  product.Name,
			Quantity:     line.Quantity,
			UnitPrice:    unitPrice,
			LineSubtotal: lineSubtotal,
			TaxRate:      taxRate,
			LineTotal:    lineTotal,
		})

		inv.Subtotal = inv.Subtotal.Add(lineSubtotal)
		inv.TaxTotal = inv.TaxTotal.Add(lineTax)
		inv.GrandTotal = inv.GrandTotal.Add(lineTotal)
	}

	return inv, nil
}

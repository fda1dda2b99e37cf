// Package cart はカートのドメインロジックを提供する。
//
// 数量バリデータは拒否よりも補正を基本方針とする。注文規則に合わない
// 数量はエラーにせず、受理可能な最も近い数量に補正し、理由を警告として
// 呼び出し元に返す。
package cart

import "github.com/hitoshi/tienda/internal/model"

// WarningKind は数量補正の警告種別。
type WarningKind string

const (
	// WarningInvalidNumber は数量が正の数として解釈できなかったことを示す。
	WarningInvalidNumber WarningKind = "INVALID_NUMBER"
	// WarningInsufficientStock は在庫数を超えた注文が在庫数まで補正されたことを示す。
	WarningInsufficientStock WarningKind = "INSUFFICIENT_STOCK"
	// WarningMaxExceeded は注文上限を超えた注文が上限まで補正されたことを示す。
	WarningMaxExceeded WarningKind = "MAX_EXCEEDED"
)

// Warning は数量補正1件の警告。
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// ValidationResult は数量検証の結果。
// Acceptedは常に注文規則を満たす値であり、受理済みの値を再検証しても
// 変化しない（冪等）。
type ValidationResult struct {
	Accepted int      `json:"accepted"`
	Warning  *Warning `json:"warning,omitempty"`
}

// unboundedMax は上限未設定（max=0）の場合に使用する実質無制限の上限。
const unboundedMax = 1 << 30

// ValidateQuantity は要求数量を注文規則に照らして検証・補正する。
//
// 検証は次の順で行う:
//  1. 正値チェック: 0以下は最小数量に補正し、INVALID_NUMBER警告を付ける。
//  2. 上限クランプ: min(上限, 在庫) に切り詰める。在庫超過が理由の場合は
//     INSUFFICIENT_STOCK、上限超過のみの場合はMAX_EXCEEDEDの警告を付ける
//     （両方を超える場合は在庫警告を優先する）。
//  3. 下限クランプ: 最小数量未満は黙って最小数量に引き上げる。
//  4. 刻み正規化: 最小数量からの刻み幅の倍数に丸める（四捨五入）。
//     丸めで上限を超えた場合は上限以下の最大の刻み位置に戻す。
//     刻み正規化は警告を伴わない。
//
// 在庫が最小数量に満たない場合は受理数量0とINSUFFICIENT_STOCK警告を返す。
// 受理数量0の行はカートに追加してはならない。
func ValidateQuantity(requested int, rule model.OrderRule) ValidationResult {
	min := rule.Min
	if min <= 0 {
		min = 1
	}
	step := rule.Step
	if step <= 0 {
		step = 1
	}
	max := rule.MaxOrDefault(unboundedMax)

	cap := max
	if rule.Available < cap {
		cap = rule.Available
	}

	// 在庫が最小注文数に満たない場合は注文不能
	if cap < min {
		return ValidationResult{
			Accepted: 0,
			Warning: &Warning{
				Kind:    WarningInsufficientStock,
				Message: "No hay existencias suficientes para este artículo.",
			},
		}
	}

	var warning *Warning
	accepted := requested

	if accepted <= 0 {
		accepted = min
		warning = &Warning{
			Kind:    WarningInvalidNumber,
			Message: "Cantidad no válida; se ha aplicado la cantidad mínima.",
		}
	}

	if accepted > cap {
		if accepted > rule.Available {
			warning = &Warning{
				Kind:    WarningInsufficientStock,
				Message: "Cantidad ajustada a las existencias disponibles.",
			}
		} else {
			warning = &Warning{
				Kind:    WarningMaxExceeded,
				Message: "Cantidad ajustada al máximo por pedido.",
			}
		}
		accepted = cap
	}

	if accepted < min {
		accepted = min
	}

	// 刻み正規化: minからの相対位置をstepの倍数に丸める（四捨五入）
	offset := accepted - min
	steps := (offset + step/2) / step
	accepted = min + steps*step

	// 丸めで上限を超えた場合は上限以下の最大の刻み位置に戻す
	if accepted > cap {
		accepted = min + ((cap-min)/step)*step
	}

	return ValidationResult{Accepted: accepted, Warning: warning}
}

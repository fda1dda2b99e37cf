// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, cart, checkout, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeAdminRequired      = "ADMIN_REQUIRED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeProductNotFound    = "PRODUCT_NOT_FOUND"
	ErrCodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeUnknownProduct     = "UNKNOWN_PRODUCT"
	ErrCodeUpstreamFailure    = "UPSTREAM_FAILURE"
)

// NewInvalidRequestError はリクエスト形式不正のエラーを生成する。
func NewInvalidRequestError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Solicitud no válida: %s", detail),
		Category: "validation",
		Action:   "Revisa los datos introducidos e inténtalo de nuevo.",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー名不存在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Usuario o contraseña incorrectos.",
		Category: "auth",
		Action:   "Comprueba tus credenciales e inténtalo de nuevo.",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Inicia sesión para continuar.",
		Category: "auth",
		Action:   "Inicia sesión e inténtalo de nuevo.",
	}
}

// NewAdminRequiredError は管理者権限不足エラーを生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminRequired,
		Message:  "Se requieren permisos de administrador.",
		Category: "auth",
		Action:   "Contacta con el administrador de la tienda.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Usuario no encontrado.",
		Category: "auth",
		Action:   "Vuelve a iniciar sesión.",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("Producto no encontrado: %s", productID),
		Category: "catalog",
		Action:   "Comprueba el identificador del producto.",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("Categoría no encontrada: %s", category),
		Category: "catalog",
		Action:   "Comprueba el nombre de la categoría.",
	}
}

// NewInvalidQuantityError は数量が解釈不能な場合のエラーを生成する。
// 範囲外の数量はエラーではなく警告付きで補正されるため、
// このエラーはリクエスト自体が不正な場合に限って使用する。
func NewInvalidQuantityError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuantity,
		Message:  fmt.Sprintf("Cantidad no válida: %s", field),
		Category: "validation",
		Action:   "Introduce una cantidad entera positiva.",
	}
}

// NewEmptyCartError は空カートでの請求書生成エラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyCart,
		Message:  "El carrito está vacío.",
		Category: "checkout",
		Action:   "Añade artículos al carrito antes de finalizar la compra.",
	}
}

// NewUnknownProductError は請求書生成時に価格が引けない商品のエラーを生成する。
// カート表示では孤児行を黙って除外するが、請求書では課金対象行を
// 黙って落とすことは許されないため明示的に失敗させる。
func NewUnknownProductError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownProduct,
		Message:  fmt.Sprintf("El producto ya no está disponible: %s", productID),
		Category: "checkout",
		Action:   "Elimina el artículo del carrito e inténtalo de nuevo.",
	}
}

// NewUpstreamFailureError は請求書の描画・メール送信など外部協調先の失敗を生成する。
// 内部詳細はログのみに記録し、レスポンスには含めない。
func NewUpstreamFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailure,
		Message:  "No se pudo completar el pedido.",
		Category: "system",
		Action:   "Espera unos minutos e inténtalo de nuevo.",
	}
}

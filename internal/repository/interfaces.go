// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/tienda/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile は連絡先・住所フィールドのみを更新する。
	// username、password_hash、is_adminはこのメソッドでは変更しない。
	UpdateProfile(ctx context.Context, user *model.User) error

	// UpdatePassword はパスワードハッシュを更新し、
	// force_password_changeフラグを解除する。
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// CountByUsernamePrefix は指定プレフィックスで始まるユーザー名の件数を返す。
	// name.surname.NNNN 形式のユーザー名採番に使用する。
	CountByUsernamePrefix(ctx context.Context, prefix string) (int, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindAuthContext はセッションIDから認証コンテキストを取得する。
	// sessionsとusersをJOINし、期限切れ・存在しない場合はnilを返す。
	FindAuthContext(ctx context.Context, id string) (*model.AuthContext, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CartRepository はカートデータの永続化インターフェース。
type CartRepository interface {
	// UpsertLine はカート行を冪等にUPSERTする。
	// 同一(user_id, product_id)が存在する場合は数量を置き換える（加算しない）。
	UpsertLine(ctx context.Context, line *model.CartLine) error

	// DeleteLine は指定商品のカート行を削除する。存在しない場合も成功とする。
	DeleteLine(ctx context.Context, userID, productID string) error

	// ListByUserID はユーザーのカート行一覧をupdated_at昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.CartLine, error)

	// DeleteByUserID はユーザーの全カート行を削除する。
	// 決済確定時にトランザクション内で呼び出される。
	DeleteByUserID(ctx context.Context, tx *sql.Tx, userID string) error
}

// InvoiceRepository は請求書データの永続化インターフェース。
type InvoiceRepository interface {
	// NextNumber は連番シーケンスから次の請求書番号を採番する。
	NextNumber(ctx context.Context, tx *sql.Tx) (int64, error)

	// Create は請求書と明細行を同一トランザクション内で保存する。
	Create(ctx context.Context, tx *sql.Tx, invoice *model.Invoice) error

	// ListByUserID はユーザーの請求書要約一覧を発行日降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]model.InvoiceSummary, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/tienda/internal/model"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// PostgresCartRepoはCartRepositoryインターフェースを満たすことを検証
func TestPostgresCartRepo_ImplementsInterface(t *testing.T) {
	var _ CartRepository = (*PostgresCartRepo)(nil)
}

// PostgresInvoiceRepoはInvoiceRepositoryインターフェースを満たすことを検証
func TestPostgresInvoiceRepo_ImplementsInterface(t *testing.T) {
	var _ InvoiceRepository = (*PostgresInvoiceRepo)(nil)
}

// NewPostgresCartRepoが正しく初期化されることを検証
func TestNewPostgresCartRepo_Initializes(t *testing.T) {
	repo := NewPostgresCartRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresInvoiceRepoが正しく初期化されることを検証
func TestNewPostgresInvoiceRepo_Initializes(t *testing.T) {
	repo := NewPostgresInvoiceRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// SessionRepoのFindAuthContextが期限切れセッションを返さないことの期待動作
func TestPostgresSessionRepo_FindAuthContext_ExpiredSession_Concept(t *testing.T) {
	// このテストはDB接続なしでコンセプトを検証する
	session := &model.Session{
		ID:        "expired-session",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(-1 * time.Hour),
	}

	if session.ExpiresAt.After(time.Now()) {
		t.Error("expected session to be expired")
	}
}

// カート行UPSERTのキーが(user_id, product_id)であることのコンセプト検証。
// 同一キーへの再追加は数量の置き換えであり加算ではない。
func TestPostgresCartRepo_UpsertLine_ReplaceSemantics_Concept(t *testing.T) {
	first := &model.CartLine{UserID: "user-1", ProductID: "prod-1", Quantity: 3}
	second := &model.CartLine{UserID: "user-1", ProductID: "prod-1", Quantity: 5}

	if first.UserID != second.UserID || first.ProductID != second.ProductID {
		t.Fatal("expected identical upsert keys")
	}
	// ON CONFLICT DO UPDATE SET quantity = EXCLUDED.quantity の結果は
	// 後勝ちの5であり、3+5=8ではない。
	if second.Quantity != 5 {
		t.Errorf("quantity = %d, want 5", second.Quantity)
	}
}

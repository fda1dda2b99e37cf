package cart

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/hitoshi/tienda/internal/model"
)

// mockCatalogStore はテスト用のカタログストア。
type mockCatalogStore struct {
	findProductFunc func(id string) (*model.Product, error)
}

func (m *mockCatalogStore) FindProduct(id string) (*model.Product, error) {
	return m.findProductFunc(id)
}

// mockCartRepo はテスト用のカートリポジトリ。
type mockCartRepo struct {
	upsertLineFunc     func(ctx context.Context, line *model.CartLine) error
	deleteLineFunc     func(ctx context.Context, userID, productID string) error
	listByUserIDFunc   func(ctx context.Context, userID string) ([]*model.CartLine, error)
	deleteByUserIDFunc func(ctx context.Context, tx *sql.Tx, userID string) error
}

func (m *mockCartRepo) UpsertLine(ctx context.Context, line *model.CartLine) error {
	return m.upsertLineFunc(ctx, line)
}

func (m *mockCartRepo) DeleteLine(ctx context.Context, userID, productID string) error {
	return m.deleteLineFunc(ctx, userID, productID)
}

func (m *mockCartRepo) ListByUserID(ctx context.Context, userID string) ([]*model.CartLine, error) {
	return m.listByUserIDFunc(ctx, userID)
}

func (m *mockCartRepo) DeleteByUserID(ctx context.Context, tx *sql.Tx, userID string) error {
	return m.deleteByUserIDFunc(ctx, tx, userID)
}

func testProduct() *model.Product {
	return &model.Product{
		ID:     "lana-001",
		Name:   "Lana merina azul",
		Images: []string{"https://cdn.example.com/lana-001.jpg"},
		Rule:   model.OrderRule{Min: 1, Max: 30, Step: 1, Available: 20},
		Price:  4.95,
	}
}

// Addが検証済み数量でUPSERTすることを検証
func TestService_Add(t *testing.T) {
	var upserted *model.CartLine
	catalog := &mockCatalogStore{
		findProductFunc: func(id string) (*model.Product, error) {
			return testProduct(), nil
		},
	}
	repo := &mockCartRepo{
		upsertLineFunc: func(ctx context.Context, line *model.CartLine) error {
			upserted = line
			return nil
		},
	}

	svc := NewService(catalog, repo)
	result, err := svc.Add(context.Background(), "user-1", "lana-001", 5)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if result.Accepted != 5 {
		t.Errorf("Accepted = %d, want 5", result.Accepted)
	}
	if result.Warning != nil {
		t.Errorf("unexpected warning: %+v", result.Warning)
	}
	if upserted == nil {
		t.Fatal("expected upsert to be called")
	}
	if upserted.UserID != "user-1" || upserted.ProductID != "lana-001" || upserted.Quantity != 5 {
		t.Errorf("upserted = %+v", upserted)
	}
}

// Addが補正後の数量でUPSERTし、警告を返すことを検証
func TestService_Add_ClampsAndWarns(t *testing.T) {
	var upserted *model.CartLine
	catalog := &mockCatalogStore{
		findProductFunc: func(id string) (*model.Product, error) {
			p := testProduct()
			p.Rule = model.OrderRule{Min: 1, Max: 0, Step: 1, Available: 10}
			return p, nil
		},
	}
	repo := &mockCartRepo{
		upsertLineFunc: func(ctx context.Context, line *model.CartLine) error {
			upserted = line
			return nil
		},
	}

	svc := NewService(catalog, repo)
	result, err := svc.Add(context.Background(), "user-1", "lana-001", 15)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if result.Accepted != 10 {
		t.Errorf("Accepted = %d, want 10", result.Accepted)
	}
	if result.Warning == nil || result.Warning.Kind != WarningInsufficientStock {
		t.Errorf("warning = %+v, want INSUFFICIENT_STOCK", result.Warning)
	}
	if upserted == nil || upserted.Quantity != 10 {
		t.Errorf("upserted = %+v, want quantity 10", upserted)
	}
}

// 未知の商品の追加はPRODUCT_NOT_FOUNDになることを検証
func TestService_Add_UnknownProduct(t *testing.T) {
	catalog := &mockCatalogStore{
		findProductFunc: func(id string) (*model.Product, error) {
			return nil, nil
		},
	}
	repo := &mockCartRepo{
		upsertLineFunc: func(ctx context.Context, line *model.CartLine) error {
			t.Fatal("upsert should not be called for unknown product")
			return nil
		},
	}

	svc := NewService(catalog, repo)
	_, err := svc.Add(context.Background(), "user-1", "no-existe", 1)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeProductNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeProductNotFound)
	}
}

// 在庫なし商品の追加はカートを変更せず警告のみ返すことを検証
func TestService_Add_OutOfStock_DoesNotUpsert(t *testing.T) {
	catalog := &mockCatalogStore{
		findProductFunc: func(id string) (*model.Product, error) {
			p := testProduct()
			p.Rule = model.OrderRule{Min: 5, Max: 50, Step: 1, Available: 2}
			return p, nil
		},
	}
	upsertCalled := false
	repo := &mockCartRepo{
		upsertLineFunc: func(ctx context.Context, line *model.CartLine) error {
			upsertCalled = true
			return nil
		},
	}

	svc := NewService(catalog, repo)
	result, err := svc.Add(context.Background(), "user-1", "lana-001", 5)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if result.Accepted != 0 {
		t.Errorf("Accepted = %d, want 0", result.Accepted)
	}
	if result.Warning == nil || result.Warning.Kind != WarningInsufficientStock {
		t.Errorf("warning = %+v, want INSUFFICIENT_STOCK", result.Warning)
	}
	if upsertCalled {
		t.Error("expected upsert not to be called")
	}
}

// Removeが存在しない商品でも成功することを検証（冪等性）
func TestService_Remove_AbsentLine(t *testing.T) {
	repo := &mockCartRepo{
		deleteLineFunc: func(ctx context.Context, userID, productID string) error {
			// リポジトリ層のDELETEは対象0行でも成功する
			return nil
		},
	}

	svc := NewService(&mockCatalogStore{}, repo)
	if err := svc.Remove(context.Background(), "user-1", "no-en-carrito"); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
}

// Viewがカタログ情報と結合し、消えた商品の行を除外することを検証
func TestService_View_ExcludesOrphanLines(t *testing.T) {
	catalog := &mockCatalogStore{
		findProductFunc: func(id string) (*model.Product, error) {
			if id == "lana-001" {
				return testProduct(), nil
			}
			// カタログから消えた商品
			return nil, nil
		},
	}
	repo := &mockCartRepo{
		listByUserIDFunc: func(ctx context.Context, userID string) ([]*model.CartLine, error) {
			return []*model.CartLine{
				{UserID: userID, ProductID: "lana-001", Quantity: 3},
				{UserID: userID, ProductID: "descatalogado", Quantity: 2},
			}, nil
		},
	}

	svc := NewService(catalog, repo)
	views, err := svc.View(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("got %d lines, want 1", len(views))
	}
	view := views[0]
	if view.ProductID != "lana-001" || view.Quantity != 3 {
		t.Errorf("view = %+v", view)
	}
	if view.Price != 4.95 {
		t.Errorf("price = %v, want 4.95", view.Price)
	}
	if view.ImageURL != "https://cdn.example.com/lana-001.jpg" {
		t.Errorf("image = %q", view.ImageURL)
	}
}

// 空カートのViewは空スライスを返すことを検証
func TestService_View_EmptyCart(t *testing.T) {
	repo := &mockCartRepo{
		listByUserIDFunc: func(ctx context.Context, userID string) ([]*model.CartLine, error) {
			return nil, nil
		},
	}

	svc := NewService(&mockCatalogStore{}, repo)
	views, err := svc.View(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if len(views) != 0 {
		t.Errorf("got %d lines, want 0", len(views))
	}
}

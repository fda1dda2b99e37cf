package invoice

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/tienda/internal/model"
)

// mockTxBeginner はトランザクション開始を失敗させるか、到達自体を検出するモック。
// *sql.TxはDBなしで構築できないため、トランザクション以降の段階は
// DB統合テストの範囲とし、ここでは前段の失敗経路を検証する。
type mockTxBeginner struct {
	beginTxFunc func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func (m *mockTxBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return m.beginTxFunc(ctx, opts)
}

type mockUserRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	return nil
}
func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return nil
}
func (m *mockUserRepo) CountByUsernamePrefix(ctx context.Context, prefix string) (int, error) {
	return 0, nil
}

type mockCartRepo struct {
	listByUserIDFunc func(ctx context.Context, userID string) ([]*model.CartLine, error)
}

func (m *mockCartRepo) UpsertLine(ctx context.Context, line *model.CartLine) error { return nil }
func (m *mockCartRepo) DeleteLine(ctx context.Context, userID, productID string) error {
	return nil
}
func (m *mockCartRepo) ListByUserID(ctx context.Context, userID string) ([]*model.CartLine, error) {
	return m.listByUserIDFunc(ctx, userID)
}
func (m *mockCartRepo) DeleteByUserID(ctx context.Context, tx *sql.Tx, userID string) error {
	return nil
}

type mockInvoiceRepo struct {
	listByUserIDFunc func(ctx context.Context, userID string) ([]model.InvoiceSummary, error)
}

func (m *mockInvoiceRepo) NextNumber(ctx context.Context, tx *sql.Tx) (int64, error) {
	return 0, nil
}
func (m *mockInvoiceRepo) Create(ctx context.Context, tx *sql.Tx, invoice *model.Invoice) error {
	return nil
}
func (m *mockInvoiceRepo) ListByUserID(ctx context.Context, userID string) ([]model.InvoiceSummary, error) {
	return m.listByUserIDFunc(ctx, userID)
}

type mockCatalog struct {
	findProductFunc func(id string) (*model.Product, error)
}

func (m *mockCatalog) FindProduct(id string) (*model.Product, error) {
	return m.findProductFunc(id)
}

type mockRenderer struct{}

func (mockRenderer) Render(inv *model.Invoice, imageURL string) ([]byte, error) {
	return []byte("%PDF-fake"), nil
}

type mockMailer struct{}

func (mockMailer) SendWithAttachment(ctx context.Context, to []string, subject, body string, attachment []byte, filename string) error {
	return nil
}

type noopCollector struct{}

func (noopCollector) RecordHTTPStatus(statusCode int)                      {}
func (noopCollector) RecordCheckoutSuccess()                               {}
func (noopCollector) RecordCheckoutFailure(reason string)                  {}
func (noopCollector) RecordInvoiceRenderLatency(duration time.Duration)    {}
func (noopCollector) RecordMailFailure()                                   {}
func (noopCollector) RecordCartOperation(op string)                        {}

func newTestService(user *model.User, lines []*model.CartLine, catalog CatalogStore, txReached *bool) *Service {
	return NewService(
		&mockTxBeginner{
			beginTxFunc: func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
				if txReached != nil {
					*txReached = true
				}
				return nil, errors.New("no database in unit test")
			},
		},
		&mockCartRepo{
			listByUserIDFunc: func(ctx context.Context, userID string) ([]*model.CartLine, error) {
				return lines, nil
			},
		},
		&mockInvoiceRepo{},
		&mockUserRepo{
			findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
				return user, nil
			},
		},
		catalog,
		mockRenderer{},
		mockMailer{},
		"pedidos@auridal.example",
		DefaultTaxRate,
		noopCollector{},
		slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)),
	)
}

func checkoutUser() *model.User {
	return &model.User{
		ID:      "user-1",
		Name:    "María",
		Surname: "García",
		Email:   "maria@example.com",
	}
}

// 空カートの決済確定はEMPTY_CARTで失敗し、トランザクションに到達しないことを検証。
// 請求書・PDF・メールのいずれの成果物も生成されない。
func TestService_Checkout_EmptyCart(t *testing.T) {
	txReached := false
	svc := newTestService(checkoutUser(), nil, &mockCatalog{}, &txReached)

	_, err := svc.Checkout(context.Background(), "user-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeEmptyCart {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeEmptyCart)
	}
	if txReached {
		t.Error("expected no transaction for empty cart")
	}
}

// カタログから消えた商品を含むカートはUNKNOWN_PRODUCTで失敗することを検証
func TestService_Checkout_UnknownProduct(t *testing.T) {
	txReached := false
	lines := []*model.CartLine{{UserID: "user-1", ProductID: "descatalogado", Quantity: 2}}
	catalog := &mockCatalog{
		findProductFunc: func(id string) (*model.Product, error) { return nil, nil },
	}
	svc := newTestService(checkoutUser(), lines, catalog, &txReached)

	_, err := svc.Checkout(context.Background(), "user-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUnknownProduct {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUnknownProduct)
	}
	if txReached {
		t.Error("expected no transaction for unknown product")
	}
}

// 存在しないユーザーの決済確定はUSER_NOT_FOUNDで失敗することを検証
func TestService_Checkout_UserNotFound(t *testing.T) {
	svc := newTestService(nil, nil, &mockCatalog{}, nil)

	_, err := svc.Checkout(context.Background(), "no-existe")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// 在庫が尽きた商品を含むカートは失敗することを検証（確定直前の再検証）
func TestService_Checkout_RevalidationRejectsOutOfStock(t *testing.T) {
	txReached := false
	lines := []*model.CartLine{{UserID: "user-1", ProductID: "lana-001", Quantity: 5}}
	catalog := &mockCatalog{
		findProductFunc: func(id string) (*model.Product, error) {
			return &model.Product{
				ID:    "lana-001",
				Name:  "Lana merina azul",
				Price: 4.95,
				Rule:  model.OrderRule{Min: 1, Max: 0, Step: 1, Available: 0},
			}, nil
		},
	}
	svc := newTestService(checkoutUser(), lines, catalog, &txReached)

	_, err := svc.Checkout(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected checkout to fail for out-of-stock line")
	}
	if txReached {
		t.Error("expected no transaction for out-of-stock line")
	}
}

// ListOrdersがリポジトリの要約一覧を返すことを検証
func TestService_ListOrders(t *testing.T) {
	svc := newTestService(checkoutUser(), nil, &mockCatalog{}, nil)
	svc.invoiceRepo = &mockInvoiceRepo{
		listByUserIDFunc: func(ctx context.Context, userID string) ([]model.InvoiceSummary, error) {
			return []model.InvoiceSummary{
				{Number: 42, GrandTotal: "35.94", LineCount: 1},
			}, nil
		},
	}

	summaries, err := svc.ListOrders(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListOrders failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Number != 42 {
		t.Errorf("summaries = %+v", summaries)
	}
	if summaries[0].GrandTotal != "35.94" {
		t.Errorf("grand total = %q, want 35.94", summaries[0].GrandTotal)
	}
}

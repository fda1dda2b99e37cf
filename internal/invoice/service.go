package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/tienda/internal/cart"
	"github.com/hitoshi/tienda/internal/metrics"
	"github.com/hitoshi/tienda/internal/model"
	"github.com/hitoshi/tienda/internal/repository"
	"github.com/shopspring/decimal"
)

// CatalogStore は決済確定が必要とするカタログ操作のインターフェース。
type CatalogStore interface {
	// FindProduct は指定IDの商品を返す。見つからない場合はnilを返す。
	FindProduct(id string) (*model.Product, error)
}

// Renderer は請求書PDFの描画インターフェース。
type Renderer interface {
	Render(inv *model.Invoice, imageURL string) ([]byte, error)
}

// MailDispatcher は請求書メール送信のインターフェース。
type MailDispatcher interface {
	SendWithAttachment(ctx context.Context, to []string, subject, body string, attachment []byte, filename string) error
}

// CheckoutResult は決済確定の結果。
type CheckoutResult struct {
	InvoiceNumber int64  `json:"invoice_number"`
	Message       string `json:"message"`
}

// Service は決済確定パイプラインのサービス層。
//
// パイプラインは厳密に逐次実行される:
// カートスナップショット取得 → 再検証 → 請求書計算 → トランザクション開始
// → 請求書・明細の記録 → カートのクリア → PDF描画 → メール送信 → コミット。
// いずれかの段階で失敗した場合は全体をロールバックする。
// 記録なしのメール送信も、メールなしの請求書記録も発生させない。
type Service struct {
	db            repository.TxBeginner
	cartRepo      repository.CartRepository
	invoiceRepo   repository.InvoiceRepository
	userRepo      repository.UserRepository
	catalog       CatalogStore
	renderer      Renderer
	mailer        MailDispatcher
	operatorEmail string
	taxRate       decimal.Decimal
	collector     metrics.MetricsCollector
	logger        *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	db repository.TxBeginner,
	cartRepo repository.CartRepository,
	invoiceRepo repository.InvoiceRepository,
	userRepo repository.UserRepository,
	catalog CatalogStore,
	renderer Renderer,
	mailer MailDispatcher,
	operatorEmail string,
	taxRate decimal.Decimal,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:            db,
		cartRepo:      cartRepo,
		invoiceRepo:   invoiceRepo,
		userRepo:      userRepo,
		catalog:       catalog,
		renderer:      renderer,
		mailer:        mailer,
		operatorEmail: operatorEmail,
		taxRate:       taxRate,
		collector:     collector,
		logger:        logger,
	}
}

// Checkout はユーザーのカートを確定し、請求書の記録・PDF生成・メール送信を行う。
// サーバー側に保存されたカートが唯一の正であり、クライアントが送る
// カート表現は参照しない。
func (s *Service) Checkout(ctx context.Context, userID string) (*CheckoutResult, error) {
	result, err := s.checkout(ctx, userID)
	if err != nil {
		s.collector.RecordCheckoutFailure(failureReason(err))
		return nil, err
	}
	s.collector.RecordCheckoutSuccess()
	return result, nil
}

func (s *Service) checkout(ctx context.Context, userID string) (*CheckoutResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	// カートスナップショット取得
	lines, err := s.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("カートの取得に失敗しました: %w", err)
	}
	if len(lines) == 0 {
		return nil, model.NewEmptyCartError()
	}

	// 再検証: 追加時から注文規則・在庫が変わっている可能性があるため、
	// 確定直前に現在の規則で数量を検証し直す。商品が消えている場合は
	// 黙って落とさずUNKNOWN_PRODUCTで失敗させる。
	products := make(map[string]*model.Product, len(lines))
	for _, line := range lines {
		product, err := s.catalog.FindProduct(line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("商品の検索に失敗しました: %w", err)
		}
		if product == nil {
			return nil, model.NewUnknownProductError(line.ProductID)
		}
		products[line.ProductID] = product

		revalidated := cart.ValidateQuantity(line.Quantity, product.Rule)
		if revalidated.Accepted <= 0 {
			return nil, model.NewUnknownProductError(line.ProductID)
		}
		line.Quantity = revalidated.Accepted
	}

	// 請求書計算（完全精度）
	inv, err := Compute(lines, products, s.taxRate)
	if err != nil {
		return nil, err
	}
	inv.Customer = model.CustomerSnapshot{
		UserID:     user.ID,
		Name:       user.Name,
		Surname:    user.Surname,
		Email:      user.Email,
		TaxID:      user.TaxID,
		Street:     user.Street,
		StreetNum:  user.StreetNum,
		PostalCode: user.PostalCode,
		City:       user.City,
	}

	// トランザクション内: 採番 → 記録 → カートのクリア → 描画 → 送信 → コミット
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	inv.Number, err = s.invoiceRepo.NextNumber(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("請求書番号の採番に失敗しました: %w", err)
	}

	if err := s.invoiceRepo.Create(ctx, tx, inv); err != nil {
		return nil, fmt.Errorf("請求書の記録に失敗しました: %w", err)
	}

	if err := s.cartRepo.DeleteByUserID(ctx, tx, userID); err != nil {
		return nil, fmt.Errorf("カートのクリアに失敗しました: %w", err)
	}

	renderStart := time.Now()
	pdfData, err := s.renderer.Render(inv, s.firstImageURL(lines, products))
	s.collector.RecordInvoiceRenderLatency(time.Since(renderStart))
	if err != nil {
		s.logger.Error("invoice render failed",
			slog.Int64("invoice_number", inv.Number),
			slog.String("error", err.Error()))
		return nil, model.NewUpstreamFailureError()
	}

	recipients := []string{user.Email, s.operatorEmail}
	subject := fmt.Sprintf("Factura nº %d - %s", inv.Number, sellerName)
	body := fmt.Sprintf(
		"Gracias por su pedido.\r\n\r\nAdjuntamos la factura nº %d por un importe total de %s EUR.\r\n",
		inv.Number, model.RoundMoney(inv.GrandTotal).StringFixed(2),
	)
	filename := fmt.Sprintf("factura_%d.pdf", inv.Number)
	if err := s.mailer.SendWithAttachment(ctx, recipients, subject, body, pdfData, filename); err != nil {
		s.collector.RecordMailFailure()
		s.logger.Error("invoice mail failed",
			slog.Int64("invoice_number", inv.Number),
			slog.String("error", err.Error()))
		return nil, model.NewUpstreamFailureError()
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	s.logger.Info("checkout completed",
		slog.String("user_id", userID),
		slog.Int64("invoice_number", inv.Number),
		slog.String("grand_total", model.RoundMoney(inv.GrandTotal).StringFixed(2)))

	return &CheckoutResult{
		InvoiceNumber: inv.Number,
		Message:       "Pedido confirmado. Le hemos enviado la factura por correo electrónico.",
	}, nil
}

// ListOrders はユーザーの請求書履歴の要約一覧を返す。
func (s *Service) ListOrders(ctx context.Context, userID string) ([]model.InvoiceSummary, error) {
	summaries, err := s.invoiceRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("注文履歴の取得に失敗しました: %w", err)
	}
	return summaries, nil
}

// firstImageURL はPDFに埋め込む商品画像のURLを返す。
// 最初のカート行の最初の画像を使用し、なければ空文字列を返す。
func (s *Service) firstImageURL(lines []*model.CartLine, products map[string]*model.Product) string {
	for _, line := range lines {
		if p := products[line.ProductID]; p != nil && len(p.Images) > 0 {
			return p.Images[0]
		}
	}
	return ""
}

// failureReason はメトリクスのラベル用に失敗理由を分類する。
func failureReason(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "internal"
}

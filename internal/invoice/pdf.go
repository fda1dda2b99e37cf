package invoice

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/tienda/internal/model"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// 請求書に印字する発行者情報。
const (
	sellerName    = "AURIDAL S.L."
	sellerAddress = "C/ Mayor 12, Local B"
	sellerCity    = "28001 Madrid"
	sellerTaxID   = "CIF B-81234567"
	sellerPhone   = "Tel. 915 550 123"
	bankFooter    = "Forma de pago: transferencia bancaria · IBAN ES66 2100 0418 4012 3456 7891"
)

// URLValidator は画像URLの事前検証関数。
type URLValidator func(rawURL string) error

// PDFRenderer は請求書を固定レイアウトのPDFとして描画する。
//
// 商品画像はカタログ由来のURLからSSRFガード付きクライアントで取得する。
// 画像の取得失敗は請求書の生成を妨げない（画像なしで描画を続行する）。
type PDFRenderer struct {
	client       *http.Client
	validateURL  URLValidator
	maxImageSize int64
	logger       *slog.Logger
}

// NewPDFRenderer はPDFRendererを生成する。
func NewPDFRenderer(client *http.Client, validateURL URLValidator, maxImageSize int64, logger *slog.Logger) *PDFRenderer {
	return &PDFRenderer{
		client:       client,
		validateURL:  validateURL,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// Render は請求書をPDFとして描画し、バイト列を返す。
// imageURLが空でなく取得に成功した場合はヘッダ右側に商品画像を埋め込む。
func (r *PDFRenderer) Render(inv *model.Invoice, imageURL string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// 発行者ブロック
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(120, 8, tr(sellerName))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{sellerAddress, sellerCity, sellerTaxID, sellerPhone} {
		pdf.Cell(120, 5, tr(line))
		pdf.Ln(5)
	}

	// 商品画像（任意・取得失敗は無視）
	if imageURL != "" {
		r.embedImage(pdf, imageURL)
	}

	// 請求書番号と日付
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(95, 7, tr(fmt.Sprintf("FACTURA Nº %d", inv.Number)))
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(95, 7, tr("Fecha: "+inv.Date.Format("02/01/2006")))
	pdf.Ln(10)

	// 顧客ブロック
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(190, 5, tr("Cliente"))
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "", 10)
	customer := inv.Customer
	pdf.Cell(190, 5, tr(customer.Name+" "+customer.Surname))
	pdf.Ln(5)
	if customer.TaxID != "" {
		pdf.Cell(190, 5, tr("NIF/CIF: "+customer.TaxID))
		pdf.Ln(5)
	}
	pdf.Cell(190, 5, tr(strings.TrimSpace(customer.Street+" "+customer.StreetNum)))
	pdf.Ln(5)
	pdf.Cell(190, 5, tr(strings.TrimSpace(customer.PostalCode+" "+customer.City)))
	pdf.Ln(10)

	// 明細テーブル
	r.renderLineTable(pdf, tr, inv)

	// 合計欄
	r.renderTotals(pdf, tr, inv)

	// 振込先フッター
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(190, 5, tr(bankFooter))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// 明細テーブルの列幅（mm、合計190）。
var lineTableWidths = []float64{28, 52, 20, 25, 25, 15, 25}

// renderLineTable は明細行のテーブルを描画する。
func (r *PDFRenderer) renderLineTable(pdf *gofpdf.Fpdf, tr func(string) string, inv *model.Invoice) {
	headers := []string{"Concepto", "Descripción", "Unidades", "Precio Un.", "Subtotal", "%IVA", "Total"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(lineTableWidths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range inv.Lines {
		percent := line.TaxRate.Mul(decimal.NewFromInt(100))
		cells := []struct {
			text  string
			align string
		}{
			{line.ProductID, "L"},
			{line.Description, "L"},
			{fmt.Sprintf("%d", line.Quantity), "R"},
			{model.RoundMoney(line.UnitPrice).StringFixed(2), "R"},
			{model.RoundMoney(line.LineSubtotal).StringFixed(2), "R"},
			{percent.StringFixed(0), "R"},
			{model.RoundMoney(line.LineTotal).StringFixed(2), "R"},
		}
		for i, c := range cells {
			pdf.CellFormat(lineTableWidths[i], 6, tr(c.text), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// renderTotals は小計・IVA・総額の3行を描画する。
// 表示値は完全精度の合計をここで初めて丸めたもの。
func (r *PDFRenderer) renderTotals(pdf *gofpdf.Fpdf, tr func(string) string, inv *model.Invoice) {
	percent := "21"
	if len(inv.Lines) > 0 {
		percent = inv.Lines[0].TaxRate.Mul(decimal.NewFromInt(100)).StringFixed(0)
	}

	rows := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Subtotal", inv.Subtotal, false},
		{fmt.Sprintf("I.V.A. %s%%", percent), inv.TaxTotal, false},
		{"TOTAL FACTURA", inv.GrandTotal, true},
	}

	pdf.Ln(4)
	for _, row := range rows {
		if row.bold {
			pdf.SetFont("Helvetica", "B", 10)
		} else {
			pdf.SetFont("Helvetica", "", 10)
		}
		pdf.CellFormat(140, 6, tr(row.label), "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, model.RoundMoney(row.value).StringFixed(2)+" EUR", "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
}

// embedImage は商品画像を取得してヘッダ右側に埋め込む。
// URL検証・取得・デコードのいずれの失敗も警告ログのみで続行する。
func (r *PDFRenderer) embedImage(pdf *gofpdf.Fpdf, imageURL string) {
	if err := r.validateURL(imageURL); err != nil {
		r.logger.Warn("invoice image URL rejected", slog.String("url", imageURL), slog.String("error", err.Error()))
		return
	}

	resp, err := r.client.Get(imageURL)
	if err != nil {
		r.logger.Warn("invoice image fetch failed", slog.String("url", imageURL), slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("invoice image fetch returned non-200", slog.String("url", imageURL), slog.Int("status", resp.StatusCode))
		return
	}

	imageType := imageTypeFor(imageURL, resp.Header.Get("Content-Type"))
	if imageType == "" {
		r.logger.Warn("invoice image has unsupported type", slog.String("url", imageURL))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxImageSize))
	if err != nil {
		r.logger.Warn("invoice image read failed", slog.String("url", imageURL), slog.String("error", err.Error()))
		return
	}

	opts := gofpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader("product-image", opts, bytes.NewReader(data))
	if pdf.Err() {
		r.logger.Warn("invoice image decode failed", slog.String("url", imageURL), slog.String("error", pdf.Error().Error()))
		pdf.ClearError()
		return
	}
	pdf.ImageOptions("product-image", 150, 12, 40, 0, false, opts, 0, "")
}

// imageTypeFor はURLとContent-Typeからgofpdfの画像種別を判定する。
// 判定できない場合は空文字列を返す。
func imageTypeFor(imageURL, contentType string) string {
	switch {
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "JPG"
	case strings.Contains(contentType, "png"):
		return "PNG"
	case strings.Contains(contentType, "gif"):
		return "GIF"
	}
	lower := strings.ToLower(imageURL)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "JPG"
	case strings.HasSuffix(lower, ".png"):
		return "PNG"
	case strings.HasSuffix(lower, ".gif"):
		return "GIF"
	}
	return ""
}

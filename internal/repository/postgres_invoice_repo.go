package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/tienda/internal/model"
	"github.com/shopspring/decimal"
)

// PostgresInvoiceRepo はPostgreSQLを使用した請求書リポジトリ。
type PostgresInvoiceRepo struct {
	db *sql.DB
}

// NewPostgresInvoiceRepo はPostgresInvoiceRepoを生成する。
func NewPostgresInvoiceRepo(db *sql.DB) *PostgresInvoiceRepo {
	return &PostgresInvoiceRepo{db: db}
}

// NextNumber は連番シーケンスから次の請求書番号を採番する。
func (r *PostgresInvoiceRepo) NextNumber(ctx context.Context, tx *sql.Tx) (int64, error) {
	var number int64
	err := tx.QueryRowContext(ctx,
		`SELECT nextval('invoice_number_seq')`,
	).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return number, nil
}

// Create は請求書と明細行を同一トランザクション内で保存する。
// 保存値は丸め済みの2桁表現。完全精度の中間値は永続化しない。
func (r *PostgresInvoiceRepo) Create(ctx context.Context, tx *sql.Tx, invoice *model.Invoice) error {
	customer, err := json.Marshal(invoice.Customer)
	if err != nil {
		return fmt.Errorf("failed to marshal customer snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO invoices (number, user_id, issued_at, customer, subtotal, tax_total, grand_total)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		invoice.Number, invoice.Customer.UserID, invoice.Date, customer,
		model.RoundMoney(invoice.Subtotal).String(),
		model.RoundMoney(invoice.TaxTotal).String(),
		model.RoundMoney(invoice.GrandTotal).String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	for i, line := range invoice.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO invoice_lines (invoice_number, line_no, product_id, description,
			 quantity, unit_price, line_subtotal, tax_rate, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			invoice.Number, i+1, line.ProductID, line.Description,
			line.Quantity,
			model.RoundMoney(line.UnitPrice).String(),
			model.RoundMoney(line.LineSubtotal).String(),
			line.TaxRate.String(),
			model.RoundMoney(line.LineTotal).String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert invoice line %d: %w", i+1, err)
		}
	}

	return nil
}

// ListByUserID はユーザーの請求書要約一覧を発行日降順で返す。
func (r *PostgresInvoiceRepo) ListByUserID(ctx context.Context, userID string) ([]model.InvoiceSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.number, i.issued_at, i.grand_total,
		        (SELECT COUNT(*) FROM invoice_lines l WHERE l.invoice_number = i.number)
		 FROM invoices i
		 WHERE i.user_id = $1
		 ORDER BY i.issued_at DESC, i.number DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var summaries []model.InvoiceSummary
	for rows.Next() {
		var s model.InvoiceSummary
		var grandTotal string
		if err := rows.Scan(&s.Number, &s.Date, &grandTotal, &s.LineCount); err != nil {
			return nil, fmt.Errorf("failed to scan invoice summary: %w", err)
		}
		d, err := decimal.NewFromString(grandTotal)
		if err != nil {
			return nil, fmt.Errorf("failed to parse invoice total: %w", err)
		}
		s.GrandTotal = d.StringFixed(2)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}

	return summaries, nil
}

// compile-time interface check
var _ InvoiceRepository = (*PostgresInvoiceRepo)(nil)

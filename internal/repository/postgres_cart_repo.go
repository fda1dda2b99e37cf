package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tienda/internal/model"
)

// PostgresCartRepo はPostgreSQLを使用したカートリポジトリ。
type PostgresCartRepo struct {
	db *sql.DB
}

// NewPostgresCartRepo はPostgresCartRepoを生成する。
func NewPostgresCartRepo(db *sql.DB) *PostgresCartRepo {
	return &PostgresCartRepo{db: db}
}

// UpsertLine はカート行を冪等にUPSERTする。
// 同一(user_id, product_id)が存在する場合は数量を置き換える（加算しない）。
// 読み取り＋書き込みの2ステップではなく単一文で行い、競合時の
// 重複行やロストアップデートを排除する。
func (r *PostgresCartRepo) UpsertLine(ctx context.Context, line *model.CartLine) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cart_lines (user_id, product_id, quantity, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`,
		line.UserID, line.ProductID, line.Quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cart line: %w", err)
	}
	return nil
}

// DeleteLine は指定商品のカート行を削除する。存在しない場合も成功とする。
func (r *PostgresCartRepo) DeleteLine(ctx context.Context, userID, productID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}

// ListByUserID はユーザーのカート行一覧をupdated_at昇順で返す。
func (r *PostgresCartRepo) ListByUserID(ctx context.Context, userID string) ([]*model.CartLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, product_id, quantity, updated_at
		 FROM cart_lines
		 WHERE user_id = $1
		 ORDER BY updated_at ASC, product_id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}
	defer rows.Close()

	var lines []*model.CartLine
	for rows.Next() {
		line := &model.CartLine{}
		if err := rows.Scan(&line.UserID, &line.ProductID, &line.Quantity, &line.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart lines: %w", err)
	}

	return lines, nil
}

// DeleteByUserID はユーザーの全カート行を削除する。
// 決済確定時にトランザクション内で呼び出される。
func (r *PostgresCartRepo) DeleteByUserID(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CartRepository = (*PostgresCartRepo)(nil)

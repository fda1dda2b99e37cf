package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tienda/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, username, name, surname, email, phone, tax_id,
	 street, street_num, postal_code, city, is_admin,
	 password_hash, force_password_change, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Name, &user.Surname, &user.Email,
		&user.Phone, &user.TaxID, &user.Street, &user.StreetNum,
		&user.PostalCode, &user.City, &user.IsAdmin,
		&user.PasswordHash, &user.ForcePasswordChange,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, name, surname, email, phone, tax_id,
		 street, street_num, postal_code, city, is_admin,
		 password_hash, force_password_change, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		user.ID, user.Username, user.Name, user.Surname, user.Email,
		user.Phone, user.TaxID, user.Street, user.StreetNum,
		user.PostalCode, user.City, user.IsAdmin,
		user.PasswordHash, user.ForcePasswordChange,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateProfile は連絡先・住所フィールドのみを更新する。
// username、password_hash、is_adminはこのメソッドでは変更しない。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET name = $2, surname = $3, email = $4, phone = $5, tax_id = $6,
		     street = $7, street_num = $8, postal_code = $9, city = $10,
		     updated_at = now()
		 WHERE id = $1`,
		user.ID, user.Name, user.Surname, user.Email, user.Phone, user.TaxID,
		user.Street, user.StreetNum, user.PostalCode, user.City,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	return nil
}

// UpdatePassword はパスワードハッシュを更新し、force_password_changeフラグを解除する。
func (r *PostgresUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = $2, force_password_change = FALSE, updated_at = now()
		 WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// CountByUsernamePrefix は指定プレフィックスで始まるユーザー名の件数を返す。
func (r *PostgresUserRepo) CountByUsernamePrefix(ctx context.Context, prefix string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username LIKE $1 || '%'`,
		prefix,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users by username prefix: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

// Package user はプロフィール管理と管理者によるユーザー作成を提供する。
package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/tienda/internal/model"
	"github.com/hitoshi/tienda/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// MailDispatcher はユーザー作成時の認証情報送付に必要なインターフェース。
type MailDispatcher interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// Profile はAPI応答用のプロフィール表現。パスワードハッシュは含めない。
type Profile struct {
	Username   string `json:"username"`
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	TaxID      string `json:"tax_id"`
	Street     string `json:"street"`
	StreetNum  string `json:"street_num"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	IsAdmin    bool   `json:"is_admin"`
}

// UpdateProfileInput はプロフィール更新の入力。
type UpdateProfileInput struct {
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	TaxID      string `json:"tax_id"`
	Street     string `json:"street"`
	StreetNum  string `json:"street_num"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// CreateUserInput は管理者によるユーザー作成の入力。
type CreateUserInput struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	IsAdmin bool   `json:"is_admin"`
}

// CreatedUser はユーザー作成の結果。生成された認証情報はメールでのみ
// 本人に届き、API応答には温存しない（ユーザー名のみ返す）。
type CreatedUser struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo      repository.UserRepository
	mailer        MailDispatcher
	operatorEmail string
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, mailer MailDispatcher, operatorEmail string) *Service {
	return &Service{
		userRepo:      userRepo,
		mailer:        mailer,
		operatorEmail: operatorEmail,
	}
}

// GetProfile はユーザーのプロフィールを返す。
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return &Profile{
		Username:   user.Username,
		Name:       user.Name,
		Surname:    user.Surname,
		Email:      user.Email,
		Phone:      user.Phone,
		TaxID:      user.TaxID,
		Street:     user.Street,
		StreetNum:  user.StreetNum,
		PostalCode: user.PostalCode,
		City:       user.City,
		IsAdmin:    user.IsAdmin,
	}, nil
}

// UpdateProfile は連絡先・住所フィールドを更新する。
// ユーザー名と権限はこの操作では変更できない。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) error {
	if input.Name == "" || input.Surname == "" || input.Email == "" {
		return model.NewInvalidRequestError("nombre, apellidos y correo son obligatorios")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	user.Name = input.Name
	user.Surname = input.Surname
	user.Email = input.Email
	user.Phone = input.Phone
	user.TaxID = input.TaxID
	user.Street = input.Street
	user.StreetNum = input.StreetNum
	user.PostalCode = input.PostalCode
	user.City = input.City

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

// minPasswordLength はパスワードの最小長。
const minPasswordLength = 8

// ChangePassword はパスワードを変更し、初回ログイン時の強制変更フラグを解除する。
func (s *Service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return model.NewInvalidRequestError("la contraseña debe tener al menos 8 caracteres")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// CreateUser は管理者操作で新規ユーザーを作成する。
// ユーザー名は nombre.apellido.NNNN 形式で採番し、8文字の仮パスワードを
// 生成してbcryptハッシュで保存する。仮パスワードは本人と運用担当の
// メールにのみ送付し、永続化も応答もしない。作成されたユーザーは
// 初回ログイン時にパスワード変更を要求される。
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*CreatedUser, error) {
	if input.Name == "" || input.Surname == "" || input.Email == "" {
		return nil, model.NewInvalidRequestError("nombre, apellidos y correo son obligatorios")
	}

	username, err := s.generateUsername(ctx, input.Name, input.Surname)
	if err != nil {
		return nil, err
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate temporary password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:                  uuid.New().String(),
		Username:            username,
		Name:                input.Name,
		Surname:             input.Surname,
		Email:               input.Email,
		Phone:               input.Phone,
		IsAdmin:             input.IsAdmin,
		PasswordHash:        string(hash),
		ForcePasswordChange: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	subject := "Acceso a la tienda - credenciales"
	body := fmt.Sprintf(
		"Hola %s,\r\n\r\nTu cuenta ha sido creada.\r\n\r\nUsuario: %s\r\nContraseña temporal: %s\r\n\r\nDeberás cambiar la contraseña en tu primer inicio de sesión.\r\n",
		input.Name, username, tempPassword,
	)
	if err := s.mailer.Send(ctx, []string{input.Email, s.operatorEmail}, subject, body); err != nil {
		// ユーザーは作成済み。メール失敗はログに残し、運用側で再送する。
		slog.Error("failed to send credentials mail",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()))
	}

	slog.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("username", username),
		slog.Bool("is_admin", input.IsAdmin))

	return &CreatedUser{UserID: user.ID, Username: username}, nil
}

// generateUsername は nombre.apellido.NNNN 形式のユーザー名を採番する。
// NNNNは同一プレフィックスの既存件数+1を4桁ゼロ埋めしたもの。
func (s *Service) generateUsername(ctx context.Context, name, surname string) (string, error) {
	prefix := normalizeNamePart(name) + "." + normalizeNamePart(surname) + "."
	count, err := s.userRepo.CountByUsernamePrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to count existing usernames: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

// accentReplacer はユーザー名に使えないスペイン語のアクセント付き文字を
// ASCIIに写像する。
var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	"ü", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u",
	"Ü", "u", "Ñ", "n",
)

// normalizeNamePart は名前をユーザー名の構成要素に正規化する。
// 小文字化・アクセント除去の上、英数字以外を取り除く。
func normalizeNamePart(part string) string {
	lowered := strings.ToLower(accentReplacer.Replace(part))
	var b strings.Builder
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tempPasswordCharset は仮パスワードの文字集合。
// 紛らわしい文字（l, 1, O, 0 等）はメール転記時の誤読を避けるため除外する。
const tempPasswordCharset = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateTempPassword は8文字の仮パスワードを暗号的乱数で生成する。
func generateTempPassword() (string, error) {
	b := make([]byte, minPasswordLength)
	max := big.NewInt(int64(len(tempPasswordCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = tempPasswordCharset[n.Int64()]
	}
	return string(b), nil
}

package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/tienda/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	findByIDFunc              func(ctx context.Context, id string) (*model.User, error)
	createFunc                func(ctx context.Context, user *model.User) error
	updateProfileFunc         func(ctx context.Context, user *model.User) error
	updatePasswordFunc        func(ctx context.Context, userID, passwordHash string) error
	countByUsernamePrefixFunc func(ctx context.Context, prefix string) (int, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return m.findByIDFunc(ctx, id)
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.createFunc(ctx, user)
}
func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	return m.updateProfileFunc(ctx, user)
}
func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return m.updatePasswordFunc(ctx, userID, passwordHash)
}
func (m *mockUserRepo) CountByUsernamePrefix(ctx context.Context, prefix string) (int, error) {
	return m.countByUsernamePrefixFunc(ctx, prefix)
}

type mockMailer struct {
	sendFunc func(ctx context.Context, to []string, subject, body string) error
}

func (m *mockMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, to, subject, body)
	}
	return nil
}

// GetProfileがパスワードハッシュを含まない表現を返すことを検証
func TestService_GetProfile(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				Username:     "maria.garcia.0001",
				Name:         "María",
				Surname:      "García",
				Email:        "maria@example.com",
				PasswordHash: "$2a$10$secreto",
			}, nil
		},
	}

	svc := NewService(repo, &mockMailer{}, "pedidos@auridal.example")
	profile, err := svc.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Username != "maria.garcia.0001" || profile.Name != "María" {
		t.Errorf("profile = %+v", profile)
	}
}

// 存在しないユーザーのGetProfileはUSER_NOT_FOUNDになることを検証
func TestService_GetProfile_NotFound(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	svc := NewService(repo, &mockMailer{}, "pedidos@auridal.example")
	_, err := svc.GetProfile(context.Background(), "no-existe")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// UpdateProfileが連絡先フィールドのみを書き換えることを検証
func TestService_UpdateProfile(t *testing.T) {
	var updated *model.User
	repo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:       "user-1",
				Username: "maria.garcia.0001",
				IsAdmin:  false,
			}, nil
		},
		updateProfileFunc: func(ctx context.Context, user *model.User) error {
			updated = user
			return nil
		},
	}

	svc := NewService(repo, &mockMailer{}, "pedidos@auridal.example")
	err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{
		Name:    "María José",
		Surname: "García",
		Email:   "mariajose@example.com",
		City:    "Sevilla",
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if updated == nil {
		t.Fatal("expected repository update")
	}
	if updated.Name != "María José" || updated.City != "Sevilla" {
		t.Errorf("updated = %+v", updated)
	}
	// ユーザー名は変更されない
	if updated.Username != "maria.garcia.0001" {
		t.Errorf("username changed to %q", updated.Username)
	}
}

// 必須フィールドが欠けたUpdateProfileはINVALID_REQUESTになることを検証
func TestService_UpdateProfile_MissingFields(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockMailer{}, "pedidos@auridal.example")
	err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileInput{Name: "María"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

// ChangePasswordがbcryptハッシュで保存することを検証
func TestService_ChangePassword(t *testing.T) {
	var savedHash string
	repo := &mockUserRepo{
		updatePasswordFunc: func(ctx context.Context, userID, passwordHash string) error {
			savedHash = passwordHash
			return nil
		},
	}

	svc := NewService(repo, &mockMailer{}, "pedidos@auridal.example")
	if err := svc.ChangePassword(context.Background(), "user-1", "nueva-contraseña"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(savedHash), []byte("nueva-contraseña")); err != nil {
		t.Errorf("saved hash does not match password: %v", err)
	}
}

// 短すぎるパスワードは拒否されることを検証
func TestService_ChangePassword_TooShort(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockMailer{}, "pedidos@auridal.example")
	err := svc.ChangePassword(context.Background(), "user-1", "corta")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

// CreateUserのユーザー名採番・仮パスワード・メール送付を検証
func TestService_CreateUser(t *testing.T) {
	var created *model.User
	var mailTo []string
	var mailBody string

	repo := &mockUserRepo{
		countByUsernamePrefixFunc: func(ctx context.Context, prefix string) (int, error) {
			if prefix != "maria.garcia." {
				t.Errorf("prefix = %q, want maria.garcia.", prefix)
			}
			return 2, nil
		},
		createFunc: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	mailer := &mockMailer{
		sendFunc: func(ctx context.Context, to []string, subject, body string) error {
			mailTo = to
			mailBody = body
			return nil
		},
	}

	svc := NewService(repo, mailer, "pedidos@auridal.example")
	result, err := svc.CreateUser(context.Background(), CreateUserInput{
		Name:    "María",
		Surname: "García",
		Email:   "maria@example.com",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// 既存2件 → 0003
	if result.Username != "maria.garcia.0003" {
		t.Errorf("username = %q, want maria.garcia.0003", result.Username)
	}
	if created == nil {
		t.Fatal("expected user to be persisted")
	}
	if !created.ForcePasswordChange {
		t.Error("expected force_password_change to be set")
	}
	if created.PasswordHash == "" || strings.Contains(mailBody, created.PasswordHash) {
		t.Error("expected bcrypt hash distinct from mailed password")
	}

	// メールは本人と運用担当の両方に届く
	if len(mailTo) != 2 || mailTo[0] != "maria@example.com" || mailTo[1] != "pedidos@auridal.example" {
		t.Errorf("mail recipients = %v", mailTo)
	}
	if !strings.Contains(mailBody, result.Username) {
		t.Error("expected credentials mail to contain username")
	}

	// メール本文の仮パスワードがハッシュと一致することを確認
	lines := strings.Split(mailBody, "\r\n")
	var tempPassword string
	for _, line := range lines {
		if strings.HasPrefix(line, "Contraseña temporal: ") {
			tempPassword = strings.TrimPrefix(line, "Contraseña temporal: ")
		}
	}
	if len(tempPassword) != 8 {
		t.Fatalf("temp password length = %d, want 8", len(tempPassword))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte(tempPassword)); err != nil {
		t.Errorf("mailed password does not match stored hash: %v", err)
	}
}

// normalizeNamePartのアクセント除去・小文字化を検証
func TestNormalizeNamePart(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"María", "maria"},
		{"GARCÍA", "garcia"},
		{"Muñoz", "munoz"},
		{"De la Fuente", "delafuente"},
		{"José-Luis", "joseluis"},
	}
	for _, tt := range tests {
		if got := normalizeNamePart(tt.input); got != tt.want {
			t.Errorf("normalizeNamePart(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

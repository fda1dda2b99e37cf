// Package model はドメインモデルを定義する。
package model

import "time"

// User はストアの利用ユーザーを表す。
// 管理者による作成のみを想定し、スコープ内では物理削除しない。
type User struct {
	ID                  string
	Username            string
	Name                string
	Surname             string
	Email               string
	Phone               string
	TaxID               string // NIF/CIF
	Street              string
	StreetNum           string
	PostalCode          string
	City                string
	IsAdmin             bool
	PasswordHash        string
	ForcePasswordChange bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AuthContext はリクエスト単位の認証済みコンテキストを表す。
// セッションプロバイダから1リクエストにつき1回構築し、
// 認証情報を必要とする全コンポーネントに明示的に渡す。
type AuthContext struct {
	UserID   string
	IsAdmin  bool
	IssuedAt time.Time
}

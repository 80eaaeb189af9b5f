package user

import (
	"time"

	"github.com/ogurasousui/employee-management/internal/core/access"
)

// User はログイン可能な利用者アカウントです。
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Role         access.Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal は認証済み主体としての表現を返します。
func (u *User) Principal() access.Principal {
	return access.Principal{UserID: u.ID, Email: u.Email, Role: u.Role, Authenticated: true}
}

// TokenPair はアクセストークンとリフレッシュトークンの組です。
type TokenPair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RefreshClaims はリフレッシュトークンから取り出した情報です。
type RefreshClaims struct {
	TokenID   string
	UserID    string
	ExpiresAt time.Time
}

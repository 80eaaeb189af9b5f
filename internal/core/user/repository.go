package user

import (
	"context"
	"time"
)

// Repository はユーザーエンティティの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	// FindByEmail は小文字比較でユーザーを取得します。
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// TokenBlacklist は失効済みリフレッシュトークンを管理します。
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// PasswordHasher はパスワードのハッシュ化と照合を行います。
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer はトークンの発行と検証を行います。
type TokenIssuer interface {
	IssuePair(u *User) (*TokenPair, error)
	IssueAccess(u *User) (string, time.Time, error)
	ParseRefresh(token string) (*RefreshClaims, error)
}

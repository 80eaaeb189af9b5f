package postgres

import (
	"context"
	"time"

	pgdb "github.com/ogurasousui/employee-management/internal/platform/db/postgres"
)

// TokenBlacklistRepository は失効済みリフレッシュトークンを PostgreSQL に保存します。
type TokenBlacklistRepository struct {
	pool pgdb.Queryer
}

// NewTokenBlacklistRepository は TokenBlacklistRepository を生成します。
func NewTokenBlacklistRepository(pool pgdb.Queryer) *TokenBlacklistRepository {
	return &TokenBlacklistRepository{pool: pool}
}

// Revoke はトークン ID を失効済みとして記録します。記録済みなら何もしません。
func (r *TokenBlacklistRepository) Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO token_blacklist (token_id, user_id, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (token_id) DO NOTHING
    `, tokenID, userID, expiresAt)
	return err
}

// IsRevoked はトークン ID が失効済みか判定します。
func (r *TokenBlacklistRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if !validUUID(tokenID) {
		return true, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var revoked bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE token_id = $1)`, tokenID).Scan(&revoked); err != nil {
		return false, err
	}
	return revoked, nil
}

// PurgeExpired は期限切れの失効記録を削除し、削除件数を返します。
func (r *TokenBlacklistRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM token_blacklist WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

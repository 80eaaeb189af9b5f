package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/employee-management/internal/core/access"
	"github.com/ogurasousui/employee-management/internal/core/user"
	pgdb "github.com/ogurasousui/employee-management/internal/platform/db/postgres"
)

const (
	userEmailConstraint    = "users_email_key"
	userUsernameConstraint = "users_username_key"
)

// UserRepository は PostgreSQL を利用したユーザー永続化の実装です。
type UserRepository struct {
	pool pgdb.Queryer
}

// NewUserRepository は UserRepository を生成します。
func NewUserRepository(pool pgdb.Queryer) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create はユーザーを新規作成します。
func (r *UserRepository) Create(ctx context.Context, u *user.User) (*user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO users (username, email, first_name, last_name, role, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+userColumns,
		u.Username, u.Email, u.FirstName, u.LastName, string(u.Role), u.PasswordHash, u.CreatedAt, u.UpdatedAt)

	created, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return created, nil
}

// Update はユーザーのプロフィールを更新します。
func (r *UserRepository) Update(ctx context.Context, u *user.User) (*user.User, error) {
	if !validUUID(u.ID) {
		return nil, user.ErrUserNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE users
           SET username = $1,
               first_name = $2,
               last_name = $3,
               updated_at = $4
         WHERE id = $5
        RETURNING `+userColumns,
		u.Username, u.FirstName, u.LastName, u.UpdatedAt, u.ID)

	updated, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return updated, nil
}

// FindByID は ID でユーザーを取得します。
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	if !validUUID(id) {
		return nil, user.ErrUserNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 LIMIT 1`, id)

	found, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return found, nil
}

// FindByEmail はメールアドレスでユーザーを取得します。
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1) LIMIT 1`, email)

	found, err := scanUser(row)
	if err != nil {
		return nil, translateUserPgError(err)
	}
	return found, nil
}

const userColumns = `id, username, email, first_name, last_name, role, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	var (
		u    user.User
		role string
	)

	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}

	u.Role = access.Role(role)
	return &u, nil
}

func translateUserPgError(err error) error {
	if pgErr, ok := asPgError(err); ok && pgErr.Code == uniqueViolationCode {
		switch pgErr.ConstraintName {
		case userEmailConstraint:
			return user.ErrEmailAlreadyExists
		case userUsernameConstraint:
			return user.ErrUsernameAlreadyExists
		}
	}
	return err
}

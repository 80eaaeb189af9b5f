package access

import (
	"context"
	"errors"
	"fmt"
)

// Operation は操作の種別です。
type Operation string

const (
	OperationList   Operation = "list"
	OperationGet    Operation = "get"
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// IsRead は参照系操作か判定します。
func (o Operation) IsRead() bool {
	return o == OperationList || o == OperationGet
}

// Principal はリクエストを行う認証主体です。
type Principal struct {
	UserID        string
	Email         string
	Role          Role
	Authenticated bool
}

type principalContextKey struct{}

// WithPrincipal はコンテキストに主体を格納します。
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext はコンテキストから主体を取り出します。未設定なら未認証主体を返します。
func PrincipalFromContext(ctx context.Context) Principal {
	if ctx == nil {
		return Principal{}
	}
	p, _ := ctx.Value(principalContextKey{}).(Principal)
	return p
}

// minWriteRole は会社・部署・従業員への書き込みに必要な最低ロールです。
const minWriteRole = RoleManager

// Authorize は会社・部署・従業員リソースへの操作可否を判定します。
func Authorize(p Principal, op Operation) error {
	if !p.Authenticated || !p.Role.Valid() {
		return ErrUnauthenticated
	}
	if op.IsRead() {
		return nil
	}
	if p.Role.AtLeast(minWriteRole) {
		return nil
	}
	return fmt.Errorf("%s requires manager role or above: %w", op, ErrForbidden)
}

// AuthorizeOwned は利用者所有リソースへの操作可否を判定します。
func AuthorizeOwned(p Principal, op Operation, ownerID string) error {
	err := Authorize(p, op)
	if err == nil || errors.Is(err, ErrUnauthenticated) {
		return err
	}
	if ownerID != "" && p.UserID == ownerID {
		return nil
	}
	return err
}

// AuthorizeContext はコンテキストの主体で Authorize を行います。
func AuthorizeContext(ctx context.Context, op Operation) error {
	return Authorize(PrincipalFromContext(ctx), op)
}

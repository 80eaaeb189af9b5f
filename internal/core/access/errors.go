package access

import "errors"

var (
	// ErrUnauthenticated は認証済み主体がいない場合に返却されます。
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden は権限不足の場合に返却されます。
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidRole は未定義ロールの場合に返却されます。
	ErrInvalidRole = errors.New("invalid role")
)

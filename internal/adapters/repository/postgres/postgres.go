package postgres

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// validUUID は ID が UUID 形式かを判定します。形式外の ID は存在しないものとして扱います。
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullableUUID(id string) any {
	if !validUUID(id) {
		return nil
	}
	return id
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// placeholder は次の引数位置のプレースホルダを返します。
func placeholder(args []any) string {
	return "$" + strconv.Itoa(len(args)+1)
}

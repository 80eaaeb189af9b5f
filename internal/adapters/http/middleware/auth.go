package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/core/access"
	"go.uber.org/zap"
)

// TokenParser はアクセストークンを検証して認証主体を返します。
type TokenParser interface {
	ParseAccess(token string) (access.Principal, error)
}

// Authenticate は Bearer トークンを検証し、認証主体をリクエストコンテキストに格納します。
// required が false の場合、Authorization ヘッダーのないリクエストは匿名のまま通します。
func Authenticate(parser TokenParser, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				if required {
					return access.ErrUnauthenticated
				}
				return next(c)
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
				Logger(c).Warn("invalid authorization header format")
				return access.ErrUnauthenticated
			}

			principal, err := parser.ParseAccess(strings.TrimSpace(token))
			if err != nil {
				Logger(c).Warn("access token rejected", zap.Error(err))
				return access.ErrUnauthenticated
			}

			req := c.Request()
			c.SetRequest(req.WithContext(access.WithPrincipal(req.Context(), principal)))
			c.Set(loggerKey, Logger(c).With(zap.String("user_id", principal.UserID)))

			return next(c)
		}
	}
}

// writeOperations は書き込みメソッドと操作種別の対応です。
var writeOperations = map[string]access.Operation{
	http.MethodPost:   access.OperationCreate,
	http.MethodPut:    access.OperationUpdate,
	http.MethodPatch:  access.OperationUpdate,
	http.MethodDelete: access.OperationDelete,
}

// AuthorizeWrites は書き込みリクエストの権限をリクエストボディの解析より前に判定します。
// 参照系リクエストはそのまま通し、ユースケース側の判定に任せます。
func AuthorizeWrites() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			op, ok := writeOperations[c.Request().Method]
			if !ok {
				return next(c)
			}
			if err := access.AuthorizeContext(c.Request().Context(), op); err != nil {
				return err
			}
			return next(c)
		}
	}
}

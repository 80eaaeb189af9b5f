package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	// HeaderRequestID はリクエスト ID を運ぶヘッダーです。
	HeaderRequestID = "X-Request-ID"

	requestIDKey = "request_id"
	loggerKey    = "logger"
)

// RequestID はリクエスト ID を採番し、ID 付きロガーを echo コンテキストに格納します。
// クライアントが UUID 形式の ID を送ってきた場合はそれを引き継ぎます。
func RequestID(base *zap.Logger) echo.MiddlewareFunc {
	if base == nil {
		base = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(HeaderRequestID)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}

			c.Request().Header.Set(HeaderRequestID, requestID)
			c.Response().Header().Set(HeaderRequestID, requestID)
			c.Set(requestIDKey, requestID)
			c.Set(loggerKey, base.With(zap.String("request_id", requestID)))

			return next(c)
		}
	}
}

// RequestLogger はリクエストの完了をログに出力します。
// エラーはここでレスポンスに書き出し、外側のミドルウェアには確定したステータスだけが見えます。
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
			}
			log := Logger(c)
			switch {
			case status >= 500:
				log.Error("request completed", append(fields, zap.Error(err))...)
			case status >= 400:
				log.Warn("request completed", fields...)
			default:
				log.Info("request completed", fields...)
			}
			return nil
		}
	}
}

// Logger はリクエストスコープのロガーを返します。未設定なら Nop ロガーです。
func Logger(c echo.Context) *zap.Logger {
	if log, ok := c.Get(loggerKey).(*zap.Logger); ok && log != nil {
		return log
	}
	return zap.NewNop()
}

// RequestIDFrom はリクエスト ID を返します。
func RequestIDFrom(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

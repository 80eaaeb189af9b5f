package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/adapters/http/middleware"
	"go.uber.org/zap"
)

// HealthChecker は依存先の疎通を確認します。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
}

// Health は依存先の疎通結果を返すハンドラを生成します。checker が nil なら常に ok です。
func Health(checker HealthChecker) echo.HandlerFunc {
	return func(c echo.Context) error {
		if checker != nil {
			if err := checker.Ping(c.Request().Context()); err != nil {
				middleware.Logger(c).Warn("health check failed", zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
}

package logger

import (
	"fmt"

	"github.com/ogurasousui/employee-management/internal/platform/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New は設定に応じた zap.Logger を構築します。production は JSON、それ以外はコンソール出力です。
func New(cfg config.LogConfig, service string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger: parse level %q: %w", cfg.Level, err)
	}

	var zcfg zap.Config
	if cfg.Environment == "production" {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	l, err := zcfg.Build(zap.Fields(
		zap.String("service", service),
		zap.String("environment", cfg.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("logger: build: %w", err)
	}
	return l, nil
}

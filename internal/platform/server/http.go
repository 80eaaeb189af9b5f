package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HTTPServer は REST API サーバーのライフサイクルを管理します。
type HTTPServer struct {
	listenAddr      string
	shutdownTimeout time.Duration
	echo            *echo.Echo
	logger          *zap.Logger
}

// NewHTTPServer は echo インスタンスを指定アドレスで公開する HTTPServer を生成します。
func NewHTTPServer(listenAddr string, shutdownTimeout time.Duration, e *echo.Echo, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		listenAddr:      listenAddr,
		shutdownTimeout: shutdownTimeout,
		echo:            e,
		logger:          logger.Named("http"),
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると処理中のリクエストを待って停止します。
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", s.listenAddr))
		if err := s.echo.Start(s.listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve HTTP: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown HTTP: %w", err)
	}
	return <-errCh
}

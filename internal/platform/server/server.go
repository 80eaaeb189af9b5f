package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName はヘルスチェックで報告するサービス名です。
const ServiceName = "employee_management.v1.EmployeeManagementService"

const defaultProbeInterval = 10 * time.Second

// Pinger は依存先の疎通を確認します。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server は運用向け gRPC ヘルスサーバーのライフサイクルを管理します。
type Server struct {
	listenAddr    string
	grpcServer    *grpc.Server
	health        *health.Server
	probe         Pinger
	probeInterval time.Duration
	logger        *zap.Logger
}

// New は指定されたアドレスで待ち受ける gRPC サーバーを構築します。probe の結果が SERVING / NOT_SERVING に反映されます。
func New(listenAddr string, probe Pinger, logger *zap.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := grpc.NewServer(opts...)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)

	return &Server{
		listenAddr:    listenAddr,
		grpcServer:    srv,
		health:        healthSrv,
		probe:         probe,
		probeInterval: defaultProbeInterval,
		logger:        logger.Named("grpc"),
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}

	s.refresh(ctx)
	go s.probeLoop(ctx)

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}()

	s.logger.Info("gRPC health server listening", zap.String("addr", s.listenAddr))
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return nil
}

// GracefulStop はサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

func (s *Server) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// refresh は probe を 1 回実行し、ヘルス状態を更新します。
func (s *Server) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if s.probe != nil {
		probeCtx, cancel := context.WithTimeout(ctx, s.probeInterval/2)
		err := s.probe.Ping(probeCtx)
		cancel()
		if err != nil {
			s.logger.Warn("health probe failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

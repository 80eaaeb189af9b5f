package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/ogurasousui/employee-management/internal/adapters/events"
	"github.com/ogurasousui/employee-management/internal/adapters/http/handler"
	"github.com/ogurasousui/employee-management/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-management/internal/core/company"
	"github.com/ogurasousui/employee-management/internal/core/department"
	"github.com/ogurasousui/employee-management/internal/core/employee"
	"github.com/ogurasousui/employee-management/internal/core/event"
	"github.com/ogurasousui/employee-management/internal/core/user"
	"github.com/ogurasousui/employee-management/internal/platform/auth"
	"github.com/ogurasousui/employee-management/internal/platform/clock"
	"github.com/ogurasousui/employee-management/internal/platform/config"
	pg "github.com/ogurasousui/employee-management/internal/platform/db/postgres"
	"github.com/ogurasousui/employee-management/internal/platform/logger"
	"github.com/ogurasousui/employee-management/internal/platform/metrics"
	"github.com/ogurasousui/employee-management/internal/platform/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName        = "employee-management"
	tokenPurgeInterval = time.Hour
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := config.LoadEnvFiles(".env", ".env.local"); err != nil {
		log.Fatalf("failed to load env files: %v", err)
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log, serviceName)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped with error", zap.Error(err))
	}
	zl.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database, zl)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	m := metrics.New(serviceName)
	clk := clock.New(cfg.App.Location)
	zl.Info("reference calendar configured",
		zap.String("time_zone", clk.Location().String()),
		zap.String("today", clk.Now().Format(time.DateOnly)),
	)
	txManager := pg.NewTransactionManager(dbPool, zl)

	var publisher event.Publisher = event.NopPublisher{}
	if cfg.Kafka.Enabled() {
		producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, zl, m)
		defer func() {
			if err := producer.Close(); err != nil {
				zl.Warn("failed to close kafka producer", zap.Error(err))
			}
		}()
		publisher = producer
		zl.Info("domain events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	companyRepo := postgres.NewCompanyRepository(dbPool)
	departmentRepo := postgres.NewDepartmentRepository(dbPool)
	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	userRepo := postgres.NewUserRepository(dbPool)
	blacklistRepo := postgres.NewTokenBlacklistRepository(dbPool)

	tokens := auth.NewTokenManager(cfg.Auth, clk)

	companySvc := company.NewService(companyRepo, clk, txManager, publisher, zl)
	departmentSvc := department.NewService(departmentRepo, clk, txManager, publisher, zl)
	employeeSvc := employee.NewService(employeeRepo, clk, txManager, publisher, zl)
	userSvc := user.NewService(userRepo, blacklistRepo, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens,
		user.WithClock(clk),
		user.WithPublisher(publisher),
		user.WithLogger(zl),
		user.WithRoleSignup(cfg.Auth.AllowRoleSignup),
	)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         zl,
		Metrics:        m,
		Tokens:         tokens,
		Health:         dbPool,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Accounts:       handler.NewAccountHandler(userSvc),
		Companies:      handler.NewCompanyHandler(companySvc, departmentSvc),
		Departments:    handler.NewDepartmentHandler(departmentSvc),
		Employees:      handler.NewEmployeeHandler(employeeSvc),
	})

	httpServer := server.NewHTTPServer(cfg.HTTP.ListenAddr, cfg.HTTP.ShutdownTimeout, router, zl)
	grpcServer := server.New(cfg.Server.ListenAddr, dbPool, zl)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpServer.Run(gctx) })
	g.Go(func() error { return grpcServer.Run(gctx) })
	g.Go(func() error {
		purgeRevokedTokens(gctx, blacklistRepo, clk, zl)
		return nil
	})

	return g.Wait()
}

// purgeRevokedTokens は期限切れの失効トークンを定期的に削除します。
func purgeRevokedTokens(ctx context.Context, repo *postgres.TokenBlacklistRepository, clk clock.Clock, zl *zap.Logger) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := repo.PurgeExpired(ctx, clk.Now())
			if err != nil {
				zl.Warn("failed to purge revoked tokens", zap.Error(err))
				continue
			}
			if purged > 0 {
				zl.Info("purged revoked tokens", zap.Int64("count", purged))
			}
		}
	}
}

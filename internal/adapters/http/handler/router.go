package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/ogurasousui/employee-management/internal/adapters/http/middleware"
	"go.uber.org/zap"
)

// MetricsCollector は HTTP 層が利用するメトリクスです。
type MetricsCollector interface {
	RejectionObserver
	Middleware() echo.MiddlewareFunc
	Handler() http.Handler
}

// RouterConfig はルーターの構築に必要な依存です。
type RouterConfig struct {
	Logger         *zap.Logger
	Metrics        MetricsCollector
	Tokens         middleware.TokenParser
	Health         HealthChecker
	AllowedOrigins []string

	Accounts    *AccountHandler
	Companies   *CompanyHandler
	Departments *DepartmentHandler
	Employees   *EmployeeHandler
}

// NewRouter は API のルーティングとミドルウェアを構成した echo インスタンスを返します。
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()

	var observer RejectionObserver
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}
	e.HTTPErrorHandler = NewErrorHandler(observer)

	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(middleware.RequestID(cfg.Logger))
	if cfg.Metrics != nil {
		e.Use(cfg.Metrics.Middleware())
	}
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Recover())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:  cfg.AllowedOrigins,
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, middleware.HeaderRequestID},
			ExposeHeaders: []string{middleware.HeaderRequestID},
		}))
	}

	e.GET("/health", Health(cfg.Health))
	if cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))
	}

	requireAuth := middleware.Authenticate(cfg.Tokens, true)
	optionalAuth := middleware.Authenticate(cfg.Tokens, false)

	if h := cfg.Accounts; h != nil {
		accounts := e.Group("/api/accounts")
		accounts.POST("/signup", h.SignUp, optionalAuth)
		accounts.POST("/login", h.Login)
		accounts.POST("/token/refresh", h.Refresh)
		accounts.POST("/logout", h.Logout, requireAuth)
		accounts.GET("/me", h.Me, requireAuth)
		accounts.GET("/users/:id", h.GetUser, requireAuth)
		accounts.PATCH("/users/:id", h.UpdateProfile, requireAuth)
	}

	core := e.Group("/api/core", requireAuth, middleware.AuthorizeWrites())

	if h := cfg.Companies; h != nil {
		core.GET("/companies", h.ListCompanies)
		core.POST("/companies", h.CreateCompany)
		core.GET("/companies/:id", h.GetCompany)
		core.PUT("/companies/:id", h.ReplaceCompany)
		core.PATCH("/companies/:id", h.PatchCompany)
		core.DELETE("/companies/:id", h.DeleteCompany)
		core.GET("/companies/:id/departments", h.ListCompanyDepartments)
	}

	if h := cfg.Departments; h != nil {
		core.GET("/departments", h.ListDepartments)
		core.POST("/departments", h.CreateDepartment)
		core.GET("/departments/:id", h.GetDepartment)
		core.PUT("/departments/:id", h.ReplaceDepartment)
		core.PATCH("/departments/:id", h.PatchDepartment)
		core.DELETE("/departments/:id", h.DeleteDepartment)
	}

	if h := cfg.Employees; h != nil {
		core.GET("/employees", h.ListEmployees)
		core.POST("/employees", h.CreateEmployee)
		core.GET("/employees/report", h.HiredReport)
		core.GET("/employees/:id", h.GetEmployee)
		core.PUT("/employees/:id", h.ReplaceEmployee)
		core.PATCH("/employees/:id", h.PatchEmployee)
		core.DELETE("/employees/:id", h.DeleteEmployee)
	}

	return e
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/adapters/http/middleware"
	"github.com/ogurasousui/employee-management/internal/core/access"
	"github.com/ogurasousui/employee-management/internal/core/validation"
	"github.com/ogurasousui/employee-management/internal/platform/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHealth struct {
	err error
}

func (s stubHealth) Ping(context.Context) error {
	return s.err
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	e := NewRouter(RouterConfig{Logger: zap.NewNop(), Tokens: defaultTokens(), Health: stubHealth{}})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))

	e = NewRouter(RouterConfig{Logger: zap.NewNop(), Tokens: defaultTokens(), Health: stubHealth{err: errors.New("db down")}})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_MetricsAndRejections(t *testing.T) {
	t.Parallel()

	m := metrics.New("employee-management-test")
	api := newTestAPI(t)
	e := NewRouter(RouterConfig{
		Logger:    zap.NewNop(),
		Metrics:   m,
		Tokens:    defaultTokens(),
		Companies: NewCompanyHandler(api.companies, api.departments),
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/core/companies", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `request_rejections_total{category="UNAUTHENTICATED"`)
	assert.Contains(t, rec.Body.String(), `path="/api/core/companies"`)
	assert.Contains(t, rec.Body.String(), `status="401"`)

	count, err := testutil.GatherAndCount(m.Registry(), "request_rejections_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRouter_UnknownRoute(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/unknown", "", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeBody[ErrorResponse](t, rec).Error)
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	e := NewRouter(RouterConfig{Logger: zap.NewNop(), Tokens: defaultTokens()})
	e.GET("/boom", func(echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, CodeInternal, body.Error)
	assert.Equal(t, "Internal server error.", body.Message)
}

func TestRouter_CORS(t *testing.T) {
	t.Parallel()

	e := NewRouter(RouterConfig{Logger: zap.NewNop(), Tokens: defaultTokens(), AllowedOrigins: []string{"https://admin.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderOrigin, "https://admin.example.com")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "https://admin.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestToErrorResponse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "field validation", err: validation.Required("company", "Company is required."), status: http.StatusBadRequest, code: CodeFieldValidation},
		{name: "conflict", err: validation.Conflict("email_address", "taken"), status: http.StatusConflict, code: CodeConflict},
		{name: "illegal transition", err: validation.IllegalTransition("employee_status", "no"), status: http.StatusUnprocessableEntity, code: CodeIllegalTransition},
		{name: "forbidden", err: access.ErrForbidden, status: http.StatusForbidden, code: CodeForbidden},
		{name: "unauthenticated", err: access.ErrUnauthenticated, status: http.StatusUnauthorized, code: CodeUnauthenticated},
		{name: "http 405", err: echo.ErrMethodNotAllowed, status: http.StatusMethodNotAllowed, code: "METHOD_NOT_ALLOWED"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, code: CodeInternal},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			status, body := toErrorResponse(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Error)
		})
	}
}

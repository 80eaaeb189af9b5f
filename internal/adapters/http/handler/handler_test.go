package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/core/access"
	"github.com/ogurasousui/employee-management/internal/core/company"
	"github.com/ogurasousui/employee-management/internal/core/department"
	"github.com/ogurasousui/employee-management/internal/core/employee"
	"github.com/ogurasousui/employee-management/internal/core/user"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	managerToken  = "manager-token"
	employeeToken = "employee-token"
)

type fakeTokens map[string]access.Principal

func (f fakeTokens) ParseAccess(token string) (access.Principal, error) {
	p, ok := f[token]
	if !ok {
		return access.Principal{}, errors.New("unknown token")
	}
	return p, nil
}

func defaultTokens() fakeTokens {
	return fakeTokens{
		managerToken:  {UserID: "manager-1", Email: "boss@example.com", Role: access.RoleManager, Authenticated: true},
		employeeToken: {UserID: "employee-1", Email: "staff@example.com", Role: access.RoleEmployee, Authenticated: true},
	}
}

// authorizeWrite は実サービスと同じく書き込み前に認可を行うスタブ用ヘルパーです。
func authorizeWrite(ctx context.Context) error {
	return access.AuthorizeContext(ctx, access.OperationCreate)
}

type stubCompanyUseCase struct {
	createInput company.CreateCompanyInput
	createOut   *company.Company
	createErr   error

	getOut *company.Company
	getErr error

	listInput company.ListCompaniesInput
	listOut   *company.ListCompaniesResult
	listErr   error

	updateInput company.UpdateCompanyInput
	updateOut   *company.Company
	updateErr   error

	deleteInput company.DeleteCompanyInput
	deleteErr   error
}

func (s *stubCompanyUseCase) CreateCompany(ctx context.Context, in company.CreateCompanyInput) (*company.Company, error) {
	if err := authorizeWrite(ctx); err != nil {
		return nil, err
	}
	s.createInput = in
	return s.createOut, s.createErr
}

func (s *stubCompanyUseCase) GetCompany(ctx context.Context, in company.GetCompanyInput) (*company.Company, error) {
	return s.getOut, s.getErr
}

func (s *stubCompanyUseCase) ListCompanies(ctx context.Context, in company.ListCompaniesInput) (*company.ListCompaniesResult, error) {
	s.listInput = in
	return s.listOut, s.listErr
}

func (s *stubCompanyUseCase) UpdateCompany(ctx context.Context, in company.UpdateCompanyInput) (*company.Company, error) {
	if err := authorizeWrite(ctx); err != nil {
		return nil, err
	}
	s.updateInput = in
	return s.updateOut, s.updateErr
}

func (s *stubCompanyUseCase) DeleteCompany(ctx context.Context, in company.DeleteCompanyInput) error {
	if err := authorizeWrite(ctx); err != nil {
		return err
	}
	s.deleteInput = in
	return s.deleteErr
}

type stubDepartmentUseCase struct {
	createInput department.CreateDepartmentInput
	createOut   *department.Department
	createErr   error

	listInput department.ListDepartmentsInput
	listOut   *department.ListDepartmentsResult

	companyID       string
	companyDepts    []*department.Department
	companyDeptsErr error

	updateInput department.UpdateDepartmentInput
	updateOut   *department.Department
	updateErr   error

	deleteErr error
}

func (s *stubDepartmentUseCase) CreateDepartment(ctx context.Context, in department.CreateDepartmentInput) (*department.Department, error) {
	if err := authorizeWrite(ctx); err != nil {
		return nil, err
	}
	s.createInput = in
	return s.createOut, s.createErr
}

func (s *stubDepartmentUseCase) GetDepartment(ctx context.Context, in department.GetDepartmentInput) (*department.Department, error) {
	return nil, department.ErrDepartmentNotFound
}

func (s *stubDepartmentUseCase) ListDepartments(ctx context.Context, in department.ListDepartmentsInput) (*department.ListDepartmentsResult, error) {
	s.listInput = in
	if s.listOut == nil {
		return &department.ListDepartmentsResult{}, nil
	}
	return s.listOut, nil
}

func (s *stubDepartmentUseCase) ListCompanyDepartments(ctx context.Context, companyID string) ([]*department.Department, error) {
	s.companyID = companyID
	return s.companyDepts, s.companyDeptsErr
}

func (s *stubDepartmentUseCase) UpdateDepartment(ctx context.Context, in department.UpdateDepartmentInput) (*department.Department, error) {
	if err := authorizeWrite(ctx); err != nil {
		return nil, err
	}
	s.updateInput = in
	return s.updateOut, s.updateErr
}

func (s *stubDepartmentUseCase) DeleteDepartment(ctx context.Context, in department.DeleteDepartmentInput) error {
	if err := authorizeWrite(ctx); err != nil {
		return err
	}
	return s.deleteErr
}

type stubEmployeeUseCase struct {
	today time.Time

	createInput employee.CreateEmployeeInput
	createOut   *employee.Employee
	createErr   error

	updateInput employee.UpdateEmployeeInput
	updateOut   *employee.Employee
	updateErr   error

	getOut *employee.Employee
	getErr error

	listInput employee.ListEmployeesInput
	listOut   *employee.ListEmployeesResult
	listErr   error

	report *employee.Report
}

func (s *stubEmployeeUseCase) CreateEmployee(ctx context.Context, in employee.CreateEmployeeInput) (*employee.Employee, error) {
	if err := authorizeWrite(ctx); err != nil {
		return nil, err
	}
	s.createInput = in
	return s.createOut, s.createErr
}

func (s *stubEmployeeUseCase) UpdateEmployee(ctx context.Context, in employee.UpdateEmployeeInput) (*employee.Employee, error) {
	if err := authorizeWrite(ctx); err != nil {
		return nil, err
	}
	s.updateInput = in
	return s.updateOut, s.updateErr
}

func (s *stubEmployeeUseCase) DeleteEmployee(ctx context.Context, in employee.DeleteEmployeeInput) error {
	return authorizeWrite(ctx)
}

func (s *stubEmployeeUseCase) GetEmployee(ctx context.Context, in employee.GetEmployeeInput) (*employee.Employee, error) {
	return s.getOut, s.getErr
}

func (s *stubEmployeeUseCase) ListEmployees(ctx context.Context, in employee.ListEmployeesInput) (*employee.ListEmployeesResult, error) {
	s.listInput = in
	if s.listOut == nil && s.listErr == nil {
		return &employee.ListEmployeesResult{}, nil
	}
	return s.listOut, s.listErr
}

func (s *stubEmployeeUseCase) HiredReport(ctx context.Context) (*employee.Report, error) {
	return s.report, nil
}

func (s *stubEmployeeUseCase) Today() time.Time {
	return s.today
}

type stubUserUseCase struct {
	signUpInput user.SignUpInput
	signUpOut   *user.AuthResult
	signUpErr   error

	loginOut *user.AuthResult
	loginErr error

	refreshToken string
	refreshOut   *user.TokenPair
	refreshErr   error

	logoutToken string
	logoutErr   error

	profileInput user.UpdateProfileInput
	profileOut   *user.User
	profileErr   error
}

func (s *stubUserUseCase) SignUp(ctx context.Context, in user.SignUpInput) (*user.AuthResult, error) {
	s.signUpInput = in
	return s.signUpOut, s.signUpErr
}

func (s *stubUserUseCase) Login(ctx context.Context, in user.LoginInput) (*user.AuthResult, error) {
	return s.loginOut, s.loginErr
}

func (s *stubUserUseCase) Refresh(ctx context.Context, refreshToken string) (*user.TokenPair, error) {
	s.refreshToken = refreshToken
	return s.refreshOut, s.refreshErr
}

func (s *stubUserUseCase) Logout(ctx context.Context, refreshToken string) error {
	s.logoutToken = refreshToken
	return s.logoutErr
}

func (s *stubUserUseCase) Me(ctx context.Context) (*user.User, error) {
	p := access.PrincipalFromContext(ctx)
	return &user.User{ID: p.UserID, Email: p.Email, Role: p.Role}, nil
}

func (s *stubUserUseCase) GetUser(ctx context.Context, id string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (s *stubUserUseCase) UpdateProfile(ctx context.Context, in user.UpdateProfileInput) (*user.User, error) {
	s.profileInput = in
	return s.profileOut, s.profileErr
}

type testAPI struct {
	echo        *echo.Echo
	companies   *stubCompanyUseCase
	departments *stubDepartmentUseCase
	employees   *stubEmployeeUseCase
	users       *stubUserUseCase
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{
		companies:   &stubCompanyUseCase{},
		departments: &stubDepartmentUseCase{},
		employees:   &stubEmployeeUseCase{today: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		users:       &stubUserUseCase{},
	}
	api.echo = NewRouter(RouterConfig{
		Logger:      zap.NewNop(),
		Tokens:      defaultTokens(),
		Accounts:    NewAccountHandler(api.users),
		Companies:   NewCompanyHandler(api.companies, api.departments),
		Departments: NewDepartmentHandler(api.departments),
		Employees:   NewEmployeeHandler(api.employees),
	})
	return api
}

func (a *testAPI) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/core/employee"
)

// EmployeeHandler は従業員 API の HTTP ハンドラです。
type EmployeeHandler struct {
	svc employee.UseCase
}

// NewEmployeeHandler は EmployeeHandler を生成します。
func NewEmployeeHandler(svc employee.UseCase) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

type employeeRequest struct {
	CompanyID    *string      `json:"company"`
	DepartmentID *string      `json:"department"`
	Status       *string      `json:"employee_status"`
	Name         *string      `json:"employee_name"`
	Email        *string      `json:"email_address"`
	Mobile       *string      `json:"mobile_number"`
	Address      *string      `json:"address"`
	Designation  *string      `json:"designation"`
	HiredOn      optionalDate `json:"hired_on"`
}

type employeeResponse struct {
	ID             string  `json:"id"`
	CompanyID      string  `json:"company"`
	CompanyName    string  `json:"company_name"`
	DepartmentID   string  `json:"department"`
	DepartmentName string  `json:"department_name"`
	Status         string  `json:"employee_status"`
	Name           string  `json:"employee_name"`
	Email          string  `json:"email_address"`
	Mobile         string  `json:"mobile_number"`
	Address        string  `json:"address"`
	Designation    string  `json:"designation"`
	HiredOn        *string `json:"hired_on"`
	DaysEmployed   *int    `json:"days_employed"`
}

type employeeListItem struct {
	ID             string  `json:"id"`
	Name           string  `json:"employee_name"`
	Email          string  `json:"email_address"`
	Mobile         string  `json:"mobile_number"`
	Designation    string  `json:"designation"`
	Status         string  `json:"employee_status"`
	HiredOn        *string `json:"hired_on"`
	DaysEmployed   *int    `json:"days_employed"`
	CompanyName    string  `json:"company_name"`
	DepartmentName string  `json:"department_name"`
}

type reportRowResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"employee_name"`
	Email          string  `json:"email_address"`
	Mobile         string  `json:"mobile_number"`
	Position       string  `json:"position"`
	HiredOn        *string `json:"hired_on"`
	DaysEmployed   int     `json:"days_employed"`
	CompanyName    string  `json:"company_name"`
	DepartmentName string  `json:"department_name"`
}

type reportResponse struct {
	GeneratedOn string              `json:"generated_on"`
	Results     []reportRowResponse `json:"results"`
}

// CreateEmployee は従業員を作成します。employee_status 省略時は application_received です。
func (h *EmployeeHandler) CreateEmployee(c echo.Context) error {
	var req employeeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	created, err := h.svc.CreateEmployee(c.Request().Context(), employee.CreateEmployeeInput{
		CompanyID:    *valueOrEmpty(req.CompanyID),
		DepartmentID: *valueOrEmpty(req.DepartmentID),
		Status:       employee.Status(*valueOrEmpty(req.Status)),
		Name:         *valueOrEmpty(req.Name),
		Email:        *valueOrEmpty(req.Email),
		Mobile:       *valueOrEmpty(req.Mobile),
		Address:      *valueOrEmpty(req.Address),
		Designation:  *valueOrEmpty(req.Designation),
		HiredOn:      req.HiredOn.Value,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEmployeeResponse(created, h.svc.Today()))
}

// GetEmployee は従業員を取得します。
func (h *EmployeeHandler) GetEmployee(c echo.Context) error {
	found, err := h.svc.GetEmployee(c.Request().Context(), employee.GetEmployeeInput{ID: c.Param("id")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEmployeeResponse(found, h.svc.Today()))
}

// ListEmployees は従業員の一覧を取得します。company / department / status で絞り込めます。
func (h *EmployeeHandler) ListEmployees(c echo.Context) error {
	page, err := bindPageQuery(c)
	if err != nil {
		return err
	}

	in := employee.ListEmployeesInput{
		PageSize:     page.PageSize,
		PageToken:    page.PageToken,
		CompanyID:    queryFilter(c, "company"),
		DepartmentID: queryFilter(c, "department"),
	}
	if status := queryFilter(c, "status"); status != nil {
		s := employee.Status(*status)
		in.Status = &s
	}

	result, err := h.svc.ListEmployees(c.Request().Context(), in)
	if err != nil {
		return err
	}

	today := h.svc.Today()
	resp := listResponse[employeeListItem]{
		Results:       make([]employeeListItem, 0, len(result.Employees)),
		NextPageToken: result.NextPageToken,
	}
	for _, e := range result.Employees {
		resp.Results = append(resp.Results, employeeListItem{
			ID:             e.ID,
			Name:           e.Name,
			Email:          e.Email,
			Mobile:         e.Mobile,
			Designation:    e.Designation,
			Status:         string(e.Status),
			HiredOn:        formatDate(e.HiredOn),
			DaysEmployed:   e.DaysEmployed(today),
			CompanyName:    e.CompanyName,
			DepartmentName: e.DepartmentName,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// HiredReport は採用済み従業員のレポートを返します。
func (h *EmployeeHandler) HiredReport(c echo.Context) error {
	report, err := h.svc.HiredReport(c.Request().Context())
	if err != nil {
		return err
	}

	resp := reportResponse{
		GeneratedOn: report.GeneratedOn.Format(dateLayout),
		Results:     make([]reportRowResponse, 0, len(report.Rows)),
	}
	for _, row := range report.Rows {
		e := row.Employee
		resp.Results = append(resp.Results, reportRowResponse{
			ID:             e.ID,
			Name:           e.Name,
			Email:          e.Email,
			Mobile:         e.Mobile,
			Position:       e.Designation,
			HiredOn:        formatDate(e.HiredOn),
			DaysEmployed:   row.DaysEmployed,
			CompanyName:    e.CompanyName,
			DepartmentName: e.DepartmentName,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// ReplaceEmployee は従業員を全体更新 (PUT) します。employee_status 省略時は現在値を維持します。
func (h *EmployeeHandler) ReplaceEmployee(c echo.Context) error {
	return h.update(c, true)
}

// PatchEmployee は従業員を部分更新 (PATCH) します。
func (h *EmployeeHandler) PatchEmployee(c echo.Context) error {
	return h.update(c, false)
}

func (h *EmployeeHandler) update(c echo.Context, replace bool) error {
	var req employeeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	in := employee.UpdateEmployeeInput{
		ID:           c.Param("id"),
		CompanyID:    req.CompanyID,
		DepartmentID: req.DepartmentID,
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       req.Mobile,
		Address:      req.Address,
		Designation:  req.Designation,
		HiredOn:      req.HiredOn.Value,
		HiredOnSet:   req.HiredOn.Set,
	}
	if req.Status != nil {
		s := employee.Status(*req.Status)
		in.Status = &s
	}
	if replace {
		in.CompanyID = valueOrEmpty(req.CompanyID)
		in.DepartmentID = valueOrEmpty(req.DepartmentID)
		in.Name = valueOrEmpty(req.Name)
		in.Email = valueOrEmpty(req.Email)
		in.Mobile = valueOrEmpty(req.Mobile)
		in.Address = valueOrEmpty(req.Address)
		in.Designation = valueOrEmpty(req.Designation)
		in.HiredOnSet = true
	}

	updated, err := h.svc.UpdateEmployee(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEmployeeResponse(updated, h.svc.Today()))
}

// DeleteEmployee は従業員を削除します。
func (h *EmployeeHandler) DeleteEmployee(c echo.Context) error {
	if err := h.svc.DeleteEmployee(c.Request().Context(), employee.DeleteEmployeeInput{ID: c.Param("id")}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func toEmployeeResponse(e *employee.Employee, today time.Time) employeeResponse {
	return employeeResponse{
		ID:             e.ID,
		CompanyID:      e.CompanyID,
		CompanyName:    e.CompanyName,
		DepartmentID:   e.DepartmentID,
		DepartmentName: e.DepartmentName,
		Status:         string(e.Status),
		Name:           e.Name,
		Email:          e.Email,
		Mobile:         e.Mobile,
		Address:        e.Address,
		Designation:    e.Designation,
		HiredOn:        formatDate(e.HiredOn),
		DaysEmployed:   e.DaysEmployed(today),
	}
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/core/department"
)

// DepartmentHandler は部署 API の HTTP ハンドラです。
type DepartmentHandler struct {
	svc department.UseCase
}

// NewDepartmentHandler は DepartmentHandler を生成します。
func NewDepartmentHandler(svc department.UseCase) *DepartmentHandler {
	return &DepartmentHandler{svc: svc}
}

type departmentRequest struct {
	CompanyID *string `json:"company"`
	Name      *string `json:"department_name"`
}

type departmentResponse struct {
	ID                string `json:"id"`
	CompanyID         string `json:"company"`
	CompanyName       string `json:"company_name"`
	Name              string `json:"department_name"`
	NumberOfEmployees int    `json:"number_of_employees"`
}

// CreateDepartment は部署を作成します。
func (h *DepartmentHandler) CreateDepartment(c echo.Context) error {
	var req departmentRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	created, err := h.svc.CreateDepartment(c.Request().Context(), department.CreateDepartmentInput{
		CompanyID: *valueOrEmpty(req.CompanyID),
		Name:      *valueOrEmpty(req.Name),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toDepartmentResponse(created))
}

// GetDepartment は部署を取得します。
func (h *DepartmentHandler) GetDepartment(c echo.Context) error {
	found, err := h.svc.GetDepartment(c.Request().Context(), department.GetDepartmentInput{ID: c.Param("id")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDepartmentResponse(found))
}

// ListDepartments は部署の一覧を取得します。company クエリで会社を絞り込めます。
func (h *DepartmentHandler) ListDepartments(c echo.Context) error {
	page, err := bindPageQuery(c)
	if err != nil {
		return err
	}

	result, err := h.svc.ListDepartments(c.Request().Context(), department.ListDepartmentsInput{
		PageSize:  page.PageSize,
		PageToken: page.PageToken,
		CompanyID: queryFilter(c, "company"),
	})
	if err != nil {
		return err
	}

	resp := listResponse[departmentResponse]{
		Results:       make([]departmentResponse, 0, len(result.Departments)),
		NextPageToken: result.NextPageToken,
	}
	for _, d := range result.Departments {
		resp.Results = append(resp.Results, toDepartmentResponse(d))
	}
	return c.JSON(http.StatusOK, resp)
}

// ReplaceDepartment は部署を全体更新 (PUT) します。
func (h *DepartmentHandler) ReplaceDepartment(c echo.Context) error {
	return h.update(c, true)
}

// PatchDepartment は部署を部分更新 (PATCH) します。
func (h *DepartmentHandler) PatchDepartment(c echo.Context) error {
	return h.update(c, false)
}

func (h *DepartmentHandler) update(c echo.Context, replace bool) error {
	var req departmentRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	in := department.UpdateDepartmentInput{ID: c.Param("id"), CompanyID: req.CompanyID, Name: req.Name}
	if replace {
		in.CompanyID = valueOrEmpty(req.CompanyID)
		in.Name = valueOrEmpty(req.Name)
	}

	updated, err := h.svc.UpdateDepartment(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toDepartmentResponse(updated))
}

// DeleteDepartment は部署を削除します。
func (h *DepartmentHandler) DeleteDepartment(c echo.Context) error {
	if err := h.svc.DeleteDepartment(c.Request().Context(), department.DeleteDepartmentInput{ID: c.Param("id")}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func toDepartmentResponse(d *department.Department) departmentResponse {
	return departmentResponse{
		ID:                d.ID,
		CompanyID:         d.CompanyID,
		CompanyName:       d.CompanyName,
		Name:              d.Name,
		NumberOfEmployees: d.EmployeeCount,
	}
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/core/company"
	"github.com/ogurasousui/employee-management/internal/core/department"
)

// CompanyHandler は会社 API の HTTP ハンドラです。
type CompanyHandler struct {
	svc         company.UseCase
	departments department.UseCase
}

// NewCompanyHandler は CompanyHandler を生成します。
func NewCompanyHandler(svc company.UseCase, departments department.UseCase) *CompanyHandler {
	return &CompanyHandler{svc: svc, departments: departments}
}

type companyRequest struct {
	Name *string `json:"company_name"`
}

type companyResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"company_name"`
	NumberOfDepartments int    `json:"number_of_departments"`
	NumberOfEmployees   int    `json:"number_of_employees"`
}

type companyDepartmentResponse struct {
	ID   string `json:"id"`
	Name string `json:"department_name"`
}

// CreateCompany は会社を作成します。
func (h *CompanyHandler) CreateCompany(c echo.Context) error {
	var req companyRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	created, err := h.svc.CreateCompany(c.Request().Context(), company.CreateCompanyInput{Name: *valueOrEmpty(req.Name)})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCompanyResponse(created))
}

// GetCompany は会社を取得します。
func (h *CompanyHandler) GetCompany(c echo.Context) error {
	found, err := h.svc.GetCompany(c.Request().Context(), company.GetCompanyInput{ID: c.Param("id")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCompanyResponse(found))
}

// ListCompanies は会社の一覧を取得します。
func (h *CompanyHandler) ListCompanies(c echo.Context) error {
	page, err := bindPageQuery(c)
	if err != nil {
		return err
	}

	result, err := h.svc.ListCompanies(c.Request().Context(), company.ListCompaniesInput{
		PageSize:  page.PageSize,
		PageToken: page.PageToken,
	})
	if err != nil {
		return err
	}

	resp := listResponse[companyResponse]{
		Results:       make([]companyResponse, 0, len(result.Companies)),
		NextPageToken: result.NextPageToken,
	}
	for _, co := range result.Companies {
		resp.Results = append(resp.Results, toCompanyResponse(co))
	}
	return c.JSON(http.StatusOK, resp)
}

// ReplaceCompany は会社を全体更新 (PUT) します。
func (h *CompanyHandler) ReplaceCompany(c echo.Context) error {
	return h.update(c, true)
}

// PatchCompany は会社を部分更新 (PATCH) します。
func (h *CompanyHandler) PatchCompany(c echo.Context) error {
	return h.update(c, false)
}

func (h *CompanyHandler) update(c echo.Context, replace bool) error {
	var req companyRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	name := req.Name
	if replace {
		name = valueOrEmpty(name)
	}

	updated, err := h.svc.UpdateCompany(c.Request().Context(), company.UpdateCompanyInput{ID: c.Param("id"), Name: name})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCompanyResponse(updated))
}

// DeleteCompany は会社を削除します。
func (h *CompanyHandler) DeleteCompany(c echo.Context) error {
	if err := h.svc.DeleteCompany(c.Request().Context(), company.DeleteCompanyInput{ID: c.Param("id")}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCompanyDepartments は会社に所属する部署を名前順で返します。
func (h *CompanyHandler) ListCompanyDepartments(c echo.Context) error {
	departments, err := h.departments.ListCompanyDepartments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	resp := make([]companyDepartmentResponse, 0, len(departments))
	for _, d := range departments {
		resp = append(resp, companyDepartmentResponse{ID: d.ID, Name: d.Name})
	}
	return c.JSON(http.StatusOK, resp)
}

func toCompanyResponse(co *company.Company) companyResponse {
	return companyResponse{
		ID:                  co.ID,
		Name:                co.Name,
		NumberOfDepartments: co.DepartmentCount,
		NumberOfEmployees:   co.EmployeeCount,
	}
}

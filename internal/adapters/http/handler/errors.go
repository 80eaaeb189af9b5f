package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/adapters/http/middleware"
	"github.com/ogurasousui/employee-management/internal/core/access"
	"github.com/ogurasousui/employee-management/internal/core/company"
	"github.com/ogurasousui/employee-management/internal/core/department"
	"github.com/ogurasousui/employee-management/internal/core/employee"
	"github.com/ogurasousui/employee-management/internal/core/paging"
	"github.com/ogurasousui/employee-management/internal/core/user"
	"github.com/ogurasousui/employee-management/internal/core/validation"
	"go.uber.org/zap"
)

// エラーレスポンスの分類コードです。
const (
	CodeFieldValidation   = "FIELD_VALIDATION"
	CodeConflict          = "CONFLICT"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeInternal          = "INTERNAL"
)

// RejectionObserver はエラー分類ごとの拒否件数を記録します。
type RejectionObserver interface {
	ObserveRejection(category string)
}

// ErrorResponse はエラー時のレスポンスボディです。
type ErrorResponse struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Errors  []FieldErrorResponse `json:"errors,omitempty"`
}

// FieldErrorResponse はフィールド単位のエラーです。
type FieldErrorResponse struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type notFoundRule struct {
	target  error
	message string
}

var notFoundRules = []notFoundRule{
	{target: company.ErrCompanyNotFound, message: "Company not found."},
	{target: company.ErrInvalidID, message: "Company not found."},
	{target: department.ErrDepartmentNotFound, message: "Department not found."},
	{target: department.ErrCompanyNotFound, message: "Company not found."},
	{target: department.ErrInvalidID, message: "Department not found."},
	{target: employee.ErrEmployeeNotFound, message: "Employee not found."},
	{target: employee.ErrCompanyNotFound, message: "Company not found."},
	{target: employee.ErrDepartmentNotFound, message: "Department not found."},
	{target: employee.ErrInvalidID, message: "Employee not found."},
	{target: user.ErrUserNotFound, message: "User not found."},
	{target: user.ErrInvalidID, message: "User not found."},
}

// NewErrorHandler はドメインエラーを HTTP ステータスと JSON に変換する echo のエラーハンドラを返します。
func NewErrorHandler(observer RejectionObserver) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := toErrorResponse(err)
		if observer != nil {
			observer.ObserveRejection(body.Error)
		}
		if status >= http.StatusInternalServerError {
			middleware.Logger(c).Error("request failed", zap.Error(err))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			middleware.Logger(c).Error("failed to write error response", zap.Error(writeErr))
		}
	}
}

func toErrorResponse(err error) (int, ErrorResponse) {
	if verrs, ok := validation.As(err); ok && len(verrs) > 0 {
		return validationResponse(verrs)
	}

	switch {
	case errors.Is(err, paging.ErrInvalidPageSize):
		return fieldResponse("page_size", validation.KindInvalidFormat, "Ensure page_size is between 1 and 200.")
	case errors.Is(err, paging.ErrInvalidPageToken):
		return fieldResponse("page_token", validation.KindInvalidFormat, "Invalid page token.")
	case errors.Is(err, employee.ErrInvalidStatus):
		return fieldResponse("status", validation.KindInvalidEnum, "Invalid status filter.")
	case errors.Is(err, access.ErrUnauthenticated):
		return http.StatusUnauthorized, ErrorResponse{Error: CodeUnauthenticated, Message: "Authentication credentials were not provided or are invalid."}
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Error: CodeUnauthenticated, Message: "No active account found with the given credentials."}
	case errors.Is(err, user.ErrInvalidToken):
		return http.StatusUnauthorized, ErrorResponse{Error: CodeUnauthenticated, Message: "Token is invalid or expired."}
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden, ErrorResponse{Error: CodeForbidden, Message: "You do not have permission to perform this action."}
	}

	for _, rule := range notFoundRules {
		if errors.Is(err, rule.target) {
			return http.StatusNotFound, ErrorResponse{Error: CodeNotFound, Message: rule.message}
		}
	}

	var be *echo.BindingError
	if errors.As(err, &be) {
		return fieldResponse(be.Field, validation.KindInvalidFormat, "A valid integer is required.")
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return httpErrorResponse(he)
	}

	return http.StatusInternalServerError, ErrorResponse{Error: CodeInternal, Message: "Internal server error."}
}

func validationResponse(verrs validation.Errors) (int, ErrorResponse) {
	body := ErrorResponse{
		Error:   string(verrs.Category()),
		Message: verrs[0].Message,
		Errors:  make([]FieldErrorResponse, 0, len(verrs)),
	}
	for _, fe := range verrs {
		body.Errors = append(body.Errors, FieldErrorResponse{Field: fe.Field, Code: string(fe.Kind), Message: fe.Message})
	}

	switch verrs.Category() {
	case validation.CategoryConflict:
		return http.StatusConflict, body
	case validation.CategoryIllegalTransition:
		return http.StatusUnprocessableEntity, body
	default:
		return http.StatusBadRequest, body
	}
}

func fieldResponse(field string, kind validation.Kind, message string) (int, ErrorResponse) {
	return validationResponse(validation.Errors{{Field: field, Kind: kind, Message: message}})
}

func httpErrorResponse(he *echo.HTTPError) (int, ErrorResponse) {
	message, ok := he.Message.(string)
	if !ok || message == "" {
		message = http.StatusText(he.Code)
	}

	switch he.Code {
	case http.StatusBadRequest:
		return he.Code, ErrorResponse{Error: CodeFieldValidation, Message: message}
	case http.StatusUnauthorized:
		return he.Code, ErrorResponse{Error: CodeUnauthenticated, Message: message}
	case http.StatusForbidden:
		return he.Code, ErrorResponse{Error: CodeForbidden, Message: message}
	case http.StatusNotFound:
		return he.Code, ErrorResponse{Error: CodeNotFound, Message: message}
	}

	if he.Code >= http.StatusInternalServerError {
		return he.Code, ErrorResponse{Error: CodeInternal, Message: "Internal server error."}
	}
	code := strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
	return he.Code, ErrorResponse{Error: code, Message: message}
}

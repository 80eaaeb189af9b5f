package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/core/employee"
	"github.com/ogurasousui/employee-management/internal/core/validation"
)

const dateLayout = time.DateOnly

var errDateFormat = validation.Errors{{
	Field:   employee.FieldHiredOn,
	Kind:    validation.KindInvalidFormat,
	Message: "Date has wrong format. Use one of these formats instead: YYYY-MM-DD.",
}}

// listResponse は一覧 API の共通レスポンスです。
type listResponse[T any] struct {
	Results       []T    `json:"results"`
	NextPageToken string `json:"next_page_token"`
}

type pageQuery struct {
	PageSize  int
	PageToken string
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}

func bindPageQuery(c echo.Context) (pageQuery, error) {
	var q pageQuery
	err := echo.QueryParamsBinder(c).
		Int("page_size", &q.PageSize).
		String("page_token", &q.PageToken).
		BindError()
	return q, err
}

// queryFilter は空でないクエリパラメータだけをフィルタとして返します。
func queryFilter(c echo.Context, name string) *string {
	value := strings.TrimSpace(c.QueryParam(name))
	if value == "" {
		return nil
	}
	return &value
}

// optionalDate は YYYY-MM-DD 形式の日付です。キーの有無と null を区別します。
type optionalDate struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON は json.Unmarshaler を満たします。
func (d *optionalDate) UnmarshalJSON(data []byte) error {
	d.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		d.Value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errDateFormat
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Value = nil
		return nil
	}

	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return errDateFormat
	}
	d.Value = &parsed
	return nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func valueOrEmpty(s *string) *string {
	if s == nil {
		empty := ""
		return &empty
	}
	return s
}

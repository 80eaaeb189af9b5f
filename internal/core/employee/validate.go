package employee

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/employee-management/internal/core/validation"
)

// 入出力で使うフィールド名です。
const (
	FieldCompany     = "company"
	FieldDepartment  = "department"
	FieldStatus      = "employee_status"
	FieldName        = "employee_name"
	FieldEmail       = "email_address"
	FieldMobile      = "mobile_number"
	FieldAddress     = "address"
	FieldDesignation = "designation"
	FieldHiredOn     = "hired_on"
)

const (
	maxNameLength        = 100
	maxEmailLength       = 254
	maxDesignationLength = 100
)

// Draft は従業員の書き込み候補です。
type Draft struct {
	CompanyID    string
	DepartmentID string
	Status       Status
	Name         string
	Email        string
	Mobile       string
	Address      string
	Designation  string
	HiredOn      *time.Time
}

// Validate は従業員の書き込み候補を検証・正規化します。current は更新対象で、作成時は nil です。
//
// フィールド検証はすべて実行してエラーを集約し、1 件でも失敗すれば相関検証は行いません。
// 相関検証は最初の失敗で打ち切ります。
func (s *Service) Validate(ctx context.Context, draft Draft, current *Employee) (Draft, error) {
	today := s.Today()

	var c validation.Collector
	out := Draft{
		CompanyID:    c.Reference(FieldCompany, "Company", draft.CompanyID),
		DepartmentID: c.Reference(FieldDepartment, "Department", draft.DepartmentID),
		Status:       draft.Status,
		Name:         c.Text(FieldName, "Employee name", draft.Name, 2),
		Email:        c.Email(FieldEmail, draft.Email),
		Mobile:       c.Mobile(FieldMobile, draft.Mobile),
		Address:      c.Text(FieldAddress, "Address", draft.Address, 5),
		Designation:  c.Text(FieldDesignation, "Designation", draft.Designation, 2),
		HiredOn:      draft.HiredOn,
	}
	c.MaxLen(FieldName, out.Name, maxNameLength)
	c.MaxLen(FieldEmail, out.Email, maxEmailLength)
	c.MaxLen(FieldDesignation, out.Designation, maxDesignationLength)
	if !out.Status.Valid() {
		c.Add(FieldStatus, validation.KindInvalidEnum, "Invalid status. Must be one of: "+statusList())
	}
	c.NotFuture(FieldHiredOn, "Hired date", out.HiredOn, today)
	if err := c.Err(); err != nil {
		return Draft{}, err
	}

	if err := s.checkReferences(ctx, out); err != nil {
		return Draft{}, err
	}

	if out.Status == StatusHired {
		if out.HiredOn == nil {
			return Draft{}, validation.Required(FieldHiredOn, msgHiredOnRequired)
		}
		day := validation.DateOf(*out.HiredOn)
		out.HiredOn = &day
	} else {
		out.HiredOn = nil
	}

	excludeID := ""
	if current != nil {
		excludeID = current.ID
	}
	taken, err := s.repo.ExistsByEmail(ctx, out.Email, excludeID)
	if err != nil {
		return Draft{}, err
	}
	if taken {
		return Draft{}, validation.Conflict(FieldEmail, msgEmailTaken)
	}

	if current != nil {
		if err := CheckTransition(current.Status, out.Status); err != nil {
			return Draft{}, err
		}
	}

	return out, nil
}

func (s *Service) checkReferences(ctx context.Context, d Draft) error {
	exists, err := s.repo.CompanyExists(ctx, d.CompanyID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", FieldCompany, d.CompanyID, ErrCompanyNotFound)
	}

	owner, err := s.repo.DepartmentCompanyID(ctx, d.DepartmentID)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return fmt.Errorf("%s %s: %w", FieldDepartment, d.DepartmentID, ErrDepartmentNotFound)
		}
		return err
	}
	if owner != d.CompanyID {
		return validation.Conflict(FieldDepartment, msgDepartmentMismatch)
	}
	return nil
}

func statusList() string {
	names := make([]string, 0, len(Statuses))
	for _, s := range Statuses {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func storeConflict(err error) error {
	if errors.Is(err, ErrEmailAlreadyExists) {
		return validation.Conflict(FieldEmail, msgEmailTaken)
	}
	return err
}

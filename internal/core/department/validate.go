package department

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogurasousui/employee-management/internal/core/validation"
)

const (
	// FieldName は部署名のフィールド名です。
	FieldName = "department_name"
	// FieldCompany は所属会社のフィールド名です。
	FieldCompany = "company"

	maxNameLength = 100
)

// Draft は部署の書き込み候補です。
type Draft struct {
	CompanyID string
	Name      string
}

// Validate は部署の書き込み候補を検証・正規化します。current は更新対象で、作成時は nil です。
func (s *Service) Validate(ctx context.Context, draft Draft, current *Department) (Draft, error) {
	var c validation.Collector
	name := c.Text(FieldName, "Department name", draft.Name, 0)
	c.MaxLen(FieldName, name, maxNameLength)
	companyID := c.Reference(FieldCompany, "Company", draft.CompanyID)
	if err := c.Err(); err != nil {
		return Draft{}, err
	}

	exists, err := s.repo.CompanyExists(ctx, companyID)
	if err != nil {
		return Draft{}, err
	}
	if !exists {
		return Draft{}, fmt.Errorf("%s %s: %w", FieldCompany, companyID, ErrCompanyNotFound)
	}

	excludeID := ""
	if current != nil {
		excludeID = current.ID
	}

	taken, err := s.repo.ExistsByName(ctx, companyID, name, excludeID)
	if err != nil {
		return Draft{}, err
	}
	if taken {
		return Draft{}, validation.Conflict(FieldName, msgNameTaken)
	}

	return Draft{CompanyID: companyID, Name: name}, nil
}

func storeConflict(err error) error {
	if errors.Is(err, ErrNameAlreadyExists) {
		return validation.Conflict(FieldName, msgNameTaken)
	}
	return err
}

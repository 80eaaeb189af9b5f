package company

import (
	"context"
	"errors"

	"github.com/ogurasousui/employee-management/internal/core/validation"
)

// FieldName は会社名のフィールド名です。
const FieldName = "company_name"

const maxNameLength = 100

// Draft は会社の書き込み候補です。
type Draft struct {
	Name string
}

// Validate は会社の書き込み候補を検証・正規化します。current は更新対象で、作成時は nil です。
func (s *Service) Validate(ctx context.Context, draft Draft, current *Company) (Draft, error) {
	var c validation.Collector
	name := c.Text(FieldName, "Company name", draft.Name, 0)
	c.MaxLen(FieldName, name, maxNameLength)
	if err := c.Err(); err != nil {
		return Draft{}, err
	}

	excludeID := ""
	if current != nil {
		excludeID = current.ID
	}

	taken, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return Draft{}, err
	}
	if taken {
		return Draft{}, validation.Conflict(FieldName, msgNameTaken)
	}

	return Draft{Name: name}, nil
}

func storeConflict(err error) error {
	if errors.Is(err, ErrNameAlreadyExists) {
		return validation.Conflict(FieldName, msgNameTaken)
	}
	return err
}

package department

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/employee-management/internal/core/access"
	"github.com/ogurasousui/employee-management/internal/core/event"
	"github.com/ogurasousui/employee-management/internal/core/paging"
	"github.com/ogurasousui/employee-management/internal/core/validation"
	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Service は部署に関するユースケースをまとめます。
type Service struct {
	repo   Repository
	clock  Clock
	tx     TransactionManager
	events event.Publisher
	logger *zap.Logger
}

// UseCase は部署ユースケースの公開インターフェースです。
type UseCase interface {
	CreateDepartment(ctx context.Context, in CreateDepartmentInput) (*Department, error)
	GetDepartment(ctx context.Context, in GetDepartmentInput) (*Department, error)
	ListDepartments(ctx context.Context, in ListDepartmentsInput) (*ListDepartmentsResult, error)
	ListCompanyDepartments(ctx context.Context, companyID string) ([]*Department, error)
	UpdateDepartment(ctx context.Context, in UpdateDepartmentInput) (*Department, error)
	DeleteDepartment(ctx context.Context, in DeleteDepartmentInput) error
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, events event.Publisher, logger *zap.Logger) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	if events == nil {
		events = event.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, clock: clock, tx: tx, events: events, logger: logger.Named("department")}
}

// CreateDepartmentInput は部署作成時の入力です。
type CreateDepartmentInput struct {
	CompanyID string
	Name      string
}

// UpdateDepartmentInput は部署更新時の入力です。nil のフィールドは変更しません。
type UpdateDepartmentInput struct {
	ID        string
	CompanyID *string
	Name      *string
}

// DeleteDepartmentInput は部署削除時の入力です。
type DeleteDepartmentInput struct {
	ID string
}

// GetDepartmentInput は部署取得時の入力です。
type GetDepartmentInput struct {
	ID string
}

// ListDepartmentsInput は一覧取得時の入力です。
type ListDepartmentsInput struct {
	PageSize  int
	PageToken string
	CompanyID *string
}

// ListDepartmentsResult は一覧取得結果を表します。
type ListDepartmentsResult struct {
	Departments   []*Department
	NextPageToken string
}

// CreateDepartment は新しい部署を作成します。
func (s *Service) CreateDepartment(ctx context.Context, in CreateDepartmentInput) (*Department, error) {
	if err := access.AuthorizeContext(ctx, access.OperationCreate); err != nil {
		return nil, err
	}

	var created *Department
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		draft, err := s.Validate(txCtx, Draft{CompanyID: in.CompanyID, Name: in.Name}, nil)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Department{
			CompanyID: draft.CompanyID,
			Name:      draft.Name,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return storeConflict(err)
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, event.DepartmentCreated, created)
	return created, nil
}

// UpdateDepartment は部署情報を更新します。
func (s *Service) UpdateDepartment(ctx context.Context, in UpdateDepartmentInput) (*Department, error) {
	if err := access.AuthorizeContext(ctx, access.OperationUpdate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *Department
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		draft := Draft{CompanyID: existing.CompanyID, Name: existing.Name}
		if in.CompanyID != nil {
			draft.CompanyID = *in.CompanyID
		}
		if in.Name != nil {
			draft.Name = *in.Name
		}

		draft, err = s.Validate(txCtx, draft, existing)
		if err != nil {
			return err
		}

		// 従業員の会社は部署から決まるため、所属従業員がいる部署は会社を移せません。
		if draft.CompanyID != existing.CompanyID {
			employees, err := s.repo.CountEmployees(txCtx, existing.ID)
			if err != nil {
				return err
			}
			if employees > 0 {
				s.logger.Info("department company change blocked",
					zap.String("department_id", existing.ID),
					zap.Int("employees", employees),
				)
				return validation.Conflict(FieldCompany, msgCompanyLocked)
			}
		}

		existing.CompanyID = draft.CompanyID
		existing.Name = draft.Name
		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return storeConflict(err)
		}

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, event.DepartmentUpdated, updated)
	return updated, nil
}

// DeleteDepartment は部署を削除します。従業員が残っている場合は拒否します。
func (s *Service) DeleteDepartment(ctx context.Context, in DeleteDepartmentInput) error {
	if err := access.AuthorizeContext(ctx, access.OperationDelete); err != nil {
		return err
	}
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	var deleted *Department
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		employees, err := s.repo.CountEmployees(txCtx, in.ID)
		if err != nil {
			return err
		}
		if employees > 0 {
			s.logger.Info("department deletion blocked",
				zap.String("department_id", in.ID),
				zap.Int("employees", employees),
			)
			return validation.Conflict("employees", msgBlockedByEmployee)
		}

		if err := s.repo.Delete(txCtx, in.ID); err != nil {
			return err
		}
		deleted = existing
		return nil
	}); err != nil {
		return err
	}

	s.publish(ctx, event.DepartmentDeleted, deleted)
	return nil
}

// GetDepartment は ID で部署を取得します。
func (s *Service) GetDepartment(ctx context.Context, in GetDepartmentInput) (*Department, error) {
	if err := access.AuthorizeContext(ctx, access.OperationGet); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var department *Department
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		department = result
		return nil
	}); err != nil {
		return nil, err
	}

	return department, nil
}

// ListDepartments は部署の一覧を取得します。
func (s *Service) ListDepartments(ctx context.Context, in ListDepartmentsInput) (*ListDepartmentsResult, error) {
	if err := access.AuthorizeContext(ctx, access.OperationList); err != nil {
		return nil, err
	}

	limit, err := paging.NormalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := paging.ParsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var companyID *string
	if in.CompanyID != nil && strings.TrimSpace(*in.CompanyID) != "" {
		id := strings.TrimSpace(*in.CompanyID)
		companyID = &id
	}

	var result ListDepartmentsResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		departments, token, err := s.repo.List(txCtx, ListDepartmentsFilter{
			Limit:     limit,
			Offset:    offset,
			CompanyID: companyID,
		})
		if err != nil {
			return err
		}
		result.Departments = departments
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListCompanyDepartments は指定会社の全部署を返します。会社が存在しない場合は ErrCompanyNotFound です。
func (s *Service) ListCompanyDepartments(ctx context.Context, companyID string) ([]*Department, error) {
	if err := access.AuthorizeContext(ctx, access.OperationList); err != nil {
		return nil, err
	}
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, fmt.Errorf("company id: %w", ErrInvalidID)
	}

	var departments []*Department
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.CompanyExists(txCtx, companyID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrCompanyNotFound
		}

		offset := 0
		for {
			page, token, err := s.repo.List(txCtx, ListDepartmentsFilter{
				Limit:     paging.MaxPageSize,
				Offset:    offset,
				CompanyID: &companyID,
			})
			if err != nil {
				return err
			}
			departments = append(departments, page...)
			if token == "" {
				return nil
			}
			if offset, err = paging.ParsePageToken(token); err != nil {
				return err
			}
		}
	}); err != nil {
		return nil, err
	}

	return departments, nil
}

func (s *Service) publish(ctx context.Context, typ event.Type, d *Department) {
	if d == nil {
		return
	}
	s.events.Publish(ctx, event.Event{
		Type:        typ,
		AggregateID: d.ID,
		ActorID:     access.PrincipalFromContext(ctx).UserID,
		OccurredAt:  s.clock.Now(),
		Payload: map[string]any{
			"company":         d.CompanyID,
			"department_name": d.Name,
		},
	})
}

package company

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

// Service は会社に関するユースケースをまとめます。
type Service struct {
	repo   Repository
	clock  Clock
	tx     TransactionManager
	events event.Publisher
	logger *zap.Logger
}

// UseCase は会社ユースケースの公開インターフェースです。
type UseCase interface {
	CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error)
	GetCompany(ctx context.Context, in GetCompanyInput) (*Company, error)
	ListCompanies(ctx context.Context, in ListCompaniesInput) (*ListCompaniesResult, error)
	UpdateCompany(ctx context.Context, in UpdateCompanyInput) (*Company, error)
	DeleteCompany(ctx context.Context, in DeleteCompanyInput) error
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
	return &Service{repo: repo, clock: clock, tx: tx, events: events, logger: logger.Named("company")}
}

// CreateCompanyInput は会社作成時の入力です。
type CreateCompanyInput struct {
	Name string
}

// UpdateCompanyInput は会社更新時の入力です。nil のフィールドは変更しません。
type UpdateCompanyInput struct {
	ID   string
	Name *string
}

// DeleteCompanyInput は会社削除時の入力です。
type DeleteCompanyInput struct {
	ID string
}

// GetCompanyInput は会社取得時の入力です。
type GetCompanyInput struct {
	ID string
}

// ListCompaniesInput は一覧取得時の入力です。
type ListCompaniesInput struct {
	PageSize  int
	PageToken string
}

// ListCompaniesResult は一覧取得結果を表します。
type ListCompaniesResult struct {
	Companies     []*Company
	NextPageToken string
}

// CreateCompany は新しい会社を作成します。
func (s *Service) CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error) {
	if err := access.AuthorizeContext(ctx, access.OperationCreate); err != nil {
		return nil, err
	}

	var created *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		draft, err := s.Validate(txCtx, Draft{Name: in.Name}, nil)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Company{
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

	s.publish(ctx, event.CompanyCreated, created)
	return created, nil
}

// UpdateCompany は会社情報を更新します。
func (s *Service) UpdateCompany(ctx context.Context, in UpdateCompanyInput) (*Company, error) {
	if err := access.AuthorizeContext(ctx, access.OperationUpdate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var updated *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		draft := Draft{Name: existing.Name}
		if in.Name != nil {
			draft.Name = *in.Name
		}

		draft, err = s.Validate(txCtx, draft, existing)
		if err != nil {
			return err
		}

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

	s.publish(ctx, event.CompanyUpdated, updated)
	return updated, nil
}

// DeleteCompany は会社を削除します。部署または従業員が残っている場合は拒否します。
func (s *Service) DeleteCompany(ctx context.Context, in DeleteCompanyInput) error {
	if err := access.AuthorizeContext(ctx, access.OperationDelete); err != nil {
		return err
	}
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	var deleted *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}

		counts, err := s.repo.CountChildren(txCtx, in.ID)
		if err != nil {
			return err
		}

		var blocked validation.Errors
		if counts.Departments > 0 {
			blocked = append(blocked, validation.FieldError{Field: "departments", Kind: validation.KindConflict, Message: msgBlockedByDepartment})
		}
		if counts.Employees > 0 {
			blocked = append(blocked, validation.FieldError{Field: "employees", Kind: validation.KindConflict, Message: msgBlockedByEmployee})
		}
		if len(blocked) > 0 {
			s.logger.Info("company deletion blocked",
				zap.String("company_id", in.ID),
				zap.Int("departments", counts.Departments),
				zap.Int("employees", counts.Employees),
			)
			return blocked
		}

		if err := s.repo.Delete(txCtx, in.ID); err != nil {
			return err
		}
		deleted = existing
		return nil
	}); err != nil {
		return err
	}

	s.publish(ctx, event.CompanyDeleted, deleted)
	return nil
}

// GetCompany は ID で会社を取得します。
func (s *Service) GetCompany(ctx context.Context, in GetCompanyInput) (*Company, error) {
	if err := access.AuthorizeContext(ctx, access.OperationGet); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var company *Company
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		company = result
		return nil
	}); err != nil {
		return nil, err
	}

	return company, nil
}

// ListCompanies は会社の一覧を取得します。
func (s *Service) ListCompanies(ctx context.Context, in ListCompaniesInput) (*ListCompaniesResult, error) {
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

	var (
		companies []*Company
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		resultCompanies, token, err := s.repo.List(txCtx, ListCompaniesFilter{
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return err
		}
		companies = resultCompanies
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListCompaniesResult{
		Companies:     companies,
		NextPageToken: nextToken,
	}, nil
}

func (s *Service) publish(ctx context.Context, typ event.Type, c *Company) {
	if c == nil {
		return
	}
	s.events.Publish(ctx, event.Event{
		Type:        typ,
		AggregateID: c.ID,
		ActorID:     access.PrincipalFromContext(ctx).UserID,
		OccurredAt:  s.clock.Now(),
		Payload:     map[string]any{"company_name": c.Name},
	})
}

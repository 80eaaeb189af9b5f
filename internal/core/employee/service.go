package employee

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

// Clock は現在時刻を提供します。返却値のロケーションが暦日の基準になります。
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

// Service は従業員に関するユースケースをまとめます。
type Service struct {
	repo   Repository
	clock  Clock
	tx     TransactionManager
	events event.Publisher
	logger *zap.Logger
}

// UseCase は従業員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	HiredReport(ctx context.Context) (*Report, error)
	Today() time.Time
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
	return &Service{repo: repo, clock: clock, tx: tx, events: events, logger: logger.Named("employee")}
}

// CreateEmployeeInput は従業員作成時の入力です。Status が空なら application_received になります。
type CreateEmployeeInput struct {
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

// UpdateEmployeeInput は従業員更新時の入力です。nil のフィールドは現在値を引き継ぎます。
type UpdateEmployeeInput struct {
	ID           string
	CompanyID    *string
	DepartmentID *string
	Status       *Status
	Name         *string
	Email        *string
	Mobile       *string
	Address      *string
	Designation  *string
	HiredOn      *time.Time
	HiredOnSet   bool
}

// DeleteEmployeeInput は従業員削除時の入力です。
type DeleteEmployeeInput struct {
	ID string
}

// GetEmployeeInput は従業員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	PageSize     int
	PageToken    string
	CompanyID    *string
	DepartmentID *string
	Status       *Status
}

// ListEmployeesResult は一覧取得結果を表します。
type ListEmployeesResult struct {
	Employees     []*Employee
	NextPageToken string
}

// ReportRow は採用済み従業員レポートの 1 行です。
type ReportRow struct {
	Employee     *Employee
	DaysEmployed int
}

// Report は採用済み従業員レポートです。
type Report struct {
	GeneratedOn time.Time
	Rows        []ReportRow
}

// Today は基準暦における今日の日付を返します。
func (s *Service) Today() time.Time {
	return validation.DateOf(s.clock.Now())
}

// CreateEmployee は新しい従業員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error) {
	if err := access.AuthorizeContext(ctx, access.OperationCreate); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusApplicationReceived
	}

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		draft, err := s.Validate(txCtx, Draft{
			CompanyID:    in.CompanyID,
			DepartmentID: in.DepartmentID,
			Status:       status,
			Name:         in.Name,
			Email:        in.Email,
			Mobile:       in.Mobile,
			Address:      in.Address,
			Designation:  in.Designation,
			HiredOn:      in.HiredOn,
		}, nil)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		e := applyDraft(&Employee{CreatedAt: now}, draft)
		e.UpdatedAt = now

		result, err := s.repo.Create(txCtx, e)
		if err != nil {
			return storeConflict(err)
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, event.EmployeeCreated, created, nil)
	return created, nil
}

// UpdateEmployee は従業員情報を更新します。ステータス変更は遷移表に従います。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error) {
	if err := access.AuthorizeContext(ctx, access.OperationUpdate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var (
		updated    *Employee
		prevStatus Status
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		prevStatus = existing.Status

		draft, err := s.Validate(txCtx, mergeUpdate(existing, in), existing)
		if err != nil {
			return err
		}

		e := applyDraft(existing, draft)
		e.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, e)
		if err != nil {
			return storeConflict(err)
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, event.EmployeeUpdated, updated, nil)
	if updated.Status != prevStatus {
		s.logger.Info("employee status changed",
			zap.String("employee_id", updated.ID),
			zap.String("from", string(prevStatus)),
			zap.String("to", string(updated.Status)),
		)
		s.publish(ctx, event.EmployeeStatusChanged, updated, map[string]any{"previous_status": string(prevStatus)})
	}
	return updated, nil
}

// DeleteEmployee は従業員を削除します。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error {
	if err := access.AuthorizeContext(ctx, access.OperationDelete); err != nil {
		return err
	}
	if strings.TrimSpace(in.ID) == "" {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	var deleted *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, in.ID); err != nil {
			return err
		}
		deleted = existing
		return nil
	}); err != nil {
		return err
	}

	s.publish(ctx, event.EmployeeDeleted, deleted, nil)
	return nil
}

// GetEmployee は ID で従業員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error) {
	if err := access.AuthorizeContext(ctx, access.OperationGet); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var employee *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		employee = result
		return nil
	}); err != nil {
		return nil, err
	}

	return employee, nil
}

// ListEmployees は従業員の一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error) {
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

	filter := ListEmployeesFilter{
		Limit:        limit,
		Offset:       offset,
		CompanyID:    trimmedOrNil(in.CompanyID),
		DepartmentID: trimmedOrNil(in.DepartmentID),
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		status := *in.Status
		filter.Status = &status
	}

	var result ListEmployeesResult
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		employees, token, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		result.Employees = employees
		result.NextPageToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &result, nil
}

// HiredReport は採用済み従業員と在籍日数のレポートを返します。
func (s *Service) HiredReport(ctx context.Context) (*Report, error) {
	if err := access.AuthorizeContext(ctx, access.OperationList); err != nil {
		return nil, err
	}

	today := s.Today()
	report := &Report{GeneratedOn: today}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		hired, err := s.repo.ListByStatus(txCtx, StatusHired)
		if err != nil {
			return err
		}
		for _, e := range hired {
			row := ReportRow{Employee: e}
			if days := e.DaysEmployed(today); days != nil {
				row.DaysEmployed = *days
			}
			report.Rows = append(report.Rows, row)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return report, nil
}

func (s *Service) publish(ctx context.Context, typ event.Type, e *Employee, extra map[string]any) {
	if e == nil {
		return
	}
	payload := map[string]any{
		"company":         e.CompanyID,
		"department":      e.DepartmentID,
		"employee_status": string(e.Status),
		"email_address":   e.Email,
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.events.Publish(ctx, event.Event{
		Type:        typ,
		AggregateID: e.ID,
		ActorID:     access.PrincipalFromContext(ctx).UserID,
		OccurredAt:  s.clock.Now(),
		Payload:     payload,
	})
}

func mergeUpdate(existing *Employee, in UpdateEmployeeInput) Draft {
	d := Draft{
		CompanyID:    existing.CompanyID,
		DepartmentID: existing.DepartmentID,
		Status:       existing.Status,
		Name:         existing.Name,
		Email:        existing.Email,
		Mobile:       existing.Mobile,
		Address:      existing.Address,
		Designation:  existing.Designation,
		HiredOn:      existing.HiredOn,
	}
	if in.CompanyID != nil {
		d.CompanyID = *in.CompanyID
	}
	if in.DepartmentID != nil {
		d.DepartmentID = *in.DepartmentID
	}
	if in.Status != nil {
		d.Status = *in.Status
	}
	if in.Name != nil {
		d.Name = *in.Name
	}
	if in.Email != nil {
		d.Email = *in.Email
	}
	if in.Mobile != nil {
		d.Mobile = *in.Mobile
	}
	if in.Address != nil {
		d.Address = *in.Address
	}
	if in.Designation != nil {
		d.Designation = *in.Designation
	}
	if in.HiredOnSet {
		d.HiredOn = in.HiredOn
	}
	return d
}

func applyDraft(e *Employee, d Draft) *Employee {
	e.CompanyID = d.CompanyID
	e.DepartmentID = d.DepartmentID
	e.Status = d.Status
	e.Name = d.Name
	e.Email = d.Email
	e.Mobile = d.Mobile
	e.Address = d.Address
	e.Designation = d.Designation
	e.HiredOn = d.HiredOn
	return e
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

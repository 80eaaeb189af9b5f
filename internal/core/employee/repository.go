package employee

import "context"

// Repository は従業員エンティティの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Employee, error)
	List(ctx context.Context, filter ListEmployeesFilter) ([]*Employee, string, error)
	// ListByStatus は指定ステータスの全従業員を採用日の新しい順に返します。
	ListByStatus(ctx context.Context, status Status) ([]*Employee, error)
	// ExistsByEmail は excludeID 以外に同じメールアドレス (小文字比較) の従業員がいるか判定します。
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	CompanyExists(ctx context.Context, companyID string) (bool, error)
	// DepartmentCompanyID は部署の所属会社 ID を返します。部署がなければ ErrDepartmentNotFound です。
	DepartmentCompanyID(ctx context.Context, departmentID string) (string, error)
}

// ListEmployeesFilter は一覧取得時の検索条件を表します。
type ListEmployeesFilter struct {
	Limit        int
	Offset       int
	CompanyID    *string
	DepartmentID *string
	Status       *Status
}

package department

import "context"

// Repository は部署エンティティの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, department *Department) (*Department, error)
	Update(ctx context.Context, department *Department) (*Department, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Department, error)
	List(ctx context.Context, filter ListDepartmentsFilter) ([]*Department, string, error)
	// ExistsByName は excludeID 以外に同じ会社・同名の部署があるか判定します。
	ExistsByName(ctx context.Context, companyID, name, excludeID string) (bool, error)
	CountEmployees(ctx context.Context, id string) (int, error)
	CompanyExists(ctx context.Context, companyID string) (bool, error)
}

// ListDepartmentsFilter は一覧取得時の検索条件を表します。
type ListDepartmentsFilter struct {
	Limit     int
	Offset    int
	CompanyID *string
}

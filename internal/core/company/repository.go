package company

import "context"

// Repository は会社エンティティの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, company *Company) (*Company, error)
	Update(ctx context.Context, company *Company) (*Company, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Company, error)
	// ExistsByName は excludeID 以外に同名の会社があるか判定します。
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	CountChildren(ctx context.Context, id string) (ChildCounts, error)
	List(ctx context.Context, filter ListCompaniesFilter) ([]*Company, string, error)
}

// ListCompaniesFilter は一覧取得時の検索条件を表します。
type ListCompaniesFilter struct {
	Limit  int
	Offset int
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/employee-management/internal/core/company"
	"github.com/ogurasousui/employee-management/internal/core/paging"
	pgdb "github.com/ogurasousui/employee-management/internal/platform/db/postgres"
)

const companyNameConstraint = "companies_name_key"

// CompanyRepository は PostgreSQL を利用した会社永続化の実装です。
type CompanyRepository struct {
	pool pgdb.Queryer
}

// NewCompanyRepository は CompanyRepository を生成します。
func NewCompanyRepository(pool pgdb.Queryer) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// Create は会社を新規作成します。
func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) (*company.Company, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO companies (name, created_at, updated_at)
        VALUES ($1, $2, $3)
        RETURNING id, name, 0, 0, created_at, updated_at
    `, c.Name, c.CreatedAt, c.UpdatedAt)

	created, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return created, nil
}

// Update は会社情報を更新します。
func (r *CompanyRepository) Update(ctx context.Context, c *company.Company) (*company.Company, error) {
	if !validUUID(c.ID) {
		return nil, company.ErrCompanyNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE companies c
           SET name = $1,
               updated_at = $2
         WHERE c.id = $3
        RETURNING c.id, c.name,
                  (SELECT count(*) FROM departments d WHERE d.company_id = c.id),
                  (SELECT count(*) FROM employees e WHERE e.company_id = c.id),
                  c.created_at, c.updated_at
    `, c.Name, c.UpdatedAt, c.ID)

	updated, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return updated, nil
}

// Delete は会社を削除します。
func (r *CompanyRepository) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return company.ErrCompanyNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return translateCompanyPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return company.ErrCompanyNotFound
	}
	return nil
}

// FindByID は ID で会社を取得します。
func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*company.Company, error) {
	if !validUUID(id) {
		return nil, company.ErrCompanyNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, companySelect+`
         WHERE c.id = $1
         LIMIT 1
    `, id)

	found, err := scanCompany(row)
	if err != nil {
		return nil, translateCompanyPgError(err)
	}
	return found, nil
}

// ExistsByName は excludeID 以外に同名の会社があるか判定します。
func (r *CompanyRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var exists bool
	err := exec.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM companies
             WHERE name = $1
               AND ($2::uuid IS NULL OR id <> $2::uuid)
        )
    `, name, nullableUUID(excludeID)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CountChildren は会社に所属する部署数と従業員数を数えます。
func (r *CompanyRepository) CountChildren(ctx context.Context, id string) (company.ChildCounts, error) {
	if !validUUID(id) {
		return company.ChildCounts{}, company.ErrCompanyNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var counts company.ChildCounts
	err := exec.QueryRow(ctx, `
        SELECT (SELECT count(*) FROM departments WHERE company_id = $1),
               (SELECT count(*) FROM employees WHERE company_id = $1)
    `, id).Scan(&counts.Departments, &counts.Employees)
	if err != nil {
		return company.ChildCounts{}, err
	}
	return counts, nil
}

// List は会社の一覧を会社名順に取得します。
func (r *CompanyRepository) List(ctx context.Context, filter company.ListCompaniesFilter) ([]*company.Company, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, companySelect+`
         ORDER BY c.name ASC, c.id ASC
         LIMIT $1
        OFFSET $2
    `, filter.Limit+1, filter.Offset)
	if err != nil {
		return nil, "", translateCompanyPgError(err)
	}
	defer rows.Close()

	var companies []*company.Company
	for rows.Next() {
		found, err := scanCompany(rows)
		if err != nil {
			return nil, "", translateCompanyPgError(err)
		}
		companies = append(companies, found)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateCompanyPgError(err)
	}

	nextToken := paging.NextToken(filter.Offset, filter.Limit, len(companies))
	if len(companies) > filter.Limit {
		companies = companies[:filter.Limit]
	}

	return companies, nextToken, nil
}

const companySelect = `
        SELECT c.id, c.name,
               (SELECT count(*) FROM departments d WHERE d.company_id = c.id),
               (SELECT count(*) FROM employees e WHERE e.company_id = c.id),
               c.created_at, c.updated_at
          FROM companies c`

func scanCompany(row pgx.Row) (*company.Company, error) {
	var (
		c                    company.Company
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&c.ID, &c.Name, &c.DepartmentCount, &c.EmployeeCount, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, company.ErrCompanyNotFound
		}
		return nil, err
	}

	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt
	return &c, nil
}

func translateCompanyPgError(err error) error {
	if pgErr, ok := asPgError(err); ok {
		if pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == companyNameConstraint {
			return company.ErrNameAlreadyExists
		}
	}
	return err
}

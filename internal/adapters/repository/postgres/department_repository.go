package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ogurasousui/employee-management/internal/core/department"
	"github.com/ogurasousui/employee-management/internal/core/paging"
	pgdb "github.com/ogurasousui/employee-management/internal/platform/db/postgres"
)

const (
	departmentNameConstraint    = "departments_company_id_name_key"
	departmentCompanyConstraint = "departments_company_id_fkey"
)

// DepartmentRepository は PostgreSQL を利用した部署永続化の実装です。
type DepartmentRepository struct {
	pool pgdb.Queryer
}

// NewDepartmentRepository は DepartmentRepository を生成します。
func NewDepartmentRepository(pool pgdb.Queryer) *DepartmentRepository {
	return &DepartmentRepository{pool: pool}
}

// Create は部署を新規作成します。
func (r *DepartmentRepository) Create(ctx context.Context, d *department.Department) (*department.Department, error) {
	if !validUUID(d.CompanyID) {
		return nil, department.ErrCompanyNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH inserted AS (
            INSERT INTO departments (company_id, name, created_at, updated_at)
            VALUES ($1, $2, $3, $4)
            RETURNING id, company_id, name, created_at, updated_at
        )
        SELECT i.id, i.company_id, c.name, i.name, 0, i.created_at, i.updated_at
          FROM inserted i
          JOIN companies c ON c.id = i.company_id
    `, d.CompanyID, d.Name, d.CreatedAt, d.UpdatedAt)

	created, err := scanDepartment(row)
	if err != nil {
		return nil, translateDepartmentPgError(err)
	}
	return created, nil
}

// Update は部署情報を更新します。
func (r *DepartmentRepository) Update(ctx context.Context, d *department.Department) (*department.Department, error) {
	if !validUUID(d.ID) {
		return nil, department.ErrDepartmentNotFound
	}
	if !validUUID(d.CompanyID) {
		return nil, department.ErrCompanyNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH updated AS (
            UPDATE departments
               SET company_id = $1,
                   name = $2,
                   updated_at = $3
             WHERE id = $4
            RETURNING id, company_id, name, created_at, updated_at
        )
        SELECT u.id, u.company_id, c.name, u.name,
               (SELECT count(*) FROM employees e WHERE e.department_id = u.id),
               u.created_at, u.updated_at
          FROM updated u
          JOIN companies c ON c.id = u.company_id
    `, d.CompanyID, d.Name, d.UpdatedAt, d.ID)

	updated, err := scanDepartment(row)
	if err != nil {
		return nil, translateDepartmentPgError(err)
	}
	return updated, nil
}

// Delete は部署を削除します。
func (r *DepartmentRepository) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return department.ErrDepartmentNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return translateDepartmentPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return department.ErrDepartmentNotFound
	}
	return nil
}

// FindByID は ID で部署を取得します。
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*department.Department, error) {
	if !validUUID(id) {
		return nil, department.ErrDepartmentNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, departmentSelect+`
         WHERE d.id = $1
         LIMIT 1
    `, id)

	found, err := scanDepartment(row)
	if err != nil {
		return nil, translateDepartmentPgError(err)
	}
	return found, nil
}

// List は部署の一覧を会社名・部署名順に取得します。
func (r *DepartmentRepository) List(ctx context.Context, filter department.ListDepartmentsFilter) ([]*department.Department, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	args := make([]any, 0, 3)
	conditions := make([]string, 0, 1)

	if filter.CompanyID != nil {
		if !validUUID(*filter.CompanyID) {
			return []*department.Department{}, "", nil
		}
		conditions = append(conditions, "d.company_id = "+placeholder(args))
		args = append(args, *filter.CompanyID)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "\n         WHERE " + strings.Join(conditions, " AND ")
	}

	limitPlaceholder := placeholder(args)
	args = append(args, filter.Limit+1)
	offsetPlaceholder := placeholder(args)
	args = append(args, filter.Offset)

	query := departmentSelect + whereClause + `
         ORDER BY c.name ASC, d.name ASC, d.id ASC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateDepartmentPgError(err)
	}
	defer rows.Close()

	var departments []*department.Department
	for rows.Next() {
		found, err := scanDepartment(rows)
		if err != nil {
			return nil, "", translateDepartmentPgError(err)
		}
		departments = append(departments, found)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateDepartmentPgError(err)
	}

	nextToken := paging.NextToken(filter.Offset, filter.Limit, len(departments))
	if len(departments) > filter.Limit {
		departments = departments[:filter.Limit]
	}

	return departments, nextToken, nil
}

// ExistsByName は excludeID 以外に同じ会社・同名の部署があるか判定します。
func (r *DepartmentRepository) ExistsByName(ctx context.Context, companyID, name, excludeID string) (bool, error) {
	if !validUUID(companyID) {
		return false, nil
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var exists bool
	err := exec.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM departments
             WHERE company_id = $1
               AND name = $2
               AND ($3::uuid IS NULL OR id <> $3::uuid)
        )
    `, companyID, name, nullableUUID(excludeID)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CountEmployees は部署に所属する従業員数を数えます。
func (r *DepartmentRepository) CountEmployees(ctx context.Context, id string) (int, error) {
	if !validUUID(id) {
		return 0, department.ErrDepartmentNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var count int
	if err := exec.QueryRow(ctx, `SELECT count(*) FROM employees WHERE department_id = $1`, id).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CompanyExists は会社が存在するか判定します。
func (r *DepartmentRepository) CompanyExists(ctx context.Context, companyID string) (bool, error) {
	return companyExists(ctx, pgdb.QueryerFromContext(ctx, r.pool), companyID)
}

const departmentSelect = `
        SELECT d.id, d.company_id, c.name, d.name,
               (SELECT count(*) FROM employees e WHERE e.department_id = d.id),
               d.created_at, d.updated_at
          FROM departments d
          JOIN companies c ON c.id = d.company_id`

func scanDepartment(row pgx.Row) (*department.Department, error) {
	var d department.Department
	if err := row.Scan(&d.ID, &d.CompanyID, &d.CompanyName, &d.Name, &d.EmployeeCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, department.ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func translateDepartmentPgError(err error) error {
	pgErr, ok := asPgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		if pgErr.ConstraintName == departmentNameConstraint {
			return department.ErrNameAlreadyExists
		}
	case foreignKeyViolationCode:
		if pgErr.ConstraintName == departmentCompanyConstraint {
			return department.ErrCompanyNotFound
		}
	}
	return err
}

func companyExists(ctx context.Context, exec pgdb.Queryer, companyID string) (bool, error) {
	if !validUUID(companyID) {
		return false, nil
	}

	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, companyID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

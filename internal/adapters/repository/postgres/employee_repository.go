package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ogurasousui/employee-management/internal/core/employee"
	"github.com/ogurasousui/employee-management/internal/core/paging"
	pgdb "github.com/ogurasousui/employee-management/internal/platform/db/postgres"
)

const (
	employeeEmailConstraint      = "employees_email_address_key"
	employeeCompanyConstraint    = "employees_company_id_fkey"
	employeeDepartmentConstraint = "employees_department_id_fkey"
)

// EmployeeRepository は PostgreSQL を利用した従業員永続化の実装です。
type EmployeeRepository struct {
	pool pgdb.Queryer
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

// Create は従業員を新規作成します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	if !validUUID(e.CompanyID) {
		return nil, employee.ErrCompanyNotFound
	}
	if !validUUID(e.DepartmentID) {
		return nil, employee.ErrDepartmentNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH inserted AS (
            INSERT INTO employees (
                company_id, department_id, employee_status, employee_name, email_address,
                mobile_number, address, designation, hired_on, created_at, updated_at
            )
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
            RETURNING *
        )`+employeeProjection("inserted"),
		e.CompanyID, e.DepartmentID, string(e.Status), e.Name, e.Email,
		e.Mobile, e.Address, e.Designation, dateParam(e.HiredOn), e.CreatedAt, e.UpdatedAt)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は従業員情報を更新します。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	if !validUUID(e.ID) {
		return nil, employee.ErrEmployeeNotFound
	}
	if !validUUID(e.CompanyID) {
		return nil, employee.ErrCompanyNotFound
	}
	if !validUUID(e.DepartmentID) {
		return nil, employee.ErrDepartmentNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH updated AS (
            UPDATE employees
               SET company_id = $1,
                   department_id = $2,
                   employee_status = $3,
                   employee_name = $4,
                   email_address = $5,
                   mobile_number = $6,
                   address = $7,
                   designation = $8,
                   hired_on = $9,
                   updated_at = $10
             WHERE id = $11
            RETURNING *
        )`+employeeProjection("updated"),
		e.CompanyID, e.DepartmentID, string(e.Status), e.Name, e.Email,
		e.Mobile, e.Address, e.Designation, dateParam(e.HiredOn), e.UpdatedAt, e.ID)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は従業員を削除します。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	if !validUUID(id) {
		return employee.ErrEmployeeNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は ID で従業員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	if !validUUID(id) {
		return nil, employee.ErrEmployeeNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, employeeProjection("employees")+`
         WHERE e.id = $1
         LIMIT 1
    `, id)

	found, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return found, nil
}

// List は従業員の一覧を会社名・部署名・氏名順に取得します。
func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListEmployeesFilter) ([]*employee.Employee, string, error) {
	if filter.Limit <= 0 {
		return nil, "", paging.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", paging.ErrInvalidPageToken
	}

	args := make([]any, 0, 5)
	conditions := make([]string, 0, 3)

	if filter.CompanyID != nil {
		if !validUUID(*filter.CompanyID) {
			return []*employee.Employee{}, "", nil
		}
		conditions = append(conditions, "e.company_id = "+placeholder(args))
		args = append(args, *filter.CompanyID)
	}

	if filter.DepartmentID != nil {
		if !validUUID(*filter.DepartmentID) {
			return []*employee.Employee{}, "", nil
		}
		conditions = append(conditions, "e.department_id = "+placeholder(args))
		args = append(args, *filter.DepartmentID)
	}

	if filter.Status != nil {
		conditions = append(conditions, "e.employee_status = "+placeholder(args))
		args = append(args, string(*filter.Status))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "\n         WHERE " + strings.Join(conditions, " AND ")
	}

	limitPlaceholder := placeholder(args)
	args = append(args, filter.Limit+1)
	offsetPlaceholder := placeholder(args)
	args = append(args, filter.Offset)

	query := employeeProjection("employees") + whereClause + `
         ORDER BY c.name ASC, d.name ASC, e.employee_name ASC, e.id ASC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder + `
    `

	employees, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}

	nextToken := paging.NextToken(filter.Offset, filter.Limit, len(employees))
	if len(employees) > filter.Limit {
		employees = employees[:filter.Limit]
	}

	return employees, nextToken, nil
}

// ListByStatus は指定ステータスの全従業員を採用日の新しい順に返します。
func (r *EmployeeRepository) ListByStatus(ctx context.Context, status employee.Status) ([]*employee.Employee, error) {
	return r.query(ctx, employeeProjection("employees")+`
         WHERE e.employee_status = $1
         ORDER BY e.hired_on DESC NULLS LAST, e.employee_name ASC, e.id ASC
    `, string(status))
}

// ExistsByEmail は excludeID 以外に同じメールアドレス (小文字比較) の従業員がいるか判定します。
func (r *EmployeeRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var exists bool
	err := exec.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM employees
             WHERE lower(email_address) = lower($1)
               AND ($2::uuid IS NULL OR id <> $2::uuid)
        )
    `, email, nullableUUID(excludeID)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CompanyExists は会社が存在するか判定します。
func (r *EmployeeRepository) CompanyExists(ctx context.Context, companyID string) (bool, error) {
	return companyExists(ctx, pgdb.QueryerFromContext(ctx, r.pool), companyID)
}

// DepartmentCompanyID は部署の所属会社 ID を返します。
func (r *EmployeeRepository) DepartmentCompanyID(ctx context.Context, departmentID string) (string, error) {
	if !validUUID(departmentID) {
		return "", employee.ErrDepartmentNotFound
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)

	var companyID string
	if err := exec.QueryRow(ctx, `SELECT company_id FROM departments WHERE id = $1`, departmentID).Scan(&companyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", employee.ErrDepartmentNotFound
		}
		return "", err
	}
	return companyID, nil
}

func (r *EmployeeRepository) query(ctx context.Context, query string, args ...any) ([]*employee.Employee, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	defer rows.Close()

	employees := make([]*employee.Employee, 0)
	for rows.Next() {
		found, err := scanEmployee(rows)
		if err != nil {
			return nil, translateEmployeePgError(err)
		}
		employees = append(employees, found)
	}

	if err := rows.Err(); err != nil {
		return nil, translateEmployeePgError(err)
	}
	return employees, nil
}

// employeeProjection は source (テーブル名または CTE 名) を e として会社名・部署名を結合した SELECT を返します。
func employeeProjection(source string) string {
	return `
        SELECT e.id, e.company_id, c.name, e.department_id, d.name, e.employee_status,
               e.employee_name, e.email_address, e.mobile_number, e.address, e.designation,
               e.hired_on, e.created_at, e.updated_at
          FROM ` + source + ` e
          JOIN companies c ON c.id = e.company_id
          JOIN departments d ON d.id = e.department_id`
}

func scanEmployee(row pgx.Row) (*employee.Employee, error) {
	var (
		e       employee.Employee
		status  string
		hiredOn pgtype.Date
	)

	err := row.Scan(
		&e.ID, &e.CompanyID, &e.CompanyName, &e.DepartmentID, &e.DepartmentName, &status,
		&e.Name, &e.Email, &e.Mobile, &e.Address, &e.Designation,
		&hiredOn, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	e.Status = employee.Status(status)
	if hiredOn.Valid {
		d := time.Date(hiredOn.Time.Year(), hiredOn.Time.Month(), hiredOn.Time.Day(), 0, 0, 0, 0, time.UTC)
		e.HiredOn = &d
	}
	return &e, nil
}

func dateParam(value *time.Time) pgtype.Date {
	if value == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *value, Valid: true}
}

func translateEmployeePgError(err error) error {
	pgErr, ok := asPgError(err)
	if !ok {
		return err
	}
	switch pgErr.Code {
	case uniqueViolationCode:
		if pgErr.ConstraintName == employeeEmailConstraint {
			return employee.ErrEmailAlreadyExists
		}
	case foreignKeyViolationCode:
		switch pgErr.ConstraintName {
		case employeeCompanyConstraint:
			return employee.ErrCompanyNotFound
		case employeeDepartmentConstraint:
			return employee.ErrDepartmentNotFound
		}
	}
	return err
}

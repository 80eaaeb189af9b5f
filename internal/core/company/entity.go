package company

import "time"

// Company は会社エンティティです。部署数・従業員数は参照時に集計されます。
type Company struct {
	ID              string
	Name            string
	DepartmentCount int
	EmployeeCount   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ChildCounts は会社に所属する子レコードの件数です。
type ChildCounts struct {
	Departments int
	Employees   int
}

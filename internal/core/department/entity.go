package department

import "time"

// Department は部署エンティティです。会社名と従業員数は参照時に付与されます。
type Department struct {
	ID            string
	CompanyID     string
	CompanyName   string
	Name          string
	EmployeeCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

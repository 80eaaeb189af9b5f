package employee

import "errors"

var (
	// ErrEmployeeNotFound は従業員が存在しない場合に返却されます。
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrCompanyNotFound は参照先の会社が存在しない場合に返却されます。
	ErrCompanyNotFound = errors.New("company not found")
	// ErrDepartmentNotFound は参照先の部署が存在しない場合に返却されます。
	ErrDepartmentNotFound = errors.New("department not found")
	// ErrEmailAlreadyExists はメールアドレスがストレージの一意制約に違反した場合に返却されます。
	ErrEmailAlreadyExists = errors.New("email already exists")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidStatus は検索条件のステータスが不正な場合に返却されます。
	ErrInvalidStatus = errors.New("invalid status")
)

const (
	msgDepartmentMismatch = "The selected department does not belong to the selected company."
	msgHiredOnRequired    = "Hired date is required when employee status is 'hired'."
	msgEmailTaken         = "An employee with this email address already exists."
)

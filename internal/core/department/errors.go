package department

import "errors"

var (
	// ErrDepartmentNotFound は部署が存在しない場合に返却されます。
	ErrDepartmentNotFound = errors.New("department not found")
	// ErrCompanyNotFound は参照先の会社が存在しない場合に返却されます。
	ErrCompanyNotFound = errors.New("company not found")
	// ErrNameAlreadyExists は (会社, 部署名) がストレージの一意制約に違反した場合に返却されます。
	ErrNameAlreadyExists = errors.New("department name already exists in company")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
)

const (
	msgNameEmpty         = "Department name cannot be empty."
	msgCompanyRequired   = "Company is required."
	msgNameTaken         = "A department with this name already exists in the selected company."
	msgBlockedByEmployee = "Cannot delete department with existing employees. Please delete all employees first."
	msgCompanyLocked     = "Cannot move department with existing employees to another company. Please reassign its employees first."
)

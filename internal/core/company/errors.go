package company

import "errors"

var (
	// ErrCompanyNotFound は会社が存在しない場合に返却されます。
	ErrCompanyNotFound = errors.New("company not found")
	// ErrNameAlreadyExists は会社名がストレージの一意制約に違反した場合に返却されます。
	ErrNameAlreadyExists = errors.New("company name already exists")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
)

const (
	msgNameEmpty           = "Company name cannot be empty."
	msgNameTaken           = "A company with this name already exists."
	msgBlockedByDepartment = "Cannot delete company with existing departments. Please delete all departments first."
	msgBlockedByEmployee   = "Cannot delete company with existing employees. Please delete all employees first."
)

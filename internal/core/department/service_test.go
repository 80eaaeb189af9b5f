package department

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/ogurasousui/employee-management/internal/core/access"
	"github.com/ogurasousui/employee-management/internal/core/event"
	"github.com/ogurasousui/employee-management/internal/core/validation"
)

type fakeRepo struct {
	companies   map[string]bool
	departments map[string]*Department
	employees   map[string]int
	order       []string
	seq         int
}

func newFakeRepo(companyIDs ...string) *fakeRepo {
	r := &fakeRepo{
		companies:   make(map[string]bool),
		departments: make(map[string]*Department),
		employees:   make(map[string]int),
	}
	for _, id := range companyIDs {
		r.companies[id] = true
	}
	return r
}

func (r *fakeRepo) Create(_ context.Context, d *Department) (*Department, error) {
	clone := cloneDepartment(d)
	r.seq++
	clone.ID = fmt.Sprintf("department-%d", r.seq)
	r.departments[clone.ID] = clone
	r.order = append(r.order, clone.ID)
	return cloneDepartment(clone), nil
}

func (r *fakeRepo) Update(_ context.Context, d *Department) (*Department, error) {
	if _, ok := r.departments[d.ID]; !ok {
		return nil, ErrDepartmentNotFound
	}
	r.departments[d.ID] = cloneDepartment(d)
	return cloneDepartment(d), nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.departments[id]; !ok {
		return ErrDepartmentNotFound
	}
	delete(r.departments, id)
	for i, existingID := range r.order {
		if existingID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*Department, error) {
	d, ok := r.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	return cloneDepartment(d), nil
}

func (r *fakeRepo) List(_ context.Context, filter ListDepartmentsFilter) ([]*Department, string, error) {
	var filtered []*Department
	for _, id := range r.order {
		d := r.departments[id]
		if filter.CompanyID != nil && d.CompanyID != *filter.CompanyID {
			continue
		}
		filtered = append(filtered, cloneDepartment(d))
	}

	if filter.Offset > len(filtered) {
		return []*Department{}, "", nil
	}

	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	var nextToken string
	if end < len(filtered) {
		nextToken = strconv.Itoa(end)
	}
	return filtered[filter.Offset:end], nextToken, nil
}

func (r *fakeRepo) ExistsByName(_ context.Context, companyID, name, excludeID string) (bool, error) {
	for id, d := range r.departments {
		if id != excludeID && d.CompanyID == companyID && d.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) CountEmployees(_ context.Context, id string) (int, error) {
	return r.employees[id], nil
}

func (r *fakeRepo) CompanyExists(_ context.Context, companyID string) (bool, error) {
	return r.companies[companyID], nil
}

func cloneDepartment(d *Department) *Department {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}

func managerCtx() context.Context {
	return access.WithPrincipal(context.Background(), access.Principal{UserID: "mgr-1", Role: access.RoleManager, Authenticated: true})
}

func employeeCtx() context.Context {
	return access.WithPrincipal(context.Background(), access.Principal{UserID: "emp-1", Role: access.RoleEmployee, Authenticated: true})
}

func TestService_CreateDepartment_Success(t *testing.T) {
	t.Parallel()

	events := &event.Recorder{}
	svc := NewService(newFakeRepo("acme"), nil, nil, events, nil)

	created, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: "acme", Name: "  Engineering "})
	if err != nil {
		t.Fatalf("CreateDepartment returned error: %v", err)
	}
	if created.Name != "Engineering" || created.CompanyID != "acme" {
		t.Fatalf("unexpected department: %+v", created)
	}
	if got := events.Types(); len(got) != 1 || got[0] != event.DepartmentCreated {
		t.Fatalf("expected department_created event, got %v", got)
	}
}

func TestService_CreateDepartment_FieldErrorsAggregated(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo("acme"), nil, nil, nil, nil)

	_, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: " ", Name: " "})
	verrs, ok := validation.As(err)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if !verrs.Has(FieldName, validation.KindEmpty) || !verrs.Has(FieldCompany, validation.KindRequired) {
		t.Fatalf("expected both EMPTY and REQUIRED, got %v", verrs)
	}
}

func TestService_CreateDepartment_CompanyNotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo("acme"), nil, nil, nil, nil)

	_, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: "globex", Name: "Eng"})
	if !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestService_CreateDepartment_NameScopedPerCompany(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo("acme", "globex"), nil, nil, nil, nil)

	if _, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: "acme", Name: "Eng"}); err != nil {
		t.Fatalf("CreateDepartment error: %v", err)
	}

	if _, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: "globex", Name: "Eng"}); err != nil {
		t.Fatalf("expected same name under a different company to succeed, got %v", err)
	}

	_, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: "acme", Name: " Eng "})
	if !errors.Is(err, validation.ErrConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestService_CreateDepartment_ForbiddenForEmployee(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo("acme")
	svc := NewService(repo, nil, nil, nil, nil)

	_, err := svc.CreateDepartment(employeeCtx(), CreateDepartmentInput{CompanyID: "acme", Name: "Eng"})
	if !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(repo.departments) != 0 {
		t.Fatalf("expected no department to be created")
	}
}

func TestService_UpdateDepartment_RenameExcludesSelf(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo("acme"), nil, nil, nil, nil)

	created, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: "acme", Name: "Eng"})
	if err != nil {
		t.Fatalf("CreateDepartment error: %v", err)
	}

	name := "Eng"
	if _, err := svc.UpdateDepartment(managerCtx(), UpdateDepartmentInput{ID: created.ID, Name: &name}); err != nil {
		t.Fatalf("expected resubmitting own name to succeed, got %v", err)
	}

	renamed := "Engineering"
	updated, err := svc.UpdateDepartment(managerCtx(), UpdateDepartmentInput{ID: created.ID, Name: &renamed})
	if err != nil {
		t.Fatalf("UpdateDepartment returned error: %v", err)
	}
	if updated.Name != renamed {
		t.Fatalf("expected %s, got %s", renamed, updated.Name)
	}
}

func TestService_UpdateDepartment_CompanyChangeBlockedByEmployees(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo("acme", "globex")
	svc := NewService(repo, nil, nil, nil, nil)

	created, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: "acme", Name: "Eng"})
	if err != nil {
		t.Fatalf("CreateDepartment error: %v", err)
	}
	repo.employees[created.ID] = 2

	target := "globex"
	_, err = svc.UpdateDepartment(managerCtx(), UpdateDepartmentInput{ID: created.ID, CompanyID: &target})
	if !errors.Is(err, validation.ErrConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	verr, ok := validation.As(err)
	if !ok || !verr.Has(FieldCompany, validation.KindConflict) {
		t.Fatalf("expected conflict on %s, got %v", FieldCompany, err)
	}
	if got := repo.departments[created.ID].CompanyID; got != "acme" {
		t.Fatalf("department must stay in acme, got %s", got)
	}

	renamed := "Engineering"
	if _, err := svc.UpdateDepartment(managerCtx(), UpdateDepartmentInput{ID: created.ID, Name: &renamed}); err != nil {
		t.Fatalf("rename within the same company must succeed, got %v", err)
	}

	repo.employees[created.ID] = 0
	moved, err := svc.UpdateDepartment(managerCtx(), UpdateDepartmentInput{ID: created.ID, CompanyID: &target})
	if err != nil {
		t.Fatalf("UpdateDepartment returned error: %v", err)
	}
	if moved.CompanyID != "globex" {
		t.Fatalf("expected globex, got %s", moved.CompanyID)
	}
}

func TestService_DeleteDepartment_BlockedByEmployees(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo("acme")
	svc := NewService(repo, nil, nil, nil, nil)

	created, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: "acme", Name: "Eng"})
	if err != nil {
		t.Fatalf("CreateDepartment error: %v", err)
	}
	repo.employees[created.ID] = 1

	err = svc.DeleteDepartment(managerCtx(), DeleteDepartmentInput{ID: created.ID})
	if !errors.Is(err, validation.ErrConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
	if _, ok := repo.departments[created.ID]; !ok {
		t.Fatalf("department must not be removed")
	}

	repo.employees[created.ID] = 0
	if err := svc.DeleteDepartment(managerCtx(), DeleteDepartmentInput{ID: created.ID}); err != nil {
		t.Fatalf("DeleteDepartment returned error: %v", err)
	}
}

func TestService_ListDepartments_FilterByCompany(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo("acme", "globex"), nil, nil, nil, nil)

	for _, in := range []CreateDepartmentInput{
		{CompanyID: "acme", Name: "Eng"},
		{CompanyID: "acme", Name: "Sales"},
		{CompanyID: "globex", Name: "Eng"},
	} {
		if _, err := svc.CreateDepartment(managerCtx(), in); err != nil {
			t.Fatalf("CreateDepartment error: %v", err)
		}
	}

	acme := "acme"
	res, err := svc.ListDepartments(employeeCtx(), ListDepartmentsInput{CompanyID: &acme})
	if err != nil {
		t.Fatalf("ListDepartments returned error: %v", err)
	}
	if len(res.Departments) != 2 {
		t.Fatalf("expected 2 departments, got %d", len(res.Departments))
	}
}

func TestService_ListCompanyDepartments(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo("acme"), nil, nil, nil, nil)

	if _, err := svc.CreateDepartment(managerCtx(), CreateDepartmentInput{CompanyID: "acme", Name: "Eng"}); err != nil {
		t.Fatalf("CreateDepartment error: %v", err)
	}

	departments, err := svc.ListCompanyDepartments(employeeCtx(), "acme")
	if err != nil {
		t.Fatalf("ListCompanyDepartments returned error: %v", err)
	}
	if len(departments) != 1 {
		t.Fatalf("expected 1 department, got %d", len(departments))
	}

	if _, err := svc.ListCompanyDepartments(employeeCtx(), "missing"); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

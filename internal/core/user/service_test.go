package user

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/employee-management/internal/core/access"
	"github.com/ogurasousui/employee-management/internal/core/event"
	"github.com/ogurasousui/employee-management/internal/core/validation"
)

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}

type fakeRepo struct {
	users map[string]*User
	seq   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*User)}
}

func (r *fakeRepo) Create(_ context.Context, user *User) (*User, error) {
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, ErrEmailAlreadyExists
		}
		if u.Username == user.Username {
			return nil, ErrUsernameAlreadyExists
		}
	}
	r.seq++
	clone := *user
	clone.ID = "user-" + strconv.Itoa(r.seq)
	r.users[clone.ID] = &clone
	return cloneUser(&clone), nil
}

func (r *fakeRepo) Update(_ context.Context, user *User) (*User, error) {
	existing, ok := r.users[user.ID]
	if !ok {
		return nil, ErrUserNotFound
	}
	*existing = *user
	return cloneUser(existing), nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *fakeRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

type fakeBlacklist struct {
	revoked map[string]string
}

func (b *fakeBlacklist) Revoke(_ context.Context, tokenID, userID string, _ time.Time) error {
	b.revoked[tokenID] = userID
	return nil
}

func (b *fakeBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := b.revoked[tokenID]
	return ok, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

// fakeTokens は "refresh:<jti>:<userID>" 形式のトークンを発行します。
type fakeTokens struct {
	seq int
}

func (f *fakeTokens) IssuePair(u *User) (*TokenPair, error) {
	f.seq++
	return &TokenPair{
		Access:  "access:" + u.ID,
		Refresh: "refresh:jti-" + strconv.Itoa(f.seq) + ":" + u.ID,
	}, nil
}

func (f *fakeTokens) IssueAccess(u *User) (string, time.Time, error) {
	return "access:" + u.ID + ":" + string(u.Role), time.Time{}, nil
}

func (f *fakeTokens) ParseRefresh(token string) (*RefreshClaims, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] != "refresh" {
		return nil, errors.New("malformed")
	}
	return &RefreshClaims{TokenID: parts[1], UserID: parts[2]}, nil
}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	blacklist *fakeBlacklist
	events    *event.Recorder
}

func newFixture(opts ...Option) fixture {
	repo := newFakeRepo()
	blacklist := &fakeBlacklist{revoked: make(map[string]string)}
	events := &event.Recorder{}
	opts = append([]Option{WithClock(stubClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}), WithPublisher(events)}, opts...)
	return fixture{
		svc:       NewService(repo, blacklist, fakeHasher{}, &fakeTokens{}, opts...),
		repo:      repo,
		blacklist: blacklist,
		events:    events,
	}
}

func signUpInput(email string) SignUpInput {
	return SignUpInput{
		Username:        strings.Split(email, "@")[0],
		Email:           email,
		Password:        "s3cretpass",
		PasswordConfirm: "s3cretpass",
		FirstName:       " Jane ",
		LastName:        " Doe ",
	}
}

func TestService_SignUp_Success(t *testing.T) {
	t.Parallel()

	f := newFixture()

	res, err := f.svc.SignUp(context.Background(), signUpInput(" Jane@Example.com "))
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if res.User.Email != "jane@example.com" {
		t.Errorf("expected normalized email, got %s", res.User.Email)
	}
	if res.User.Role != access.RoleEmployee {
		t.Errorf("expected default role employee, got %s", res.User.Role)
	}
	if res.User.PasswordHash != "hashed:s3cretpass" {
		t.Errorf("expected hashed password, got %s", res.User.PasswordHash)
	}
	if res.User.FirstName != "Jane" || res.User.LastName != "Doe" {
		t.Errorf("expected trimmed names, got %q %q", res.User.FirstName, res.User.LastName)
	}
	if res.Tokens == nil || res.Tokens.Access == "" || res.Tokens.Refresh == "" {
		t.Errorf("expected token pair, got %+v", res.Tokens)
	}
	if got := f.events.Types(); len(got) != 1 || got[0] != event.UserSignedUp {
		t.Errorf("expected user_signed_up event, got %v", got)
	}
}

func TestService_SignUp_ValidationErrors(t *testing.T) {
	t.Parallel()

	f := newFixture()

	_, err := f.svc.SignUp(context.Background(), SignUpInput{Email: "bad", Password: "short", Role: "root"})
	verrs, ok := validation.As(err)
	if !ok {
		t.Fatalf("expected validation errors, got %v", err)
	}
	for _, want := range []struct {
		field string
		kind  validation.Kind
	}{
		{"username", validation.KindEmpty},
		{"email", validation.KindInvalidFormat},
		{"password", validation.KindTooShort},
		{"role", validation.KindInvalidEnum},
	} {
		if !verrs.Has(want.field, want.kind) {
			t.Errorf("expected %s on %s, got %v", want.kind, want.field, verrs)
		}
	}
}

func TestService_SignUp_PasswordMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture()

	in := signUpInput("jane@example.com")
	in.PasswordConfirm = "different1"

	_, err := f.svc.SignUp(context.Background(), in)
	verrs, _ := validation.As(err)
	if !verrs.Has("password_confirm", validation.KindInvalidFormat) {
		t.Fatalf("expected password_confirm mismatch, got %v", err)
	}
}

func TestService_SignUp_DuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newFixture()

	if _, err := f.svc.SignUp(context.Background(), signUpInput("jane@example.com")); err != nil {
		t.Fatalf("unexpected error preparing data: %v", err)
	}

	in := signUpInput("JANE@example.com")
	in.Username = "jane2"
	_, err := f.svc.SignUp(context.Background(), in)
	if !errors.Is(err, validation.ErrConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestService_SignUp_ElevatedRole(t *testing.T) {
	t.Parallel()

	closed := newFixture()
	in := signUpInput("boss@example.com")
	in.Role = "manager"

	if _, err := closed.svc.SignUp(context.Background(), in); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for self-assigned manager role, got %v", err)
	}

	adminCtx := access.WithPrincipal(context.Background(), access.Principal{UserID: "admin", Role: access.RoleAdmin, Authenticated: true})
	res, err := closed.svc.SignUp(adminCtx, in)
	if err != nil {
		t.Fatalf("expected admin to register a manager, got %v", err)
	}
	if res.User.Role != access.RoleManager {
		t.Fatalf("expected manager role, got %s", res.User.Role)
	}

	open := newFixture(WithRoleSignup(true))
	res, err = open.svc.SignUp(context.Background(), in)
	if err != nil {
		t.Fatalf("expected open role signup to succeed, got %v", err)
	}
	if res.User.Role != access.RoleManager {
		t.Fatalf("expected manager role, got %s", res.User.Role)
	}
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if _, err := f.svc.SignUp(context.Background(), signUpInput("jane@example.com")); err != nil {
		t.Fatalf("SignUp error: %v", err)
	}

	res, err := f.svc.Login(context.Background(), LoginInput{Email: "JANE@example.com", Password: "s3cretpass"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.Tokens.Access == "" {
		t.Fatalf("expected access token")
	}

	if _, err := f.svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "wrongpass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "s3cretpass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestService_RefreshAndLogout(t *testing.T) {
	t.Parallel()

	f := newFixture()
	res, err := f.svc.SignUp(context.Background(), signUpInput("jane@example.com"))
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}

	pair, err := f.svc.Refresh(context.Background(), res.Tokens.Refresh)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if pair.Access == "" {
		t.Fatalf("expected new access token")
	}

	if err := f.svc.Logout(context.Background(), res.Tokens.Refresh); !errors.Is(err, access.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without principal, got %v", err)
	}

	otherCtx := access.WithPrincipal(context.Background(), access.Principal{UserID: "someone-else", Role: access.RoleEmployee, Authenticated: true})
	if err := f.svc.Logout(otherCtx, res.Tokens.Refresh); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign token, got %v", err)
	}

	ownerCtx := access.WithPrincipal(context.Background(), res.User.Principal())
	if err := f.svc.Logout(ownerCtx, res.Tokens.Refresh); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}

	if _, err := f.svc.Refresh(context.Background(), res.Tokens.Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after logout, got %v", err)
	}
	if err := f.svc.Logout(ownerCtx, res.Tokens.Refresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on second logout, got %v", err)
	}
}

func TestService_Refresh_Malformed(t *testing.T) {
	t.Parallel()

	f := newFixture()

	if _, err := f.svc.Refresh(context.Background(), "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := f.svc.Refresh(context.Background(), " "); !errors.Is(err, validation.ErrFieldValidation) {
		t.Fatalf("expected FIELD_VALIDATION for blank token, got %v", err)
	}
}

func TestService_UpdateProfile_Ownership(t *testing.T) {
	t.Parallel()

	f := newFixture()
	res, err := f.svc.SignUp(context.Background(), signUpInput("jane@example.com"))
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}

	first := "Janet"
	ownerCtx := access.WithPrincipal(context.Background(), res.User.Principal())
	updated, err := f.svc.UpdateProfile(ownerCtx, UpdateProfileInput{ID: res.User.ID, FirstName: &first})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if updated.FirstName != first {
		t.Fatalf("expected %s, got %s", first, updated.FirstName)
	}

	otherCtx := access.WithPrincipal(context.Background(), access.Principal{UserID: "other", Role: access.RoleEmployee, Authenticated: true})
	if _, err := f.svc.UpdateProfile(otherCtx, UpdateProfileInput{ID: res.User.ID, FirstName: &first}); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	managerCtx := access.WithPrincipal(context.Background(), access.Principal{UserID: "mgr", Role: access.RoleManager, Authenticated: true})
	if _, err := f.svc.UpdateProfile(managerCtx, UpdateProfileInput{ID: res.User.ID, FirstName: &first}); err != nil {
		t.Fatalf("expected manager to update profile, got %v", err)
	}

	if _, err := f.svc.GetUser(otherCtx, res.User.ID); err != nil {
		t.Fatalf("expected any authenticated principal to read, got %v", err)
	}
}

func TestService_Me(t *testing.T) {
	t.Parallel()

	f := newFixture()
	res, err := f.svc.SignUp(context.Background(), signUpInput("jane@example.com"))
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}

	me, err := f.svc.Me(access.WithPrincipal(context.Background(), res.User.Principal()))
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if me.ID != res.User.ID {
		t.Fatalf("expected %s, got %s", res.User.ID, me.ID)
	}

	if _, err := f.svc.Me(context.Background()); !errors.Is(err, access.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

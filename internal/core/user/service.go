package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ogurasousui/employee-management/internal/core/access"
	"github.com/ogurasousui/employee-management/internal/core/event"
	"github.com/ogurasousui/employee-management/internal/core/validation"
	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Service はアカウントと認証に関するユースケースをまとめます。
type Service struct {
	repo            Repository
	blacklist       TokenBlacklist
	hasher          PasswordHasher
	tokens          TokenIssuer
	clock           Clock
	events          event.Publisher
	logger          *zap.Logger
	allowRoleSignup bool
}

// UseCase はアカウントユースケースの公開インターフェースです。
type UseCase interface {
	SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, in UpdateProfileInput) (*User, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithClock は時刻の取得元を差し替えます。
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPublisher はイベント送出先を設定します。
func WithPublisher(p event.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("user")
		}
	}
}

// WithRoleSignup はサインアップ時に employee 以外のロール指定を許可します。
func WithRoleSignup(allow bool) Option {
	return func(s *Service) {
		s.allowRoleSignup = allow
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, blacklist TokenBlacklist, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		blacklist: blacklist,
		hasher:    hasher,
		tokens:    tokens,
		clock:     realClock{},
		events:    event.NopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUpInput はサインアップ時の入力です。
type SignUpInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	Role            string
}

// LoginInput はログイン時の入力です。
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput はプロフィール更新時の入力です。nil のフィールドは変更しません。
type UpdateProfileInput struct {
	ID        string
	Username  *string
	FirstName *string
	LastName  *string
}

// AuthResult は認証に成功したユーザーと発行トークンです。
type AuthResult struct {
	User   *User
	Tokens *TokenPair
}

// SignUp は新しいユーザーを登録し、トークンを発行します。
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	var c validation.Collector
	username := c.Text("username", "Username", in.Username, 0)
	c.MaxLen("username", username, maxNameLength)
	email := c.Email("email", in.Email)
	c.MaxLen("email", email, maxEmailLength)
	c.MaxLen("first_name", strings.TrimSpace(in.FirstName), maxNameLength)
	c.MaxLen("last_name", strings.TrimSpace(in.LastName), maxNameLength)
	if in.Password == "" {
		c.Add("password", validation.KindRequired, msgFieldRequired)
	} else if utf8.RuneCountInString(in.Password) < minPasswordLength {
		c.Add("password", validation.KindTooShort, msgPasswordTooShort)
	}

	role := access.RoleEmployee
	if strings.TrimSpace(in.Role) != "" {
		parsed, err := access.ParseRole(in.Role)
		if err != nil {
			c.Add("role", validation.KindInvalidEnum, fmt.Sprintf("%q is not a valid choice.", in.Role))
		} else {
			role = parsed
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	if in.Password != in.PasswordConfirm {
		return nil, validation.Errors{{Field: "password_confirm", Kind: validation.KindInvalidFormat, Message: msgPasswordMismatch}}
	}

	if role != access.RoleEmployee && !s.allowRoleSignup {
		if p := access.PrincipalFromContext(ctx); !p.Authenticated || p.Role != access.RoleAdmin {
			return nil, fmt.Errorf("signup as %s: %w", role, access.ErrForbidden)
		}
	}

	if err := s.ensureEmailNotExists(ctx, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	created, err := s.repo.Create(ctx, &User{
		Username:     username,
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, storeConflict(err)
	}

	tokens, err := s.tokens.IssuePair(created)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.events.Publish(ctx, event.Event{
		Type:        event.UserSignedUp,
		AggregateID: created.ID,
		OccurredAt:  now,
		Payload:     map[string]any{"email": created.Email, "role": string(created.Role)},
	})
	s.logger.Info("user signed up", zap.String("user_id", created.ID), zap.String("role", string(created.Role)))

	return &AuthResult{User: created, Tokens: tokens}, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行します。
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(u.PasswordHash, in.Password); err != nil {
		s.logger.Info("login rejected", zap.String("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.tokens.IssuePair(u)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	return &AuthResult{User: u, Tokens: tokens}, nil
}

// Refresh はリフレッシュトークンから新しいアクセストークンを発行します。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseLiveRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	accessToken, expiresAt, err := s.tokens.IssueAccess(u)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &TokenPair{Access: accessToken, AccessExpiresAt: expiresAt}, nil
}

// Logout はリフレッシュトークンを失効させます。本人または manager 以上のみ実行できます。
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	p := access.PrincipalFromContext(ctx)
	if !p.Authenticated {
		return access.ErrUnauthenticated
	}

	claims, err := s.parseLiveRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}

	if err := access.AuthorizeOwned(p, access.OperationDelete, claims.UserID); err != nil {
		return err
	}

	if err := s.blacklist.Revoke(ctx, claims.TokenID, claims.UserID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.logger.Info("refresh token revoked", zap.String("user_id", claims.UserID), zap.String("token_id", claims.TokenID))
	return nil
}

// Me は認証主体のユーザーを返します。
func (s *Service) Me(ctx context.Context) (*User, error) {
	p := access.PrincipalFromContext(ctx)
	if !p.Authenticated {
		return nil, access.ErrUnauthenticated
	}
	return s.repo.FindByID(ctx, p.UserID)
}

// GetUser は ID でユーザーを取得します。
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if err := access.AuthorizeOwned(access.PrincipalFromContext(ctx), access.OperationGet, id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile はユーザーのプロフィールを更新します。
func (s *Service) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*User, error) {
	if err := access.AuthorizeOwned(access.PrincipalFromContext(ctx), access.OperationUpdate, in.ID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	existing, err := s.repo.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	var c validation.Collector
	if in.Username != nil {
		existing.Username = c.Text("username", "Username", *in.Username, 0)
		c.MaxLen("username", existing.Username, maxNameLength)
	}
	if in.FirstName != nil {
		c.MaxLen("first_name", strings.TrimSpace(*in.FirstName), maxNameLength)
	}
	if in.LastName != nil {
		c.MaxLen("last_name", strings.TrimSpace(*in.LastName), maxNameLength)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		existing.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		existing.LastName = strings.TrimSpace(*in.LastName)
	}
	existing.UpdatedAt = s.clock.Now()

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, storeConflict(err)
	}
	return updated, nil
}

func (s *Service) parseLiveRefresh(ctx context.Context, refreshToken string) (*RefreshClaims, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, validation.Required("refresh_token", msgFieldRequired)
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) ensureEmailNotExists(ctx context.Context, email string) error {
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if u != nil {
		return validation.Conflict("email", msgEmailTaken)
	}
	return nil
}

func storeConflict(err error) error {
	switch {
	case errors.Is(err, ErrEmailAlreadyExists):
		return validation.Conflict("email", msgEmailTaken)
	case errors.Is(err, ErrUsernameAlreadyExists):
		return validation.Conflict("username", msgUsernameTaken)
	default:
		return err
	}
}

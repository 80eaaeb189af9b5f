package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ogurasousui/employee-management/internal/core/access"
	"github.com/ogurasousui/employee-management/internal/core/user"
	"github.com/ogurasousui/employee-management/internal/platform/config"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// ErrInvalidToken は署名・期限・種別のいずれかが不正なトークンに返却されます。
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims は発行する JWT のクレームです。
type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// TokenManager は HS256 署名のアクセストークンとリフレッシュトークンを扱います。
type TokenManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      Clock
}

// NewTokenManager は TokenManager を生成します。
func NewTokenManager(cfg config.AuthConfig, clock Clock) *TokenManager {
	if clock == nil {
		clock = systemClock{}
	}
	return &TokenManager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		clock:      clock,
	}
}

// IssuePair はアクセストークンとリフレッシュトークンを発行します。
func (m *TokenManager) IssuePair(u *user.User) (*user.TokenPair, error) {
	accessToken, accessExp, err := m.IssueAccess(u)
	if err != nil {
		return nil, err
	}

	refreshExp := m.clock.Now().Add(m.refreshTTL)
	refreshToken, err := m.sign(Claims{
		TokenType:        tokenTypeRefresh,
		RegisteredClaims: m.registered(u.ID, refreshExp),
	})
	if err != nil {
		return nil, err
	}

	return &user.TokenPair{
		Access:           accessToken,
		Refresh:          refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess はロールとメールアドレスを含むアクセストークンを発行します。
func (m *TokenManager) IssueAccess(u *user.User) (string, time.Time, error) {
	exp := m.clock.Now().Add(m.accessTTL)
	token, err := m.sign(Claims{
		Email:            u.Email,
		Role:             string(u.Role),
		TokenType:        tokenTypeAccess,
		RegisteredClaims: m.registered(u.ID, exp),
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ParseRefresh はリフレッシュトークンを検証します。
func (m *TokenManager) ParseRefresh(token string) (*user.RefreshClaims, error) {
	claims, err := m.parse(token, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return &user.RefreshClaims{
		TokenID:   claims.ID,
		UserID:    claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ParseAccess はアクセストークンを検証し、認証主体を返します。
func (m *TokenManager) ParseAccess(token string) (access.Principal, error) {
	claims, err := m.parse(token, tokenTypeAccess)
	if err != nil {
		return access.Principal{}, err
	}

	role, err := access.ParseRole(claims.Role)
	if err != nil {
		return access.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return access.Principal{
		UserID:        claims.Subject,
		Email:         claims.Email,
		Role:          role,
		Authenticated: true,
	}, nil
}

func (m *TokenManager) registered(subject string, exp time.Time) jwt.RegisteredClaims {
	now := m.clock.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    m.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (m *TokenManager) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) parse(token, tokenType string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, tokenType)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: missing subject or id", ErrInvalidToken)
	}
	return claims, nil
}

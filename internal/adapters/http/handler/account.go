package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/ogurasousui/employee-management/internal/adapters/http/middleware"
	"github.com/ogurasousui/employee-management/internal/core/user"
	"go.uber.org/zap"
)

// AccountHandler はアカウント API の HTTP ハンドラです。
type AccountHandler struct {
	svc user.UseCase
}

// NewAccountHandler は AccountHandler を生成します。
func NewAccountHandler(svc user.UseCase) *AccountHandler {
	return &AccountHandler{svc: svc}
}

type signUpRequest struct {
	Username        string `json:"username" validate:"required,max=150"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	Role            string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type updateProfileRequest struct {
	Username  *string `json:"username"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type tokenPairResponse struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

type signUpResponse struct {
	Message string            `json:"message"`
	User    userResponse      `json:"user"`
	Tokens  tokenPairResponse `json:"tokens"`
}

type accessTokenResponse struct {
	Access string `json:"access"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// SignUp はユーザーを登録し、トークンを発行します。
func (h *AccountHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.svc.SignUp(c.Request().Context(), user.SignUpInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Role:            req.Role,
	})
	if err != nil {
		return err
	}

	middleware.Logger(c).Info("user created", zap.String("user_id", result.User.ID))
	return c.JSON(http.StatusCreated, signUpResponse{
		Message: "User created successfully",
		User:    toUserResponse(result.User),
		Tokens:  tokenPairResponse{Refresh: result.Tokens.Refresh, Access: result.Tokens.Access},
	})
}

// Login はメールアドレスとパスワードでトークンを発行します。
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.svc.Login(c.Request().Context(), user.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenPairResponse{Refresh: result.Tokens.Refresh, Access: result.Tokens.Access})
}

// Refresh はアクセストークンを再発行します。
func (h *AccountHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	pair, err := h.svc.Refresh(c.Request().Context(), req.Refresh)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, accessTokenResponse{Access: pair.Access})
}

// Logout はリフレッシュトークンを失効させます。
func (h *AccountHandler) Logout(c echo.Context) error {
	var req logoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.svc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Logout successful"})
}

// Me は認証中のユーザーを返します。
func (h *AccountHandler) Me(c echo.Context) error {
	u, err := h.svc.Me(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// GetUser は ID でユーザーを返します。
func (h *AccountHandler) GetUser(c echo.Context) error {
	u, err := h.svc.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// UpdateProfile はプロフィールを部分更新します。
func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	u, err := h.svc.UpdateProfile(c.Request().Context(), user.UpdateProfileInput{
		ID:        c.Param("id"),
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
	}
}

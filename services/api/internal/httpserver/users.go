package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/api/internal/service"
	"github.com/Skotchmaster/storefront/services/api/internal/transport"
)

type UsersHTTP struct {
	Svc *service.AccountService
}

func (h *UsersHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_error", "invalid body", err)
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, transport.RegisterResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}

func (h *UsersHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(l.With("username", req.Username), "login_error", err)
	}

	l.Info("login_success", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, transport.LoginResponse{
		AccessToken: res.AccessToken,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
		UserID:      res.User.ID,
		Username:    res.User.Username,
		IsAdmin:     res.User.IsAdmin,
	})
}

func (h *UsersHTTP) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.get_profile")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "get_profile_error", err.Error(), err)
	}

	user, err := h.Svc.GetProfile(ctx, actorOf(c), id)
	if err != nil {
		return fail(l, "get_profile_error", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.update_profile")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "update_profile_error", err.Error(), err)
	}

	var req transport.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_profile_error", "invalid body", err)
	}

	user, err := h.Svc.UpdateProfile(ctx, actorOf(c), id, service.ProfileUpdate{
		Username:        req.Username,
		Email:           req.Email,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return fail(l, "update_profile_error", err)
	}

	l.Info("update_profile_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, user)
}

func (h *UsersHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	users, err := h.Svc.ListUsers(ctx, false)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	return c.JSON(http.StatusOK, users)
}

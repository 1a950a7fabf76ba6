package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/services/storefront/internal/session"
)

func (s *Server) LoginPage(c echo.Context) error {
	if _, ok := s.sessions.Auth(c); ok {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return s.render(c, http.StatusOK, "login.html", "Log in", "")
}

func (s *Server) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "login")

	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	if username == "" || password == "" {
		return s.render(c, http.StatusBadRequest, "login.html", "Log in", username,
			session.Flash{Type: session.FlashError, Message: "Please enter username and password"})
	}

	res, err := s.api.Login(ctx, username, password)
	if err != nil {
		l.Warn("login_error", "username", username, "status", apiclient.StatusOf(err), "error", err)
		return s.render(c, failureStatus(err), "login.html", "Log in", username, errorNote(err))
	}

	if err := s.sessions.SetAuth(c, session.Auth{
		Token:    res.AccessToken,
		UserID:   res.UserID,
		Username: res.Username,
		IsAdmin:  res.IsAdmin,
	}); err != nil {
		l.Error("session_save_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	l.Info("login_success", "user_id", res.UserID)
	return s.redirectFlash(c, "/", session.FlashSuccess, "Logged in successfully")
}

type registerForm struct {
	Username string
	Email    string
}

func (s *Server) RegisterPage(c echo.Context) error {
	return s.render(c, http.StatusOK, "register.html", "Register", registerForm{})
}

func (s *Server) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "register")

	form := registerForm{
		Username: strings.TrimSpace(c.FormValue("username")),
		Email:    strings.TrimSpace(c.FormValue("email")),
	}
	password := c.FormValue("password")

	invalid := func(msg string) error {
		return s.render(c, http.StatusBadRequest, "register.html", "Register", form,
			session.Flash{Type: session.FlashError, Message: msg})
	}
	if form.Username == "" || form.Email == "" || password == "" {
		return invalid("Please fill in all fields")
	}
	if password != c.FormValue("confirm_password") {
		return invalid("Passwords do not match")
	}

	if err := s.api.Register(ctx, form.Username, form.Email, password); err != nil {
		l.Warn("register_error", "username", form.Username, "status", apiclient.StatusOf(err), "error", err)
		return s.render(c, failureStatus(err), "register.html", "Register", form, errorNote(err))
	}

	l.Info("register_success", "username", form.Username)
	return s.redirectFlash(c, "/login", session.FlashSuccess, "Registration successful, you can now log in")
}

func (s *Server) Logout(c echo.Context) error {
	if err := s.sessions.Clear(c); err != nil {
		logging.FromContext(c.Request().Context()).Warn("session_clear_error", "error", err)
	}
	return s.redirectFlash(c, "/", session.FlashSuccess, "Logged out")
}

func (s *Server) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	a := authOf(c)

	user, err := s.api.Profile(ctx, a.Token, a.UserID)
	if err != nil {
		return s.apiFailure(c, "get_profile_error", err, "/")
	}
	return s.render(c, http.StatusOK, "profile.html", "Profile", user)
}

func (s *Server) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.update")
	a := authOf(c)

	var upd apiclient.ProfileUpdate
	if v := strings.TrimSpace(c.FormValue("username")); v != "" {
		upd.Username = &v
	}
	if v := strings.TrimSpace(c.FormValue("email")); v != "" {
		upd.Email = &v
	}
	upd.CurrentPassword = c.FormValue("current_password")
	upd.NewPassword = c.FormValue("new_password")
	if upd.NewPassword != "" && upd.CurrentPassword == "" {
		return s.redirectFlash(c, "/profile", session.FlashError, "Enter your current password to set a new one")
	}

	user, err := s.api.UpdateProfile(ctx, a.Token, a.UserID, upd)
	if err != nil {
		return s.apiFailure(c, "update_profile_error", err, "/profile")
	}
	if user.Username != a.Username {
		if err := s.sessions.SetUsername(c, user.Username); err != nil {
			l.Warn("session_save_error", "error", err)
		}
	}

	l.Info("update_profile_success", "user_id", a.UserID)
	return s.redirectFlash(c, "/profile", session.FlashSuccess, "Profile updated")
}

package httpserver

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/services/storefront/internal/session"
	"github.com/Skotchmaster/storefront/services/storefront/internal/web"
)

const authKey = "auth"

func (s *Server) requireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, ok := s.sessions.Auth(c)
		if !ok {
			return s.redirectFlash(c, "/login", session.FlashInfo, "Please log in to continue")
		}
		c.Set(authKey, a)
		return next(c)
	}
}

func (s *Server) requireLoginJSON(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, ok := s.sessions.Auth(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, jsonResult{Message: "You must be logged in"})
		}
		c.Set(authKey, a)
		return next(c)
	}
}

// requireAdmin only hides pages; the backend enforces admin rights itself.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !authOf(c).IsAdmin {
			return s.redirectFlash(c, "/", session.FlashError, "Administrator access required")
		}
		return next(c)
	}
}

func authOf(c echo.Context) *session.Auth {
	a, _ := c.Get(authKey).(*session.Auth)
	if a == nil {
		return &session.Auth{}
	}
	return a
}

func (s *Server) flash(c echo.Context, kind, msg string) {
	if err := s.sessions.AddFlash(c, kind, msg); err != nil {
		logging.FromContext(c.Request().Context()).Warn("flash_save_error", "error", err)
	}
}

func (s *Server) redirectFlash(c echo.Context, to, kind, msg string) error {
	s.flash(c, kind, msg)
	return c.Redirect(http.StatusSeeOther, to)
}

// render pops pending flashes into the page. notes are shown on this page only.
func (s *Server) render(c echo.Context, status int, name, title string, data any, notes ...session.Flash) error {
	r := c.Request()
	page := web.Page{
		Title:     title,
		Flashes:   append(s.sessions.Flashes(c), notes...),
		CSRFField: csrf.TemplateField(r),
		CSRFToken: csrf.Token(r),
		Data:      data,
	}
	if a, ok := s.sessions.Auth(c); ok {
		page.Auth = a
	}
	return c.Render(status, name, page)
}

// apiFailure turns a backend error into a flash and a redirect. An expired or
// revoked token ends the browser session.
func (s *Server) apiFailure(c echo.Context, event string, err error, to string) error {
	l := logging.FromContext(c.Request().Context())
	l.Warn(event, "status", apiclient.StatusOf(err), "error", err)

	if apiclient.StatusOf(err) == http.StatusUnauthorized && authOf(c).Token != "" {
		if cerr := s.sessions.Clear(c); cerr != nil {
			l.Warn("session_clear_error", "error", cerr)
		}
		return s.redirectFlash(c, "/login", session.FlashError, "Your session has expired, please log in again")
	}
	return s.redirectFlash(c, to, session.FlashError, apiclient.Message(err))
}

func errorNote(err error) session.Flash {
	return session.Flash{Type: session.FlashError, Message: apiclient.Message(err)}
}

// failureStatus is the status used when a form is re-rendered after a backend error.
func failureStatus(err error) int {
	if st := apiclient.StatusOf(err); st >= 400 {
		return st
	}
	return http.StatusBadGateway
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "Something went wrong"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		msg = http.StatusText(status)
	}
	if status >= 500 {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}

	data := struct {
		Status  int
		Message string
	}{status, msg}
	if rerr := s.render(c, status, "error.html", http.StatusText(status), data); rerr != nil {
		_ = c.String(status, msg)
	}
}

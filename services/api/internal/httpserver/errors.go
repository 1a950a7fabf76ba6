package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/services/api/internal/service"
)

var sentinels = []struct {
	err    error
	status int
}{
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrSearchDisabled, http.StatusServiceUnavailable},
}

// fail logs err under event and converts it into the HTTP error for the
// service sentinel it wraps. Unknown errors become an opaque 500.
func fail(l *slog.Logger, event string, err error) error {
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			l.Warn(event, "status", s.status, "error", err)
			return echo.NewHTTPError(s.status, publicMessage(err, s.err))
		}
	}
	l.Error(event, "status", http.StatusInternalServerError, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

func publicMessage(err, sentinel error) string {
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}

func badRequest(l *slog.Logger, event, msg string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", msg, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func parseID(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return uint(v), nil
}

// userIDQuery reads ?user_id=, defaulting to the caller.
func userIDQuery(c echo.Context, actor service.Actor) (uint, error) {
	raw := c.QueryParam("user_id")
	if raw == "" {
		return actor.ID, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, errors.New("user_id must be a positive integer")
	}
	return uint(v), nil
}

func actorOf(c echo.Context) service.Actor {
	id, _ := middleware.UserID(c)
	return service.Actor{ID: id, IsAdmin: middleware.IsAdmin(c)}
}

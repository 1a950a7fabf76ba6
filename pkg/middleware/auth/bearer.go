package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "role"
)

// AccountCheck reports the live state of the account behind a token. A
// missing account reports neither flag.
type AccountCheck func(ctx context.Context, userID uint) (active, admin bool, err error)

type BearerMiddleware struct {
	JWTSecret    []byte
	AccountCheck AccountCheck
}

func NewBearerMiddleware(secret []byte, check AccountCheck) *BearerMiddleware {
	return &BearerMiddleware{
		JWTSecret:    secret,
		AccountCheck: check,
	}
}

type ValidatorFunc func(c echo.Context, role string, userID uint) error

func (m *BearerMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *BearerMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, func(c echo.Context, role string, userID uint) error {
		if role != tokens.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *BearerMiddleware) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.AccessClaimsFromToken(raw, m.JWTSecret)
		if err != nil || claims == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		role, err := m.effectiveRole(c, claims, userID)
		if err != nil {
			return err
		}

		if validator != nil {
			if validationErr := validator(c, role, userID); validationErr != nil {
				return validationErr
			}
		}

		setUserContext(c, claims.Username, role, userID)
		return next(c)
	}
}

// effectiveRole grants admin only when both the token and the database agree,
// so demotion and deactivation apply to tokens that are already issued.
func (m *BearerMiddleware) effectiveRole(c echo.Context, claims *tokens.AccessClaims, userID uint) (string, error) {
	if m.AccountCheck == nil {
		return claims.Role, nil
	}

	ctx := c.Request().Context()
	active, admin, err := m.AccountCheck(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("account_check_error", "user_id", userID, "error", err)
		return "", echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if !active {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "account is disabled")
	}
	if claims.Role == tokens.RoleAdmin && admin {
		return tokens.RoleAdmin, nil
	}
	return tokens.RoleUser, nil
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func setUserContext(c echo.Context, username, role string, userID uint) {
	c.Set(ctxUserID, userID)
	c.Set(ctxUsername, username)
	c.Set(ctxRole, role)
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxUserID).(uint)
	return id, ok
}

func Username(c echo.Context) string {
	s, _ := c.Get(ctxUsername).(string)
	return s
}

func IsAdmin(c echo.Context) bool {
	role, _ := c.Get(ctxRole).(string)
	return role == tokens.RoleAdmin
}

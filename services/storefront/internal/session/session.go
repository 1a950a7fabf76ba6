package session

import (
	"encoding/gob"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	cookieName = "storefront-session"

	keyToken    = "access_token"
	keyUserID   = "user_id"
	keyUsername = "username"
	keyIsAdmin  = "is_admin"
)

const (
	FlashSuccess = "success"
	FlashError   = "danger"
	FlashInfo    = "info"
)

type Flash struct {
	Type    string
	Message string
}

func init() {
	gob.Register(Flash{})
}

// Auth is what the browser session remembers about the signed-in shopper.
type Auth struct {
	Token    string
	UserID   uint
	Username string
	IsAdmin  bool
}

type Store struct {
	cookies *sessions.CookieStore
}

func NewStore(key []byte, secure bool) *Store {
	cs := sessions.NewCookieStore(key)
	cs.Options.HttpOnly = true
	cs.Options.Secure = secure
	cs.Options.SameSite = http.SameSiteLaxMode
	cs.Options.Path = "/"
	cs.Options.MaxAge = 86400 * 7
	return &Store{cookies: cs}
}

// get never fails: a cookie that does not decode yields a fresh session.
func (s *Store) get(c echo.Context) *sessions.Session {
	sess, _ := s.cookies.Get(c.Request(), cookieName)
	return sess
}

func (s *Store) save(c echo.Context, sess *sessions.Session) error {
	return sess.Save(c.Request(), c.Response())
}

func (s *Store) Auth(c echo.Context) (*Auth, bool) {
	sess := s.get(c)
	token, _ := sess.Values[keyToken].(string)
	if token == "" {
		return nil, false
	}
	id, _ := sess.Values[keyUserID].(uint)
	name, _ := sess.Values[keyUsername].(string)
	admin, _ := sess.Values[keyIsAdmin].(bool)
	return &Auth{Token: token, UserID: id, Username: name, IsAdmin: admin}, true
}

func (s *Store) SetAuth(c echo.Context, a Auth) error {
	sess := s.get(c)
	sess.Values[keyToken] = a.Token
	sess.Values[keyUserID] = a.UserID
	sess.Values[keyUsername] = a.Username
	sess.Values[keyIsAdmin] = a.IsAdmin
	return s.save(c, sess)
}

// SetUsername updates the cached display name after a profile change.
func (s *Store) SetUsername(c echo.Context, name string) error {
	sess := s.get(c)
	sess.Values[keyUsername] = name
	return s.save(c, sess)
}

// Clear signs the shopper out but keeps pending flashes.
func (s *Store) Clear(c echo.Context) error {
	sess := s.get(c)
	delete(sess.Values, keyToken)
	delete(sess.Values, keyUserID)
	delete(sess.Values, keyUsername)
	delete(sess.Values, keyIsAdmin)
	return s.save(c, sess)
}

func (s *Store) AddFlash(c echo.Context, kind, message string) error {
	sess := s.get(c)
	sess.AddFlash(Flash{Type: kind, Message: message})
	return s.save(c, sess)
}

// Flashes pops pending flash messages.
func (s *Store) Flashes(c echo.Context) []Flash {
	sess := s.get(c)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	out := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if fm, ok := f.(Flash); ok {
			out = append(out, fm)
		}
	}
	if err := s.save(c, sess); err != nil {
		logging.FromContext(c.Request().Context()).Warn("flash_clear_error", "error", err)
	}
	return out
}

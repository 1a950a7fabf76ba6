package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/services/api/internal/ratelimit"
	"github.com/Skotchmaster/storefront/services/api/internal/repo"
	"github.com/Skotchmaster/storefront/services/api/internal/service"
)

type testEnv struct {
	t        *testing.T
	E        *echo.Echo
	Repo     *repo.GormRepo
	Accounts *service.AccountService
	Events   *events.MemoryPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimiter(t, nil)
}

func newTestEnvWithLimiter(t *testing.T, lim ratelimit.Limiter) *testEnv {
	t.Helper()

	gdb, err := db.OpenSQLite()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := &repo.GormRepo{DB: gdb}
	require.NoError(t, r.Migrate(context.Background()))

	pub := &events.MemoryPublisher{}
	accounts := &service.AccountService{Repo: r, Events: pub, JWTSecret: []byte("test-jwt-secret"), TokenTTL: time.Hour}
	catalog := &service.CatalogService{Repo: r, Events: pub}
	carts := &service.CartService{Repo: r, Events: pub}

	e := echo.New()
	Register(e, &Deps{
		Users:        &UsersHTTP{Svc: accounts},
		Products:     &ProductsHTTP{Svc: catalog},
		Carts:        &CartsHTTP{Svc: carts},
		Admin:        &AdminHTTP{Accounts: accounts, Catalog: catalog},
		JWTSecret:    accounts.JWTSecret,
		AccountCheck: accounts.AccountState,
		LoginLimiter: lim,
		DB:           gdb,
	})

	return &testEnv{t: t, E: e, Repo: r, Accounts: accounts, Events: pub}
}

func (env *testEnv) doJSONRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	env.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

// signup registers a user through the API and logs them in.
func (env *testEnv) signup(username string, admin bool) (uint, string) {
	env.t.Helper()
	ctx := context.Background()

	var id uint
	if admin {
		u, err := env.Accounts.EnsureAdmin(ctx, username, username+"@example.com", "pw-"+username)
		require.NoError(env.t, err)
		id = u.ID
	} else {
		u, err := env.Accounts.Register(ctx, username, username+"@example.com", "pw-"+username)
		require.NoError(env.t, err)
		id = u.ID
	}

	res, err := env.Accounts.Login(ctx, username, "pw-"+username)
	require.NoError(env.t, err)
	return id, res.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

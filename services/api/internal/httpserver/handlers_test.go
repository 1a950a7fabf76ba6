package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/services/api/internal/models"
	"github.com/Skotchmaster/storefront/services/api/internal/transport"
)

func createProduct(t *testing.T, env *testEnv, adminToken, name, price string) models.Product {
	t.Helper()
	rec := env.doJSONRequest(http.MethodPost, "/api/v1/products", map[string]any{
		"name": name, "price": price, "stock": 5,
	}, adminToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Product](t, rec)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.doJSONRequest(http.MethodGet, "/health/live", nil, "").Code)
	assert.Equal(t, http.StatusOK, env.doJSONRequest(http.MethodGet, "/health/ready", nil, "").Code)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	body := map[string]string{"username": "alice", "email": "alice@example.com", "password": "secret"}
	rec := env.doJSONRequest(http.MethodPost, "/api/v1/users/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decode[transport.RegisterResponse](t, rec)
	assert.Equal(t, "alice", reg.Username)

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/users/register", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/users/register", map[string]string{"username": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice", "password": "secret"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[transport.LoginResponse](t, rec)
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, reg.ID, login.UserID)
	assert.False(t, login.IsAdmin)

	rec = env.doJSONRequest(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid username or password")
}

type denyAfter struct {
	mu sync.Mutex
	n  int
}

func (d *denyAfter) Allow(context.Context, string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n--
	return d.n >= 0, nil
}

func TestLoginRateLimited(t *testing.T) {
	t.Parallel()
	env := newTestEnvWithLimiter(t, &denyAfter{n: 1})

	creds := map[string]string{"username": "ghost", "password": "x"}
	assert.Equal(t, http.StatusUnauthorized, env.doJSONRequest(http.MethodPost, "/api/v1/users/login", creds, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, env.doJSONRequest(http.MethodPost, "/api/v1/users/login", creds, "").Code)
}

func TestProfile(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	aliceID, aliceTok := env.signup("alice", false)
	bobID, _ := env.signup("bob", false)
	_, adminTok := env.signup("root", true)

	rec := env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/v1/users/profile/%d", aliceID), nil, aliceTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/v1/users/profile/%d", bobID), nil, aliceTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/v1/users/profile/%d", bobID), nil, adminTok)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/users/profile/1", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/users/profile/%d", aliceID), map[string]string{"username": "bob"}, aliceTok)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/users/profile/%d", aliceID), map[string]string{"email": "alice@new.example.com"}, aliceTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@new.example.com", decode[models.User](t, rec).Email)

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/users", nil, aliceTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.doJSONRequest(http.MethodGet, "/api/v1/users", nil, adminTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.User](t, rec), 3)
}

func TestProducts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	_, userTok := env.signup("alice", false)
	_, adminTok := env.signup("root", true)

	rec := env.doJSONRequest(http.MethodPost, "/api/v1/products", map[string]any{"name": "Mug", "price": "9.99"}, userTok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.doJSONRequest(http.MethodPost, "/api/v1/products", map[string]any{"name": "Mug", "price": "9.99"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	mug := createProduct(t, env, adminTok, "Mug", "9.99")
	assert.Equal(t, "9.99", mug.Price.StringFixed(2))
	createProduct(t, env, adminTok, "Pen", "1.50")

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/products", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Product](t, rec), 2)

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/products?page=2&size=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[[]models.Product](t, rec)
	require.Len(t, page, 1)
	assert.Equal(t, "Pen", page[0].Name)

	rec = env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/v1/products/%d", mug.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":"9.99"`)

	assert.Equal(t, http.StatusBadRequest, env.doJSONRequest(http.MethodGet, "/api/v1/products/abc", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, env.doJSONRequest(http.MethodGet, "/api/v1/products/999", nil, "").Code)

	rec = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/products/%d", mug.ID), map[string]any{"price": "-1"}, adminTok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/products/%d", mug.ID), map[string]any{"stock": 0}, adminTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[models.Product](t, rec).Stock)

	rec = env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", mug.ID), nil, adminTok)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", mug.ID), nil, adminTok)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/products/search?q=mug", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCartFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	aliceID, aliceTok := env.signup("alice", false)
	bobID, bobTok := env.signup("bob", false)
	_, adminTok := env.signup("root", true)
	mug := createProduct(t, env, adminTok, "Mug", "9.99")

	rec := env.doJSONRequest(http.MethodGet, "/api/v1/carts", nil, aliceTok)
	assert.Equal(t, http.StatusNotFound, rec.Code, "cart is created lazily")

	add := map[string]any{"user_id": aliceID, "product_id": mug.ID, "quantity": 2}
	rec = env.doJSONRequest(http.MethodPost, "/api/v1/carts/items", add, aliceTok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[transport.CartItemResponse](t, rec)
	assert.Equal(t, 2, first.Quantity)

	add["quantity"] = 3
	rec = env.doJSONRequest(http.MethodPost, "/api/v1/carts/items", add, aliceTok)
	require.Equal(t, http.StatusCreated, rec.Code)
	merged := decode[transport.CartItemResponse](t, rec)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)

	add["quantity"] = 0
	assert.Equal(t, http.StatusBadRequest, env.doJSONRequest(http.MethodPost, "/api/v1/carts/items", add, aliceTok).Code)
	add["quantity"], add["product_id"] = 1, 999
	assert.Equal(t, http.StatusNotFound, env.doJSONRequest(http.MethodPost, "/api/v1/carts/items", add, aliceTok).Code)
	add["user_id"], add["product_id"] = bobID, mug.ID
	assert.Equal(t, http.StatusForbidden, env.doJSONRequest(http.MethodPost, "/api/v1/carts/items", add, aliceTok).Code)

	rec = env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/v1/carts?user_id=%d", aliceID), nil, aliceTok)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[transport.CartResponse](t, rec)
	assert.Equal(t, aliceID, cart.UserID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	itemPath := fmt.Sprintf("/api/v1/carts/items/%d", first.ID)
	rec = env.doJSONRequest(http.MethodPut, itemPath, map[string]int{"quantity": 2}, aliceTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[transport.CartItemResponse](t, rec).Quantity)

	assert.Equal(t, http.StatusBadRequest, env.doJSONRequest(http.MethodPut, itemPath, map[string]int{"quantity": 0}, aliceTok).Code)
	assert.Equal(t, http.StatusBadRequest, env.doJSONRequest(http.MethodPut, itemPath, map[string]int{}, aliceTok).Code)
	assert.Equal(t, http.StatusNotFound, env.doJSONRequest(http.MethodPut, itemPath, map[string]int{"quantity": 9}, bobTok).Code)
	assert.Equal(t, http.StatusForbidden, env.doJSONRequest(http.MethodGet, fmt.Sprintf("/api/v1/carts?user_id=%d", aliceID), nil, bobTok).Code)

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/carts", nil, aliceTok)
	assert.Equal(t, 2, decode[transport.CartResponse](t, rec).Items[0].Quantity)

	assert.Equal(t, http.StatusNoContent, env.doJSONRequest(http.MethodDelete, itemPath, nil, aliceTok).Code)
	assert.Equal(t, http.StatusNotFound, env.doJSONRequest(http.MethodDelete, itemPath, nil, aliceTok).Code)

	assert.Equal(t, http.StatusNoContent, env.doJSONRequest(http.MethodDelete, "/api/v1/carts", nil, aliceTok).Code)
	assert.Equal(t, http.StatusNotFound, env.doJSONRequest(http.MethodDelete, "/api/v1/carts", nil, bobTok).Code)
}

func TestAdminEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	aliceID, aliceTok := env.signup("alice", false)
	rootID, rootTok := env.signup("root", true)

	assert.Equal(t, http.StatusForbidden, env.doJSONRequest(http.MethodGet, "/api/v1/admin/users", nil, aliceTok).Code)

	rec := env.doJSONRequest(http.MethodPost, "/api/v1/admin/products", map[string]any{"name": "Mug", "price": "2.00"}, rootTok)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[transport.ProductsResponse](t, rec)
	require.NotNil(t, created.Product)
	assert.Len(t, created.Products, 1)

	rec = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/admin/products/%d", created.Product.ID), map[string]any{"name": "Big mug"}, rootTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Big mug", decode[transport.ProductsResponse](t, rec).Products[0].Name)

	rec = env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/v1/admin/products/%d", created.Product.ID), nil, rootTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[transport.ProductsResponse](t, rec).Products)

	rec = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/make-admin", aliceID), nil, rootTok)
	require.Equal(t, http.StatusOK, rec.Code)
	action := decode[transport.UserActionResponse](t, rec)
	assert.True(t, action.User.IsAdmin)
	assert.NotEmpty(t, action.Message)

	rec = env.doJSONRequest(http.MethodGet, "/api/v1/admin/users", nil, rootTok)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]models.User](t, rec)
	require.Len(t, users, 2)
	assert.Equal(t, aliceID, users[0].ID)
	assert.Equal(t, rootID, users[1].ID)

	// alice's token still says "user"; promotion takes effect on next login
	assert.Equal(t, http.StatusForbidden, env.doJSONRequest(http.MethodGet, "/api/v1/admin/users", nil, aliceTok).Code)

	rec = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/remove-admin", rootID), nil, rootTok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/active", aliceID), map[string]bool{"is_active": false}, rootTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[transport.UserActionResponse](t, rec).User.IsActive)

	rec = env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/active", aliceID), map[string]any{}, rootTok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.doJSONRequest(http.MethodPut, "/api/v1/admin/users/999/make-admin", nil, rootTok)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, http.StatusNoContent, env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%d", aliceID), nil, rootTok).Code)
	assert.Equal(t, http.StatusNotFound, env.doJSONRequest(http.MethodDelete, fmt.Sprintf("/api/v1/admin/users/%d", aliceID), nil, rootTok).Code)
}

func TestDemotedAdminLosesAccess(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	_, rootTok := env.signup("root", true)
	otherID, otherTok := env.signup("other", true)

	require.Equal(t, http.StatusOK, env.doJSONRequest(http.MethodGet, "/api/v1/admin/users", nil, otherTok).Code)

	rec := env.doJSONRequest(http.MethodPut, fmt.Sprintf("/api/v1/admin/users/%d/remove-admin", otherID), nil, rootTok)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusForbidden, env.doJSONRequest(http.MethodGet, "/api/v1/admin/users", nil, otherTok).Code,
		"role claim is re-checked against the database")
}

func TestDemotedAdminLosesCrossUserAccess(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	victimID, victimTok := env.signup("victim", false)
	formerID, formerTok := env.signup("former", true)
	mug := createProduct(t, env, formerTok, "Mug", "9.99")

	add := map[string]any{"user_id": victimID, "product_id": mug.ID, "quantity": 1}
	require.Equal(t, http.StatusCreated, env.doJSONRequest(http.MethodPost, "/api/v1/carts/items", add, victimTok).Code)

	victimCart := fmt.Sprintf("/api/v1/carts?user_id=%d", victimID)
	victimProfile := fmt.Sprintf("/api/v1/users/profile/%d", victimID)
	require.Equal(t, http.StatusOK, env.doJSONRequest(http.MethodGet, victimCart, nil, formerTok).Code)

	_, err := env.Accounts.SetAdmin(ctx, formerID, false)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, env.doJSONRequest(http.MethodGet, victimCart, nil, formerTok).Code)
	assert.Equal(t, http.StatusForbidden, env.doJSONRequest(http.MethodDelete, victimCart, nil, formerTok).Code)
	add["quantity"] = 7
	assert.Equal(t, http.StatusForbidden, env.doJSONRequest(http.MethodPost, "/api/v1/carts/items", add, formerTok).Code)
	assert.Equal(t, http.StatusForbidden, env.doJSONRequest(http.MethodGet, victimProfile, nil, formerTok).Code)
	assert.Equal(t, http.StatusNotFound, env.doJSONRequest(http.MethodGet, "/api/v1/carts", nil, formerTok).Code,
		"still signed in as a plain user")

	_, err = env.Accounts.SetActive(ctx, formerID, false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, env.doJSONRequest(http.MethodGet, "/api/v1/carts", nil, formerTok).Code)
	assert.Equal(t, http.StatusUnauthorized, env.doJSONRequest(http.MethodGet, victimCart, nil, formerTok).Code)

	rec := env.doJSONRequest(http.MethodGet, "/api/v1/carts", nil, victimTok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[transport.CartResponse](t, rec).Items[0].Quantity)
}

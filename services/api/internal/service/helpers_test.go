package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/services/api/internal/models"
	"github.com/Skotchmaster/storefront/services/api/internal/repo"
)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()

	gdb, err := db.OpenSQLite()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := &repo.GormRepo{DB: gdb}
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func seedUser(t *testing.T, r *repo.GormRepo, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, r *repo.GormRepo, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), Stock: 10}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

func newCartService(t *testing.T) (*CartService, *events.MemoryPublisher) {
	t.Helper()
	pub := &events.MemoryPublisher{}
	return &CartService{Repo: newTestRepo(t), Events: pub}, pub
}

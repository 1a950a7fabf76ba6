package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/api/internal/models"
	"github.com/Skotchmaster/storefront/services/api/internal/service"
	"github.com/Skotchmaster/storefront/services/api/internal/transport"
)

type AdminHTTP struct {
	Accounts *service.AccountService
	Catalog  *service.CatalogService
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_users")

	users, err := h.Accounts.ListUsers(ctx, true)
	if err != nil {
		return fail(l, "admin_list_users_error", err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *AdminHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_products")

	products, err := h.allProducts(c)
	if err != nil {
		return fail(l, "admin_list_products_error", err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_product")

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "admin_create_product_error", "invalid body", err)
	}

	p, err := h.Catalog.CreateProduct(ctx, inputOf(req))
	if err != nil {
		return fail(l, "admin_create_product_error", err)
	}
	return h.withProducts(c, http.StatusCreated, p)
}

func (h *AdminHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_product")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "admin_update_product_error", err.Error(), err)
	}
	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "admin_update_product_error", "invalid body", err)
	}

	p, err := h.Catalog.UpdateProduct(ctx, id, inputOf(req))
	if err != nil {
		return fail(l, "admin_update_product_error", err)
	}
	return h.withProducts(c, http.StatusOK, p)
}

func (h *AdminHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_product")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "admin_delete_product_error", err.Error(), err)
	}
	if err := h.Catalog.DeleteProduct(ctx, id); err != nil {
		return fail(l, "admin_delete_product_error", err)
	}
	return h.withProducts(c, http.StatusOK, nil)
}

func (h *AdminHTTP) MakeAdmin(c echo.Context) error {
	return h.setAdmin(c, true)
}

func (h *AdminHTTP) RemoveAdmin(c echo.Context) error {
	return h.setAdmin(c, false)
}

func (h *AdminHTTP) setAdmin(c echo.Context, isAdmin bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_admin", "is_admin", isAdmin)

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "admin_set_admin_error", err.Error(), err)
	}
	if !isAdmin && id == actorOf(c).ID {
		return badRequest(l, "admin_set_admin_error", "cannot remove your own admin rights", errors.New("self demotion"))
	}

	user, err := h.Accounts.SetAdmin(ctx, id, isAdmin)
	if err != nil {
		return fail(l, "admin_set_admin_error", err)
	}

	msg := "user " + user.Username + " is now an administrator"
	if !isAdmin {
		msg = "user " + user.Username + " is no longer an administrator"
	}
	l.Info("admin_set_admin_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, transport.UserActionResponse{Message: msg, User: *user})
}

func (h *AdminHTTP) SetActive(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_active")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "admin_set_active_error", err.Error(), err)
	}
	var req transport.SetActiveRequest
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return badRequest(l, "admin_set_active_error", "is_active is required", err)
	}
	if !*req.IsActive && id == actorOf(c).ID {
		return badRequest(l, "admin_set_active_error", "cannot deactivate your own account", errors.New("self deactivation"))
	}

	user, err := h.Accounts.SetActive(ctx, id, *req.IsActive)
	if err != nil {
		return fail(l, "admin_set_active_error", err)
	}

	msg := "user " + user.Username + " activated"
	if !user.IsActive {
		msg = "user " + user.Username + " deactivated"
	}
	l.Info("admin_set_active_success", "user_id", user.ID, "is_active", user.IsActive)
	return c.JSON(http.StatusOK, transport.UserActionResponse{Message: msg, User: *user})
}

func (h *AdminHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_user")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "admin_delete_user_error", err.Error(), err)
	}
	if id == actorOf(c).ID {
		return badRequest(l, "admin_delete_user_error", "cannot delete your own account", errors.New("self deletion"))
	}
	if err := h.Accounts.DeleteUser(ctx, id); err != nil {
		return fail(l, "admin_delete_user_error", err)
	}

	l.Info("admin_delete_user_success", "user_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHTTP) allProducts(c echo.Context) ([]models.Product, error) {
	_, products, err := h.Catalog.ListProducts(c.Request().Context(), 0, 0)
	return products, err
}

// withProducts answers a product mutation with the refreshed product list.
func (h *AdminHTTP) withProducts(c echo.Context, status int, p *models.Product) error {
	products, err := h.allProducts(c)
	if err != nil {
		return fail(logging.FromContext(c.Request().Context()), "admin_list_products_error", err)
	}
	return c.JSON(status, transport.ProductsResponse{Product: p, Products: products})
}

package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/pagination"
	"github.com/Skotchmaster/storefront/services/api/internal/service"
	"github.com/Skotchmaster/storefront/services/api/internal/transport"
)

type ProductsHTTP struct {
	Svc *service.CatalogService
}

func inputOf(req transport.ProductRequest) service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	}
}

// ListProducts returns every product, or one page of them when page or size
// is given.
func (h *ProductsHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.list")

	offset, limit := 0, 0
	if c.QueryParam("page") != "" || c.QueryParam("size") != "" {
		page := pagination.ParseIntDefault(c.QueryParam("page"), 1)
		size := pagination.ParseIntDefault(c.QueryParam("size"), pagination.DefaultPageSize)
		offset, limit = pagination.Calculate(page, size)
	}

	_, items, err := h.Svc.ListProducts(ctx, offset, limit)
	if err != nil {
		return fail(l, "list_products_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductsHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.search")

	page := pagination.ParseIntDefault(c.QueryParam("page"), 1)
	size := pagination.ParseIntDefault(c.QueryParam("size"), pagination.DefaultPageSize)
	from, size := pagination.Calculate(page, size)

	total, items, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"), from, size)
	if err != nil {
		return fail(l, "search_products_error", err)
	}
	return c.JSON(http.StatusOK, transport.SearchResponse{Total: total, Products: items})
}

func (h *ProductsHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.get")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "get_product_error", err.Error(), err)
	}

	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductsHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.create")

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_product_error", "invalid body", err)
	}

	p, err := h.Svc.CreateProduct(ctx, inputOf(req))
	if err != nil {
		return fail(l, "create_product_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductsHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.update")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "update_product_error", err.Error(), err)
	}
	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_product_error", "invalid body", err)
	}

	p, err := h.Svc.UpdateProduct(ctx, id, inputOf(req))
	if err != nil {
		return fail(l, "update_product_error", err)
	}

	l.Info("update_product_success", "product_id", p.ID)
	return c.JSON(http.StatusOK, p)
}

func (h *ProductsHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.delete")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "delete_product_error", err.Error(), err)
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return fail(l, "delete_product_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "product deleted"})
}

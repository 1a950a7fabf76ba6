package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/api/internal/service"
	"github.com/Skotchmaster/storefront/services/api/internal/transport"
)

type CartsHTTP struct {
	Svc *service.CartService
}

func (h *CartsHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "carts.get")

	actor := actorOf(c)
	userID, err := userIDQuery(c, actor)
	if err != nil {
		return badRequest(l, "get_cart_error", err.Error(), err)
	}

	cart, err := h.Svc.GetCart(ctx, actor, userID)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, transport.CartFromModel(cart))
}

func (h *CartsHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "carts.add_item")

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_item_error", "invalid body", err)
	}

	actor := actorOf(c)
	if req.UserID == 0 {
		req.UserID = actor.ID
	}

	item, err := h.Svc.AddItem(ctx, actor, req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	l.Info("add_item_success", "cart_id", item.CartID, "product_id", item.ProductID, "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, transport.ItemFromModel(*item))
}

func (h *CartsHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "carts.update_item")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "update_item_error", err.Error(), err)
	}

	var req transport.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_item_error", "invalid body", err)
	}
	if req.Quantity == nil {
		return badRequest(l, "update_item_error", "quantity is required", errors.New("missing quantity"))
	}

	item, err := h.Svc.UpdateItem(ctx, actorOf(c), id, *req.Quantity)
	if err != nil {
		return fail(l, "update_item_error", err)
	}

	l.Info("update_item_success", "item_id", item.ID, "quantity", item.Quantity)
	return c.JSON(http.StatusOK, transport.ItemFromModel(*item))
}

func (h *CartsHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "carts.remove_item")

	id, err := parseID(c, "id")
	if err != nil {
		return badRequest(l, "remove_item_error", err.Error(), err)
	}
	if err := h.Svc.RemoveItem(ctx, actorOf(c), id); err != nil {
		return fail(l, "remove_item_error", err)
	}

	l.Info("remove_item_success", "item_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CartsHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "carts.clear")

	actor := actorOf(c)
	userID, err := userIDQuery(c, actor)
	if err != nil {
		return badRequest(l, "clear_cart_error", err.Error(), err)
	}
	if err := h.Svc.ClearCart(ctx, actor, userID); err != nil {
		return fail(l, "clear_cart_error", err)
	}

	l.Info("clear_cart_success", "user_id", userID)
	return c.NoContent(http.StatusNoContent)
}

package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/services/storefront/internal/cartview"
	"github.com/Skotchmaster/storefront/services/storefront/internal/session"
)

type jsonResult struct {
	Success  bool   `json:"success"`
	NewTotal string `json:"new_total,omitempty"`
	Message  string `json:"message,omitempty"`
}

func pathID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (s *Server) assemble(c echo.Context) (cartview.View, error) {
	ctx := c.Request().Context()
	a := authOf(c)
	cart, err := s.api.Cart(ctx, a.Token, a.UserID)
	if err != nil {
		return cartview.View{}, err
	}
	return cartview.Assemble(ctx, s.api, cart.Items, s.fetchLimit), nil
}

func (s *Server) Cart(c echo.Context) error {
	view, err := s.assemble(c)
	if err != nil {
		if apiclient.StatusOf(err) == http.StatusUnauthorized {
			return s.apiFailure(c, "get_cart_error", err, "/")
		}
		logging.FromContext(c.Request().Context()).Warn("get_cart_error", "error", err)
		return s.render(c, http.StatusOK, "cart.html", "Cart", cartview.View{}, errorNote(err))
	}
	return s.render(c, http.StatusOK, "cart.html", "Cart", view)
}

func (s *Server) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")
	a := authOf(c)

	productID, ok := pathID(c)
	if !ok {
		return s.redirectFlash(c, "/products", session.FlashError, "Invalid product")
	}
	qty := 1
	if raw := c.FormValue("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return s.redirectFlash(c, "/products", session.FlashError, "Quantity must be at least 1")
		}
		qty = n
	}

	if _, err := s.api.AddToCart(ctx, a.Token, a.UserID, productID, qty); err != nil {
		return s.apiFailure(c, "add_item_error", err, "/products")
	}

	l.Info("add_item_success", "product_id", productID, "quantity", qty)
	return s.redirectFlash(c, "/products", session.FlashSuccess, "Product added to cart")
}

// jsonFailure mirrors apiFailure for the in-page cart endpoints.
func (s *Server) jsonFailure(c echo.Context, event string, err error) error {
	l := logging.FromContext(c.Request().Context())
	l.Warn(event, "status", apiclient.StatusOf(err), "error", err)
	if apiclient.StatusOf(err) == http.StatusUnauthorized {
		if cerr := s.sessions.Clear(c); cerr != nil {
			l.Warn("session_clear_error", "error", cerr)
		}
	}
	return c.JSON(failureStatus(err), jsonResult{Message: apiclient.Message(err)})
}

func (s *Server) totalJSON(c echo.Context) error {
	view, err := s.assemble(c)
	if err != nil {
		return s.jsonFailure(c, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, jsonResult{Success: true, NewTotal: view.Total.StringFixed(2)})
}

func (s *Server) UpdateCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	a := authOf(c)

	itemID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, jsonResult{Message: "Invalid cart item"})
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, jsonResult{Message: "Invalid request body"})
	}
	if req.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, jsonResult{Message: "Quantity must be at least 1"})
	}

	if _, err := s.api.UpdateCartItem(ctx, a.Token, itemID, req.Quantity); err != nil {
		return s.jsonFailure(c, "update_item_error", err)
	}
	return s.totalJSON(c)
}

func (s *Server) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	a := authOf(c)

	itemID, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, jsonResult{Message: "Invalid cart item"})
	}
	if err := s.api.RemoveCartItem(ctx, a.Token, itemID); err != nil {
		return s.jsonFailure(c, "remove_item_error", err)
	}
	return s.totalJSON(c)
}

func (s *Server) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	a := authOf(c)

	if err := s.api.ClearCart(ctx, a.Token, a.UserID); err != nil {
		return s.apiFailure(c, "clear_cart_error", err, "/cart")
	}
	logging.FromContext(ctx).Info("clear_cart_success", "user_id", a.UserID)
	return s.redirectFlash(c, "/cart", session.FlashSuccess, "Cart cleared")
}

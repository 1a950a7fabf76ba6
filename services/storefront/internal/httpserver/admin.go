package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/services/storefront/internal/session"
)

const adminPath = "/admin"

type adminPage struct {
	Products []apiclient.Product
	Users    []apiclient.User
}

func (s *Server) AdminPage(c echo.Context) error {
	ctx := c.Request().Context()
	a := authOf(c)

	products, err := s.api.AdminProducts(ctx, a.Token)
	if err != nil {
		return s.apiFailure(c, "admin_products_error", err, "/")
	}
	users, err := s.api.AdminUsers(ctx, a.Token)
	if err != nil {
		return s.apiFailure(c, "admin_users_error", err, "/")
	}
	return s.render(c, http.StatusOK, "admin.html", "Administration", adminPage{Products: products, Users: users})
}

// productForm reads the admin product form. Blank fields are left unset.
// A non-empty problem is shown to the admin as is.
func productForm(c echo.Context) (in apiclient.ProductInput, problem string) {
	if v := strings.TrimSpace(c.FormValue("name")); v != "" {
		in.Name = &v
	}
	if v, ok := formField(c, "description"); ok {
		in.Description = &v
	}
	if v := strings.TrimSpace(c.FormValue("price")); v != "" {
		p, err := decimal.NewFromString(v)
		if err != nil {
			return in, fmt.Sprintf("Invalid price %q", v)
		}
		in.Price = &p
	}
	if v := strings.TrimSpace(c.FormValue("stock")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, fmt.Sprintf("Invalid stock %q", v)
		}
		in.Stock = &n
	}
	if v, ok := formField(c, "image_url"); ok {
		in.ImageURL = &v
	}
	return in, ""
}

// formField reports whether the field was submitted at all, so an admin can
// clear an optional value.
func formField(c echo.Context, name string) (string, bool) {
	form, err := c.FormParams()
	if err != nil {
		return "", false
	}
	if _, ok := form[name]; !ok {
		return "", false
	}
	return strings.TrimSpace(form.Get(name)), true
}

func (s *Server) AdminCreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	in, problem := productForm(c)
	if problem != "" {
		return s.redirectFlash(c, adminPath, session.FlashError, problem)
	}
	if in.Name == nil || in.Price == nil {
		return s.redirectFlash(c, adminPath, session.FlashError, "Name and price are required")
	}
	if err := s.api.CreateProduct(ctx, authOf(c).Token, in); err != nil {
		return s.apiFailure(c, "create_product_error", err, adminPath)
	}
	logging.FromContext(ctx).Info("create_product_success", "name", *in.Name)
	return s.redirectFlash(c, adminPath, session.FlashSuccess, "Product created")
}

func (s *Server) AdminUpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := pathID(c)
	if !ok {
		return s.redirectFlash(c, adminPath, session.FlashError, "Invalid product")
	}
	in, problem := productForm(c)
	if problem != "" {
		return s.redirectFlash(c, adminPath, session.FlashError, problem)
	}
	if err := s.api.UpdateProduct(ctx, authOf(c).Token, id, in); err != nil {
		return s.apiFailure(c, "update_product_error", err, adminPath)
	}
	logging.FromContext(ctx).Info("update_product_success", "product_id", id)
	return s.redirectFlash(c, adminPath, session.FlashSuccess, "Product updated")
}

func (s *Server) AdminDeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	id, ok := pathID(c)
	if !ok {
		return s.redirectFlash(c, adminPath, session.FlashError, "Invalid product")
	}
	if err := s.api.DeleteProduct(ctx, authOf(c).Token, id); err != nil {
		return s.apiFailure(c, "delete_product_error", err, adminPath)
	}
	logging.FromContext(ctx).Info("delete_product_success", "product_id", id)
	return s.redirectFlash(c, adminPath, session.FlashSuccess, "Product deleted")
}

func (s *Server) userAction(c echo.Context, event string, act func(token string, id uint) (string, error)) error {
	id, ok := pathID(c)
	if !ok {
		return s.redirectFlash(c, adminPath, session.FlashError, "Invalid user")
	}
	msg, err := act(authOf(c).Token, id)
	if err != nil {
		return s.apiFailure(c, event+"_error", err, adminPath)
	}
	logging.FromContext(c.Request().Context()).Info(event+"_success", "user_id", id)
	return s.redirectFlash(c, adminPath, session.FlashSuccess, msg)
}

func (s *Server) AdminMakeAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	return s.userAction(c, "make_admin", func(token string, id uint) (string, error) {
		return s.api.MakeAdmin(ctx, token, id)
	})
}

func (s *Server) AdminRemoveAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	return s.userAction(c, "remove_admin", func(token string, id uint) (string, error) {
		return s.api.RemoveAdmin(ctx, token, id)
	})
}

// AdminToggleActive flips the account's current active flag as the backend
// reports it, not as the page showed it.
func (s *Server) AdminToggleActive(c echo.Context) error {
	ctx := c.Request().Context()
	return s.userAction(c, "toggle_active", func(token string, id uint) (string, error) {
		users, err := s.api.AdminUsers(ctx, token)
		if err != nil {
			return "", err
		}
		for _, u := range users {
			if u.ID == id {
				return s.api.SetActive(ctx, token, id, !u.IsActive)
			}
		}
		return "", &apiclient.APIError{Status: http.StatusNotFound, Message: "User not found"}
	})
}

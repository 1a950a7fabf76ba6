package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/services/storefront/internal/session"
)

const featuredCount = 3

func (s *Server) Index(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "index")

	products, err := s.api.Products(ctx)
	if err != nil {
		l.Warn("list_products_error", "error", err)
		return s.render(c, http.StatusOK, "index.html", "Home", []apiclient.Product(nil), errorNote(err))
	}
	if len(products) > featuredCount {
		products = products[:featuredCount]
	}
	return s.render(c, http.StatusOK, "index.html", "Home", products)
}

type productsPage struct {
	Query    string
	Products []apiclient.Product
}

func (s *Server) Products(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products")

	data := productsPage{Query: strings.TrimSpace(c.QueryParam("q"))}
	var notes []session.Flash

	if data.Query != "" {
		found, err := s.api.SearchProducts(ctx, data.Query)
		if err == nil {
			data.Products = found
			return s.render(c, http.StatusOK, "products.html", "Products", data)
		}
		if apiclient.StatusOf(err) != http.StatusServiceUnavailable {
			l.Warn("search_products_error", "error", err)
			return s.render(c, http.StatusOK, "products.html", "Products", data, errorNote(err))
		}
		notes = append(notes, session.Flash{Type: session.FlashInfo, Message: "Search is unavailable, showing all products"})
	}

	products, err := s.api.Products(ctx)
	if err != nil {
		l.Warn("list_products_error", "error", err)
		notes = append(notes, errorNote(err))
	}
	data.Products = products
	return s.render(c, http.StatusOK, "products.html", "Products", data, notes...)
}

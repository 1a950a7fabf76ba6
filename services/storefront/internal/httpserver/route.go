package httpserver

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/services/storefront/internal/apiclient"
	"github.com/Skotchmaster/storefront/services/storefront/internal/cartview"
	"github.com/Skotchmaster/storefront/services/storefront/internal/session"
	"github.com/Skotchmaster/storefront/services/storefront/internal/web"
)

type Deps struct {
	API      *apiclient.Client
	Sessions *session.Store
	Renderer *web.Renderer

	// CSRFKey enables form protection when set.
	CSRFKey        []byte
	CookieSecure   bool
	TrustedOrigins []string

	CartFetchLimit int
}

type Server struct {
	api        *apiclient.Client
	sessions   *session.Store
	fetchLimit int
}

func Register(e *echo.Echo, d *Deps) {
	s := &Server{api: d.API, sessions: d.Sessions, fetchLimit: d.CartFetchLimit}
	if s.fetchLimit <= 0 {
		s.fetchLimit = cartview.DefaultLimit
	}

	e.Renderer = d.Renderer
	e.HTTPErrorHandler = s.errorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.StaticFS("/static", web.Static())

	site := e.Group("")
	if len(d.CSRFKey) > 0 {
		protect := csrf.Protect(d.CSRFKey,
			csrf.Secure(d.CookieSecure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.TrustedOrigins(d.TrustedOrigins),
		)
		site.Use(plaintextUnlessSecure(d.CookieSecure), echo.WrapMiddleware(protect))
	}

	site.GET("/", s.Index)
	site.GET("/products", s.Products)
	site.GET("/login", s.LoginPage)
	site.POST("/login", s.Login)
	site.GET("/register", s.RegisterPage)
	site.POST("/register", s.Register)
	site.GET("/logout", s.Logout)

	site.GET("/cart", s.Cart, s.requireLogin)
	site.POST("/add-to-cart/:id", s.AddToCart, s.requireLogin)
	site.POST("/update-cart-item/:id", s.UpdateCartItem, s.requireLoginJSON)
	site.POST("/remove-from-cart/:id", s.RemoveFromCart, s.requireLoginJSON)
	site.POST("/clear-cart", s.ClearCart, s.requireLogin)

	site.GET("/profile", s.Profile, s.requireLogin)
	site.POST("/profile", s.UpdateProfile, s.requireLogin)

	admin := site.Group("/admin", s.requireLogin, s.requireAdmin)
	admin.GET("", s.AdminPage)
	admin.POST("/products", s.AdminCreateProduct)
	admin.POST("/products/:id/update", s.AdminUpdateProduct)
	admin.POST("/products/:id/delete", s.AdminDeleteProduct)
	admin.POST("/users/:id/make-admin", s.AdminMakeAdmin)
	admin.POST("/users/:id/remove-admin", s.AdminRemoveAdmin)
	admin.POST("/users/:id/toggle-active", s.AdminToggleActive)
}

// plaintextUnlessSecure lets gorilla/csrf skip its HTTPS-only referer check
// when the gateway is served over plain HTTP.
func plaintextUnlessSecure(secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !secure {
				c.SetRequest(csrf.PlaintextHTTPRequest(c.Request()))
			}
			return next(c)
		}
	}
}

package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/pkg/db"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/services/api/internal/ratelimit"
)

type Deps struct {
	Users    *UsersHTTP
	Products *ProductsHTTP
	Carts    *CartsHTTP
	Admin    *AdminHTTP

	JWTSecret    []byte
	AccountCheck middleware.AccountCheck
	LoginLimiter ratelimit.Limiter
	DB           *gorm.DB
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.DB != nil {
			if err := db.Ping(c.Request().Context(), d.DB); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewBearerMiddleware(d.JWTSecret, d.AccountCheck)
	limiter := d.LoginLimiter
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}

	api := e.Group("/api/v1")

	api.GET("/products", d.Products.ListProducts)
	api.GET("/products/search", d.Products.SearchProducts)
	api.GET("/products/:id", d.Products.GetProduct)
	api.POST("/products", d.Products.CreateProduct, authMW.RequireAdmin)
	api.PUT("/products/:id", d.Products.UpdateProduct, authMW.RequireAdmin)
	api.DELETE("/products/:id", d.Products.DeleteProduct, authMW.RequireAdmin)

	api.POST("/users/register", d.Users.Register)
	api.POST("/users/login", d.Users.Login, ratelimit.Middleware(limiter))
	api.GET("/users/profile/:id", d.Users.GetProfile, authMW.RequireAuth)
	api.PUT("/users/profile/:id", d.Users.UpdateProfile, authMW.RequireAuth)
	api.GET("/users", d.Users.ListUsers, authMW.RequireAdmin)

	carts := api.Group("/carts", authMW.RequireAuth)
	carts.GET("", d.Carts.GetCart)
	carts.DELETE("", d.Carts.ClearCart)
	carts.POST("/items", d.Carts.AddItem)
	carts.PUT("/items/:id", d.Carts.UpdateItem)
	carts.DELETE("/items/:id", d.Carts.RemoveItem)

	admin := api.Group("/admin", authMW.RequireAdmin)
	admin.GET("/users", d.Admin.ListUsers)
	admin.PUT("/users/:id/make-admin", d.Admin.MakeAdmin)
	admin.PUT("/users/:id/remove-admin", d.Admin.RemoveAdmin)
	admin.PUT("/users/:id/active", d.Admin.SetActive)
	admin.DELETE("/users/:id", d.Admin.DeleteUser)
	admin.GET("/products", d.Admin.ListProducts)
	admin.POST("/products", d.Admin.CreateProduct)
	admin.PUT("/products/:id", d.Admin.UpdateProduct)
	admin.DELETE("/products/:id", d.Admin.DeleteProduct)
}

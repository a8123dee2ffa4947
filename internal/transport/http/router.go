package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/cart_order_api/internal/handlers/auth"
	"github.com/Skotchmaster/cart_order_api/internal/handlers/cart"
	"github.com/Skotchmaster/cart_order_api/internal/handlers/order"
	"github.com/Skotchmaster/cart_order_api/internal/handlers/product"
	"github.com/Skotchmaster/cart_order_api/internal/handlers/search"
	"github.com/Skotchmaster/cart_order_api/internal/service/token"
)

type Deps struct {
	DB             *gorm.DB
	AuthHandler    *auth.AuthHandler
	ProductHandler *product.ProductHandler
	CartHandler    *cart.CartHandler
	OrderHandler   *order.OrderHandler
	SearchHandler  *search.SearchHandler
	TokenService   *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.GET("/search", d.SearchHandler.Search)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	admin := v1.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	cartGrp := v1.Group("/cart", d.TokenService.AutoRefreshMiddleware)
	cartGrp.GET("", d.CartHandler.GetCart)
	cartGrp.POST("", d.CartHandler.AddToCart)
	cartGrp.PUT("/:productId", d.CartHandler.UpdateCartItem)
	cartGrp.DELETE("/:productId", d.CartHandler.RemoveFromCart)

	orders := v1.Group("/orders", d.TokenService.AutoRefreshMiddleware)
	orders.POST("/checkout", d.OrderHandler.Checkout)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:orderId", d.OrderHandler.GetOrder)
	orders.PUT("/:orderId", d.OrderHandler.UpdateStatus)
}

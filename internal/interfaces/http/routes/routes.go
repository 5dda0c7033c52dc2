// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// Handlers bundles the wired endpoint handlers.
type Handlers struct {
	Cart     *handlers.CartHandler
	Orders   *handlers.OrderHandler
	Payments *handlers.PaymentHandler
	Products *handlers.ProductHandler
}

// SetupRoutes sets up all API routes
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	// Catalog browsing is public.
	products := rg.Group("/products")
	{
		products.GET("", h.Products.ListProducts)
		products.GET("/:id", h.Products.GetProduct)
	}

	// Cart endpoints serve anonymous visitors and logged-in customers alike;
	// the session cookie and the optional token decide which cart backs them.
	cart := rg.Group("/cart")
	cart.Use(middleware.Session(), middleware.OptionalAuthMiddleware(cfg))
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddToCart)
		cart.DELETE("/items/:id", h.Cart.RemoveFromCart)
		cart.DELETE("", h.Cart.ClearCart)
	}

	// The merge runs at login time and therefore needs both a session cookie
	// and a fresh token.
	merge := rg.Group("/cart/merge")
	merge.Use(middleware.Session(), middleware.AuthMiddleware(cfg))
	{
		merge.POST("", h.Cart.MergeCart)
	}

	checkout := rg.Group("/checkout")
	checkout.Use(middleware.AuthMiddleware(cfg))
	{
		checkout.POST("", h.Payments.Checkout)
	}

	// Provider callbacks authenticate by signature, not by token.
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/payment", h.Payments.Webhook)
	}

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", h.Orders.ListOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.POST("/:id/deliver", h.Orders.ConfirmDelivery)

		backoffice := orders.Group("")
		backoffice.Use(middleware.BackofficeMiddleware())
		{
			backoffice.POST("/:id/ship", h.Orders.ShipOrder)
			backoffice.POST("/:id/revert-shipment", h.Orders.RevertShipment)
			backoffice.POST("/:id/notify", h.Orders.NotifyShipped)
		}
	}
}

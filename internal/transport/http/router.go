package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/handlers"
	"github.com/quartier-aromes/shop/internal/service/token"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CartHandler     *handlers.CartHandler
	CheckoutHandler *handlers.CheckoutHandler
	LoyaltyHandler  *handlers.LoyaltyHandler
	ReviewHandler   *handlers.ReviewHandler
	WishlistHandler *handlers.WishlistHandler
	BlogHandler     *handlers.BlogHandler
	ContactHandler  *handlers.ContactHandler
	SearchHandler   *handlers.SearchHandler
	AdminHandler    *handlers.AdminHandler
	Tokens          *token.Service
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)
	v1.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	v1.POST("/reset-password/:token", d.AuthHandler.ResetPassword)

	v1.GET("/search", d.SearchHandler.Handler)
	v1.POST("/contact", d.ContactHandler.SubmitMessage)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/decants", d.ProductHandler.GetDecants)
	products.GET("/:id", d.ProductHandler.GetProduct)

	blog := v1.Group("/blog")
	blog.GET("", d.BlogHandler.GetPosts)
	blog.GET("/:slug", d.BlogHandler.GetPost)

	// Cart works for both anonymous visitors and signed-in users.
	cart := v1.Group("/cart", d.Tokens.OptionalAuthMiddleware)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("", d.CartHandler.UpdateQuantity)
	cart.DELETE("/:ref", d.CartHandler.RemoveFromCart)

	authed := v1.Group("", d.Tokens.AutoRefreshMiddleware)
	authed.GET("/checkout/quote", d.CheckoutHandler.Quote)
	authed.POST("/checkout", d.CheckoutHandler.Settle)
	authed.GET("/orders", d.CheckoutHandler.GetOrders)
	authed.GET("/orders/:id", d.CheckoutHandler.GetOrder)

	authed.GET("/loyalty", d.LoyaltyHandler.GetAccount)
	authed.GET("/loyalty/rewards", d.LoyaltyHandler.GetRewards)
	authed.POST("/loyalty/redeem", d.LoyaltyHandler.RedeemReward)

	authed.POST("/reviews", d.ReviewHandler.CreateReview)
	authed.DELETE("/reviews/:id", d.ReviewHandler.DeleteReview)

	authed.GET("/wishlist", d.WishlistHandler.GetWishlist)
	authed.POST("/wishlist/toggle", d.WishlistHandler.Toggle)

	admin := v1.Group("/admin", d.Tokens.AutoRefreshMiddlewareAdmin)
	admin.GET("/dashboard", d.AdminHandler.Dashboard)
	admin.GET("/users", d.AdminHandler.GetUsers)

	admin.GET("/orders", d.AdminHandler.GetOrders)
	admin.PATCH("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)
	admin.POST("/orders/:id/accept", d.AdminHandler.AcceptOrder)
	admin.DELETE("/orders/:id", d.AdminHandler.DeleteOrder)

	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	admin.GET("/coupons", d.AdminHandler.GetCoupons)
	admin.POST("/coupons", d.AdminHandler.CreateCoupon)
	admin.PATCH("/coupons/:id", d.AdminHandler.UpdateCoupon)
	admin.POST("/coupons/:id/toggle", d.AdminHandler.ToggleCoupon)
	admin.DELETE("/coupons/:id", d.AdminHandler.DeleteCoupon)

	admin.GET("/blog", d.BlogHandler.AdminGetPosts)
	admin.POST("/blog", d.BlogHandler.CreatePost)
	admin.PATCH("/blog/:id", d.BlogHandler.UpdatePost)
	admin.DELETE("/blog/:id", d.BlogHandler.DeletePost)

	admin.POST("/newsletter", d.AdminHandler.SendNewsletter)

	admin.GET("/security", d.AdminHandler.SecurityDashboard)
	admin.POST("/security/clear-attempts", d.AdminHandler.ClearOldAttempts)

	admin.GET("/notifications", d.AdminHandler.GetNotifications)
	admin.POST("/notifications/:id/read", d.AdminHandler.MarkNotificationRead)
	admin.GET("/messages", d.AdminHandler.GetContactMessages)
	admin.POST("/messages/:id/read", d.AdminHandler.MarkMessageRead)
}

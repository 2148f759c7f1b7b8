package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/hdstore/internal/config"
	"github.com/example/hdstore/internal/handlers"
	"github.com/example/hdstore/internal/middleware"
	"github.com/example/hdstore/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	mailer := services.NewMailerService(cfg)
	momoService := services.NewMomoService(db, cfg)

	authHandler := handlers.NewAuthHandler(db, cfg, mailer)
	customerHandler := handlers.NewCustomerHandler(db)
	productHandler := handlers.NewProductHandler(db)
	orderHandler := handlers.NewOrderHandler(db)
	shippingHandler := handlers.NewShippingHandler(db)
	momoHandler := handlers.NewMomoHandler(db, momoService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/send-otp", authHandler.SendOTP)
	auth.Post("/verify-otp", authHandler.VerifyOTP)

	// Catalog
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Post("/", productHandler.CreateProduct)
	products.Get("/:id", productHandler.GetProduct)

	batches := api.Group("/product-batches")
	batches.Get("/", productHandler.ListBatches)
	batches.Post("/", productHandler.CreateBatch)

	// MoMo payment routes. The callback is unauthenticated; trust comes from
	// the HMAC signature.
	momo := api.Group("/payment/momo")
	momo.Post("/", momoHandler.CreatePayment)
	momo.Post("/callback", momoHandler.Callback)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/customers/:id", customerHandler.GetCustomer)
	protected.Put("/customers/:id", customerHandler.UpdateCustomer)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	protected.Post("/order-shipping", shippingHandler.CreateShipping)
	protected.Get("/order-shipping", shippingHandler.ListShipping)
}

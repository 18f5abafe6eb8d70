package main

import (
	"database/sql"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/aurelle/shop-backend/internal/auth"
	"github.com/aurelle/shop-backend/internal/billing"
	"github.com/aurelle/shop-backend/internal/cart"
	"github.com/aurelle/shop-backend/internal/checkout"
	"github.com/aurelle/shop-backend/internal/config"
	"github.com/aurelle/shop-backend/internal/customer"
	"github.com/aurelle/shop-backend/internal/locale"
	"github.com/aurelle/shop-backend/internal/newsletter"
	"github.com/aurelle/shop-backend/internal/order"
	"github.com/aurelle/shop-backend/internal/payment"
	"github.com/aurelle/shop-backend/internal/product"
	"github.com/aurelle/shop-backend/internal/promotion"
	"github.com/aurelle/shop-backend/internal/tax"
	"github.com/aurelle/shop-backend/internal/turnstile"
	"github.com/aurelle/shop-backend/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db := mustOpenDB(cfg.DatabaseURL)
	defer db.Close()

	gateway := billing.NewStripeGateway(cfg.StripeSecretKey)
	verifier := turnstile.NewClient(cfg.TurnstileSecretKey, cfg.TurnstileSiteVerifyEndpoint)

	carts := cart.NewService(cart.NewPostgresRepository(db))
	promoRepo := promotion.NewPostgresRepository(db)
	promos := promotion.NewService(promoRepo, cfg.AutoApplyBestPromotion)
	taxes := tax.NewService(tax.NewPostgresRepository(db))
	orders := order.NewPostgresRepository(db)
	payments := payment.NewPostgresRepository(db)
	customers := customer.NewPostgresRepository(db)

	checkoutSvc := checkout.NewService(carts, promos, taxes, orders, customers, gateway, checkout.Options{
		SuccessURL:       cfg.FrontendBaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:        cfg.FrontendBaseURL + "/cart",
		CurrencyCode:     cfg.CurrencyCode,
		AllowedCountries: cfg.AllowedShippingCountryList(),
		MaxPendingPerIP:  cfg.MaxPendingOrdersPerIPPerDay,
	})
	checkoutHandler := checkout.NewHandler(checkoutSvc, verifier)

	reconciler := webhook.NewReconciler(orders, payments, promoRepo, carts, gateway)
	webhookHandler := webhook.NewHandler(webhook.NewPostgresLedger(db), reconciler, cfg.StripeWebhookSecret, cfg.StripeWebhookIPVerification)

	newsletterSvc := newsletter.NewService(
		newsletter.NewResendProvider(cfg.ResendAPIKey, cfg.ResendAudienceID),
		cfg.UnsubscribeJWTSecret,
	)
	newsletterHandler := newsletter.NewHandler(newsletterSvc, verifier)

	productHandler := product.NewHandler(product.NewPostgresRepository(db))
	localeHandler := locale.NewHandler(locale.NewPostgresRepository(db))

	app := fiber.New(fiber.Config{
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOriginList(), ","),
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		// payment-processor retries must never be rate limited
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/v1/webhooks/")
		},
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	productHandler.RegisterPublicRoutes(app)
	localeHandler.RegisterPublicRoutes(app)
	newsletterHandler.RegisterPublicRoutes(app)
	webhookHandler.RegisterPublicRoutes(app)

	app.Use(auth.Middleware(cfg.JWTSecret))
	checkoutHandler.RegisterProtectedRoutes(app)

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()
	log.Printf("listening on %s", cfg.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
	// drain in-flight webhook reconciliations before closing the DB
	webhookHandler.Wait()
}

func mustOpenDB(url string) *sql.DB {
	db, err := sql.Open("pgx", url)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	return db
}

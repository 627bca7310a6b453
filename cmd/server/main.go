package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/quartier-aromes/shop/internal/config"
	"github.com/quartier-aromes/shop/internal/es"
	"github.com/quartier-aromes/shop/internal/handlers"
	"github.com/quartier-aromes/shop/internal/logging"
	"github.com/quartier-aromes/shop/internal/mailer"
	"github.com/quartier-aromes/shop/internal/mykafka"
	"github.com/quartier-aromes/shop/internal/notify"
	"github.com/quartier-aromes/shop/internal/service/cart"
	"github.com/quartier-aromes/shop/internal/service/checkout"
	"github.com/quartier-aromes/shop/internal/service/loginguard"
	"github.com/quartier-aromes/shop/internal/service/loyalty"
	"github.com/quartier-aromes/shop/internal/service/token"
	"github.com/quartier-aromes/shop/internal/session"
	httpserver "github.com/quartier-aromes/shop/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		log.Fatal(err)
	}

	sessions, err := session.NewCartStore(configuration.REDIS_ADDR, configuration.REDIS_PASSWORD)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	mail := mailer.New(
		configuration.SMTP_HOST,
		configuration.SMTP_PORT,
		configuration.SMTP_USER,
		configuration.SMTP_PASSWORD,
		configuration.SMTP_FROM,
		logger,
	)
	notifier := &notify.Notifier{DB: db, Log: logger}

	tokens := &token.Service{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret}
	guard := &loginguard.Guard{DB: db}
	consolidator := &cart.Consolidator{DB: db, Sessions: sessions, Log: logger}
	checkoutSvc := &checkout.Service{
		DB:       db,
		Mailer:   mail,
		Notifier: notifier,
		Producer: prod,
		Log:      logger,
	}
	loyaltySvc := &loyalty.Service{DB: db}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(logging.RequestLogger(logger))

	deps := httpserver.Deps{
		DB: db,
		AuthHandler: &handlers.AuthHandler{
			DB:           db,
			Tokens:       tokens,
			Guard:        guard,
			Consolidator: consolidator,
			Mailer:       mail,
			Producer:     prod,
		},
		ProductHandler:  &handlers.ProductHandler{DB: db, Producer: prod},
		CartHandler:     &handlers.CartHandler{DB: db, Sessions: sessions, Producer: prod},
		CheckoutHandler: &handlers.CheckoutHandler{DB: db, Checkout: checkoutSvc},
		LoyaltyHandler:  &handlers.LoyaltyHandler{DB: db, Loyalty: loyaltySvc},
		ReviewHandler:   &handlers.ReviewHandler{DB: db},
		WishlistHandler: &handlers.WishlistHandler{DB: db},
		BlogHandler:     &handlers.BlogHandler{DB: db},
		ContactHandler:  &handlers.ContactHandler{DB: db, Notifier: notifier},
		SearchHandler:   handlers.NewSearchHandler(esClient, "product"),
		AdminHandler:    &handlers.AdminHandler{DB: db, Guard: guard, Notifier: notifier, Mailer: mail},
		Tokens:          tokens,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := sessions.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}

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

	"github.com/Skotchmaster/cart_order_api/internal/cache"
	"github.com/Skotchmaster/cart_order_api/internal/config"
	"github.com/Skotchmaster/cart_order_api/internal/es"
	"github.com/Skotchmaster/cart_order_api/internal/handlers/auth"
	"github.com/Skotchmaster/cart_order_api/internal/handlers/cart"
	"github.com/Skotchmaster/cart_order_api/internal/handlers/order"
	"github.com/Skotchmaster/cart_order_api/internal/handlers/product"
	"github.com/Skotchmaster/cart_order_api/internal/handlers/search"
	"github.com/Skotchmaster/cart_order_api/internal/logging"
	loggingmw "github.com/Skotchmaster/cart_order_api/internal/middleware/logging"
	"github.com/Skotchmaster/cart_order_api/internal/mykafka"
	"github.com/Skotchmaster/cart_order_api/internal/service/token"
	httpserver "github.com/Skotchmaster/cart_order_api/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
	} else {
		log.Println("KAFKA_ADDRESS not set, event publishing disabled")
	}

	searchHandler := &search.SearchHandler{Index: "products"}
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		searchHandler = search.NewSearchHandler(esClient, "products")
	} else {
		log.Println("ES_URL not set, search disabled")
	}

	productHandler := &product.ProductHandler{DB: db, Producer: prod}
	if configuration.REDIS_ADDR != "" {
		productHandler.Cache = cache.New(configuration.REDIS_ADDR)
	} else {
		log.Println("REDIS_ADDR not set, product cache disabled")
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:             db,
		AuthHandler:    &auth.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: prod},
		ProductHandler: productHandler,
		CartHandler:    &cart.CartHandler{DB: db, Producer: prod, JWTSecret: jwtSecret},
		OrderHandler:   &order.OrderHandler{DB: db, Producer: prod, JWTSecret: jwtSecret},
		SearchHandler:  searchHandler,
		TokenService:   &token.TokenService{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
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
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}

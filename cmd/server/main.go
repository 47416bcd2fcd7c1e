package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AlanMedina53232/RawConnect/internal/cache"
	"github.com/AlanMedina53232/RawConnect/internal/cart"
	"github.com/AlanMedina53232/RawConnect/internal/checkout"
	h "github.com/AlanMedina53232/RawConnect/internal/http"
	"github.com/AlanMedina53232/RawConnect/internal/notify"
	"github.com/AlanMedina53232/RawConnect/internal/payment"
	"github.com/AlanMedina53232/RawConnect/internal/publisher"
	"github.com/AlanMedina53232/RawConnect/internal/repository"
)

type Config struct {
	HTTPPort        string
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	KafkaBrokers    []string
	RelayURL        string
	JWTSecret       string
	SendgridKey     string
	EmailSender     string
	RequestTimeout  time.Duration
	CheckoutTimeout time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "rawconnect"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		RelayURL:        getEnv("PAYMENT_RELAY_URL", "http://localhost:3000"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		SendgridKey:     getEnv("SENDGRID_API_KEY", ""),
		EmailSender:     getEnv("EMAIL_SENDER", "orders@rawconnect.example"),
		RequestTimeout:  10 * time.Second,
		CheckoutTimeout: 60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Proceeding with environment variables.")
	}

	cfg := loadConfig()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Document store
	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := repository.ConnectMongoDB(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
	connectCancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			log.Printf("mongo disconnect error: %v", err)
		}
	}()

	cartRepo := repository.NewMongoCartRepository(db)
	productRepo := repository.NewMongoProductRepository(db)
	orderRepo := repository.NewMongoOrderRepository(db)
	paymentMethodRepo := repository.NewMongoPaymentMethodRepository(db)

	// Cart cache
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	cartService := cart.NewCartService(cartRepo, productRepo, cartCache)

	// Checkout session store
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}
	creds := &checkout.Credentials{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              dbPort,
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "rawconnect"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/checkout/migrations"),
	}

	checkoutRepo, err := checkout.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer checkoutRepo.Close()

	if err := checkoutRepo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Payment capture: server-relay variant. Approval outcomes come back as
	// provider redirects onto the callback routes below.
	relayClient := payment.NewRelayClient(cfg.RelayURL)
	navSource := payment.NewCallbackNavigationSource()
	captureAdapter := payment.NewRelayCapture(relayClient, navSource)

	var notifier checkout.Notifier
	if n := notify.NewEmailNotifier(cfg.SendgridKey, cfg.EmailSender); n != nil {
		notifier = n
	}

	checkoutService := checkout.NewService(
		checkoutRepo,
		cartService,
		productRepo,
		orderRepo,
		paymentMethodRepo,
		captureAdapter,
		notifier,
	)

	// Outbox publisher
	poller := publisher.NewOutboxPoller(checkoutRepo, cfg.KafkaBrokers...)
	go poller.Run(ctx)
	defer poller.Close()

	// Handlers
	cartHandler := h.NewCartHandler(cartService, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(checkoutService, cfg.CheckoutTimeout)
	ordersHandler := h.NewOrdersHandler(orderRepo, cfg.RequestTimeout)
	productsHandler := h.NewProductsHandler(productRepo, cfg.RequestTimeout)
	paymentMethodHandler := h.NewPaymentMethodHandler(paymentMethodRepo, cfg.RequestTimeout)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Provider redirect targets. Unauthenticated: the buyer arrives here
	// from the provider's approval page, not from the app.
	r.Get("/checkout/complete", navSource.ServeHTTP)
	r.Get("/checkout/error", navSource.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware([]byte(cfg.JWTSecret)))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/lines", cartHandler.AddLine)
			r.Put("/lines/{line_id}", cartHandler.SetQuantity)
			r.Delete("/lines/{line_id}", cartHandler.RemoveLine)
		})

		r.Post("/checkout", checkoutHandler.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordersHandler.ListOrders)
			r.Get("/{order_id}", ordersHandler.GetOrder)
			r.Patch("/{order_id}/status", ordersHandler.UpdateStatus)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productsHandler.ListProducts)
			r.Get("/{product_id}", productsHandler.GetProduct)
		})

		r.Get("/payment-method", paymentMethodHandler.GetPaymentMethod)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "rawconnect-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("RawConnect API starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server stopped")
}

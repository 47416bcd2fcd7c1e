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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AlanMedina53232/RawConnect/internal/payment/paypal"
	"github.com/AlanMedina53232/RawConnect/internal/relay"
)

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

	clientID := os.Getenv("PAYPAL_CLIENT_ID")
	secret := os.Getenv("PAYPAL_CLIENT_SECRET")
	if clientID == "" || secret == "" {
		log.Fatal("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET must be set")
	}

	provider := paypal.NewClient(
		getEnv("PAYPAL_BASE_URL", paypal.SandboxBaseURL),
		clientID,
		secret,
	)
	provider.SetRedirectURLs(
		getEnv("PAYMENT_RETURN_URL", "http://localhost:8080/checkout/complete"),
		getEnv("PAYMENT_CANCEL_URL", "http://localhost:8080/checkout/error"),
	)

	handler := relay.NewHandler(provider, getEnv("PAYMENT_CURRENCY", "MXN"))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/create-payment", handler.CreatePayment)
	r.Post("/execute-payment", handler.ExecutePayment)

	port := getEnv("RELAY_PORT", "3000")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("payment relay starting on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down payment relay...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("payment relay stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/openmca/auth-api/internal/config"
	"github.com/openmca/auth-api/internal/infrastructure/dynamo"
	"github.com/openmca/auth-api/internal/infrastructure/otpstore"
	pinpointinfra "github.com/openmca/auth-api/internal/infrastructure/pinpoint"
	snsinfra "github.com/openmca/auth-api/internal/infrastructure/sns"
	transporthttp "github.com/openmca/auth-api/internal/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// OTP cache: Redis when configured, otherwise the process-local store.
	var otps otpstore.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		otps = otpstore.NewRedis(rdb)
		log.Printf("OTP store: redis (%s)", cfg.RedisAddr)
	} else {
		otps = otpstore.NewMemory()
		log.Println("OTP store: in-memory (single process only)")
	}

	smsSender, err := snsinfra.NewSender(cfg)
	if err != nil {
		log.Fatalf("SNS sender not available: %v", err)
	}

	classifier, err := pinpointinfra.NewClassifier(cfg)
	if err != nil {
		log.Fatalf("phone classifier not available: %v", err)
	}

	deps := &transporthttp.Deps{
		UserRepo:    dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo: dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		OTPStore:    otps,
		SMSSender:   smsSender,
		Classifier:  classifier,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Auth server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

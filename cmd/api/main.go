package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-marketplace-identity/internal/config"
	"github.com/go-marketplace-identity/internal/infrastructure/dynamo"
	"github.com/go-marketplace-identity/internal/infrastructure/firebase"
	jwtinfra "github.com/go-marketplace-identity/internal/infrastructure/jwt"
	"github.com/go-marketplace-identity/internal/infrastructure/memory"
	"github.com/go-marketplace-identity/internal/infrastructure/redisstore"
	"github.com/go-marketplace-identity/internal/infrastructure/smtp"
	"github.com/go-marketplace-identity/internal/infrastructure/sns"
	transporthttp "github.com/go-marketplace-identity/internal/transport/http"
	"github.com/go-marketplace-identity/internal/transport/http/handler"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	ctx := context.Background()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb client: %v", err)
	}
	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, cfg.OTPStore == "dynamo")

	checks := []handler.Check{{
		Name: "dynamodb",
		Probe: func(ctx context.Context) error {
			_, err := dynamoClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(cfg.DynamoTables.Users)})
			return err
		},
	}}

	deps := &transporthttp.Deps{
		UserRepo: dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables),
		Mailer:   smtp.NewMailer(cfg),
		Clock:    clockwork.NewRealClock(),
	}

	switch cfg.OTPStore {
	case "redis":
		rdb := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		deps.Challenges = redisstore.NewOTPStore(rdb)
		checks = append(checks, handler.Check{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	case "memory":
		deps.Challenges = memory.NewOTPStore(time.Minute)
	default:
		deps.Challenges = dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPChallenges)
	}
	deps.Checks = checks

	switch cfg.IdentityProvider {
	case "local":
		p, err := jwtinfra.NewProvider(cfg)
		if err != nil {
			log.Fatalf("local identity provider: %v", err)
		}
		deps.Provider = p
		if cfg.AppEnv != "production" {
			deps.DevTokens = p
			slog.Warn("dev token endpoints enabled", "prefix", "/v1/dev")
		}
	default:
		p, err := firebase.NewProvider(ctx, cfg)
		if err != nil {
			log.Fatalf("firebase identity provider: %v", err)
		}
		deps.Provider = p
	}

	// Reconciliation alerts are optional; failures are always logged.
	if cfg.ReconciliationTopicARN != "" {
		if alerter, err := sns.NewAlerter(ctx, cfg); err == nil {
			deps.Alerter = alerter
		} else {
			slog.Warn("SNS alerter not available", "err", err)
		}
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
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"otp_store", cfg.OTPStore, "identity_provider", cfg.IdentityProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	slog.Info("server stopped")
}

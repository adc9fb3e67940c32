package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/consumer"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/health"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/payment"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	slog.SetDefault(logg)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx := context.Background()

	// Set up MongoDB connection
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		fatal(logg, "failed to connect to MongoDB", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())
	logg.Info("connected to MongoDB", "uri", cfg.MongoURI, "db", cfg.MongoDBName)

	carts := repository.NewMongoRepository(mongoDB, domain.KindCart)
	wishlists := repository.NewMongoRepository(mongoDB, domain.KindWishlist)
	for _, repo := range []*repository.MongoRepository{carts, wishlists} {
		if err := repo.CreateIndexes(ctx); err != nil {
			fatal(logg, "failed to create indexes", err)
		}
	}
	catalog := repository.NewMongoProductCatalog(mongoDB)
	tx := repository.NewMongoTransactor(mongoDB.Client())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		fatal(logg, "redis connection failed", err)
	}
	logg.Info("redis ping succeeded", "addr", cfg.RedisAddr)

	creds := &orders.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsDirPath,
	}
	orderRepo, err := orders.NewRepository(creds)
	if err != nil {
		fatal(logg, "failed to connect to Postgres", err)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(creds); err != nil {
		fatal(logg, "failed to run migrations", err)
	}
	logg.Info("connected to Postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)

	var events interface {
		service.EventPublisher
		Close() error
	} = publisher.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		events = publisher.NewKafkaPublisher(cfg.OrderEventsTopic, cfg.KafkaBrokers...)
		logg.Info("publishing order events", "topic", cfg.OrderEventsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logg.Warn("KAFKA_BROKERS not set, order events are not published")
	}
	defer events.Close()

	var verifier service.SignatureVerifier
	if cfg.Payment.VerifySignature {
		verifier = payment.NewHMACVerifier(cfg.Payment.KeySecret)
	} else {
		logg.Warn("payment signature verification is disabled")
	}
	gateway := payment.NewRazorpayClient(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.Timeout)

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	cartService := service.NewCartService(carts, wishlists, catalog, cache.NewRedisCache(redisClient, cfg.CacheTTL), tx, logg)
	orderService := service.NewOrderService(orderRepo, gateway, verifier, events, cfg.Payment.Currency, logg)

	if cfg.ClearCartOnPaid {
		cleaner := consumer.NewCartCleaner(cartService, logg, cfg.OrderEventsTopic, cfg.OrderEventsGroup, cfg.KafkaBrokers...)
		defer cleaner.Close()
		go cleaner.Run(bgCtx)
		logg.Info("clearing purchased items from carts", "topic", cfg.OrderEventsTopic, "group", cfg.OrderEventsGroup)
	}

	router := h.NewRouter(h.RouterConfig{
		JWTSecret:          []byte(cfg.JWTSecret),
		CORSOrigins:        cfg.CORSOrigins,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	},
		h.NewCartHandler(cartService, cfg.RequestTimeout, logg),
		h.NewPaymentHandler(orderService, cfg.RequestTimeout, logg),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	healthServer := health.NewServer(map[string]health.Check{
		"mongo": func(ctx context.Context) error {
			return mongoDB.Client().Ping(ctx, readpref.Primary())
		},
		"postgres": orderRepo.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}, 15*time.Second, logg)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCHealthPort))
	if err != nil {
		fatal(logg, "failed to listen", err)
	}

	go healthServer.Run(bgCtx)

	go func() {
		logg.Info("health server listening", "port", cfg.GRPCHealthPort)
		if err := healthServer.Serve(lis); err != nil {
			fatal(logg, "health server error", err)
		}
	}()

	go func() {
		logg.Info("storefront starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal(logg, "server error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", "error", err)
	}
	stopBackground()
	healthServer.Stop()

	logg.Info("server exited")
}

func fatal(logg *slog.Logger, msg string, err error) {
	logg.Error(msg, "error", err)
	os.Exit(1)
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort           string
	GRPCHealthPort     string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	CORSOrigins        []string
	LogLevel           string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	Postgres PostgresConfig

	KafkaBrokers     []string
	OrderEventsTopic string
	OrderEventsGroup string
	ClearCartOnPaid  bool

	JWTSecret string

	Payment PaymentConfig
}

type PostgresConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type PaymentConfig struct {
	BaseURL         string
	KeyID           string
	KeySecret       string
	Currency        string
	VerifySignature bool
	Timeout         time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvDuration("CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	gatewayTimeout, err := getEnvDuration("PAYMENT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	bodySize, err := getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20) // 1MB
	if err != nil {
		return nil, err
	}
	verify, err := getEnvBool("PAYMENT_VERIFY_SIGNATURE", true)
	if err != nil {
		return nil, err
	}
	clearCart, err := getEnvBool("CART_CLEAR_ON_PAID", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "5000"),
		GRPCHealthPort:     getEnv("GRPC_HEALTH_PORT", "50060"),
		RequestTimeout:     requestTimeout,
		ShutdownTimeout:    shutdownTimeout,
		MaxRequestBodySize: int64(bodySize),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "storefront"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CacheTTL:      cacheTTL,

		Postgres: PostgresConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              dbPort,
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "storefront"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/orders/migrations"),
		},

		KafkaBrokers:     splitList(getEnv("KAFKA_BROKERS", "")),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "order-paid"),
		OrderEventsGroup: getEnv("ORDER_EVENTS_GROUP", "storefront-cart-cleaner"),
		ClearCartOnPaid:  clearCart,

		JWTSecret: getEnv("JWT_SECRET", ""),

		Payment: PaymentConfig{
			BaseURL:         getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
			KeyID:           getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:       getEnv("RAZORPAY_KEY_SECRET", ""),
			Currency:        getEnv("PAYMENT_CURRENCY", "INR"),
			VerifySignature: verify,
			Timeout:         gatewayTimeout,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Payment.VerifySignature && c.Payment.KeySecret == "" {
		return errors.New("RAZORPAY_KEY_SECRET is required when PAYMENT_VERIFY_SIGNATURE is enabled")
	}
	if c.ClearCartOnPaid && len(c.KafkaBrokers) == 0 {
		return errors.New("CART_CLEAR_ON_PAID needs KAFKA_BROKERS")
	}
	if c.MaxRequestBodySize <= 0 {
		return errors.New("MAX_REQUEST_BODY_BYTES must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

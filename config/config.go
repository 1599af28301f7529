package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Log      LogConfig
	AuthNet  AuthNetConfig
	Webhooks WebhooksConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

// AuthNetConfig holds the per-processor Authorize.Net credentials. The
// signature key authenticates inbound webhooks; the login id / transaction
// key pair authenticates every outbound API call.
type AuthNetConfig struct {
	APILoginID     string
	TransactionKey string
	SignatureKey   string
	TestMode       bool
	SiteURL        string
	WebhooksURL    string
	HTTPTimeout    time.Duration
}

type WebhooksConfig struct {
	CallbackBaseURL string
	CheckInterval   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	apiLoginID := os.Getenv("AUTHNET_API_LOGIN_ID")
	if apiLoginID == "" {
		return nil, errors.New("AUTHNET_API_LOGIN_ID environment variable is required")
	}
	transactionKey := os.Getenv("AUTHNET_TRANSACTION_KEY")
	if transactionKey == "" {
		return nil, errors.New("AUTHNET_TRANSACTION_KEY environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "authnet-gateway"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		AuthNet: AuthNetConfig{
			APILoginID:     apiLoginID,
			TransactionKey: transactionKey,
			SignatureKey:   getEnv("AUTHNET_SIGNATURE_KEY", ""),
			TestMode:       getBoolEnv("AUTHNET_TEST_MODE", false),
			SiteURL:        getEnv("AUTHNET_SITE_URL", ""),
			WebhooksURL:    getEnv("AUTHNET_WEBHOOKS_URL", ""),
			HTTPTimeout:    getSecondsEnv("AUTHNET_HTTP_TIMEOUT_SECONDS", 30*time.Second),
		},
		Webhooks: WebhooksConfig{
			CallbackBaseURL: getEnv("AUTHNET_WEBHOOK_CALLBACK_BASE_URL", ""),
			CheckInterval:   getMinutesEnv("AUTHNET_WEBHOOK_CHECK_INTERVAL_MINUTES", 60*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SNSRegion   string
	SMSSenderID string

	// RedisAddr selects the shared OTP cache backend; empty means the
	// process-local in-memory store.
	RedisAddr     string
	RedisPassword string

	OTPTTL     time.Duration
	SessionTTL time.Duration

	// Send-OTP rate limit: SendOTPLimit requests per SendOTPWindow per client IP.
	SendOTPLimit  int
	SendOTPWindow time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users    string
	Sessions string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:    getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions: getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
		},

		SNSRegion:   getEnv("SNS_REGION", "us-east-1"),
		SMSSenderID: getEnv("SMS_SENDER_ID", "openmca"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		OTPTTL:     getEnvDuration("OTP_TTL", 5*time.Minute),
		SessionTTL: getEnvDuration("SESSION_TTL", 7*24*time.Hour),

		// Clamped to at least one: a zero or negative limit would make the
		// per-request rate unrepresentable, not disable the endpoint.
		SendOTPLimit:  max(1, getEnvInt("SEND_OTP_LIMIT", 5)),
		SendOTPWindow: getEnvDuration("SEND_OTP_WINDOW", 15*time.Minute),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

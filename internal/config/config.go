package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret       string
	JwtTTL          time.Duration
	CaptchaTokenTTL time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string
	PublicBaseURL  string // origin used when composing payment-link URLs in emails

	// Cloudflare Turnstile
	CloudflareTurnstileSecretKey string
	CloudflareSiteVerifyURL      string

	// Payment processor
	PaymentAPIURL string
	PaymentAPIKey string

	// Bank transfer details shown on the payment page
	BankName          string
	BankAccountName   string
	BankAccountNumber string
	BankIBAN          string
	BankSwiftCode     string

	// Flight pricing
	FareAPIURL     string
	FareAPIKey     string
	FareAPITimeout time.Duration
	RatePerKmUSD   float64

	// Email
	SmtpHost         string
	SmtpPort         int
	SmtpUsername     string
	SmtpPassword     string
	SmtpFromAddress  string
	AgencyInboxEmail string // inquiry notifications go here

	// Admin bootstrap (optional; seeds a main_admin when the collection is empty)
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// App Defaults
	AppName string

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "lastseat")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", "http://localhost:3000")
	cfg.CloudflareTurnstileSecretKey = getEnv("CLOUDFLARE_TURNSTILE_SECRET_KEY", "")
	cfg.CloudflareSiteVerifyURL = getEnv("CLOUDFLARE_SITEVERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify")

	cfg.PaymentAPIURL = getEnv("PAYMENT_API_URL", "")
	cfg.PaymentAPIKey = getEnv("PAYMENT_API_KEY", "")

	cfg.BankName = getEnv("BANK_NAME", "")
	cfg.BankAccountName = getEnv("BANK_ACCOUNT_NAME", "")
	cfg.BankAccountNumber = getEnv("BANK_ACCOUNT_NUMBER", "")
	cfg.BankIBAN = getEnv("BANK_IBAN", "")
	cfg.BankSwiftCode = getEnv("BANK_SWIFT_CODE", "")

	cfg.FareAPIURL = getEnv("FARE_API_URL", "")
	cfg.FareAPIKey = getEnv("FARE_API_KEY", "")

	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@lastseat.example.com")
	cfg.AgencyInboxEmail = getEnv("AGENCY_INBOX_EMAIL", "")

	cfg.BootstrapAdminEmail = getEnv("ADMIN_EMAIL", "")
	cfg.BootstrapAdminPassword = getEnv("ADMIN_PASSWORD", "")

	cfg.AppName = getEnv("APP_NAME", "LastSeat")

	// Numeric and duration values with defaults and parsing
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	captchaTTLSeconds, err := strconv.ParseInt(getEnv("CAPTCHA_TOKEN_TTL", "1200"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CAPTCHA_TOKEN_TTL: %w", err)
	}
	cfg.CaptchaTokenTTL = time.Duration(captchaTTLSeconds) * time.Second

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	fareTimeoutMs, err := strconv.ParseInt(getEnv("FARE_API_TIMEOUT_MS", "5000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid FARE_API_TIMEOUT_MS: %w", err)
	}
	cfg.FareAPITimeout = time.Duration(fareTimeoutMs) * time.Millisecond

	cfg.RatePerKmUSD, err = strconv.ParseFloat(getEnv("RATE_PER_KM_USD", "0.11"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_PER_KM_USD: %w", err)
	}

	// Rate Limiting
	cfg.RateLimitSoftBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_BUCKET_SIZE", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitSoftRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_SOFT_REFILL_RATE", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SOFT_REFILL_RATE: %w", err)
	}
	cfg.RateLimitHardBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_BUCKET_SIZE", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitHardRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_HARD_REFILL_RATE", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_HARD_REFILL_RATE: %w", err)
	}

	return cfg, nil
}

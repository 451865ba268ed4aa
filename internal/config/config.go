// Package config loads service configuration from config.yaml, an optional
// .env file, and environment variable overrides, in that order of precedence
// (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shopdesk/catalog-service/internal/logger"
)

// Config represents the service configuration
type Config struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	Database DatabaseConfig   `yaml:"database"`
	Auth     AuthConfig       `yaml:"auth"`
	OCR      OCRConfig        `yaml:"ocr"`
	Upload   UploadConfig     `yaml:"upload"`
	Payments PaymentsConfig   `yaml:"payments"`
	Storage  StorageConfig    `yaml:"storage"`
	Log      logger.LogConfig `yaml:"log"`
}

// DatabaseConfig configures the Postgres pool. An empty URL runs the service
// without persistence.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// AuthConfig configures token issuing and the approval gate.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	RequireApproval bool          `yaml:"require_approval"`
}

// OCRConfig selects and configures the recognition engine.
type OCRConfig struct {
	Engine        string        `yaml:"engine"`     // tesseract, vision, gemini, openai
	Preprocess    string        `yaml:"preprocess"` // none, standard, faded
	LanguageHints []string      `yaml:"language_hints"`
	Concurrency   int           `yaml:"concurrency"`
	Timeout       time.Duration `yaml:"timeout"`

	GoogleCredentials string       `yaml:"google_credentials"`
	Gemini            GeminiConfig `yaml:"gemini"`
	OpenAI            OpenAIConfig `yaml:"openai"`
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// OpenAIConfig for OpenAI or a compatible endpoint
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model"`
}

// UploadConfig bounds multipart uploads.
type UploadConfig struct {
	MaxFileSize int64   `yaml:"max_file_size"` // bytes per file
	MaxFiles    int     `yaml:"max_files"`
	RateLimit   float64 `yaml:"rate_limit"` // upload requests per second per client
	RateBurst   int     `yaml:"rate_burst"`
}

// PaymentsConfig configures the payment processor.
type PaymentsConfig struct {
	StripeSecretKey  string   `yaml:"stripe_secret_key"`
	WebhookSecret    string   `yaml:"webhook_secret"`
	Currency         string   `yaml:"currency"`
	AllowedCountries []string `yaml:"allowed_countries"`
}

// StorageConfig configures the MinIO image archive. An empty endpoint
// disables archiving.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Default returns the configuration used for every value left unset.
func Default() Config {
	return Config{
		Port: 8080,
		Host: "0.0.0.0",
		Database: DatabaseConfig{
			MaxConns: 10,
		},
		Auth: AuthConfig{
			TokenTTL:        24 * time.Hour,
			RequireApproval: true,
		},
		OCR: OCRConfig{
			Engine:        "tesseract",
			Preprocess:    "none",
			LanguageHints: []string{"eng", "chi_sim", "chi_tra"},
			Concurrency:   4,
			Timeout:       60 * time.Second,
		},
		Upload: UploadConfig{
			MaxFileSize: 10 << 20,
			MaxFiles:    10,
			RateLimit:   2,
			RateBurst:   5,
		},
		Payments: PaymentsConfig{
			Currency:         "usd",
			AllowedCountries: []string{"US", "CA", "GB", "AU", "CN", "HK", "TW", "SG"},
		},
		Storage: StorageConfig{
			Bucket: "catalog-uploads",
		},
		Log: logger.DefaultConfig(),
	}
}

// Load reads path (a missing file means defaults), loads .env when present,
// and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// .env is optional; real environment variables are never overwritten.
	_ = godotenv.Load()

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.Host = getEnv("HOST", cfg.Host)

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	if cfg.Database.URL == "" {
		cfg.Database.URL = databaseURLFromParts()
	}

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("JWT_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.RequireApproval = getEnvBool("REQUIRE_APPROVAL", cfg.Auth.RequireApproval)

	cfg.OCR.Engine = getEnv("OCR_ENGINE", cfg.OCR.Engine)
	cfg.OCR.Preprocess = getEnv("OCR_PREPROCESS", cfg.OCR.Preprocess)
	cfg.OCR.Concurrency = getEnvInt("OCR_CONCURRENCY", cfg.OCR.Concurrency)
	if hints := getEnv("OCR_LANGUAGES", ""); hints != "" {
		cfg.OCR.LanguageHints = splitList(hints, "+")
	}
	cfg.OCR.GoogleCredentials = getEnv("GOOGLE_CREDENTIALS", cfg.OCR.GoogleCredentials)
	cfg.OCR.Gemini.APIKey = getEnv("GEMINI_API_KEY", cfg.OCR.Gemini.APIKey)
	cfg.OCR.Gemini.Model = getEnv("GEMINI_MODEL", cfg.OCR.Gemini.Model)
	cfg.OCR.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OCR.OpenAI.APIKey)
	cfg.OCR.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OCR.OpenAI.BaseURL)
	cfg.OCR.OpenAI.Model = getEnv("OPENAI_MODEL", cfg.OCR.OpenAI.Model)

	cfg.Payments.StripeSecretKey = getEnv("STRIPE_SECRET_KEY", cfg.Payments.StripeSecretKey)
	cfg.Payments.WebhookSecret = getEnv("STRIPE_WEBHOOK_SECRET", cfg.Payments.WebhookSecret)
	cfg.Payments.Currency = getEnv("PAYMENT_CURRENCY", cfg.Payments.Currency)

	cfg.Storage.Endpoint = getEnv("MINIO_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = getEnv("MINIO_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = getEnv("MINIO_SECRET_KEY", cfg.Storage.SecretKey)
	cfg.Storage.Bucket = getEnv("MINIO_BUCKET", cfg.Storage.Bucket)
	cfg.Storage.UseSSL = getEnvBool("MINIO_USE_SSL", cfg.Storage.UseSSL)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// databaseURLFromParts builds a URL from DB_HOST, DB_USER, DB_NAME and friends.
func databaseURLFromParts() string {
	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if host == "" || user == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		user, os.Getenv("DB_PASSWORD"), host, getEnv("DB_PORT", "5432"), name)
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	switch strings.ToLower(c.OCR.Engine) {
	case "tesseract", "vision", "gemini", "openai":
	default:
		return fmt.Errorf("config: unknown ocr engine %q", c.OCR.Engine)
	}
	switch strings.ToLower(c.OCR.Preprocess) {
	case "", "none", "standard", "faded":
	default:
		return fmt.Errorf("config: unknown preprocess profile %q", c.OCR.Preprocess)
	}
	if c.OCR.Concurrency < 1 {
		return fmt.Errorf("config: ocr concurrency must be at least 1, got %d", c.OCR.Concurrency)
	}
	if c.Upload.MaxFiles < 1 {
		return fmt.Errorf("config: upload max_files must be at least 1, got %d", c.Upload.MaxFiles)
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("config: upload max_file_size must be positive")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

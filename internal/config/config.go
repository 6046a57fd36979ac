package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverDisk = "disk"
	StorageDriverS3   = "s3"

	EnvProduction = "production"
)

// Config aggregates runtime configuration for the relay and its providers.
type Config struct {
	ListenAddr    string
	AppEnv        string
	LogLevel      string
	PublicBaseURL string

	MySQLDSN string

	RazorpayKeyID     string
	RazorpayKeySecret string
	RazorpayBaseURL   string
	PaymentCurrency   string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIVisionModel string
	OpenAIImageModel  string
	RequestTimeout    time.Duration

	PromptMaxChars int
	PromptTruncate bool

	StorageDriver  string
	UploadDir      string
	UploadCleanup  time.Duration
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3PublicBase   string
	S3UsePathStyle bool
	S3Prefix       string

	CORSAllowedOrigins    []string
	UploadRateLimitPerMin int
	MetricsUsername       string
	MetricsPassword       string
}

// Load reads configuration from environment variables, applying sane defaults.
// Payment and database secrets are required; the AI key is optional.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultOpenAIBaseURL = "https://api.openai.com"

	cfg := Config{
		ListenAddr:            getEnv("HTTP_LISTEN_ADDR", ":5000"),
		AppEnv:                strings.ToLower(getEnv("APP_ENV", "development")),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:5000"), "/"),
		RazorpayBaseURL:       getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		PaymentCurrency:       strings.ToUpper(getEnv("PAYMENT_CURRENCY", "INR")),
		OpenAIBaseURL:         normalizeBaseURL(getEnv("OPENAI_BASE_URL", defaultOpenAIBaseURL), defaultOpenAIBaseURL),
		OpenAIVisionModel:     getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
		OpenAIImageModel:      getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
		RequestTimeout:        time.Second * time.Duration(getInt("HTTP_TIMEOUT_SECONDS", 180)),
		PromptMaxChars:        getInt("PROMPT_MAX_CHARS", 4000),
		PromptTruncate:        getBool("PROMPT_TRUNCATE", false),
		StorageDriver:         strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverDisk)),
		UploadDir:             getEnv("UPLOAD_DIR", "uploads"),
		UploadCleanup:         time.Second * time.Duration(getInt("UPLOAD_CLEANUP_SECONDS", 60)),
		S3Endpoint:            getEnv("S3_ENDPOINT", ""),
		S3Region:              os.Getenv("S3_REGION"),
		S3AccessKey:           os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:           os.Getenv("S3_SECRET_KEY"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		S3PublicBase:          os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:        getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:              getEnv("S3_PREFIX", "uploads"),
		CORSAllowedOrigins:    splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		UploadRateLimitPerMin: getInt("RATE_LIMIT_UPLOADS_PER_MINUTE", 10),
		MetricsUsername:       os.Getenv("METRICS_USERNAME"),
		MetricsPassword:       os.Getenv("METRICS_PASSWORD"),
	}

	cfg.MySQLDSN = os.Getenv("MYSQL_DSN")
	cfg.RazorpayKeyID = os.Getenv("RAZORPAY_KEY_ID")
	cfg.RazorpayKeySecret = os.Getenv("RAZORPAY_KEY_SECRET")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	var missing []string
	if cfg.RazorpayKeyID == "" {
		missing = append(missing, "RAZORPAY_KEY_ID")
	}
	if cfg.RazorpayKeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_SECRET")
	}
	if cfg.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	switch cfg.StorageDriver {
	case StorageDriverDisk:
	case StorageDriverS3:
		if cfg.S3Region == "" {
			missing = append(missing, "S3_REGION")
		}
		if cfg.S3AccessKey == "" {
			missing = append(missing, "S3_ACCESS_KEY")
		}
		if cfg.S3SecretKey == "" {
			missing = append(missing, "S3_SECRET_KEY")
		}
		if cfg.S3Bucket == "" {
			missing = append(missing, "S3_BUCKET")
		}
		if cfg.S3PublicBase == "" {
			missing = append(missing, "S3_PUBLIC_BASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

// AIEnabled reports whether the vision and image models can be reached.
func (c Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// IsProduction hides error details from API responses.
func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile overlays the first env file found. Deployments that inject
// variables directly have no file, which is fine.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}

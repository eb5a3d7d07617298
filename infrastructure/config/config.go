package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store and mirror drivers
const (
	StoreGitHub = "github"
	StoreFile   = "file"

	MirrorSupabase = "supabase"
	MirrorSQLite   = "sqlite"
	MirrorNone     = "none"

	RateLimitMemory   = "memory"
	RateLimitDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string
	SiteURL       string

	// Gallery rules overlay
	GalleryConfigFile string

	// OpenAI
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIValidationModel string
	OpenAIEnhanceModel    string

	// Templates document store
	StoreDriver         string
	GitHubToken         string
	GitHubOwner         string
	GitHubRepo          string
	GitHubBranch        string
	GitHubTemplatesPath string
	GitHubAPIURL        string
	TemplatesFile       string

	// Relational mirror
	MirrorDriver           string
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string
	SQLitePath             string
	MirrorSyncSchedule     string

	// Rate limiting
	SubmissionsPerHour int
	ScrapesPerHour     int
	RateLimitBackend   string
	RateLimitTable     string

	// AWS configuration
	AWSRegion    string
	EventBusName string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Outbound calls
	HTTPClientTimeout  time.Duration
	PublishMaxAttempts int
	CatalogCacheTTL    time.Duration

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	OTELEndpoint  string
	EnableCORS    bool
	CORSOrigins   []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:     getEnv("SERVER_ADDRESS", ":8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		SiteURL:           getEnv("SITE_URL", "http://localhost:3000"),
		GalleryConfigFile: getEnv("GALLERY_CONFIG_FILE", ""),

		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		OpenAIValidationModel: getEnv("OPENAI_VALIDATION_MODEL", "gpt-4-turbo-preview"),
		OpenAIEnhanceModel:    getEnv("OPENAI_ENHANCE_MODEL", "gpt-4"),

		StoreDriver:         getEnv("STORE_DRIVER", StoreGitHub),
		GitHubToken:         getEnv("GITHUB_PAT", ""),
		GitHubOwner:         getEnv("GITHUB_REPO_OWNER", ""),
		GitHubRepo:          getEnv("GITHUB_REPO_NAME", ""),
		GitHubBranch:        getEnv("GITHUB_REPO_BRANCH", "main"),
		GitHubTemplatesPath: getEnv("GITHUB_TEMPLATES_PATH", "data/templates.json"),
		GitHubAPIURL:        getEnv("GITHUB_API_URL", ""),
		TemplatesFile:       getEnv("TEMPLATES_FILE", "data/templates.json"),

		MirrorDriver:           getEnv("MIRROR_DRIVER", MirrorNone),
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SQLitePath:             getEnv("SQLITE_PATH", "gallery.db"),
		MirrorSyncSchedule:     getEnv("MIRROR_SYNC_SCHEDULE", "@every 15m"),

		SubmissionsPerHour: getEnvInt("RATE_LIMIT_SUBMISSIONS_PER_HOUR", 10),
		ScrapesPerHour:     getEnvInt("RATE_LIMIT_SCRAPES_PER_HOUR", 50),
		RateLimitBackend:   getEnv("RATE_LIMIT_BACKEND", RateLimitMemory),
		RateLimitTable:     getEnv("RATE_LIMIT_TABLE", "gallery-rate-limits"),

		AWSRegion:    getEnv("AWS_REGION", "us-west-2"),
		EventBusName: getEnv("EVENT_BUS_NAME", ""),

		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		HTTPClientTimeout:  getEnvDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second),
		PublishMaxAttempts: getEnvInt("PUBLISH_MAX_ATTEMPTS", 3),
		CatalogCacheTTL:    getEnvDuration("CATALOG_CACHE_TTL", time.Minute),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		OTELEndpoint:  getEnv("OTEL_ENDPOINT", "localhost:4317"),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		CORSOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
	if cfg.LambdaFunctionName != "" {
		cfg.IsLambda = true
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreGitHub:
		if c.GitHubOwner == "" || c.GitHubRepo == "" {
			return fmt.Errorf("GITHUB_REPO_OWNER and GITHUB_REPO_NAME are required for the github store")
		}
	case StoreFile:
		if c.TemplatesFile == "" {
			return fmt.Errorf("TEMPLATES_FILE is required for the file store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.MirrorDriver {
	case MirrorSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase mirror")
		}
	case MirrorSQLite, MirrorNone:
	default:
		return fmt.Errorf("unknown MIRROR_DRIVER %q", c.MirrorDriver)
	}

	switch c.RateLimitBackend {
	case RateLimitMemory, RateLimitDynamoDB:
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimitBackend)
	}

	if c.SubmissionsPerHour < 1 || c.ScrapesPerHour < 1 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.PublishMaxAttempts < 1 {
		return fmt.Errorf("PUBLISH_MAX_ATTEMPTS must be positive")
	}

	if c.IsProduction() && c.GitHubToken == "" && c.StoreDriver == StoreGitHub {
		return fmt.Errorf("GITHUB_PAT is required in production")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30s") or whole seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

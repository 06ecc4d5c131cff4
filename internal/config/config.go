package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env  string
	Port string
	Mode string // server, worker or embedded
	// AppURL is the frontend that OAuth logins return to.
	AppURL string

	DatabaseURL       string
	RedisURL          string
	SeedDevData       bool
	LogLevel          string
	LogFormat         string
	CORSOrigins       []string
	WorkerConcurrency int

	// Auth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
	SessionSecret      string
	EncryptionKey      string
	JWTSecret          string

	// AI gateway
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	OpenAIEmbedModel string
	AIStubMode       bool
	AIRatePerMinute  int

	// Reports
	PDFEngine           string // chromedp or playwright
	PDFTimeout          time.Duration
	BrowserPaths        []string
	ReportTemplateDir   string
	ReportRetentionDays int
	ReportPurgeSchedule string

	// Email
	MailgunDomain string
	MailgunAPIKey string
	MailFrom      string

	// Billing
	StripeWebhookSecret string
}

// browserPathVars are checked in priority order for an explicit browser executable.
var browserPathVars = []string{
	"CHROME_PATH",
	"PUPPETEER_EXECUTABLE_PATH",
	"CHROMIUM_PATH",
	"GOOGLE_CHROME_BIN",
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Env:               getEnvWithDefault("ENV", "development"),
		Port:              getEnvWithDefault("PORT", "8080"),
		Mode:              getEnvWithDefault("MODE", "embedded"),
		AppURL:            getEnvWithDefault("APP_URL", "http://localhost:3000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),
		SeedDevData:       getBool("SEED_DEV_DATA", false),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvWithDefault("LOG_FORMAT", "text"),
		CORSOrigins:       getList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 5),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),
		SessionSecret:      os.Getenv("SESSION_SECRET"),
		EncryptionKey:      os.Getenv("ENCRYPTION_KEY"),
		JWTSecret:          os.Getenv("SUPABASE_JWT_SECRET"),

		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    getEnvWithDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:      getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel: getEnvWithDefault("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		AIStubMode:       getBool("AI_STUB_MODE", false),
		AIRatePerMinute:  getInt("AI_RATE_PER_MINUTE", 20),

		PDFEngine:           getEnvWithDefault("PDF_ENGINE", "chromedp"),
		PDFTimeout:          time.Duration(getInt("PDF_TIMEOUT_SECONDS", 60)) * time.Second,
		BrowserPaths:        browserPaths(),
		ReportTemplateDir:   os.Getenv("REPORT_TEMPLATE_DIR"),
		ReportRetentionDays: getInt("REPORT_RETENTION_DAYS", 30),
		ReportPurgeSchedule: getEnvWithDefault("REPORT_PURGE_SCHEDULE", "0 3 * * *"),

		MailgunDomain: os.Getenv("MAILGUN_DOMAIN"),
		MailgunAPIKey: os.Getenv("MAILGUN_API_KEY"),
		MailFrom:      getEnvWithDefault("MAIL_FROM", "InterviewAce <reports@interviewace.app>"),

		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}

	// Warn if using default session secret (insecure for production)
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "dev-secret-change-in-production-use-openssl-rand-hex-32"
		log.Println("WARNING: Using default SESSION_SECRET. Generate a secure secret with: openssl rand -hex 32")
	}

	if cfg.OpenAIAPIKey == "" && !cfg.AIStubMode {
		log.Println("WARNING: OPENAI_API_KEY not set, falling back to AI stub mode")
		cfg.AIStubMode = true
	}

	return cfg
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func browserPaths() []string {
	var paths []string
	for _, key := range browserPathVars {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			paths = append(paths, v)
		}
	}
	return paths
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARNING: invalid %s=%q, using %d", key, v, defaultValue)
		return defaultValue
	}
	return i
}

func getBool(key string, defaultValue bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getList(key string, defaultValue []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

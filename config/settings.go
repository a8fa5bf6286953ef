package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Settings holds every environment-driven knob of the service.
type Settings struct {
	HTTPAddr       string        `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL    string        `env:"DB_URL"`
	RedisAddr      string        `env:"REDIS_ADDR"`
	JWTSecret      string        `env:"JWT_SECRET"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"72h"`
	GeminiAPIKey   string        `env:"GEMINI_API_KEY"`
	GeminiModel    string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	AuthRateLimit  float64       `env:"AUTH_RATE_LIMIT" envDefault:"5"`
	AuthRateBurst  int           `env:"AUTH_RATE_BURST" envDefault:"10"`
	WebhookSecret  string        `env:"WEBHOOK_SECRET"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	CronEnabled    bool          `env:"CRON_ENABLED" envDefault:"true"`
	CookieSecure   bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

var (
	// App is the active configuration. Load replaces it; tests may assign it directly.
	App = Defaults()
	// JwtKey signs and verifies auth tokens.
	JwtKey []byte
)

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		HTTPAddr:      ":8080",
		TokenTTL:      72 * time.Hour,
		GeminiModel:   "gemini-1.5-flash",
		AuthRateLimit: 5,
		AuthRateBurst: 10,
		LogLevel:      "info",
		CronEnabled:   true,
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Could not read .env file", "error", err)
	}

	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse environment: %w", err)
	}
	if s.JWTSecret == "" {
		return Settings{}, fmt.Errorf("JWT_SECRET environment variable not set")
	}
	if s.DatabaseURL == "" {
		return Settings{}, fmt.Errorf("DB_URL environment variable not set")
	}

	App = s
	JwtKey = []byte(s.JWTSecret)
	return s, nil
}

// SetupLogger installs a JSON slog handler at the configured level.
func SetupLogger(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

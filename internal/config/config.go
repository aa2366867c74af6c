// Package config loads runtime settings from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env.local file in the working directory. Variables already set in the
// environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read by Load when no file is given.
const DefaultEnvFile = ".env.local"

type Config struct {
	Port           int
	DBPath         string
	FrontendOrigin string
	DistDir        string // built SPA; served when it contains index.html
	Production     bool

	SessionTTL time.Duration
	BcryptCost int
	LogLevel   string

	APIRateLimit    int // requests per window per IP on /api
	AuthRateLimit   int // failed login/signup attempts per window per IP
	RateLimitWindow time.Duration
}

// Load reads the given env files (DefaultEnvFile when none are given) and
// then the environment. A missing env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		DBPath:         getEnv("DB_PATH", "data/cheat_sheet.db"),
		FrontendOrigin: getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
		DistDir:        getEnv("DIST_DIR", "dist"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Production:     isProduction(),
	}

	var err error
	if cfg.Port, err = getEnvAsInt("PORT", 4000); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvAsDuration("SESSION_TTL", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	if cfg.APIRateLimit, err = getEnvAsInt("API_RATE_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimit, err = getEnvAsInt("AUTH_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: SESSION_TTL must be positive")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: DB_PATH must not be empty")
	}
	return nil
}

// APP_ENV is preferred; NODE_ENV is honoured for existing deployments.
func isProduction() bool {
	env := getEnv("APP_ENV", os.Getenv("NODE_ENV"))
	return strings.EqualFold(env, "production")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", key, raw)
	}
	return v, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration", key, raw)
	}
	return v, nil
}

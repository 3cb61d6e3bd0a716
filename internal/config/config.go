// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database（空の場合はメモリストアを使う）
	DatabaseURL string `env:"DATABASE_URL"`

	// Session
	SessionSecret string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	// Credentials
	CredentialHashing string `env:"CREDENTIAL_HASHING" envDefault:"bcrypt"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"10"`

	// Rate Limit
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"100"` // req/min
	RateLimitLogin   int `env:"RATE_LIMIT_LOGIN" envDefault:"5"`     // 15分あたりの試行回数

	// Worker
	LinkCheckInterval      time.Duration `env:"LINK_CHECK_INTERVAL" envDefault:"6h"`
	LinkCheckTimeout       time.Duration `env:"LINK_CHECK_TIMEOUT" envDefault:"10s"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"24h"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Cookie
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   // BASE_URLがhttpsの場合にtrue

	// CORS（空の場合はCORSヘッダーを付与しない）
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"`
}

// Load は.envファイル（存在する場合）と環境変数からConfigを読み込む。
// 既に設定されている環境変数は.envの値で上書きしない。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv は環境変数のみからConfigを読み込む。
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	switch c.CredentialHashing {
	case "bcrypt", "plain":
	default:
		problems = append(problems, fmt.Sprintf("CREDENTIAL_HASHING must be bcrypt or plain, got %q", c.CredentialHashing))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		problems = append(problems, "BCRYPT_COST must be between 4 and 31")
	}
	if c.SessionTTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitLogin <= 0 {
		problems = append(problems, "RATE_LIMIT_GENERAL and RATE_LIMIT_LOGIN must be positive")
	}
	if c.LinkCheckInterval <= 0 || c.LinkCheckTimeout <= 0 || c.SessionCleanupInterval <= 0 {
		problems = append(problems, "worker intervals and timeouts must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// UsesMemoryStore はDATABASE_URLが未設定でメモリストアを使うかどうかを返す。
func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == ""
}

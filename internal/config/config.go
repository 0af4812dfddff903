package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// 実行モード
const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

// developmentCORSOrigin は開発モードでCORS_ALLOWED_ORIGINが未設定のときに許可するオリジン。
const developmentCORSOrigin = "http://localhost:3000"

// maxSigningKeyLen はSESSION_SIGNING_KEYの最大バイト数。
const maxSigningKeyLen = 64

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"RSVP_DB_URL,required,notEmpty"`

	// Session
	CanonicalHost     string `env:"CANONICAL_HOST" envDefault:"https://mazlinandaaron.com"`
	SessionSigningKey string `env:"SESSION_SIGNING_KEY"`

	// Admin
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	// Rate Limit (req/min)
	RateLimitGeneral  int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitMutation int `env:"RATE_LIMIT_MUTATION" envDefault:"30"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	Mode       string `env:"RSVP_MODE" envDefault:"production"`
	ServerPort string `env:"SERVER_PORT" envDefault:"7001"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、未設定の変数をすべて含むエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode != ModeProduction && cfg.Mode != ModeDevelopment {
		return nil, fmt.Errorf("RSVP_MODE must be %q or %q: %q", ModeProduction, ModeDevelopment, cfg.Mode)
	}
	if len(cfg.SessionSigningKey) > maxSigningKeyLen {
		return nil, fmt.Errorf("SESSION_SIGNING_KEY must be at most %d bytes", maxSigningKeyLen)
	}

	cfg.CanonicalHost = strings.TrimRight(cfg.CanonicalHost, "/")
	cfg.AdminEmails = compact(cfg.AdminEmails)

	if cfg.CORSAllowedOrigin == "" && cfg.IsDevelopment() {
		cfg.CORSAllowedOrigin = developmentCORSOrigin
	}

	return cfg, nil
}

// IsDevelopment は開発モードで起動しているかを返す。
func (c *Config) IsDevelopment() bool {
	return c.Mode == ModeDevelopment
}

// compact は前後の空白を除き、空要素を取り除く。
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

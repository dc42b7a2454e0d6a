package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrMissingGitHubCredentials được trả về khi thiếu thông tin OAuth của GitHub.
var ErrMissingGitHubCredentials = errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set in the environment")

const devAuthSecret = "studyflash-dev-secret-change-me"

// Config là cấu hình tiến trình, đọc từ biến môi trường.
type Config struct {
	Port             string        `env:"PORT"               envDefault:"8080"`
	GinMode          string        `env:"GIN_MODE"`
	DatabaseURL      string        `env:"DATABASE_URL"       envDefault:"file:dev.db"`
	BaseURL          string        `env:"BASE_URL"           envDefault:"http://localhost:8080"`
	AuthSecret       string        `env:"AUTH_SECRET"`
	TrustedOrigins   []string      `env:"TRUSTED_ORIGINS"    envDefault:"http://localhost:5173" envSeparator:","`
	SessionTTL       time.Duration `env:"SESSION_TTL"        envDefault:"168h"`
	SessionUpdateAge time.Duration `env:"SESSION_UPDATE_AGE" envDefault:"24h"`
	StateTTL         time.Duration `env:"STATE_TTL"          envDefault:"10m"`
	CleanupInterval  time.Duration `env:"CLEANUP_INTERVAL"   envDefault:"6h"`

	GitHubClientID     string   `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string   `env:"GITHUB_CLIENT_SECRET"`
	GitHubScopes       []string `env:"GITHUB_SCOPES" envDefault:"read:user,user:email" envSeparator:","`
}

// Load đọc cấu hình từ môi trường. Thiếu GITHUB_CLIENT_ID hoặc
// GITHUB_CLIENT_SECRET là lỗi khởi động.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.GitHubClientID = strings.TrimSpace(cfg.GitHubClientID)
	cfg.GitHubClientSecret = strings.TrimSpace(cfg.GitHubClientSecret)
	if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
		return nil, ErrMissingGitHubCredentials
	}

	if cfg.AuthSecret == "" {
		log.Println("AUTH_SECRET chưa được đặt, dùng secret mặc định cho môi trường dev")
		cfg.AuthSecret = devAuthSecret
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.TrustedOrigins = trimCSV(cfg.TrustedOrigins)
	cfg.GitHubScopes = trimCSV(cfg.GitHubScopes)

	return &cfg, nil
}

// Origins trả về BASE_URL cùng các TRUSTED_ORIGINS, dùng cho CORS và kiểm tra Origin.
func (c *Config) Origins() []string {
	origins := []string{c.BaseURL}
	for _, o := range c.TrustedOrigins {
		if o != c.BaseURL {
			origins = append(origins, o)
		}
	}
	return origins
}

// GitHubCallbackURL là redirect_uri đăng ký với GitHub.
func (c *Config) GitHubCallbackURL() string {
	return c.BaseURL + "/api/auth/callback/github"
}

func trimCSV(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimRight(strings.TrimSpace(v), "/")
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// スナップショットの保存先
const (
	SnapshotMemory   = "memory"
	SnapshotSQLite   = "sqlite"
	SnapshotPostgres = "postgres"
	SnapshotNone     = "none"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Role resolution
	RolePolicy      string
	CompanyDomain   string
	AdminEmails     []string
	ManagerEmails   []string
	RecruiterEmails []string

	// Snapshot
	SnapshotDriver string
	SnapshotPath   string
	SnapshotKey    string

	// Seed
	SeedFile     string
	SeedDefaults bool

	// Rate Limit
	RateLimitGeneral  int
	RateLimitMutation int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 値の組み合わせが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")

	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.RolePolicy = strings.ToLower(getEnvString("ROLE_POLICY", "strict"))
	cfg.CompanyDomain = getEnvString("COMPANY_DOMAIN", "company.com")
	cfg.AdminEmails = getEnvList("ADMIN_EMAILS", []string{"admin@company.com"})
	cfg.ManagerEmails = getEnvList("MANAGER_EMAILS", []string{"manager@company.com", "manager2@company.com"})
	cfg.RecruiterEmails = getEnvList("RECRUITER_EMAILS", []string{"recruiter@company.com", "recruiter2@company.com"})
	cfg.SnapshotDriver = strings.ToLower(getEnvString("SNAPSHOT_DRIVER", SnapshotMemory))
	cfg.SnapshotPath = getEnvString("SNAPSHOT_PATH", "jobboard.db")
	cfg.SnapshotKey = getEnvString("SNAPSHOT_KEY", "jobsData")
	cfg.SeedFile = os.Getenv("SEED_FILE")
	cfg.SeedDefaults = getEnvBool("SEED_DEFAULTS", true)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMutation = getEnvInt("RATE_LIMIT_MUTATION", 30)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.RolePolicy {
	case "strict", "directory":
	default:
		return fmt.Errorf("invalid ROLE_POLICY %q: must be strict or directory", c.RolePolicy)
	}

	switch c.SnapshotDriver {
	case SnapshotMemory, SnapshotSQLite, SnapshotNone:
	case SnapshotPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("required environment variables are not set: [DATABASE_URL]")
		}
	default:
		return fmt.Errorf("invalid SNAPSHOT_DRIVER %q", c.SnapshotDriver)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// UsesPostgres はPostgreSQLへの接続が必要かを返す。
// DATABASE_URLが設定されていればセッションもPostgreSQLに保存する。
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの値を分割する。空要素は除く。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

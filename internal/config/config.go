// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Server ServerConfig
	Store  StoreConfig
	Search SearchConfig
	Auth   AuthConfig
	Redis  RedisConfig
	Limits LimitsConfig
	Jobs   JobsConfig
	Assist AssistConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// Home is the data directory other paths default into.
	Home string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 0, SSE streams are long-lived)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxy bool
}

// StoreConfig holds document store configuration.
type StoreConfig struct {
	Path string
	// IndexFile is an optional YAML file of composite indexes. Empty uses
	// the built-in set.
	IndexFile      string
	EnforceIndexes bool
}

// Search backends.
const (
	SearchBackendPrefix = "prefix"
	SearchBackendIndex  = "index"
)

// SearchConfig holds search configuration.
type SearchConfig struct {
	Backend     string
	Path        string // bleve index directory
	MeiliHost   string // empty disables the Meilisearch mirror
	MeiliAPIKey string
}

// AuthConfig holds token configuration.
type AuthConfig struct {
	KeyPath        string
	AccessTokenTTL time.Duration
}

// RedisConfig holds Redis configuration. An empty address keeps view
// tracking in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LimitsConfig holds per-document and per-caller limits.
type LimitsConfig struct {
	MaxReplies       int
	MaxNotifications int
	WriteRPS         float64
	WriteBurst       int
}

// JobsConfig holds background job configuration.
type JobsConfig struct {
	// TagSyncInterval is how often tag counts are recomputed. Zero disables.
	TagSyncInterval time.Duration
}

// AssistConfig holds answer drafting configuration. An empty API key turns
// drafting off.
type AssistConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// source resolves one setting with precedence flag > env > .env > default.
type source struct {
	flags  *flag.FlagSet
	env    func(string) (string, bool)
	dotenv map[string]string
	errs   []error
}

func (s *source) str(flagName, envKey, def string) string {
	if f := s.flags.Lookup(flagName); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	if v, ok := s.env(envKey); ok && v != "" {
		return v
	}
	if v, ok := s.dotenv[envKey]; ok && v != "" {
		return v
	}
	return def
}

func (s *source) duration(flagName, envKey, def string) time.Duration {
	raw := s.str(flagName, envKey, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("invalid %s %q: %w", envKey, raw, err))
	}
	return d
}

func (s *source) integer(flagName, envKey string, def int) int {
	raw := s.str(flagName, envKey, strconv.Itoa(def))
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("invalid %s %q: %w", envKey, raw, err))
	}
	return n
}

func (s *source) float(flagName, envKey string, def float64) float64 {
	raw := s.str(flagName, envKey, strconv.FormatFloat(def, 'f', -1, 64))
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		s.errs = append(s.errs, fmt.Errorf("invalid %s %q: %w", envKey, raw, err))
	}
	return f
}

// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func (s *source) boolean(flagName, envKey string, def bool) bool {
	raw := s.str(flagName, envKey, "")
	if raw == "" {
		return def
	}
	raw = strings.ToLower(raw)
	return raw == "true" || raw == "1" || raw == "yes"
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv)
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file (read without touching the process environment).
// 4. Default values (lowest priority).
func Load(args []string, env func(string) (string, bool)) (*Config, error) {
	fs := flag.NewFlagSet("askhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	envFile := fs.String("env-file", ".env", "Path to .env file")
	fs.String("env", "", "Environment (development, staging, production)")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("home", "", "Data directory (default: ~/.askhub)")
	fs.String("port", "", "Server port (default: 8080)")
	fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	fs.String("write-timeout", "", "HTTP write timeout (default: 0)")
	fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	fs.String("cors-origins", "", "Comma-separated allowed CORS origins")
	fs.String("trust-proxy", "", "Trust client address headers from a reverse proxy (default: false)")
	fs.String("store-path", "", "Document store directory")
	fs.String("store-indexes", "", "Composite index YAML file")
	fs.String("store-enforce-indexes", "", "Reject queries without a composite index (default: true)")
	fs.String("search-backend", "", "Search backend: prefix or index")
	fs.String("search-path", "", "Search index directory")
	fs.String("meili-host", "", "Meilisearch host for the question mirror")
	fs.String("redis-addr", "", "Redis address for shared view tracking")
	fs.String("auth-key-path", "", "Token key file")
	fs.String("access-token-ttl", "", "Access token lifetime (default: 24h)")
	fs.String("tag-sync-interval", "", "Tag sync interval, 0 disables (default: 1h)")
	fs.String("assist-model", "", "Model used to draft answers (default: gemini-2.5-flash)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	dotenv, err := godotenv.Read(*envFile)
	if err != nil {
		// A missing .env file is normal.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", *envFile, err)
		}
		dotenv = map[string]string{}
	}

	s := &source{flags: fs, env: env, dotenv: dotenv}

	cfg := &Config{
		App: AppConfig{
			Environment: s.str("env", "ENV", "development"),
			Home:        s.str("home", "ASKHUB_HOME", "~/.askhub"),
		},
		Logger: LoggerConfig{
			Level: s.str("log-level", "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:         s.str("port", "SERVER_PORT", "8080"),
			ReadTimeout:  s.duration("read-timeout", "SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: s.duration("write-timeout", "SERVER_WRITE_TIMEOUT", "0s"),
			IdleTimeout:  s.duration("idle-timeout", "SERVER_IDLE_TIMEOUT", "60s"),
			CORSOrigins:  splitList(s.str("cors-origins", "CORS_ORIGINS", "*")),
			TrustProxy:   s.boolean("trust-proxy", "SERVER_TRUST_PROXY", false),
		},
		Store: StoreConfig{
			Path:           s.str("store-path", "STORE_PATH", ""),
			IndexFile:      s.str("store-indexes", "STORE_INDEXES", ""),
			EnforceIndexes: s.boolean("store-enforce-indexes", "STORE_ENFORCE_INDEXES", true),
		},
		Search: SearchConfig{
			Backend:     s.str("search-backend", "SEARCH_BACKEND", SearchBackendPrefix),
			Path:        s.str("search-path", "SEARCH_PATH", ""),
			MeiliHost:   s.str("meili-host", "MEILI_HOST", ""),
			MeiliAPIKey: s.str("", "MEILI_API_KEY", ""),
		},
		Auth: AuthConfig{
			KeyPath:        s.str("auth-key-path", "AUTH_KEY_PATH", ""),
			AccessTokenTTL: s.duration("access-token-ttl", "AUTH_ACCESS_TOKEN_TTL", "24h"),
		},
		Redis: RedisConfig{
			Addr:     s.str("redis-addr", "REDIS_ADDR", ""),
			Password: s.str("", "REDIS_PASSWORD", ""),
			DB:       s.integer("", "REDIS_DB", 0),
		},
		Limits: LimitsConfig{
			MaxReplies:       s.integer("", "LIMIT_MAX_REPLIES", 50),
			MaxNotifications: s.integer("", "LIMIT_MAX_NOTIFICATIONS", 100),
			WriteRPS:         s.float("", "LIMIT_WRITE_RPS", 5),
			WriteBurst:       s.integer("", "LIMIT_WRITE_BURST", 10),
		},
		Jobs: JobsConfig{
			TagSyncInterval: s.duration("tag-sync-interval", "JOBS_TAG_SYNC_INTERVAL", "1h"),
		},
		Assist: AssistConfig{
			APIKey:  s.str("", "ASSIST_API_KEY", ""),
			Model:   s.str("assist-model", "ASSIST_MODEL", "gemini-2.5-flash"),
			Timeout: s.duration("", "ASSIST_TIMEOUT", "30s"),
		},
	}
	if len(s.errs) > 0 {
		return nil, errors.Join(s.errs...)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Search.Backend {
	case SearchBackendPrefix, SearchBackendIndex:
	default:
		return fmt.Errorf("invalid search backend: %s (must be prefix or index)", c.Search.Backend)
	}

	if c.Store.Path == "" {
		return errors.New("store path cannot be empty after expansion")
	}

	if c.Limits.MaxReplies <= 0 {
		return errors.New("LIMIT_MAX_REPLIES must be positive")
	}
	if c.Limits.MaxNotifications <= 0 {
		return errors.New("LIMIT_MAX_NOTIFICATIONS must be positive")
	}
	if c.Limits.WriteRPS <= 0 || c.Limits.WriteBurst <= 0 {
		return errors.New("LIMIT_WRITE_RPS and LIMIT_WRITE_BURST must be positive")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return errors.New("AUTH_ACCESS_TOKEN_TTL must be positive")
	}
	if c.Jobs.TagSyncInterval < 0 {
		return errors.New("JOBS_TAG_SYNC_INTERVAL cannot be negative")
	}
	if c.Assist.APIKey != "" && (c.Assist.Model == "" || c.Assist.Timeout <= 0) {
		return errors.New("ASSIST_MODEL and a positive ASSIST_TIMEOUT are required when ASSIST_API_KEY is set")
	}

	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) expandPaths() error {
	home, err := expandPath(c.App.Home, "")
	if err != nil {
		return fmt.Errorf("invalid home path: %w", err)
	}
	c.App.Home = home

	targets := []struct {
		path *string
		def  string
	}{
		{&c.Store.Path, filepath.Join(home, "store")},
		{&c.Search.Path, filepath.Join(home, "search")},
		{&c.Auth.KeyPath, filepath.Join(home, "auth.key")},
		{&c.Store.IndexFile, ""},
	}
	for _, t := range targets {
		expanded, err := expandPath(*t.path, t.def)
		if err != nil {
			return fmt.Errorf("invalid path %q: %w", *t.path, err)
		}
		*t.path = expanded
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, returns defaultPath.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package config provides configuration for the gateway.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DefaultAPIVersion = "2023-05-15"

	minTimeout = 30 * time.Second
)

// Config holds the gateway configuration.
type Config struct {
	Environment string
	LogLevel    string

	Server     ServerConfig
	Completion CompletionConfig
	Database   DatabaseConfig
	Auth       AuthConfig
	SPA        SPAConfig
	Limits     LimitsConfig
}

// ServerConfig holds listener and CORS settings.
type ServerConfig struct {
	Port           int
	FrontendURL    string
	AllowedOrigins []string
}

// CompletionConfig holds the hosted completion endpoint settings.
type CompletionConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	Timeout    time.Duration
	// Mode "mock" answers completions locally for offline development.
	Mode string
}

// DatabaseConfig holds the conversation store settings.
type DatabaseConfig struct {
	// Driver is one of sqlserver, postgres or sqlite. Empty means infer from the DSN.
	Driver   string
	URL      string
	Server   string
	Port     int
	Name     string
	User     string
	Password string
	Encrypt  bool

	Timeout       time.Duration
	MaxOpenConns  int
	MaxConcurrent int
}

// AuthConfig holds the identity boundary settings.
type AuthConfig struct {
	Enabled  bool
	ClientID string
	// CategoryRoles maps a conversation category to the roles allowed to use it.
	CategoryRoles map[string][]string
}

// SPAConfig holds the entry document settings.
type SPAConfig struct {
	StaticDir         string
	FallbackHTML      string
	PlaceholderStatus int
}

// LimitsConfig holds request limits.
type LimitsConfig struct {
	CompletionRPS   float64
	CompletionBurst int
	BodyLimit       string
}

// bindings maps viper keys to environment variables, preferred name first.
var bindings = map[string][]string{
	"environment":             {"APP_ENV", "NODE_ENV"},
	"log.level":               {"LOG_LEVEL"},
	"server.port":             {"PORT", "HTTP_PORT"},
	"server.frontend_url":     {"FRONTEND_URL"},
	"server.allowed_origins":  {"ALLOWED_ORIGINS"},
	"completion.endpoint":     {"AZURE_OPENAI_ENDPOINT", "REACT_APP_AZURE_OPENAI_ENDPOINT"},
	"completion.api_key":      {"AZURE_OPENAI_API_KEY", "REACT_APP_AZURE_OPENAI_API_KEY"},
	"completion.deployment":   {"AZURE_OPENAI_DEPLOYMENT_NAME", "REACT_APP_AZURE_OPENAI_DEPLOYMENT_NAME"},
	"completion.api_version":  {"AZURE_OPENAI_API_VERSION", "REACT_APP_AZURE_OPENAI_API_VERSION"},
	"completion.timeout":      {"COMPLETION_TIMEOUT"},
	"completion.mode":         {"COMPLETION_MODE"},
	"database.driver":         {"SQL_DRIVER", "DB_DRIVER"},
	"database.url":            {"DATABASE_URL"},
	"database.server":         {"SQL_SERVER"},
	"database.port":           {"SQL_PORT"},
	"database.name":           {"SQL_DATABASE"},
	"database.user":           {"SQL_USER"},
	"database.password":       {"SQL_PASSWORD"},
	"database.encrypt":        {"SQL_ENCRYPT"},
	"database.timeout":        {"DB_TIMEOUT"},
	"database.max_open":       {"DB_MAX_OPEN_CONNS"},
	"database.max_concurrent": {"DB_MAX_CONCURRENT"},
	"auth.enabled":            {"AUTH_ENABLED"},
	"auth.client_id":          {"AZURE_AD_CLIENT_ID", "REACT_APP_AZURE_AD_CLIENT_ID"},
	"auth.category_roles":     {"AUTH_CATEGORY_ROLES"},
	"spa.static_dir":          {"STATIC_DIR"},
	"spa.fallback_html":       {"FALLBACK_HTML"},
	"spa.placeholder_status":  {"PLACEHOLDER_STATUS"},
	"limits.completion_rps":   {"COMPLETION_RPS"},
	"limits.completion_burst": {"COMPLETION_BURST"},
	"limits.body":             {"BODY_LIMIT"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("completion.api_version", DefaultAPIVersion)
	v.SetDefault("completion.timeout", "60s")
	v.SetDefault("database.port", 1433)
	v.SetDefault("database.encrypt", true)
	v.SetDefault("database.timeout", "30s")
	v.SetDefault("database.max_open", 10)
	v.SetDefault("database.max_concurrent", 10)
	v.SetDefault("auth.category_roles", "brokerage=AI.Brokerage.Access")
	v.SetDefault("spa.static_dir", "build")
	v.SetDefault("spa.fallback_html", "public/index.html")
	v.SetDefault("spa.placeholder_status", 200)
	v.SetDefault("limits.completion_rps", 10)
	v.SetDefault("limits.completion_burst", 20)
	v.SetDefault("limits.body", "2M")
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment bindings applied.
// configFile may be empty; when set it must exist.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return v, nil
	}

	v.SetConfigName("rts-ai")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Load builds a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: normalizeEnvironment(v.GetString("environment")),
		LogLevel:    v.GetString("log.level"),
		Server: ServerConfig{
			Port:        v.GetInt("server.port"),
			FrontendURL: strings.TrimSpace(v.GetString("server.frontend_url")),
		},
		Completion: CompletionConfig{
			Endpoint:   strings.TrimSpace(v.GetString("completion.endpoint")),
			APIKey:     strings.TrimSpace(v.GetString("completion.api_key")),
			Deployment: strings.TrimSpace(v.GetString("completion.deployment")),
			APIVersion: strings.TrimSpace(v.GetString("completion.api_version")),
			Timeout:    v.GetDuration("completion.timeout"),
			Mode:       strings.ToLower(strings.TrimSpace(v.GetString("completion.mode"))),
		},
		Database: DatabaseConfig{
			Driver:        strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
			URL:           strings.TrimSpace(v.GetString("database.url")),
			Server:        strings.TrimSpace(v.GetString("database.server")),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			Encrypt:       v.GetBool("database.encrypt"),
			Timeout:       v.GetDuration("database.timeout"),
			MaxOpenConns:  v.GetInt("database.max_open"),
			MaxConcurrent: v.GetInt("database.max_concurrent"),
		},
		Auth: AuthConfig{
			ClientID: strings.TrimSpace(v.GetString("auth.client_id")),
		},
		SPA: SPAConfig{
			StaticDir:         v.GetString("spa.static_dir"),
			FallbackHTML:      v.GetString("spa.fallback_html"),
			PlaceholderStatus: v.GetInt("spa.placeholder_status"),
		},
		Limits: LimitsConfig{
			CompletionRPS:   v.GetFloat64("limits.completion_rps"),
			CompletionBurst: v.GetInt("limits.completion_burst"),
			BodyLimit:       v.GetString("limits.body"),
		},
	}

	cfg.Auth.Enabled = v.GetBool("auth.enabled") || cfg.Auth.ClientID != ""

	roles, err := ParseCategoryRoles(v.GetString("auth.category_roles"))
	if err != nil {
		return nil, err
	}
	cfg.Auth.CategoryRoles = roles

	cfg.Server.AllowedOrigins = resolveOrigins(cfg.Environment, splitList(v.GetString("server.allowed_origins")), cfg.Server.FrontendURL)

	cfg.Validate()
	return cfg, nil
}

// Validate normalizes values that would otherwise break the server. It never
// fails on missing secrets; the endpoints that need them report that.
func (c *Config) Validate() {
	if c.Completion.APIVersion == "" {
		c.Completion.APIVersion = DefaultAPIVersion
	}
	if c.Completion.Timeout < minTimeout {
		c.Completion.Timeout = minTimeout
	}
	if c.Database.Timeout < minTimeout {
		c.Database.Timeout = minTimeout
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxConcurrent <= 0 {
		c.Database.MaxConcurrent = c.Database.MaxOpenConns
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.SPA.PlaceholderStatus < 100 || c.SPA.PlaceholderStatus > 599 {
		c.SPA.PlaceholderStatus = 200
	}
	if c.Limits.CompletionRPS <= 0 {
		c.Limits.CompletionRPS = 10
	}
	if c.Limits.CompletionBurst <= 0 {
		c.Limits.CompletionBurst = 20
	}
	if c.Limits.BodyLimit == "" {
		c.Limits.BodyLimit = "2M"
	}
}

// IsProduction reports whether the gateway runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Missing lists the environment variables of unset completion secrets.
func (c CompletionConfig) Missing() []string {
	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if c.APIKey == "" {
		missing = append(missing, "AZURE_OPENAI_API_KEY")
	}
	if c.Deployment == "" {
		missing = append(missing, "AZURE_OPENAI_DEPLOYMENT_NAME")
	}
	return missing
}

// ResolvedDriver returns the configured driver, inferring it from the DSN
// when unset. It returns "" when no database is configured.
func (d DatabaseConfig) ResolvedDriver() string {
	if d.Driver != "" {
		if d.Driver == "mssql" || d.Driver == "azuresql" {
			return "sqlserver"
		}
		if d.Driver == "sqlite3" {
			return "sqlite"
		}
		return d.Driver
	}
	u := strings.ToLower(d.URL)
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(u, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(u, "file:"), u == ":memory:", strings.HasSuffix(u, ".db"), strings.HasSuffix(u, ".sqlite"):
		return "sqlite"
	case u == "" && d.Server != "":
		return "sqlserver"
	}
	return ""
}

// DSN returns the connection string for ResolvedDriver, or "" when the store
// is not configured.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.ResolvedDriver() != "sqlserver" || d.Server == "" {
		return ""
	}
	q := url.Values{}
	if d.Name != "" {
		q.Set("database", d.Name)
	}
	q.Set("encrypt", strconv.FormatBool(d.Encrypt))
	q.Set("connection timeout", strconv.Itoa(int(d.Timeout/time.Second)))
	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     fmt.Sprintf("%s:%d", d.Server, d.Port),
		RawQuery: q.Encode(),
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	return u.String()
}

// Redacted returns DSN with any password masked, for logs.
func (d DatabaseConfig) Redacted() string {
	dsn := d.DSN()
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		if d.Password != "" {
			return strings.ReplaceAll(dsn, d.Password, "xxxxx")
		}
		return dsn
	}
	return u.Redacted()
}

// ParseCategoryRoles parses "category=RoleA|RoleB,other=RoleC".
func ParseCategoryRoles(s string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, entry := range splitList(s) {
		category, roles, ok := strings.Cut(entry, "=")
		category = strings.TrimSpace(category)
		if !ok || category == "" {
			return nil, fmt.Errorf("invalid category role mapping %q", entry)
		}
		for _, r := range strings.Split(roles, "|") {
			if r = strings.TrimSpace(r); r != "" {
				out[category] = append(out[category], r)
			}
		}
	}
	return out, nil
}

func resolveOrigins(env string, explicit []string, frontendURL string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	if env == EnvProduction {
		if frontendURL == "" {
			return nil
		}
		return []string{frontendURL}
	}
	origins := []string{"http://localhost:3000", "http://localhost:3001"}
	if frontendURL != "" {
		origins = append(origins, frontendURL)
	}
	return origins
}

func normalizeEnvironment(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "prod", "production":
		return EnvProduction
	case "":
		return EnvDevelopment
	default:
		return strings.ToLower(strings.TrimSpace(env))
	}
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

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type InstrumentationConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	SlowMs       int     `mapstructure:"slow_ms"`
}

type Config struct {
	Environment     string                `mapstructure:"environment"`
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Log             LogConfig             `mapstructure:"log"`
	Auth            AuthConfig            `mapstructure:"auth"`
	Admin           AdminSeedConfig       `mapstructure:"admin"`
	Query           QueryConfig           `mapstructure:"query"`
	Notifications   NotificationConfig    `mapstructure:"notifications"`
	Instrumentation InstrumentationConfig `mapstructure:"instrumentation"`
	JWTSecret       string                `mapstructure:"jwt_secret"`
	TokenTTL        time.Duration         `mapstructure:"token_ttl"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	CORSOrigins string `mapstructure:"cors_origins"`
	BodyLimit   int    `mapstructure:"body_limit"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // text or json
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type AuthConfig struct {
	// RequiredRole, when set, is enforced by the auth middleware on every protected route.
	RequiredRole          string `mapstructure:"required_role"`
	PublicAccountDeletion bool   `mapstructure:"public_account_deletion"`
}

type AdminSeedConfig struct {
	SeedEmail    string `mapstructure:"seed_email"`
	SeedPassword string `mapstructure:"seed_password"`
}

type QueryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type NotificationConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"`
	URL       string `mapstructure:"url"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	User      string `mapstructure:"user"`
	Password  string `mapstructure:"password"`
	Name      string `mapstructure:"name"`
	SSLMode   string `mapstructure:"sslmode"`
	Schema    string `mapstructure:"schema"`
	PoolSize  int    `mapstructure:"pool_size"`
	Path      string `mapstructure:"path"` // directory for SQLite database files
	Bootstrap bool   `mapstructure:"bootstrap"`
}

// DSN returns the driver-specific data source name. An explicit URL wins.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.IsSQLite() {
		if d.Name == ":memory:" {
			return d.Name
		}
		return d.Path + "/" + d.Name + ".db"
	}
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

// Warnings lists connection settings an operator should look at before
// deploying to a serverless platform.
func (d DatabaseConfig) Warnings() []string {
	if d.IsSQLite() {
		return nil
	}
	var warnings []string
	if d.URL == "" {
		warnings = append(warnings, "DATABASE_URL is not set, falling back to discrete host/port/user settings")
		return warnings
	}
	if strings.Contains(d.URL, "db.") && strings.Contains(d.URL, ".supabase.co:5432") {
		warnings = append(warnings,
			"direct connection URL in use; serverless platforms should use the connection pooler URL (port 6543)")
	}
	return warnings
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.body_limit", 4*1024*1024)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "postgres")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("database.bootstrap", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("jwt_secret", "your_jwt_secret_key_change_this_in_production")
	v.SetDefault("token_ttl", 24*time.Hour)
	v.SetDefault("auth.required_role", "")
	v.SetDefault("auth.public_account_deletion", true)
	v.SetDefault("admin.seed_email", "")
	v.SetDefault("admin.seed_password", "")
	v.SetDefault("query.default_limit", 100)
	v.SetDefault("query.max_limit", 1000)
	v.SetDefault("notifications.concurrency", 4)
	v.SetDefault("instrumentation.enabled", true)
	v.SetDefault("instrumentation.sampling_rate", 1.0)
	v.SetDefault("instrumentation.slow_ms", 500)
}

// Load reads app.yaml (if present), applies defaults and environment overrides.
// DATABASE_URL, JWT_SECRET and PORT are honoured as well as the dotted keys
// in their upper-case underscore form (DATABASE_HOST, LOG_LEVEL, ...).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../..")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "PORT", "SERVER_PORT")
	_ = v.BindEnv("environment", "NODE_ENV", "ENVIRONMENT")
	_ = v.BindEnv("database.url", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

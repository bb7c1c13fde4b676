package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	HierarchyServerURL string        `mapstructure:"HIERARCHY_SERVER_URL"`
	HierarchyTimeout   time.Duration `mapstructure:"HIERARCHY_TIMEOUT"`
	RootConcept        string        `mapstructure:"ROOT_CONCEPT"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxBodySize        string        `mapstructure:"MAX_BODY_SIZE"`
	FlattenBodySize    string        `mapstructure:"FLATTEN_BODY_SIZE"`
	MigrationsDir      string        `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:4200")
	v.SetDefault("HIERARCHY_SERVER_URL", "https://snowstorm-lite.nw.r.appspot.com")
	v.SetDefault("HIERARCHY_TIMEOUT", "30s")
	v.SetDefault("ROOT_CONCEPT", "138875005")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("MAX_BODY_SIZE", "1M")
	v.SetDefault("FLATTEN_BODY_SIZE", "25M")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("HIERARCHY_SERVER_URL")
	v.BindEnv("HIERARCHY_TIMEOUT")
	v.BindEnv("ROOT_CONCEPT")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("MAX_BODY_SIZE")
	v.BindEnv("FLATTEN_BODY_SIZE")
	v.BindEnv("MIGRATIONS_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HasDatabase reports whether a database is configured. Without one the
// server only serves caller-supplied computations.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.HierarchyTimeout < 0 {
		return fmt.Errorf("HIERARCHY_TIMEOUT must not be negative, got %s", c.HierarchyTimeout)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	if c.HasDatabase() && c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.IsProduction() && c.HierarchyServerURL != "" && !strings.HasPrefix(c.HierarchyServerURL, "https://") {
		return fmt.Errorf("HIERARCHY_SERVER_URL must use https in production, got %q", c.HierarchyServerURL)
	}
	return nil
}

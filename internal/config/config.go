package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"port"`
	Database struct {
		Driver string `mapstructure:"driver"`
		URL    string `mapstructure:"url"`
	} `mapstructure:"database"`
	JWT struct {
		Secret string        `mapstructure:"secret"`
		TTL    time.Duration `mapstructure:"ttl"`
	} `mapstructure:"jwt"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SnowflakeNode  int64    `mapstructure:"snowflake_node"`
	CookieDomain   string   `mapstructure:"cookie_domain"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	v := viper.New()

	v.SetDefault("port", "3000")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("jwt.ttl", 7*24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("snowflake_node", 0)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// explicit bindings
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("jwt.ttl", "JWT_TTL")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.format", "LOG_FORMAT")
	_ = v.BindEnv("allowed_origins", "ALLOWED_ORIGINS")
	_ = v.BindEnv("snowflake_node", "SNOWFLAKE_NODE")
	_ = v.BindEnv("cookie_domain", "COOKIE_DOMAIN")

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, err
	}

	c.AllowedOrigins = splitOrigins(c.AllowedOrigins)

	if c.JWT.Secret == "" {
		return Config{}, errors.New("config error: JWT_SECRET is required")
	}
	if c.Database.URL == "" {
		return Config{}, errors.New("config error: DATABASE_URL is required")
	}

	return c, nil
}

// splitOrigins flattens comma separated entries; env values arrive as one string.
func splitOrigins(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds the process logger from the log settings.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}

	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

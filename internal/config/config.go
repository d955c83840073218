// Package config loads songboard settings from .env, the environment and
// command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultAddr      = "127.0.0.1:8080"
	DefaultLikesPath = "data/likes.db"
	DefaultLogLevel  = "info"
)

// Config stores the application configuration.
type Config struct {
	Addr          string `mapstructure:"addr"`
	DatabaseURL   string `mapstructure:"database_url"`
	SpotifyID     string `mapstructure:"spotify_id"`
	SpotifySecret string `mapstructure:"spotify_secret"`
	LikesPath     string `mapstructure:"likes_path"`
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
}

// HasCatalogCredentials reports whether both catalog credentials are set.
func (c *Config) HasCatalogCredentials() bool {
	return c.SpotifyID != "" && c.SpotifySecret != ""
}

// Validate checks settings required to serve.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Addr == "" {
		return errors.New("ADDR must not be empty")
	}
	return nil
}

var keys = []string{
	"addr",
	"database_url",
	"spotify_id",
	"spotify_secret",
	"likes_path",
	"log_level",
	"log_file",
}

// Load reads .env files (existing environment variables win), then resolves
// every key from flags, environment and defaults in that order. flags may be
// nil; flag names use dashes, e.g. --database-url.
func Load(flags *pflag.FlagSet, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("likes_path", DefaultLikesPath)
	v.SetDefault("log_level", DefaultLogLevel)

	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key, envName(key)); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(flagName(key)); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", f.Name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// RegisterFlags adds the overridable settings to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(flagName("addr"), DefaultAddr, "listen address")
	flags.String(flagName("database_url"), "", "PostgreSQL connection URL")
	flags.String(flagName("likes_path"), DefaultLikesPath, "path of the local likes database")
	flags.String(flagName("log_level"), DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String(flagName("log_file"), "", "optional rotating log file")
}

func envName(key string) string {
	return strings.ToUpper(key)
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

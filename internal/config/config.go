package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr   string      `mapstructure:"listen_addr" validate:"required"`
	SchemaPath   string      `mapstructure:"schema_path" validate:"required"`
	LogLevel     string      `mapstructure:"log_level" validate:"required,uppercase"`
	StoreOptions StoreConfig `mapstructure:"store" validate:"required"`
	GridOptions  GridConfig  `mapstructure:"grid" validate:"required"`
}

type StoreConfig struct {
	// Backend selects the document store: mongo, sqlite, or postgres.
	Backend     string `mapstructure:"backend" validate:"required,oneof=mongo sqlite postgres"`
	MongoURL    string `mapstructure:"mongo_url"`
	PostgresURL string `mapstructure:"postgres_url"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

type GridConfig struct {
	// StateTTLSecs bounds how long a reloaded page restores its previous
	// filter and sort state before reverting to schema defaults.
	StateTTLSecs      int `mapstructure:"state_ttl_secs" validate:"min=1"`
	DefaultPageLength int `mapstructure:"default_page_length" validate:"min=1"`
}

func Load() *Config {
	v := viper.New()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("schema_path", "./schemas.yaml")
	v.SetDefault("log_level", "INFO")
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.mongo_url", "")
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.sqlite_path", "./docgrid.db")
	v.SetDefault("grid.state_ttl_secs", 120)
	v.SetDefault("grid.default_page_length", 25)

	v.SetEnvPrefix("DOCGRID")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	configFile := os.Getenv("DOCGRID_CONFIG_PATH")
	if configFile != "" {
		v.SetConfigFile(configFile)
		slog.Info("Loading configuration from specified file", "path", configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/docgrid/")
	}

	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Failed to read config file", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("Configuration loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	err = v.Unmarshal(&cfg)
	if err != nil {
		slog.Error("Failed to parse configuration", "error", err)
		os.Exit(1)
	}

	validateConfig(&cfg)
	return &cfg
}

func validateConfig(cfg *Config) {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		slog.Error("Config validation failed", "error", err)
		os.Exit(1)
	}

	switch cfg.StoreOptions.Backend {
	case "mongo":
		if cfg.StoreOptions.MongoURL == "" {
			slog.Error("Config validation failed", "error", "store.mongo_url is required for the mongo backend")
			os.Exit(1)
		}
	case "postgres":
		if cfg.StoreOptions.PostgresURL == "" {
			slog.Error("Config validation failed", "error", "store.postgres_url is required for the postgres backend")
			os.Exit(1)
		}
	case "sqlite":
		if cfg.StoreOptions.SQLitePath == "" {
			slog.Error("Config validation failed", "error", "store.sqlite_path is required for the sqlite backend")
			os.Exit(1)
		}
	}
}

package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RedisConfig holds the backplane connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config holds the relay daemon configuration. Precedence: flags over
// environment over config file over defaults.
type Config struct {
	Addr      string      `yaml:"addr"`
	LogLevel  string      `yaml:"log_level"`
	Backplane string      `yaml:"backplane"` // "redis" or "memory"
	Redis     RedisConfig `yaml:"redis"`
}

func defaultConfig() Config {
	return Config{
		Addr:      ":8080",
		LogLevel:  "info",
		Backplane: "redis",
		Redis:     RedisConfig{Addr: "localhost:6379"},
	}
}

// loadConfig builds the configuration from defaults, an optional YAML file,
// and environment variables.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("WSRELAY_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WSRELAY_BACKPLANE"); v != "" {
		cfg.Backplane = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}

	if cfg.Backplane != "redis" && cfg.Backplane != "memory" {
		return cfg, fmt.Errorf("unknown backplane %q (want redis or memory)", cfg.Backplane)
	}
	return cfg, nil
}

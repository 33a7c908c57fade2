// Package config loads arena configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the arena reads at startup.
type Config struct {
	Port          int    `env:"ARENA_PORT" envDefault:"8080"`
	DBPath        string `env:"ARENA_DB_PATH" envDefault:"data/arena.db"`
	Seed          int64  `env:"ARENA_SEED" envDefault:"42"` // 0 = crypto randomness, non-reproducible
	AgentCount    int    `env:"ARENA_AGENTS" envDefault:"20"`
	FieldSize     int    `env:"ARENA_FIELD_SIZE" envDefault:"16"`
	RoundInterval int    `env:"ARENA_ROUND_INTERVAL" envDefault:"5"` // seconds between rounds
	AdminKey      string `env:"ARENA_ADMIN_KEY"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.AgentCount < 2 {
		return Config{}, fmt.Errorf("ARENA_AGENTS must be at least 2, got %d", cfg.AgentCount)
	}
	if cfg.FieldSize < 1 {
		return Config{}, fmt.Errorf("ARENA_FIELD_SIZE must be positive, got %d", cfg.FieldSize)
	}
	if cfg.RoundInterval < 1 {
		return Config{}, fmt.Errorf("ARENA_ROUND_INTERVAL must be positive, got %d", cfg.RoundInterval)
	}
	return cfg, nil
}

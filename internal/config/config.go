package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Game   GameConfig   `yaml:"game"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
	CardsPath      string `yaml:"cards_path"`
}

// RedisConfig holds the leaderboard store settings.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig holds the game rules.
type GameConfig struct {
	HandSize     int `yaml:"hand_size"`
	WinningScore int `yaml:"winning_score"`
	MinPlayers   int `yaml:"min_players"`
	ScoringDelay int `yaml:"scoring_delay_ms"` // Scoring → next round delay (ms)
	RoomTimeout  int `yaml:"room_timeout"`     // abandoned-room reap delay (minutes)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ScoringDelayDuration returns the Scoring → Playing delay.
func (c *GameConfig) ScoringDelayDuration() time.Duration {
	return time.Duration(c.ScoringDelay) * time.Millisecond
}

// RoomTimeoutDuration returns the abandoned-room reap delay.
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// Load reads the config file and fills defaults for anything unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8081
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = 1024
	}
	if c.Server.CardsPath == "" {
		c.Server.CardsPath = "configs/cards.json"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Game.HandSize == 0 {
		c.Game.HandSize = 10
	}
	if c.Game.WinningScore == 0 {
		c.Game.WinningScore = 10
	}
	if c.Game.MinPlayers == 0 {
		c.Game.MinPlayers = 3
	}
	if c.Game.ScoringDelay == 0 {
		c.Game.ScoringDelay = 3000
	}
	if c.Game.RoomTimeout == 0 {
		c.Game.RoomTimeout = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

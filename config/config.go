// Package config loads the relay's TOML configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigPath is the file read by Load when no path is given: the
// relay keeps its config next to wherever it's run from.
const DefaultConfigPath = "config.toml"

// Config is the top-level shape of config.toml.
type Config struct {
	Telegram TelegramConfig `toml:"telegram"`
	Onebot   OnebotConfig   `toml:"onebot"`
	General  GeneralConfig  `toml:"general"`
}

// TelegramConfig holds the Telegram-side settings.
type TelegramConfig struct {
	AdminID int64 `toml:"admin_id"`
	// APIID/APIHash are accepted for wire compatibility with the MTProto-era
	// config shape; this relay's Telegram client is the Bot API, which does
	// not need them, so they are parsed and otherwise unused.
	APIID        int32  `toml:"api_id"`
	APIHash      string `toml:"api_hash"`
	BotToken     string `toml:"bot_token"`
	ProxyURL     string `toml:"proxy_url"`
	EnableSearch bool   `toml:"enable_search"`
}

// OnebotConfig holds the OneBot WebSocket server settings.
type OnebotConfig struct {
	Addr  string `toml:"addr"`
	Token string `toml:"token"`
}

// GeneralConfig holds settings that don't belong to a specific subsystem.
type GeneralConfig struct {
	LogLevel string `toml:"log_level"`
	// DataDir holds the sqlite database and the media dedup cache. Defaults
	// to the working directory, keeping all state next to config.toml.
	DataDir string `toml:"data_dir"`
	// FfmpegPath is the ffmpeg binary used for sticker/voice transcoding.
	// Defaults to "ffmpeg", resolved via PATH.
	FfmpegPath string `toml:"ffmpeg_path"`
}

// Load reads and parses the config file at path. An empty path uses
// DefaultConfigPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Telegram.BotToken == "" {
		return nil, fmt.Errorf("config: telegram.bot_token is required")
	}
	if cfg.Onebot.Addr == "" {
		return nil, fmt.Errorf("config: onebot.addr is required")
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.DataDir == "" {
		cfg.General.DataDir = "."
	}
	if cfg.General.FfmpegPath == "" {
		cfg.General.FfmpegPath = "ffmpeg"
	}
	return &cfg, nil
}

// Package daemon loads BST's configuration and assembles the runtime: the
// blob store, the game service, the catalog watcher and the HTTP server.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/sskkslay-netizen/Bst/internal/infra/ai"
	"github.com/sskkslay-netizen/Bst/internal/infra/redisstore"
	"github.com/sskkslay-netizen/Bst/internal/infra/voice"
)

// ─── Configuration ──────────────────────────────────────────────────────────
// ~/.bst/config.toml is decoded over DefaultConfig, then BST_* environment
// variables win. Durations and sizes stay strings until they are used.

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// ConfigFileName is read from the BST home directory.
const ConfigFileName = "config.toml"

// Config is the full BST configuration.
type Config struct {
	API     APIConfig     `toml:"api" envPrefix:"API_"`
	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	Game    GameConfig    `toml:"game" envPrefix:"GAME_"`
	AI      AIConfig      `toml:"ai" envPrefix:"AI_"`
	Voice   VoiceConfig   `toml:"voice" envPrefix:"VOICE_"`
	Log     LogConfig     `toml:"log" envPrefix:"LOG_"`
	Catalog CatalogConfig `toml:"catalog" envPrefix:"CATALOG_"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host    string `toml:"host" env:"HOST"`
	Port    int    `toml:"port" env:"PORT"`
	Metrics bool   `toml:"metrics" env:"METRICS"`
	Timeout string `toml:"timeout" env:"TIMEOUT"`
}

// StorageConfig selects where the save lives.
type StorageConfig struct {
	Driver  string            `toml:"driver" env:"DRIVER"`
	MaxSize string            `toml:"max_size" env:"MAX_SIZE"`
	Redis   redisstore.Config `toml:"redis"`
	// RedisAddr overrides Redis.Addr from the environment.
	RedisAddr string `toml:"-" env:"REDIS_ADDR"`
}

// GameConfig tunes the engine.
type GameConfig struct {
	AdminEmail      string  `toml:"admin_email" env:"ADMIN_EMAIL"`
	HardPity        int     `toml:"hard_pity" env:"HARD_PITY"`
	EquipmentChance float64 `toml:"equipment_chance" env:"EQUIPMENT_CHANCE"`
	// Seed fixes the RNG for reproducible runs. Zero uses crypto/rand.
	Seed uint64 `toml:"seed" env:"SEED"`
}

// AIConfig configures the Gemini client.
type AIConfig struct {
	APIKey  string `toml:"api_key" env:"API_KEY"`
	Model   string `toml:"model" env:"MODEL"`
	BaseURL string `toml:"base_url" env:"BASE_URL"`
	Timeout string `toml:"timeout" env:"TIMEOUT"`
}

// VoiceConfig configures the realtime voice session. It shares the AI key.
type VoiceConfig struct {
	URL   string `toml:"url" env:"URL"`
	Model string `toml:"model" env:"MODEL"`
}

// LogConfig configures zap.
type LogConfig struct {
	Mode  string `toml:"mode" env:"MODE"`
	Level string `toml:"level" env:"LEVEL"`
}

// CatalogConfig points at the optional custom catalog file.
type CatalogConfig struct {
	CustomPath string `toml:"custom_path" env:"CUSTOM_PATH"`
	Watch      bool   `toml:"watch" env:"WATCH"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	aiCfg := ai.DefaultConfig()
	voiceCfg := voice.DefaultConfig()
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8787,
			Metrics: true,
			Timeout: "2m",
		},
		Storage: StorageConfig{
			Driver:  DriverSQLite,
			MaxSize: "5MB",
			Redis:   redisstore.DefaultConfig(),
		},
		Game: GameConfig{
			EquipmentChance: 0.2,
		},
		AI: AIConfig{
			Model:   aiCfg.Model,
			BaseURL: aiCfg.BaseURL,
			Timeout: "60s",
		},
		Voice: VoiceConfig{
			URL:   voiceCfg.URL,
			Model: voiceCfg.Model,
		},
		Log: LogConfig{
			Mode:  "dev",
			Level: "info",
		},
		Catalog: CatalogConfig{
			Watch: true,
		},
	}
}

// Home returns the BST data directory: $BST_HOME or ~/.bst.
func Home() string {
	if dir := os.Getenv("BST_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bst"
	}
	return filepath.Join(home, ".bst")
}

// LoadConfig reads config.toml from home, if present, then applies the
// environment.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(home, ConfigFileName)
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "BST_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Storage.RedisAddr != "" {
		cfg.Storage.Redis.Addr = cfg.Storage.RedisAddr
	}
	if cfg.Catalog.CustomPath == "" {
		cfg.Catalog.CustomPath = filepath.Join(home, "catalog.yaml")
	}
	return cfg, cfg.Validate()
}

// Validate checks values that would only fail later at first use.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverRedis:
	default:
		return fmt.Errorf("storage.driver %q: want %s or %s", c.Storage.Driver, DriverSQLite, DriverRedis)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if _, err := parseDuration(c.AI.Timeout, 0); err != nil {
		return fmt.Errorf("ai.timeout: %w", err)
	}
	if _, err := parseDuration(c.API.Timeout, 0); err != nil {
		return fmt.Errorf("api.timeout: %w", err)
	}
	if c.Game.EquipmentChance < 0 || c.Game.EquipmentChance > 1 {
		return fmt.Errorf("game.equipment_chance %v outside [0,1]", c.Game.EquipmentChance)
	}
	return nil
}

// Addr is the API listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// MaxBytes is the storage quota in bytes.
func (c Config) MaxBytes() int {
	return int(parseStorageSize(c.Storage.MaxSize))
}

// GeminiConfig converts the AI section for the client.
func (c Config) GeminiConfig() ai.Config {
	timeout, _ := parseDuration(c.AI.Timeout, ai.DefaultConfig().Timeout)
	return ai.Config{
		APIKey:  c.AI.APIKey,
		Model:   c.AI.Model,
		BaseURL: c.AI.BaseURL,
		Timeout: timeout,
	}
}

// VoiceSessionConfig converts the voice section for the session.
func (c Config) VoiceSessionConfig() voice.Config {
	cfg := voice.DefaultConfig()
	cfg.APIKey = c.AI.APIKey
	if c.Voice.URL != "" {
		cfg.URL = c.Voice.URL
	}
	if c.Voice.Model != "" {
		cfg.Model = c.Voice.Model
	}
	return cfg
}

// defaultStorageSize matches the browser storage quota of the web game.
const defaultStorageSize = 5 * 1024 * 1024

// parseStorageSize converts a human-readable size like "5MB" to bytes.
// "0" disables the quota; an empty or unparsable value gives the default.
func parseStorageSize(s string) uint64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultStorageSize
	}
	units := []struct {
		suffix string
		mult   uint64
	}{
		{"TB", 1 << 40},
		{"GB", 1 << 30},
		{"MB", 1 << 20},
		{"KB", 1 << 10},
		{"B", 1},
	}
	mult := uint64(1)
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			mult = u.mult
			break
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return defaultStorageSize
	}
	return uint64(n * float64(mult))
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

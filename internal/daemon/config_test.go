package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8787 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8787)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverSQLite)
	}
	if cfg.Storage.MaxSize != "5MB" {
		t.Errorf("Storage.MaxSize = %q, want %q", cfg.Storage.MaxSize, "5MB")
	}
	if cfg.Game.HardPity != 0 {
		t.Errorf("Game.HardPity = %d, want 0 (disabled)", cfg.Game.HardPity)
	}
	if cfg.AI.Timeout != "60s" {
		t.Errorf("AI.Timeout = %q, want %q", cfg.AI.Timeout, "60s")
	}
	if cfg.AI.APIKey != "" {
		t.Error("AI.APIKey should be empty by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParseStorageSize(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
	}{
		{"5MB", 5 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"512kb", 512 * 1024},
		{"2048", 2048},
		{"0", 0},
		{"", 5 * 1024 * 1024},     // Default
		{"lots", 5 * 1024 * 1024}, // Unparsable
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseStorageSize(tt.input)
			if got != tt.want {
				t.Errorf("parseStorageSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	home := t.TempDir()
	file := `
[api]
port = 9000

[game]
admin_email = "admin@example.com"
hard_pity = 90

[ai]
model = "file-model"
`
	if err := os.WriteFile(filepath.Join(home, ConfigFileName), []byte(file), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BST_AI_MODEL", "env-model")
	t.Setenv("BST_AI_API_KEY", "secret")

	cfg, err := LoadConfig(home)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Game.HardPity != 90 {
		t.Errorf("Game.HardPity = %d, want 90", cfg.Game.HardPity)
	}
	if cfg.AI.Model != "env-model" {
		t.Errorf("AI.Model = %q, env should win", cfg.AI.Model)
	}
	if cfg.GeminiConfig().APIKey != "secret" || cfg.VoiceSessionConfig().APIKey != "secret" {
		t.Error("API key should reach both the Gemini and voice configs")
	}
	if cfg.GeminiConfig().Timeout != 60*time.Second {
		t.Errorf("Gemini timeout = %v, want 60s", cfg.GeminiConfig().Timeout)
	}
	if cfg.Catalog.CustomPath != filepath.Join(home, "catalog.yaml") {
		t.Errorf("Catalog.CustomPath = %q", cfg.Catalog.CustomPath)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != DefaultConfig().API.Port {
		t.Errorf("expected defaults, got port %d", cfg.API.Port)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Driver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown driver to fail")
	}

	cfg = DefaultConfig()
	cfg.AI.Timeout = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected bad timeout to fail")
	}
}

func TestNew_SQLiteRuntime(t *testing.T) {
	home := t.TempDir()
	catalogYAML := `
cards:
  - id: c_custom
    name: Custom Agent
    rarity: SR
`
	if err := os.WriteFile(filepath.Join(home, "catalog.yaml"), []byte(catalogYAML), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cfg, err := LoadConfig(home)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	d, err := New(context.Background(), home, cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.Close()

	if _, ok := d.Game.State().FindCard("c_custom"); !ok {
		t.Error("custom catalog card should be merged at startup")
	}
	if _, err := os.Stat(filepath.Join(home, "bst.db")); err != nil {
		t.Errorf("expected sqlite file in home: %v", err)
	}

	w := httptest.NewRecorder()
	d.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", w.Code)
	}
}

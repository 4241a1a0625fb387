package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvHome, "")
	t.Setenv(EnvDebug, "")
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  backend: sqlite
  database_path: "/var/lib/notemind/notes.db"
ocr:
  timeout: 5s
watch:
  debounce: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.DatabasePath != "/var/lib/notemind/notes.db" {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
	if cfg.OCR.Timeout != 5*time.Second {
		t.Errorf("ocr timeout = %v", cfg.OCR.Timeout)
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Watch.Debounce)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	wantHome := filepath.Join(home, "MyAINote")
	if cfg.Home != wantHome {
		t.Errorf("home = %s, want %s", cfg.Home, wantHome)
	}
	if cfg.Watch.Directory != filepath.Join(wantHome, "notes") {
		t.Errorf("notes dir = %s", cfg.Watch.Directory)
	}
	if cfg.Storage.SnapshotPath != filepath.Join(wantHome, ".db", "vectors.json") {
		t.Errorf("snapshot path = %s", cfg.Storage.SnapshotPath)
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_homeRelativeToConfigDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
home: "./app"
storage:
  snapshot_path: "./store/vectors.yaml"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantHome := filepath.Join(dir, "app")
	if cfg.Home != wantHome {
		t.Errorf("home = %s, want %s", cfg.Home, wantHome)
	}
	if cfg.Watch.Directory != filepath.Join(wantHome, "notes") {
		t.Errorf("notes dir = %s", cfg.Watch.Directory)
	}
	if cfg.Storage.SnapshotPath != filepath.Join(dir, "store", "vectors.yaml") {
		t.Errorf("snapshot path = %s", cfg.Storage.SnapshotPath)
	}
}

func TestLoad_envOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	t.Setenv(EnvDebug, "true")
	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Home != dir {
		t.Errorf("home = %s, want %s", cfg.Home, dir)
	}
	if !cfg.Debug {
		t.Error("debug should be enabled from environment")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Search.Limit != 5 {
		t.Errorf("default limit: got %d", cfg.Search.Limit)
	}
	if cfg.Search.SnippetLength != 200 || cfg.Search.AnswerSnippetLength != 200 {
		t.Errorf("snippet lengths: %+v", cfg.Search)
	}
	if cfg.Embedding.Dimensions != 384 || cfg.Embedding.Provider != ProviderBytes {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if len(cfg.Watch.Extensions) != 1 || cfg.Watch.Extensions[0] != ".md" {
		t.Errorf("watch extensions: got %v", cfg.Watch.Extensions)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Errorf("backend: got %s", cfg.Storage.Backend)
	}
	if cfg.OCR.Timeout != 30*time.Second {
		t.Errorf("ocr timeout: got %v", cfg.OCR.Timeout)
	}
}

func TestWatchConfig_boolDefaults(t *testing.T) {
	w := &WatchConfig{}
	if !w.RecursiveOrDefault() || !w.SyncOnStartOrDefault() || !w.PruneDeletedOrDefault() {
		t.Error("unset flags should default to true")
	}
	f := false
	w = &WatchConfig{Recursive: &f, SyncOnStart: &f, PruneDeleted: &f}
	if w.RecursiveOrDefault() || w.SyncOnStartOrDefault() || w.PruneDeletedOrDefault() {
		t.Error("explicit false should be honored")
	}
}

func TestSave(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "saved.yaml")
	cfg := &Config{
		Home:   dir,
		Server: ServerConfig{Host: "localhost", Port: 9090},
		OCR:    OCRConfig{Timeout: 2 * time.Second},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.OCR.Timeout != 2*time.Second {
		t.Errorf("loaded ocr timeout: got %v", loaded.OCR.Timeout)
	}
	if loaded.Home != dir {
		t.Errorf("loaded home: got %s", loaded.Home)
	}
}

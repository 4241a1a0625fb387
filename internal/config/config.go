// Package config provides configuration loading and structs for the notemind daemon.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the config file.
const (
	EnvHome  = "NOTEMIND_HOME"
	EnvDebug = "NOTEMIND_DEBUG"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Home      string          `yaml:"home"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
	OCR       OCRConfig       `yaml:"ocr"`
}

// WatchConfig holds notes directory watch settings.
type WatchConfig struct {
	Directory    string        `yaml:"directory"`
	Extensions   []string      `yaml:"extensions"`
	Recursive    *bool         `yaml:"recursive"`
	Debounce     time.Duration `yaml:"debounce"`
	QueueSize    int           `yaml:"queue_size"`
	SyncOnStart  *bool         `yaml:"sync_on_start"`
	PruneDeleted *bool         `yaml:"prune_deleted"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	return boolOrDefault(w.Recursive, true)
}

// SyncOnStartOrDefault returns whether existing notes are indexed at startup; defaults to true.
func (w *WatchConfig) SyncOnStartOrDefault() bool {
	return boolOrDefault(w.SyncOnStart, true)
}

// PruneDeletedOrDefault returns whether removed notes are dropped from the store; defaults to true.
func (w *WatchConfig) PruneDeletedOrDefault() bool {
	return boolOrDefault(w.PruneDeleted, true)
}

func boolOrDefault(v *bool, def bool) bool {
	if v != nil {
		return *v
	}
	return def
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimit is the sustained number of API requests per second allowed per client.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// StorageConfig holds the vector store location.
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	SnapshotPath string `yaml:"snapshot_path"`
	DatabasePath string `yaml:"database_path"`
}

// Embedding providers.
const (
	ProviderBytes = "bytes"
	ProviderONNX  = "onnx"
)

// EmbeddingConfig selects the embedder and holds ONNX model settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig holds ranking and answer settings.
type SearchConfig struct {
	Limit               int `yaml:"limit"`
	SnippetLength       int `yaml:"snippet_length"`
	AnswerSnippetLength int `yaml:"answer_snippet_length"`
	KeywordLimit        int `yaml:"keyword_limit"`
}

// OCR engines.
const (
	OCREngineNone      = "none"
	OCREngineTesseract = "tesseract"
)

// OCRConfig configures the image text extraction collaborator.
type OCRConfig struct {
	Engine    string        `yaml:"engine"`
	Binary    string        `yaml:"binary"`
	Languages string        `yaml:"languages"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Load reads and parses the config file at path, applies environment overrides and
// defaults, and expands paths. A missing file yields the default configuration.
// Returns an error if the file exists but cannot be read or parsed.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	resolvePaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Save writes the config to path, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from NOTEMIND_* environment variables.
func ApplyEnv(cfg *Config) {
	if home := os.Getenv(EnvHome); home != "" {
		cfg.Home = home
	}
	if v := os.Getenv(EnvDebug); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}

// resolvePaths makes home absolute, derives unset data paths from it, and expands the rest.
func resolvePaths(cfg *Config, configDir string) {
	cfg.Home = expandPath(cfg.Home, configDir)
	if cfg.Watch.Directory == "" {
		cfg.Watch.Directory = filepath.Join(cfg.Home, "notes")
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = filepath.Join(cfg.Home, ".db", "vectors.json")
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = filepath.Join(cfg.Home, ".db", "notes.db")
	}
	cfg.Watch.Directory = expandPath(cfg.Watch.Directory, configDir)
	cfg.Storage.SnapshotPath = expandPath(cfg.Storage.SnapshotPath, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

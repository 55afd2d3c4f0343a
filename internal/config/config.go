package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment overrides. Nesting levels are separated by a
// double underscore: JSONBROWSE_STORE__BACKEND sets store.backend.
const EnvPrefix = "JSONBROWSE_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config represents the complete configuration for jsonbrowse
type Config struct {
	View   ViewConfig   `yaml:"view" koanf:"view"`
	Store  StoreConfig  `yaml:"store" koanf:"store"`
	Fetch  FetchConfig  `yaml:"fetch" koanf:"fetch"`
	Server ServerConfig `yaml:"server" koanf:"server"`
	Log    LogConfig    `yaml:"log" koanf:"log"`
}

// ViewConfig controls how trees are built and drawn
type ViewConfig struct {
	Expand    bool `yaml:"expand" koanf:"expand"`
	MaxDepth  int  `yaml:"max_depth" koanf:"max_depth"`
	ShowTypes bool `yaml:"show_types" koanf:"show_types"`
	Color     bool `yaml:"color" koanf:"color"`
}

// StoreConfig selects where imported documents are kept
type StoreConfig struct {
	Backend    string        `yaml:"backend" koanf:"backend"`
	Dir        string        `yaml:"dir" koanf:"dir"`
	SQLitePath string        `yaml:"sqlite_path" koanf:"sqlite_path"`
	Redis      RedisConfig   `yaml:"redis" koanf:"redis"`
	TTL        time.Duration `yaml:"ttl" koanf:"ttl"`
}

// RedisConfig holds the redis connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr" koanf:"addr"`
	Password string `yaml:"password" koanf:"password"`
	DB       int    `yaml:"db" koanf:"db"`
}

// FetchConfig controls loading documents over HTTP
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout" koanf:"timeout"`
	Retries   int           `yaml:"retries" koanf:"retries"`
	MaxBytes  int64         `yaml:"max_bytes" koanf:"max_bytes"`
	UserAgent string        `yaml:"user_agent" koanf:"user_agent"`
}

// ServerConfig controls the HTTP viewer
type ServerConfig struct {
	Addr            string        `yaml:"addr" koanf:"addr"`
	AllowAllOrigins bool          `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout" koanf:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" koanf:"write_timeout"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `yaml:"level" koanf:"level"`
	// File receives the log of the terminal UI; empty discards it.
	File string `yaml:"file" koanf:"file"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	dir := defaultStoreDir()
	return &Config{
		View: ViewConfig{
			Expand:   false,
			MaxDepth: 10000,
			Color:    true,
		},
		Store: StoreConfig{
			Backend:    BackendFile,
			Dir:        dir,
			SQLitePath: filepath.Join(dir, "documents.db"),
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Fetch: FetchConfig{
			Timeout:   30 * time.Second,
			Retries:   3,
			MaxBytes:  64 << 20,
			UserAgent: "jsonbrowse",
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultStoreDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "jsonbrowse")
	}
	return ".jsonbrowse"
}

// LoadConfig reads the YAML file at path over the defaults, then overlays
// JSONBROWSE_* environment variables. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := NewConfig()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findConfigFrom(currentDir)
}

func findConfigFrom(dir string) string {
	configNames := []string{".jsonbrowse.yml", ".jsonbrowse.yaml", "jsonbrowse.yml", "jsonbrowse.yaml"}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(dir, name)
			if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
				return configPath
			}
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			return ""
		}
		dir = parentDir
	}
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config to %s: %w", path, err)
	}
	return nil
}

// String returns the configuration as YAML.
func (c *Config) String() string {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

var validBackends = map[string]bool{
	BackendMemory: true,
	BackendFile:   true,
	BackendSQLite: true,
	BackendRedis:  true,
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.View.MaxDepth <= 0 {
		return fmt.Errorf("view.max_depth must be positive")
	}

	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store.backend %q: must be one of memory, file, sqlite, redis", c.Store.Backend)
	}
	if c.Store.Backend == BackendFile && c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required for the file backend")
	}
	if c.Store.Backend == BackendSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
	}
	if c.Store.Backend == BackendRedis && c.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr is required for the redis backend")
	}
	if c.Store.TTL < 0 {
		return fmt.Errorf("store.ttl must be non-negative")
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.Retries < 0 {
		return fmt.Errorf("fetch.retries must be non-negative")
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be positive")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "cgpt"
	configFile = "config.yaml"
)

// Config holds the persisted user settings. Every field is optional on
// disk except APIKey, which Save enforces; omitempty keeps the file to
// the keys the user actually set.
type Config struct {
	APIKey       string `yaml:"api_key,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
	DefaultModel string `yaml:"default_model,omitempty"`
	DefaultMode  string `yaml:"default_mode,omitempty"`
}

var (
	// ErrNotFound is returned by Load when no config file exists yet.
	ErrNotFound = errors.New("config file not found")
	// ErrMissingAPIKey is returned by Save when asked to persist a config
	// without a key. The on-disk file always carries one.
	ErrMissingAPIKey = errors.New("no api_key stored yet: run `cgpt login` first")
)

// CorruptError reports a config file that exists but cannot be parsed.
// Callers treat it as recoverable: warn, fall back to defaults.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("config file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store reads and writes the config file under a fixed directory.
type Store struct {
	dir string
}

// NewStore resolves the platform config directory.
// Checks CGPT_CONFIG_DIR first so tests and scripts can relocate it.
func NewStore() *Store {
	return &Store{dir: resolveDir()}
}

// NewStoreAt pins the store to an explicit directory.
func NewStoreAt(dir string) *Store {
	return &Store{dir: dir}
}

func resolveDir() string {
	if dir := os.Getenv("CGPT_CONFIG_DIR"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return appName
		}
		return filepath.Join(home, "AppData", "Roaming", appName)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".config", appName)
}

// Dir returns the config directory. It is not required to exist.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the config file path without touching the filesystem.
func (s *Store) Path() string {
	return filepath.Join(s.dir, configFile)
}

// Load reads the persisted config. Missing file yields ErrNotFound; a
// file that will not parse is quarantined next to the original so the
// next Save starts clean, and a *CorruptError is returned.
func (s *Store) Load() (Config, error) {
	path := s.Path()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, ErrNotFound
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		// Keep the broken file around for debugging, out of the way.
		bad := fmt.Sprintf("%s.bad-%d", path, time.Now().Unix())
		_ = os.Rename(path, bad)
		return Config{}, &CorruptError{Path: path, Err: err}
	}

	cfg.normalize()
	return cfg, nil
}

// Save persists the config atomically: temp file in the same directory,
// fsync, rename. A concurrent reader sees either the old file or the new
// one, never a truncated mix. The file holds a secret, so permissions
// are owner-only (0700 dir, 0600 file).
func (s *Store) Save(cfg Config) error {
	cfg.normalize()
	if cfg.APIKey == "" {
		return ErrMissingAPIKey
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create config directory %s: %w", s.dir, err)
	}
	if runtime.GOOS != "windows" {
		_ = os.Chmod(s.dir, 0o700)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+configFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config in %s: %w", s.dir, err)
	}
	tmpPath := tmp.Name()

	_, werr := tmp.Write(data)
	if werr == nil {
		werr = tmp.Sync()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write temp config %s: %w", tmpPath, werr)
	}

	if runtime.GOOS != "windows" {
		_ = os.Chmod(tmpPath, 0o600)
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace config %s: %w", s.Path(), err)
	}
	return nil
}

// normalize trims fields and drops whitespace-only values so that empty
// entries in the file behave the same as absent keys.
func (c *Config) normalize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.DefaultModel = strings.TrimSpace(c.DefaultModel)
	c.DefaultMode = strings.TrimSpace(c.DefaultMode)
}

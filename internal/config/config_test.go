package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "all fields set",
			cfg: Config{
				APIKey:       "sk-test-123",
				BaseURL:      "https://example.com/v1",
				DefaultModel: "gpt-4o-mini",
				DefaultMode:  "chat",
			},
		},
		{
			name: "key only",
			cfg:  Config{APIKey: "sk-test-456"},
		},
		{
			name: "key and mode",
			cfg:  Config{APIKey: "sk-test-789", DefaultMode: "responses"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStoreAt(t.TempDir())
			if err := store.Save(tt.cfg); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			got, err := store.Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got != tt.cfg {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, tt.cfg)
			}
		})
	}
}

func TestSaveOmitsUnsetFields(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	if err := store.Save(Config{APIKey: "sk-test"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read config file: %v", err)
	}
	for _, key := range []string{"base_url", "default_model", "default_mode"} {
		if strings.Contains(string(data), key) {
			t.Errorf("unset field %q should not appear in file:\n%s", key, data)
		}
	}
}

func TestSaveRequiresAPIKey(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	err := store.Save(Config{DefaultModel: "gpt-4o"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, statErr := os.Stat(store.Path()); !os.IsNotExist(statErr) {
		t.Error("no file should have been written")
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	_, err := store.Load()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadCorruptFileQuarantines(t *testing.T) {
	dir := t.TempDir()
	store := NewStoreAt(dir)
	if err := os.WriteFile(store.Path(), []byte("api_key: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	_, err := store.Load()
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptError, got %v", err)
	}
	if corrupt.Path != store.Path() {
		t.Errorf("CorruptError path = %q, want %q", corrupt.Path, store.Path())
	}

	// The broken file is moved aside so a later Save starts clean.
	if _, statErr := os.Stat(store.Path()); !os.IsNotExist(statErr) {
		t.Error("corrupt file should have been renamed away")
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "config.yaml.bad-*"))
	if len(matches) != 1 {
		t.Errorf("expected one quarantined file, found %d", len(matches))
	}
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	store := NewStoreAt(t.TempDir())
	content := "api_key: sk-test\nfuture_option: whatever\ndefault_mode: chat\n"
	if err := os.MkdirAll(store.Dir(), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "sk-test" || cfg.DefaultMode != "chat" {
		t.Errorf("known keys not loaded: %+v", cfg)
	}
}

func TestSavePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	store := NewStoreAt(filepath.Join(t.TempDir(), "nested"))
	if err := store.Save(Config{APIKey: "sk-secret"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fi, err := os.Stat(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := fi.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("config file readable by group/world: %o", perm)
	}
	di, err := os.Stat(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if perm := di.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("config dir accessible by group/world: %o", perm)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStoreAt(dir)
	for i := 0; i < 3; i++ {
		if err := store.Save(Config{APIKey: "sk-test"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestLoadIgnoresAbandonedTempFile(t *testing.T) {
	// An interrupted writer leaves a truncated temp file beside the
	// config; a reader must still see only the last complete file.
	dir := t.TempDir()
	store := NewStoreAt(dir)
	if err := store.Save(Config{APIKey: "sk-old", DefaultMode: "chat"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	stray := filepath.Join(dir, ".config.yaml.12345.tmp")
	if err := os.WriteFile(stray, []byte("api_key: sk-part"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "sk-old" || cfg.DefaultMode != "chat" {
		t.Errorf("reader observed something other than the complete file: %+v", cfg)
	}
}

func TestResolveDirHonorsOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CGPT_CONFIG_DIR", dir)
	store := NewStore()
	if store.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", store.Dir(), dir)
	}
	if store.Path() != filepath.Join(dir, "config.yaml") {
		t.Errorf("Path() = %q", store.Path())
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.LockTimeout != DefaultLockTimeout {
		t.Errorf("LockTimeout = %q, want %q", cfg.LockTimeout, DefaultLockTimeout)
	}
	if cfg.TLD != DefaultTLD {
		t.Errorf("TLD = %q, want %q", cfg.TLD, DefaultTLD)
	}
	if cfg.ProxyService != DefaultProxyService {
		t.Errorf("ProxyService = %q, want %q", cfg.ProxyService, DefaultProxyService)
	}
	if !cfg.Secured() {
		t.Error("Secured() should default to true")
	}
	if cfg.Dashboard.Addr != DefaultDashboardAddr {
		t.Errorf("Dashboard.Addr = %q, want %q", cfg.Dashboard.Addr, DefaultDashboardAddr)
	}
	if cfg.Update.Manifest != DefaultManifest {
		t.Errorf("Update.Manifest = %q, want %q", cfg.Update.Manifest, DefaultManifest)
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	// Missing config yields defaults, not an error
	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile missing: %v", err)
	}
	if cfg.TLD != DefaultTLD {
		t.Errorf("missing config TLD = %q, want default %q", cfg.TLD, DefaultTLD)
	}

	configJSON := `{
  "lockTimeout": "30s",
  "tld": "localhost",
  "secure": false,
  "dashboard": {
    "addr": "127.0.0.1:9999"
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err = LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LockTimeout != "30s" {
		t.Errorf("LockTimeout = %q, want %q", cfg.LockTimeout, "30s")
	}
	if cfg.TLD != "localhost" {
		t.Errorf("TLD = %q, want %q", cfg.TLD, "localhost")
	}
	if cfg.Secured() {
		t.Error("Secured() should be false when secure is false")
	}
	if cfg.Dashboard.Addr != "127.0.0.1:9999" {
		t.Errorf("Dashboard.Addr = %q, want %q", cfg.Dashboard.Addr, "127.0.0.1:9999")
	}

	// Defaults fill fields the file omits
	if cfg.ProxyService != DefaultProxyService {
		t.Errorf("ProxyService = %q, want default %q", cfg.ProxyService, DefaultProxyService)
	}
	if cfg.Update.Manifest != DefaultManifest {
		t.Errorf("Update.Manifest = %q, want default %q", cfg.Update.Manifest, DefaultManifest)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "E070") {
		t.Errorf("error = %v, want E070", err)
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", ConfigFileName)

	cfg := New()
	cfg.TLD = "wip"
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.TLD != "wip" {
		t.Errorf("TLD = %q, want %q", loaded.TLD, "wip")
	}

	// Save without a path set
	var blank Config
	if err := blank.Save(); err == nil {
		t.Error("Save with no path should fail")
	}
}

func TestResolvedHome(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("env wins", func(t *testing.T) {
		t.Setenv(EnvHome, tmpDir)
		cfg := New()
		cfg.Home = "/somewhere/else"
		if got := cfg.ResolvedHome(); got != tmpDir {
			t.Errorf("ResolvedHome() = %q, want %q", got, tmpDir)
		}
	})

	t.Run("config field", func(t *testing.T) {
		t.Setenv(EnvHome, "")
		cfg := New()
		cfg.Home = tmpDir
		if got := cfg.ResolvedHome(); got != tmpDir {
			t.Errorf("ResolvedHome() = %q, want %q", got, tmpDir)
		}
	})

	t.Run("registry and lock paths", func(t *testing.T) {
		t.Setenv(EnvHome, tmpDir)
		cfg := New()
		if got := cfg.RegistryPath(); got != filepath.Join(tmpDir, RegistryFileName) {
			t.Errorf("RegistryPath() = %q", got)
		}
		if got := cfg.LockPath(); got != filepath.Join(tmpDir, LockFileName) {
			t.Errorf("LockPath() = %q", got)
		}
	})
}

func TestLockTimeoutDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "default", value: "", want: 10 * time.Second},
		{name: "custom", value: "2m", want: 2 * time.Minute},
		{name: "garbage falls back", value: "soon", want: 10 * time.Second},
		{name: "negative falls back", value: "-5s", want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.LockTimeout = tt.value
			if got := cfg.LockTimeoutDuration(); got != tt.want {
				t.Errorf("LockTimeoutDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}

	cfg.LockTimeout = "whenever"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject an unparseable lockTimeout")
	}
}

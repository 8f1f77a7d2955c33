package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/berth-dev/berth/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file inside the
	// berth home directory.
	ConfigFileName = "config.json"

	// RegistryFileName is the name of the registry file inside the berth
	// home directory.
	RegistryFileName = "registry.conf"

	// LockFileName is the name of the registry lock file inside the berth
	// home directory.
	LockFileName = "registry.lock"

	// EnvHome is the environment variable that overrides the berth home
	// directory.
	EnvHome = "BERTH_HOME"

	// DefaultTLD is the local domain suffix used when the proxy tool does
	// not report one.
	DefaultTLD = "test"

	// DefaultProxyService is the compose service domains proxy to. Sail
	// names its app service laravel.test.
	DefaultProxyService = "laravel.test"

	// DefaultLockTimeout is how long commands wait for the registry lock.
	DefaultLockTimeout = "10s"

	// DefaultDashboardAddr is the listen address for berth serve.
	DefaultDashboardAddr = "127.0.0.1:4580"

	// DefaultManifest is the release manifest URL for self-update.
	DefaultManifest = "https://berth.dev/releases.json"
)

// Config represents the complete berth configuration, stored as
// config.json in the berth home directory.
type Config struct {
	// Home overrides the directory holding the registry and lock files.
	// The BERTH_HOME environment variable wins over this field.
	Home string `json:"home,omitempty"`

	// LockTimeout is how long to wait for the registry lock, as a
	// duration string (e.g. "10s").
	LockTimeout string `json:"lockTimeout,omitempty"`

	// TLD is the local domain suffix for provisioned projects.
	TLD string `json:"tld,omitempty"`

	// ProxyService is the compose service local domains proxy to.
	ProxyService string `json:"proxyService,omitempty"`

	// Secure controls whether domains are registered with HTTPS.
	// Defaults to true.
	Secure *bool `json:"secure,omitempty"`

	// Dashboard contains berth serve settings.
	Dashboard DashboardConfig `json:"dashboard,omitempty"`

	// Update contains self-update settings.
	Update UpdateConfig `json:"update,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// DashboardConfig contains berth serve settings.
type DashboardConfig struct {
	// Addr is the listen address for the dashboard.
	Addr string `json:"addr,omitempty"`
}

// UpdateConfig contains self-update settings.
type UpdateConfig struct {
	// Manifest is the release manifest URL.
	Manifest string `json:"manifest,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	secure := true
	return &Config{
		LockTimeout:  DefaultLockTimeout,
		TLD:          DefaultTLD,
		ProxyService: DefaultProxyService,
		Secure:       &secure,
		Dashboard: DashboardConfig{
			Addr: DefaultDashboardAddr,
		},
		Update: UpdateConfig{
			Manifest: DefaultManifest,
		},
	}
}

// DefaultHome returns the berth home directory before any config override:
// $BERTH_HOME if set, otherwise ~/.config/berth.
func DefaultHome() string {
	if env := os.Getenv(EnvHome); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "berth")
	}
	return filepath.Join(home, ".config", "berth")
}

// Load reads the configuration from the berth home directory. A missing
// file yields the defaults.
func Load() (*Config, error) {
	return LoadFile(filepath.Join(DefaultHome(), ConfigFileName))
}

// LoadFile reads configuration from the specified file path. A missing
// file yields the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := New()
			cfg.configPath = path
			return cfg, nil
		}
		return nil, errors.New("E070").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E070").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that the file is valid JSON, or delete it to restore defaults")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E071").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.New("E071").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New("E071").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// ResolvedHome returns the directory holding the registry and lock files:
// $BERTH_HOME if set, then the config's home field, then the default.
func (c *Config) ResolvedHome() string {
	if env := os.Getenv(EnvHome); env != "" {
		return env
	}
	if c.Home != "" {
		return c.Home
	}
	return DefaultHome()
}

// RegistryPath returns the path to the registry file.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.ResolvedHome(), RegistryFileName)
}

// LockPath returns the path to the registry lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.ResolvedHome(), LockFileName)
}

// LockTimeoutDuration returns the lock timeout as a duration. Unparseable
// values fall back to the default.
func (c *Config) LockTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.LockTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultLockTimeout)
	}
	return d
}

// Secured reports whether domains should be registered with HTTPS.
func (c *Config) Secured() bool {
	return c.Secure == nil || *c.Secure
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.LockTimeout == "" {
		c.LockTimeout = DefaultLockTimeout
	}
	if c.TLD == "" {
		c.TLD = DefaultTLD
	}
	if c.ProxyService == "" {
		c.ProxyService = DefaultProxyService
	}
	if c.Secure == nil {
		secure := true
		c.Secure = &secure
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = DefaultDashboardAddr
	}
	if c.Update.Manifest == "" {
		c.Update.Manifest = DefaultManifest
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.LockTimeout != "" {
		if _, err := time.ParseDuration(c.LockTimeout); err != nil {
			return errors.New("E070").
				WithDetail("lockTimeout " + c.LockTimeout + " is not a valid duration")
		}
	}
	return nil
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

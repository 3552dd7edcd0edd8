package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the host-process configuration: the identity this
// installation exports under, where its store files live, and which
// descriptor scripts declare the control tree.
type Config struct {
	// Owner identifies this host in exchange envelopes.
	Owner string `toml:"owner"`
	// OwnerVersion is the settings-schema version. Imports must carry
	// the exact same string.
	OwnerVersion string `toml:"ownerVersion"`
	// GlobalStore is the path of the global profile's store file.
	GlobalStore string `toml:"globalStore"`
	// EntityStore is the path of the per-entity profile's store file.
	EntityStore string `toml:"entityStore"`
	// Descriptors lists Lua descriptor scripts, loaded in order.
	Descriptors []string `toml:"descriptors"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `toml:"logLevel"`
	// WatchStores reloads stores when their files change on disk.
	WatchStores bool `toml:"watchStores"`
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	dir := DefaultConfigDir()
	return Config{
		Owner:        "prefkit",
		OwnerVersion: "1.0",
		GlobalStore:  filepath.Join(dir, "global.toml"),
		EntityStore:  filepath.Join(dir, "entity.toml"),
		LogLevel:     "info",
		WatchStores:  true,
	}
}

// DefaultConfigDir resolves the per-user configuration directory.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "prefkit")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "prefkit")
}

// DefaultConfigPath returns the default host config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// LoadConfig reads host configuration from path, layering file values
// over the defaults. A missing file yields the defaults unchanged.
// Relative store and descriptor paths resolve against the config file's
// directory.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.GlobalStore = resolvePath(base, cfg.GlobalStore)
	cfg.EntityStore = resolvePath(base, cfg.EntityStore)
	for i, p := range cfg.Descriptors {
		cfg.Descriptors[i] = resolvePath(base, p)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func (c Config) validate() error {
	if c.Owner == "" {
		return fmt.Errorf("config: owner must not be empty")
	}
	if c.OwnerVersion == "" {
		return fmt.Errorf("config: ownerVersion must not be empty")
	}
	if c.GlobalStore == "" {
		return fmt.Errorf("config: globalStore must not be empty")
	}
	if c.EntityStore == "" {
		return fmt.Errorf("config: entityStore must not be empty")
	}
	return nil
}

// Package config loads the dpl configuration from JSONC files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrDBEmpty            = errors.New("db cannot be empty")
	ErrListenEmpty        = errors.New("listen cannot be empty")
	ErrAdminURLInvalid    = errors.New("admin_url must start with /")
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	DB       string `json:"db"`
	Listen   string `json:"listen"`
	AdminURL string `json:"admin_url"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	DBAbs        string `json:"-"` // Absolute path to the database file

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DB:       filepath.Join(".dpl", "pages.sqlite"),
		Listen:   "127.0.0.1:8080",
		AdminURL: "/",
	}
}

// FileName is the default project config file name.
const FileName = ".dpl.json"

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/dpl/config.json if set, otherwise ~/.config/dpl/config.json.
// Returns empty string if home directory cannot be determined.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "dpl", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "dpl", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	DBOverride      string            // --db flag value; empty means no override
	ListenOverride  string            // serve --listen flag value; empty means no override
	Env             map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config (~/.config/dpl/config.json or $XDG_CONFIG_HOME/dpl/config.json)
// 3. Project config file at default location (.dpl.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty)
// 5. CLI overrides.
//
// The database path in the returned Config is resolved to an absolute path.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	globalCfg, gp, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = gp
	cfg = merge(cfg, globalCfg)

	projectCfg, pp, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = pp
	cfg = merge(cfg, projectCfg)

	if input.DBOverride != "" {
		cfg.DB = input.DBOverride
	}

	if input.ListenOverride != "" {
		cfg.Listen = input.ListenOverride
	}

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.DB) {
		cfg.DBAbs = cfg.DB
	} else {
		cfg.DBAbs = filepath.Join(workDir, cfg.DB)
	}

	return cfg, nil
}

func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, explicitEmpty, loaded, err := loadFile(path, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	err = checkExplicitEmpty(path, explicitEmpty)
	if err != nil {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadProject loads the project config file (.dpl.json) or an explicit config file.
func loadProject(workDir, configPath string) (Config, string, error) {
	var (
		cfgFile   string
		mustExist bool
	)

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, FileName)
	}

	cfg, explicitEmpty, loaded, err := loadFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	err = checkExplicitEmpty(cfgFile, explicitEmpty)
	if err != nil {
		return Config{}, "", err
	}

	return cfg, cfgFile, nil
}

func checkExplicitEmpty(path string, explicitEmpty map[string]bool) error {
	if explicitEmpty["db"] {
		return fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrDBEmpty)
	}

	if explicitEmpty["listen"] {
		return fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrListenEmpty)
	}

	return nil
}

// loadFile loads a config file. If mustExist is false, missing files return zero config.
// Returns the config, a map of explicitly empty fields, whether file was loaded, and any error.
func loadFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}

		if mustExist {
			return Config{}, nil, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, nil, false, nil
	}

	cfg, explicitEmpty, parseErr := parse(data)
	if parseErr != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, explicitEmpty, true, nil
}

func parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	for _, key := range []string{"db", "listen"} {
		if val, exists := raw[key]; exists {
			if str, ok := val.(string); ok && str == "" {
				explicitEmpty[key] = true
			}
		}
	}

	return cfg, explicitEmpty, nil
}

func merge(base, overlay Config) Config {
	if overlay.DB != "" {
		base.DB = overlay.DB
	}

	if overlay.Listen != "" {
		base.Listen = overlay.Listen
	}

	if overlay.AdminURL != "" {
		base.AdminURL = overlay.AdminURL
	}

	return base
}

func validate(cfg Config) error {
	if cfg.DB == "" {
		return ErrDBEmpty
	}

	if cfg.Listen == "" {
		return ErrListenEmpty
	}

	if !strings.HasPrefix(cfg.AdminURL, "/") {
		return fmt.Errorf("%w: %q", ErrAdminURLInvalid, cfg.AdminURL)
	}

	return nil
}

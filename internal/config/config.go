// Package config loads doit configuration from JSONC files, the
// environment and command-line overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/doit/internal/filestore"
	"github.com/calvinalkan/doit/internal/task"
)

// Config errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config")
	ErrFileEmpty          = errors.New("file cannot be empty")
	ErrUndoDepthNegative  = errors.New("undo_depth cannot be negative")
	ErrLogLevelInvalid    = errors.New("unknown log_level")
)

// FileName is the project config file name.
const FileName = ".doit.json"

// EnvFile overrides the database file path.
const EnvFile = "DOIT_FILE"

// DefaultUndoDepth is the default undo history bound.
const DefaultUndoDepth = 100

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	File      string `json:"file"`
	UndoDepth *int   `json:"undo_depth,omitempty"`
	LogFile   string `json:"log_file,omitempty"`
	LogLevel  string `json:"log_level,omitempty"`
	Sort      string `json:"sort,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd string     `json:"-"`
	FileAbs      string     `json:"-"`
	LogFileAbs   string     `json:"-"`
	Level        slog.Level `json:"-"`
	Order        task.Order `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
}

// Default returns the default configuration.
func Default() Config {
	depth := DefaultUndoDepth

	return Config{
		File:      filestore.DefaultFileName,
		UndoDepth: &depth,
		LogLevel:  "info",
		Sort:      string(task.OrderDate),
	}
}

// Depth returns the configured undo depth. Zero means unbounded.
func (c Config) Depth() int {
	if c.UndoDepth == nil {
		return DefaultUndoDepth
	}

	return *c.UndoDepth
}

// globalPath returns $XDG_CONFIG_HOME/doit/config.json, falling back to
// ~/.config/doit/config.json. Empty when neither is known.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "doit", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "doit", "config.json")
	}

	return ""
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride string            // -C flag; if empty, os.Getwd() is used
	ConfigPath      string            // -c flag
	FileOverride    string            // -f flag; empty means no override
	Env             map[string]string // environment variables
}

// Load builds the configuration with the following precedence (highest
// wins):
//  1. Defaults
//  2. Global user config
//  3. Project config (.doit.json in the working directory, if present)
//  4. Explicit config file via -c
//  5. DOIT_FILE from the environment
//  6. Command-line overrides
//
// Paths in the returned Config are resolved against the working directory.
func Load(in Input) (Config, error) {
	workDir := in.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	} else if !filepath.IsAbs(workDir) {
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return Config{}, fmt.Errorf("resolve %s: %w", workDir, err)
		}

		workDir = abs
	}

	cfg := Default()

	if path := globalPath(in.Env); path != "" {
		globalCfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, globalCfg)
			cfg.Sources.Global = path
		}
	}

	projectCfg, projectPath, err := loadProject(workDir, in.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	if projectPath != "" {
		cfg = merge(cfg, projectCfg)
		cfg.Sources.Project = projectPath
	}

	if f := in.Env[EnvFile]; f != "" {
		cfg.File = f
	}

	if in.FileOverride != "" {
		cfg.File = in.FileOverride
	}

	if err := resolve(&cfg, workDir); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadProject(workDir, configPath string) (Config, string, error) {
	if configPath == "" {
		path := filepath.Join(workDir, FileName)

		cfg, loaded, err := loadFile(path, false)
		if err != nil || !loaded {
			return Config{}, "", err
		}

		return cfg, path, nil
	}

	path := configPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	if _, err := os.Stat(path); err != nil {
		return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
	}

	cfg, _, err := loadFile(path, true)
	if err != nil {
		return Config{}, "", err
	}

	return cfg, path, nil
}

// loadFile reads one config file. A missing optional file is not loaded and
// not an error.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

// Parse decodes a JSONC config document. Keys that are present but set to
// an empty string are rejected for "file".
func Parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	if val, ok := raw["file"]; ok {
		if s, isStr := val.(string); isStr && s == "" {
			return Config{}, ErrFileEmpty
		}
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.File != "" {
		base.File = overlay.File
	}

	if overlay.UndoDepth != nil {
		depth := *overlay.UndoDepth
		base.UndoDepth = &depth
	}

	if overlay.LogFile != "" {
		base.LogFile = overlay.LogFile
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.Sort != "" {
		base.Sort = overlay.Sort
	}

	return base
}

func resolve(cfg *Config, workDir string) error {
	if strings.TrimSpace(cfg.File) == "" {
		return ErrFileEmpty
	}

	if cfg.Depth() < 0 {
		return fmt.Errorf("%w: %d", ErrUndoDepthNegative, cfg.Depth())
	}

	if err := cfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("%w: %q", ErrLogLevelInvalid, cfg.LogLevel)
	}

	order, err := task.ParseOrder(cfg.Sort)
	if err != nil {
		return fmt.Errorf("%w: sort: %w", ErrConfigInvalid, err)
	}

	cfg.Order = order
	cfg.EffectiveCwd = workDir
	cfg.FileAbs = absPath(workDir, cfg.File)

	if cfg.LogFile != "" {
		cfg.LogFileAbs = absPath(workDir, cfg.LogFile)
	}

	return nil
}

func absPath(workDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(workDir, p)
}

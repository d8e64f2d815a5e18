package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Logging contains logger construction options.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultModule describes one module added to a freshly initialized rig.
type DefaultModule struct {
	Type        string `toml:"type"`
	Name        string `toml:"name"`
	ParentJoint string `toml:"parent_joint"`
}

// Config is the full mop configuration.
type Config struct {
	ScenePath         string          `toml:"scene_path"`
	HooksDir          string          `toml:"hooks_dir"`
	ControllerSuffix  string          `toml:"controller_suffix"`
	IncrementalCopies int             `toml:"incremental_copies"`
	Logging           Logging         `toml:"logging"`
	DefaultModules    []DefaultModule `toml:"default_modules"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ControllerSuffix:  "_ctl",
		IncrementalCopies: 20,
		Logging:           Logging{Level: "info", Format: "console"},
		DefaultModules:    []DefaultModule{{Type: "root", Name: "root"}},
	}
}

// SampleTOML returns the annotated sample configuration file.
func SampleTOML() string {
	return sampleConfig
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// DefaultPath returns the conventional configuration file location.
func DefaultPath() (string, error) {
	return ExpandPath("~/.config/mop/config.toml")
}

// Load reads the configuration from path, or from the default location when
// path is empty. A missing file at the default location yields Default();
// a missing file at an explicit path is an error. The resolved path is
// returned alongside the config.
func Load(path string) (*Config, string, error) {
	explicit := strings.TrimSpace(path) != ""
	resolved := strings.TrimSpace(path)
	if !explicit {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, "", err
		}
		resolved = defaultPath
	}
	resolved, err := ExpandPath(resolved)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				return nil, "", err
			}
			return &cfg, resolved, nil
		}
		return nil, "", fmt.Errorf("read config %s: %w", resolved, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, "", fmt.Errorf("parse config %s: %w", resolved, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("config %s: %w", resolved, err)
	}
	return &cfg, resolved, nil
}

func (c *Config) normalize() error {
	for _, field := range []*string{&c.ScenePath, &c.HooksDir} {
		if strings.TrimSpace(*field) == "" {
			*field = ""
			continue
		}
		expanded, err := ExpandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.ControllerSuffix = strings.TrimSpace(c.ControllerSuffix)
	if c.IncrementalCopies <= 0 {
		c.IncrementalCopies = Default().IncrementalCopies
	}
	return nil
}

// Validate checks option values that have a closed set of valid inputs.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.ControllerSuffix == "" {
		return errors.New("controller_suffix must not be empty")
	}
	seen := make(map[string]bool, len(c.DefaultModules))
	for _, mod := range c.DefaultModules {
		if strings.TrimSpace(mod.Type) == "" || strings.TrimSpace(mod.Name) == "" {
			return errors.New("default_modules entries need both type and name")
		}
		if seen[mod.Name] {
			return fmt.Errorf("default_modules: duplicate name %q", mod.Name)
		}
		seen[mod.Name] = true
	}
	return nil
}

// ExpandPath resolves a leading ~ against the current user's home directory
// and returns an absolute path.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}

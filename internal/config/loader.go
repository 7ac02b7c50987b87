package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr            string `json:"addr" yaml:"addr" toml:"addr"`
	SysfsRoot       string `json:"sysfs_root" yaml:"sysfs_root" toml:"sysfs_root"`
	MSRDevRoot      string `json:"msr_dev_root" yaml:"msr_dev_root" toml:"msr_dev_root"`
	FileRegisterDir string `json:"file_register_dir" yaml:"file_register_dir" toml:"file_register_dir"`
	RegisterAddr    string `json:"register_addr" yaml:"register_addr" toml:"register_addr"`
	LogLevel        string `json:"log_level" yaml:"log_level" toml:"log_level"`

	CORS CORSConfig `json:"cors" yaml:"cors" toml:"cors"`
}

// CORSConfig enables cross-origin access to the API, for dashboards served
// from another origin. Disabled unless Enabled is set.
type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ParseRegisterAddr parses the MSR number, accepting hex ("0x19a") or
// decimal.
func ParseRegisterAddr(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty register address")
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("register address %q: %w", s, err)
	}
	return uint32(v), nil
}

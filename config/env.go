package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by [FromEnv].
const (
	EnvAPIKey = "COOLHAND_API_KEY"
	EnvSilent = "COOLHAND_SILENT"
	EnvDebug  = "COOLHAND_DEBUG"
)

// FromEnv builds a configuration from the COOLHAND_* environment
// variables. Unset variables keep their defaults (silent monitoring,
// live collector endpoint).
func FromEnv() *ConfigData {
	cfg := &ConfigData{
		APIKey: os.Getenv(EnvAPIKey),
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvSilent)); err == nil {
		cfg.Silent = &v
	}
	if v, err := strconv.ParseBool(os.Getenv(EnvDebug)); err == nil {
		cfg.Debug = v
	}
	cfg.UnsetFieldsToDefaults()
	return cfg
}

// FromFile loads a YAML configuration file. Values present in the
// environment are not consulted: the file is the whole config.
func FromFile(path string) (*ConfigData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("coolhand: cannot read config file: %s", err.Error())
	}
	cfg := &ConfigData{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("coolhand: cannot parse config file %s: %s", path, err.Error())
	}
	cfg.UnsetFieldsToDefaults()
	return cfg, nil
}

// Package config loads sieve CLI settings from sieve.yaml and SIEVE_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all CLI configuration.
type Config struct {
	Output OutputConfig `mapstructure:"output"`
	Store  StoreConfig  `mapstructure:"store"`
	URL    URLConfig    `mapstructure:"url"`
}

type OutputConfig struct {
	Format string `mapstructure:"format"`
}

type StoreConfig struct {
	// Path is the SQLite database holding saved views and the last query.
	Path string `mapstructure:"path"`

	// Collection scopes saved views.
	Collection string `mapstructure:"collection"`
}

type URLConfig struct {
	LegacyRegexEscaping bool `mapstructure:"legacy_regex_escaping"`
}

// GetDefaults returns a Config with all default values.
func GetDefaults() *Config {
	return &Config{
		Output: OutputConfig{Format: "text"},
		Store:  StoreConfig{Path: "sieve.db", Collection: "default"},
		URL:    URLConfig{LegacyRegexEscaping: false},
	}
}

// Load reads configuration. An explicit path must exist; otherwise sieve.yaml
// is searched in the user config directory and the current directory, and a
// missing file falls back to defaults. SIEVE_* variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sieve")
		if configDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(configDir, "sieve"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SIEVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := GetDefaults()
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.collection", d.Store.Collection)
	v.SetDefault("url.legacy_regex_escaping", d.URL.LegacyRegexEscaping)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// GetConfigPath returns the user config directory path.
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "sieve"), nil
}

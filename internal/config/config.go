// Package config loads the server settings.
//
// Precedence, lowest to highest: built-in defaults, an optional YAML file,
// then environment variables. The YAML file is optional so the binary runs
// with nothing but env vars in containerized deployments.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Settings holds everything the server needs to start.
type Settings struct {
	Port       int    `yaml:"port"`
	DBPath     string `yaml:"dbPath"`
	AuthSecret string `yaml:"authSecret"`
	AuthIssuer string `yaml:"authIssuer"`
	LogLevel   string `yaml:"logLevel"`
}

// Defaults returns the built-in settings. AuthSecret has no default; the
// server refuses to start without one.
func Defaults() Settings {
	return Settings{
		Port:       8080,
		DBPath:     "data/snipvault.db",
		AuthIssuer: "snipvault",
		LogLevel:   "info",
	}
}

// Load builds the settings from defaults, the YAML file at path (ignored if
// path is empty or the file does not exist), and environment variables.
func Load(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fine, env vars and defaults carry it
		case err != nil:
			return Settings{}, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &s); err != nil {
				return Settings{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}

	if s.AuthSecret == "" {
		return Settings{}, errors.New("config: auth secret is required (set AUTH_SECRET)")
	}

	return s, nil
}

func (s *Settings) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		s.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		s.DBPath = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		s.AuthSecret = v
	}
	if v := os.Getenv("AUTH_ISSUER"); v != "" {
		s.AuthIssuer = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	return nil
}

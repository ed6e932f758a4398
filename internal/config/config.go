// Package config handles Lumen configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/lumen/config.yaml, /etc/lumen/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lumen", "config.yaml"))
	}

	paths = append(paths, "/etc/lumen/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Lumen configuration.
type Config struct {
	User     UserConfig    `yaml:"user"`
	Routine  RoutineConfig `yaml:"routine"`
	Watch    WatchConfig   `yaml:"watch"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	Listen   ListenConfig  `yaml:"listen"`
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
}

// UserConfig describes the person the companion is assisting. The
// profile fields feed directly into the narrative prompt.
type UserConfig struct {
	Name string `yaml:"name"`
	// Condition is a short health-context descriptor, e.g. "pre-diabetic".
	Condition string `yaml:"condition"`
	// Style sets the companion's tone, e.g. "friendly, direct, and proactive".
	Style string `yaml:"style"`
}

// RoutineConfig holds the user's daily schedule as "HH:MM" strings.
// Meal reminder windows and the simulated sleep cycle key off these.
type RoutineConfig struct {
	WakeUp    string `yaml:"wake_up"`
	Breakfast string `yaml:"breakfast"`
	Lunch     string `yaml:"lunch"`
	Dinner    string `yaml:"dinner"`
	Bedtime   string `yaml:"bedtime"`
}

// WatchConfig defines simulated-watch behavior.
type WatchConfig struct {
	// UpdateInterval is the minimum gap between telemetry advances
	// driven by the session loop, as a duration string (default "5m").
	UpdateInterval string `yaml:"update_interval"`
	// SessionCacheSize bounds the per-user manager registry (default 8).
	SessionCacheSize int `yaml:"session_cache_size"`
}

// GeminiConfig defines the Gemini text-generation API settings.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // default: gemini-2.0-flash
	BaseURL string `yaml:"base_url"` // override for testing
}

// ListenConfig defines the local API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "127.0.0.1")
	Port    int    `yaml:"port"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		User: UserConfig{
			Name:      "Samantha",
			Condition: "pre-diabetic",
			Style:     "friendly, direct, and proactive",
		},
		Routine: RoutineConfig{
			WakeUp:    "06:00",
			Breakfast: "07:30",
			Lunch:     "12:30",
			Dinner:    "19:00",
			Bedtime:   "22:00",
		},
		Watch: WatchConfig{
			UpdateInterval:   "5m",
			SessionCacheSize: 8,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Listen:  ListenConfig{Address: "127.0.0.1", Port: 7086},
		DataDir: "data",
	}
}

// UpdateInterval parses the watch update interval. Invalid or empty
// values fall back to 5 minutes.
func (c *Config) UpdateInterval() time.Duration {
	d, err := time.ParseDuration(c.Watch.UpdateInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// ParseClock converts an "HH:MM" routine entry to hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// Validate checks the configuration for errors that would only surface
// later at an inconvenient time.
func (c *Config) Validate() error {
	for _, entry := range []struct{ name, value string }{
		{"routine.wake_up", c.Routine.WakeUp},
		{"routine.breakfast", c.Routine.Breakfast},
		{"routine.lunch", c.Routine.Lunch},
		{"routine.dinner", c.Routine.Dinner},
		{"routine.bedtime", c.Routine.Bedtime},
	} {
		if _, _, err := ParseClock(entry.value); err != nil {
			return fmt.Errorf("%s: %w", entry.name, err)
		}
	}
	if c.Watch.UpdateInterval != "" {
		if _, err := time.ParseDuration(c.Watch.UpdateInterval); err != nil {
			return fmt.Errorf("watch.update_interval %q: %w", c.Watch.UpdateInterval, err)
		}
	}
	if c.Watch.SessionCacheSize < 0 {
		return fmt.Errorf("watch.session_cache_size must be >= 0, got %d", c.Watch.SessionCacheSize)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

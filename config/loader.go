// Package config provides configuration loading and parsing functionality
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigFormat represents the configuration file format
type ConfigFormat string

const (
	FormatYAML ConfigFormat = "yaml"
	FormatJSON ConfigFormat = "json"
)

// Loader handles configuration loading from files and the environment
type Loader struct {
	// Configuration search paths
	searchPaths []string

	// Environment variable prefix
	envPrefix string

	// Default configuration
	defaultConfig *Config
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",
			"./config",
			"./configs",
		},
		envPrefix:     "CLOCKSIM",
		defaultConfig: DefaultConfig(),
	}
}

// SetSearchPaths sets the configuration file search paths
func (l *Loader) SetSearchPaths(paths []string) *Loader {
	l.searchPaths = paths
	return l
}

// SetEnvPrefix sets the environment variable prefix
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// SetDefaultConfig sets the default configuration
func (l *Loader) SetDefaultConfig(config *Config) *Loader {
	l.defaultConfig = config
	return l
}

// Load loads configuration from the specified file. An empty filename
// loads the defaults plus environment overrides.
func (l *Loader) Load(filename string) (*Config, error) {
	if filename != "" {
		return l.LoadFromFile(filename)
	}

	config := l.defaults()
	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific file
func (l *Loader) LoadFromFile(filename string) (*Config, error) {
	format, err := formatForFile(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	config = l.mergeConfig(l.defaults(), config)

	if err := l.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadFromReader loads configuration from an io.Reader
func (l *Loader) LoadFromReader(reader io.Reader, format ConfigFormat) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration data: %w", err)
	}

	config, err := l.parseConfig(data, format)
	if err != nil {
		return nil, err
	}

	config = l.mergeConfig(l.defaults(), config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// AutoLoad discovers a configuration file in the search paths and loads
// it, falling back to defaults when none is found
func (l *Loader) AutoLoad() (*Config, error) {
	configFile, err := l.findConfigFile()
	if err != nil {
		if err == ErrConfigFileNotFound {
			return l.Load("")
		}
		return nil, err
	}
	return l.LoadFromFile(configFile)
}

// defaults returns a copy of the default configuration
func (l *Loader) defaults() *Config {
	base := l.defaultConfig
	if base == nil {
		base = DefaultConfig()
	}
	copied := *base
	return &copied
}

// findConfigFile searches for configuration files in the search paths
func (l *Loader) findConfigFile() (string, error) {
	filenames := []string{
		"clocksim.yaml", "clocksim.yml",
		"config.yaml", "config.yml",
		"clocksim.json", "config.json",
	}

	for _, searchPath := range l.searchPaths {
		for _, filename := range filenames {
			fullPath := filepath.Join(searchPath, filename)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath, nil
			}
		}
	}

	return "", ErrConfigFileNotFound
}

// formatForFile determines the configuration format from a file extension
func formatForFile(filename string) (ConfigFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config file format: %s", filepath.Ext(filename))
	}
}

// parseConfig parses configuration data based on format
func (l *Loader) parseConfig(data []byte, format ConfigFormat) (*Config, error) {
	config := &Config{}
	// Seed with a sentinel so an explicit prob_internal of 0 (an
	// all-sends experiment) is distinguishable from the field being
	// absent when mergeConfig applies the defaults.
	config.Sim.ProbInternal = -1

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigParseError, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", format)
	}

	return config, nil
}

// loadFromEnv loads configuration overrides from environment variables
func (l *Loader) loadFromEnv(config *Config) error {
	if val := os.Getenv(l.envPrefix + "_NETWORK_HOST"); val != "" {
		config.Network.Host = val
	}
	if val := os.Getenv(l.envPrefix + "_NETWORK_PORT"); val != "" {
		port, err := parsePort(val)
		if err != nil {
			return fmt.Errorf("%s_NETWORK_PORT: %w", l.envPrefix, err)
		}
		config.Network.Port = port
	}
	if val := os.Getenv(l.envPrefix + "_QUORUM_THRESHOLD"); val != "" {
		quorum, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_QUORUM_THRESHOLD: %w", l.envPrefix, err)
		}
		config.Network.QuorumThreshold = quorum
	}
	if val := os.Getenv(l.envPrefix + "_EXPERIMENT_NAME"); val != "" {
		config.Sim.ExperimentName = val
	}
	if val := os.Getenv(l.envPrefix + "_RUN_TIME_SECONDS"); val != "" {
		seconds, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("%s_RUN_TIME_SECONDS: %w", l.envPrefix, err)
		}
		config.Sim.RunTimeSeconds = seconds
	}
	if val := os.Getenv(l.envPrefix + "_PROB_INTERNAL"); val != "" {
		prob, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("%s_PROB_INTERNAL: %w", l.envPrefix, err)
		}
		config.Sim.ProbInternal = prob
	}
	if val := os.Getenv(l.envPrefix + "_LOG_DIR"); val != "" {
		config.Log.Dir = val
	}
	return nil
}

// parsePort parses and range-checks a port number
func parsePort(val string) (int, error) {
	port, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port number: %d", port)
	}
	return port, nil
}

// mergeConfig merges user config with default config, keeping default
// values for fields the user config leaves unset
func (l *Loader) mergeConfig(defaultConfig, userConfig *Config) *Config {
	merged := *defaultConfig

	if userConfig.Network.Host != "" {
		merged.Network.Host = userConfig.Network.Host
	}
	if userConfig.Network.Port != 0 {
		merged.Network.Port = userConfig.Network.Port
	}
	if userConfig.Network.QuorumThreshold != 0 {
		merged.Network.QuorumThreshold = userConfig.Network.QuorumThreshold
	}
	if userConfig.Network.DialTimeout != 0 {
		merged.Network.DialTimeout = userConfig.Network.DialTimeout
	}
	if userConfig.Network.WriteTimeout != 0 {
		merged.Network.WriteTimeout = userConfig.Network.WriteTimeout
	}

	if userConfig.Sim.ExperimentName != "" {
		merged.Sim.ExperimentName = userConfig.Sim.ExperimentName
	}
	if userConfig.Sim.PeerCount != 0 {
		merged.Sim.PeerCount = userConfig.Sim.PeerCount
	}
	if userConfig.Sim.RunTimeSeconds != 0 {
		merged.Sim.RunTimeSeconds = userConfig.Sim.RunTimeSeconds
	}
	if userConfig.Sim.ProbInternal >= 0 {
		merged.Sim.ProbInternal = userConfig.Sim.ProbInternal
	}
	if userConfig.Sim.ClockSpeeds != nil {
		merged.Sim.ClockSpeeds = userConfig.Sim.ClockSpeeds
	}
	if userConfig.Sim.MinClockSpeed != 0 {
		merged.Sim.MinClockSpeed = userConfig.Sim.MinClockSpeed
	}
	if userConfig.Sim.MaxClockSpeed != 0 {
		merged.Sim.MaxClockSpeed = userConfig.Sim.MaxClockSpeed
	}

	if userConfig.Log.Dir != "" {
		merged.Log.Dir = userConfig.Log.Dir
	}

	return &merged
}

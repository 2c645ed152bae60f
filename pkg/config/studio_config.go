// Package config provides configuration loading for studio clients.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StudioConfig holds the endpoints and tuning a studio client needs to talk
// to the editing plane.
type StudioConfig struct {
	// APIBaseURL is the REST API serving entities, drafts, and proposals.
	APIBaseURL string `yaml:"api_base_url"`

	// CollabURL is the websocket endpoint of the collaboration hub.
	CollabURL string `yaml:"collab_url"`

	// CapabilitiesURL serves the session capability set.
	CapabilitiesURL string `yaml:"capabilities_url"`

	// HeartbeatInterval overrides the collaboration heartbeat cadence.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// HistoryLimit bounds the local undo history.
	HistoryLimit int `yaml:"history_limit"`
}

// LoadStudioConfig loads studio configuration from a YAML file.
func LoadStudioConfig(filepath string) (StudioConfig, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return StudioConfig{}, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var config StudioConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return StudioConfig{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	applyDefaults(&config)

	return config, nil
}

// LoadStudioConfigOrDefault attempts to load studio config from file,
// falling back to a default configuration if the file doesn't exist.
func LoadStudioConfigOrDefault(filepath string) StudioConfig {
	config, err := LoadStudioConfig(filepath)
	if err != nil {
		config = StudioConfig{}
		applyDefaults(&config)
	}

	return config
}

func applyDefaults(config *StudioConfig) {
	if config.APIBaseURL == "" {
		config.APIBaseURL = "http://localhost:9091"
	}

	if config.CollabURL == "" {
		config.CollabURL = "ws://localhost:9092/ws/workflow"
	}

	if config.CapabilitiesURL == "" {
		config.CapabilitiesURL = config.APIBaseURL + "/capabilities"
	}

	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = 30 * time.Second
	}

	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 50
	}
}

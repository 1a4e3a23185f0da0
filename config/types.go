// Package config provides configuration management for the clocksim simulator
package config

import (
	"fmt"
	"time"
)

// Config represents the complete clocksim configuration
type Config struct {
	// Network configuration for the router and peers
	Network NetworkConfig `yaml:"network" json:"network"`

	// Simulation parameters
	Sim SimConfig `yaml:"sim" json:"sim"`

	// Event log output configuration
	Log LogConfig `yaml:"log" json:"log"`
}

// NetworkConfig holds the router endpoint and transport parameters
type NetworkConfig struct {
	// Host is the address the router binds and peers dial
	Host string `yaml:"host" json:"host"`

	// Port is the router's listening port
	Port int `yaml:"port" json:"port"`

	// QuorumThreshold is the minimum number of live peers required
	// before the router routes any traffic (MIN_HOSTS)
	QuorumThreshold int `yaml:"quorum_threshold" json:"quorum_threshold"`

	// DialTimeout bounds a peer's initial connection attempt
	DialTimeout time.Duration `yaml:"dial_timeout" json:"dial_timeout"`

	// WriteTimeout bounds a single frame write on the router side
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// SimConfig holds the simulation parameters
type SimConfig struct {
	// ExperimentName names the run; log files are grouped under it
	ExperimentName string `yaml:"experiment_name" json:"experiment_name"`

	// PeerCount is the number of simulated hosts to start
	PeerCount int `yaml:"peer_count" json:"peer_count"`

	// RunTimeSeconds is how long the experiment runs before shutdown
	RunTimeSeconds int `yaml:"run_time_seconds" json:"run_time_seconds"`

	// ProbInternal is the probability that a synthetic step is a pure
	// internal event rather than a send
	ProbInternal float64 `yaml:"prob_internal" json:"prob_internal"`

	// ClockSpeeds optionally fixes each peer's ticks per second. When
	// set it must hold exactly PeerCount entries; when empty each peer
	// draws a speed uniformly from [MinClockSpeed, MaxClockSpeed].
	ClockSpeeds []int `yaml:"clock_speeds" json:"clock_speeds"`

	// MinClockSpeed and MaxClockSpeed bound randomly drawn clock speeds
	MinClockSpeed int `yaml:"min_clock_speed" json:"min_clock_speed"`
	MaxClockSpeed int `yaml:"max_clock_speed" json:"max_clock_speed"`
}

// LogConfig holds event log output settings
type LogConfig struct {
	// Dir is the root directory for experiment logs
	Dir string `yaml:"dir" json:"dir"`
}

// DefaultConfig returns the default clocksim configuration
func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Host:            "127.0.0.1",
			Port:            9090,
			QuorumThreshold: 3,
			DialTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
		},
		Sim: SimConfig{
			ExperimentName: "default",
			PeerCount:      3,
			RunTimeSeconds: 60,
			ProbInternal:   0.7,
			MinClockSpeed:  1,
			MaxClockSpeed:  6,
		},
		Log: LogConfig{
			Dir: "logs",
		},
	}
}

// RunTime returns the configured experiment duration
func (sc SimConfig) RunTime() time.Duration {
	return time.Duration(sc.RunTimeSeconds) * time.Second
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Network.Host == "" {
		return ErrInvalidHost
	}
	if c.Network.Port <= 0 || c.Network.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Network.QuorumThreshold < 2 {
		return ErrInvalidQuorum
	}
	if c.Sim.PeerCount < 1 {
		return ErrInvalidPeerCount
	}
	if c.Sim.RunTimeSeconds <= 0 {
		return ErrInvalidRunTime
	}
	if c.Sim.ProbInternal < 0 || c.Sim.ProbInternal > 1 {
		return ErrInvalidProbability
	}
	if c.Sim.MinClockSpeed < 1 || c.Sim.MaxClockSpeed < c.Sim.MinClockSpeed {
		return ErrInvalidClockSpeed
	}
	if len(c.Sim.ClockSpeeds) != 0 {
		if len(c.Sim.ClockSpeeds) != c.Sim.PeerCount {
			return ErrClockSpeedCount
		}
		for _, speed := range c.Sim.ClockSpeeds {
			if speed < 1 {
				return ErrInvalidClockSpeed
			}
		}
	}
	if c.Log.Dir == "" {
		return ErrInvalidLogDir
	}
	return nil
}

// RouterAddr returns the router endpoint as host:port
func (c *Config) RouterAddr() string {
	return fmt.Sprintf("%s:%d", c.Network.Host, c.Network.Port)
}

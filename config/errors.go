// Package config provides error definitions for configuration management
package config

import "errors"

// Configuration validation errors
var (
	ErrInvalidHost        = errors.New("invalid router host")
	ErrInvalidPort        = errors.New("invalid port number")
	ErrInvalidQuorum      = errors.New("invalid quorum threshold")
	ErrInvalidPeerCount   = errors.New("invalid peer count")
	ErrInvalidRunTime     = errors.New("invalid run time")
	ErrInvalidProbability = errors.New("invalid internal event probability")
	ErrInvalidClockSpeed  = errors.New("invalid clock speed")
	ErrClockSpeedCount    = errors.New("clock speed count does not match peer count")
	ErrInvalidLogDir      = errors.New("invalid log directory")
)

// Configuration loading errors
var (
	ErrConfigFileNotFound = errors.New("configuration file not found")
	ErrConfigParseError   = errors.New("configuration parse error")
	ErrConfigWatchError   = errors.New("configuration watch error")
)

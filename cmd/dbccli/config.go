package main

import (
	"os"

	"github.com/canframe/godbc"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML config accepted via --config, letting a
// host override the size ceilings without recompiling (e.g. a CI
// pipeline validating unusually large generated DBC files).
type fileConfig struct {
	Limits struct {
		MaxMessages             int `yaml:"max_messages"`
		MaxSignalsPerMessage    int `yaml:"max_signals_per_message"`
		MaxNodes                int `yaml:"max_nodes"`
		MaxReceiverNodes        int `yaml:"max_receiver_nodes"`
		MaxValueDescriptions    int `yaml:"max_value_descriptions"`
		MaxNameSize             int `yaml:"max_name_size"`
		MaxExtendedMultiplexing int `yaml:"max_extended_multiplexing"`
	} `yaml:"limits"`
	StrictBoundaries   bool `yaml:"strict_boundaries"`
	AllowUnknownSender bool `yaml:"allow_unknown_sender"`
}

// loadOptions reads path (if non-empty) and merges its overrides onto the
// lenient defaults; an absent path is not an error.
func loadOptions(path string) (godbc.Options, error) {
	opts := godbc.DefaultOptions()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}

	var cfg fileConfig
	cfg.AllowUnknownSender = opts.AllowUnknownSender
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return opts, err
	}

	if cfg.Limits.MaxMessages > 0 {
		opts.Limits.MaxMessages = cfg.Limits.MaxMessages
	}
	if cfg.Limits.MaxSignalsPerMessage > 0 {
		opts.Limits.MaxSignalsPerMessage = cfg.Limits.MaxSignalsPerMessage
	}
	if cfg.Limits.MaxNodes > 0 {
		opts.Limits.MaxNodes = cfg.Limits.MaxNodes
	}
	if cfg.Limits.MaxReceiverNodes > 0 {
		opts.Limits.MaxReceiverNodes = cfg.Limits.MaxReceiverNodes
	}
	if cfg.Limits.MaxValueDescriptions > 0 {
		opts.Limits.MaxValueDescriptions = cfg.Limits.MaxValueDescriptions
	}
	if cfg.Limits.MaxNameSize > 0 {
		opts.Limits.MaxNameSize = cfg.Limits.MaxNameSize
	}
	if cfg.Limits.MaxExtendedMultiplexing > 0 {
		opts.Limits.MaxExtendedMultiplexing = cfg.Limits.MaxExtendedMultiplexing
	}
	opts.StrictBoundaries = cfg.StrictBoundaries
	opts.AllowUnknownSender = cfg.AllowUnknownSender
	return opts, nil
}

// Package config loads the settings of the gattdisc tool.
package config

import (
	"os"

	"github.com/currantlabs/gattc"
	"github.com/currantlabs/gattc/att"
	"github.com/currantlabs/gattc/discovery"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	MTU       int             `yaml:"mtu"`
	UUIDBases []string        `yaml:"uuid_bases"` // 128-bit vendor bases
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// DiscoveryConfig sizes the tables of the discovery client.
type DiscoveryConfig struct {
	MaxServices              int `yaml:"max_services"`
	MaxCharacteristics       int `yaml:"max_characteristics"`
	MaxSessions              int `yaml:"max_sessions"`
	MaxDescriptorDiscoveries int `yaml:"max_descriptor_discoveries"`
}

// Default returns a Config with the default values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		MTU:      gattc.DefaultMTU,
		Discovery: DiscoveryConfig{
			MaxServices:              discovery.DefaultMaxServices,
			MaxCharacteristics:       discovery.DefaultMaxCharacteristics,
			MaxSessions:              discovery.DefaultMaxSessions,
			MaxDescriptorDiscoveries: discovery.DefaultMaxDescriptorDiscoveries,
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if c.MTU < gattc.DefaultMTU || c.MTU > gattc.MaxMTU {
		return errors.Errorf("mtu must be within [%d, %d], got %d", gattc.DefaultMTU, gattc.MaxMTU, c.MTU)
	}

	for _, s := range c.UUIDBases {
		u, err := gattc.Parse(s)
		if err != nil {
			return errors.Wrap(err, "uuid_bases")
		}
		if u.Len() != 16 {
			return errors.Errorf("uuid_bases: %q is not a 128-bit UUID", s)
		}
	}

	d := c.Discovery
	switch {
	case d.MaxServices < 1:
		return errors.New("discovery.max_services must be > 0")
	case d.MaxCharacteristics < 1:
		return errors.New("discovery.max_characteristics must be > 0")
	case d.MaxSessions < 1:
		return errors.New("discovery.max_sessions must be > 0")
	case d.MaxDescriptorDiscoveries < 1:
		return errors.New("discovery.max_descriptor_discoveries must be > 0")
	}
	return nil
}

// TransportOptions returns the att.Transport options described by c.
func (c *Config) TransportOptions() []att.Option {
	opts := []att.Option{att.OptMTU(c.MTU)}
	for _, s := range c.UUIDBases {
		opts = append(opts, att.OptUUIDBase(s))
	}
	return opts
}

// ClientOptions returns the discovery.Client options described by c.
func (c *Config) ClientOptions() []discovery.Option {
	d := c.Discovery
	return []discovery.Option{
		discovery.OptCapacity(d.MaxServices, d.MaxCharacteristics),
		discovery.OptMaxSessions(d.MaxSessions),
		discovery.OptMaxDescriptorDiscoveries(d.MaxDescriptorDiscoveries),
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/currantlabs/gattc/att"
	"github.com/currantlabs/gattc/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 23, cfg.MTU)
	assert.Empty(t, cfg.UUIDBases)
	assert.Equal(t, DiscoveryConfig{
		MaxServices:              4,
		MaxCharacteristics:       4,
		MaxSessions:              1,
		MaxDescriptorDiscoveries: 3,
	}, cfg.Discovery)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
log_level: debug
mtu: 185
uuid_bases:
  - 34DA3AD1-7110-41A1-B1EF-4430F509CDE7
discovery:
  max_services: 8
  max_sessions: 2
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 185, cfg.MTU)
	assert.Equal(t, []string{"34DA3AD1-7110-41A1-B1EF-4430F509CDE7"}, cfg.UUIDBases)
	assert.Equal(t, 8, cfg.Discovery.MaxServices)
	assert.Equal(t, 2, cfg.Discovery.MaxSessions)

	// Missing fields keep their defaults.
	assert.Equal(t, 4, cfg.Discovery.MaxCharacteristics)
	assert.Equal(t, 3, cfg.Discovery.MaxDescriptorDiscoveries)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "mtu: [not, a, number]\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		modify func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"small mtu", func(c *Config) { c.MTU = 22 }},
		{"large mtu", func(c *Config) { c.MTU = 600 }},
		{"bad base", func(c *Config) { c.UUIDBases = []string{"nope"} }},
		{"short base", func(c *Config) { c.UUIDBases = []string{"180F"} }},
		{"no services", func(c *Config) { c.Discovery.MaxServices = 0 }},
		{"no characteristics", func(c *Config) { c.Discovery.MaxCharacteristics = 0 }},
		{"no sessions", func(c *Config) { c.Discovery.MaxSessions = 0 }},
		{"no descriptor slots", func(c *Config) { c.Discovery.MaxDescriptorDiscoveries = -1 }},
	} {
		cfg := Default()
		tt.modify(cfg)
		assert.Error(t, cfg.Validate(), tt.name)
	}
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.MTU = 100
	cfg.UUIDBases = []string{"34DA3AD1-7110-41A1-B1EF-4430F509CDE7"}

	tr, err := att.NewTransport(cfg.TransportOptions()...)
	require.NoError(t, err)
	defer tr.Close()
	assert.Equal(t, 100, tr.MTU())

	_, err = discovery.NewClient(tr, cfg.ClientOptions()...)
	assert.NoError(t, err)

	cfg.Discovery.MaxSessions = 0
	_, err = discovery.NewClient(tr, cfg.ClientOptions()...)
	assert.Error(t, err)
}

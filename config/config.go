// Package config loads the handful of options the forwarding core consumes
// (spec §6's configuration table), via YAML exactly as the teacher's
// cmd.run does with toolutils.ReadYaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors spec §6's configuration table.
type Config struct {
	CS struct {
		MaxPackets int    `yaml:"cs_max_packets"`
		Policy     string `yaml:"cs_policy"`
	} `yaml:"cs"`

	Reassembly struct {
		Timeout      time.Duration `yaml:"reassembly_timeout"`
		MaxFragments int           `yaml:"reassembly_max_fragments"`
	} `yaml:"reassembly"`

	PIT struct {
		StragglerTimeout time.Duration `yaml:"pit_straggler_timeout"`
	} `yaml:"pit"`

	Strategy struct {
		Default string `yaml:"strategy_choice_default"`
	} `yaml:"strategy"`

	// Mgmt is not named by spec §6 (management is out of scope for the
	// core); it configures the read-only introspection HTTP/WebSocket
	// listener this module substitutes for the management wire protocol.
	Mgmt struct {
		Addr string `yaml:"addr"`
	} `yaml:"mgmt"`

	// BaseDir is not read from YAML: it's derived from the config file's
	// own directory, matching the teacher's config.Core.BaseDir assignment
	// in fw/cmd/cmd.go.
	BaseDir string `yaml:"-"`
}

// Default returns a Config populated with spec §6's defaults.
func Default() *Config {
	c := &Config{}
	c.CS.MaxPackets = 65536
	c.CS.Policy = "lru"
	c.Reassembly.Timeout = 500 * time.Millisecond
	c.Reassembly.MaxFragments = 400
	c.PIT.StragglerTimeout = 100 * time.Millisecond
	c.Strategy.Default = "/localhost/nfd/strategy/best-route"
	c.Mgmt.Addr = ":9696"
	return c
}

// Load reads a YAML file into a Default-initialized Config, so any field
// the file omits keeps its spec-mandated default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.BaseDir = filepath.Dir(path)

	return cfg, nil
}

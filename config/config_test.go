package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, 65536, c.CS.MaxPackets)
	assert.Equal(t, "lru", c.CS.Policy)
	assert.Equal(t, 500*time.Millisecond, c.Reassembly.Timeout)
	assert.Equal(t, 400, c.Reassembly.MaxFragments)
	assert.Equal(t, 100*time.Millisecond, c.PIT.StragglerTimeout)
	assert.Equal(t, "/localhost/nfd/strategy/best-route", c.Strategy.Default)
	assert.Equal(t, ":9696", c.Mgmt.Addr)
}

func TestLoadOverridesOnlyNamedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ndnfwd.yml")
	require.NoError(t, os.WriteFile(path, []byte("cs:\n  cs_max_packets: 10\nstrategy:\n  strategy_choice_default: /localhost/nfd/strategy/multicast\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, c.CS.MaxPackets)
	assert.Equal(t, "/localhost/nfd/strategy/multicast", c.Strategy.Default)
	// Untouched fields keep their Default() values.
	assert.Equal(t, "lru", c.CS.Policy)
	assert.Equal(t, 100*time.Millisecond, c.PIT.StragglerTimeout)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}


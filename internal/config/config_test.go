package config

import (
	"testing"

	"github.com/evalgo/preloadd/internal/planner"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchReferenceValues(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, uint64(2_000_000), cfg.Model.MinSize)
	assert.Equal(t, float32(0.01), cfg.Model.Decay)
	assert.Equal(t, planner.SortBlock, cfg.System.SortStrategy)
	assert.Equal(t, -10, cfg.Model.Memory.MemTotalPct)
}

func TestLoadOverridesDefaultsFromViper(t *testing.T) {
	v := viper.New()
	v.Set("model.minsize", 5000)
	v.Set("system.sortstrategy", "inode")
	v.Set("model.memory.memtotal", 500)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), cfg.Model.MinSize)
	assert.Equal(t, planner.SortInode, cfg.System.SortStrategy)
	assert.Equal(t, 100, cfg.Model.Memory.MemTotalPct) // clamped
}

func TestLoadRejectsUnknownSortStrategy(t *testing.T) {
	v := viper.New()
	v.Set("system.sortstrategy", "bogus")
	_, err := Load(v)
	assert.Error(t, err)
}

func TestEffectiveAutosavePrefersPersistenceOverride(t *testing.T) {
	v := viper.New()
	v.Set("system.autosave", "30s")
	v.Set("persistence.autosave_interval", "90s")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 90*1e9, float64(cfg.EffectiveAutosave()))
}

func TestParsePrefixRulesNegation(t *testing.T) {
	rules := parsePrefixRules([]string{"/usr", "!/usr/lib"})
	assert.Len(t, rules, 2)
	assert.True(t, rules[0].Accept)
	assert.False(t, rules[1].Accept)
}

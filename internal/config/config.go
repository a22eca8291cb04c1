// Package config loads the daemon's configuration via spf13/viper, with
// support for a config file, environment variables, and command-line
// flags bound by cmd/preloadd, following the same file/env/flag precedence
// the rest of this codebase uses.
package config

import (
	"fmt"
	"time"

	"github.com/evalgo/preloadd/internal/observation"
	"github.com/evalgo/preloadd/internal/planner"
	"github.com/spf13/viper"
)

// System holds the system.* keys.
type System struct {
	DoScan              bool
	DoPredict           bool
	PrefetchConcurrency uint32
	SortStrategy        planner.SortStrategy
	ExePrefix           []observation.PrefixRule
	Autosave            time.Duration
}

// Model holds the model.* keys.
type Model struct {
	Cycle          time.Duration
	UseCorrelation bool
	MinSize        uint64
	ActiveWindow   time.Duration
	Decay          float32
	Memory         planner.MemoryPolicy
}

// Persistence holds the persistence.* keys.
type Persistence struct {
	StatePath         string
	AutosaveInterval  time.Duration
	HasAutosave       bool
	SaveOnShutdown    bool
}

// Config is the fully resolved configuration for one engine instance.
type Config struct {
	System      System
	Model       Model
	Persistence Persistence
}

// Defaults matches the reference implementation's defaults (spec's
// External Interfaces section).
func Defaults() Config {
	return Config{
		System: System{
			DoScan:              true,
			DoPredict:           true,
			PrefetchConcurrency: 4,
			SortStrategy:        planner.SortBlock,
			Autosave:            5 * time.Minute,
		},
		Model: Model{
			Cycle:          20 * time.Second,
			UseCorrelation: true,
			MinSize:        2_000_000,
			ActiveWindow:   6 * time.Hour,
			Decay:          0.01,
			Memory: planner.MemoryPolicy{
				MemTotalPct:  -10,
				MemFreePct:   50,
				MemCachedPct: 0,
			},
		},
		Persistence: Persistence{
			SaveOnShutdown: true,
		},
	}
}

// Load reads viper's current state (already primed by cmd/preloadd with a
// config file, env vars, and flags) into a Config, applying Defaults()
// first and overriding with whatever v has explicitly set.
func Load(v *viper.Viper) (Config, error) {
	cfg := Defaults()

	if v.IsSet("system.doscan") {
		cfg.System.DoScan = v.GetBool("system.doscan")
	}
	if v.IsSet("system.dopredict") {
		cfg.System.DoPredict = v.GetBool("system.dopredict")
	}
	if v.IsSet("system.prefetch_concurrency") {
		cfg.System.PrefetchConcurrency = uint32(v.GetUint("system.prefetch_concurrency"))
	}
	if v.IsSet("system.sortstrategy") {
		strat, err := parseSortStrategy(v.GetString("system.sortstrategy"))
		if err != nil {
			return Config{}, err
		}
		cfg.System.SortStrategy = strat
	}
	if v.IsSet("system.exeprefix") {
		cfg.System.ExePrefix = parsePrefixRules(v.GetStringSlice("system.exeprefix"))
	}
	if v.IsSet("system.autosave") {
		cfg.System.Autosave = v.GetDuration("system.autosave")
	}

	if v.IsSet("model.cycle") {
		cfg.Model.Cycle = v.GetDuration("model.cycle")
	}
	if v.IsSet("model.use_correlation") {
		cfg.Model.UseCorrelation = v.GetBool("model.use_correlation")
	}
	if v.IsSet("model.minsize") {
		cfg.Model.MinSize = v.GetUint64("model.minsize")
	}
	if v.IsSet("model.active_window") {
		cfg.Model.ActiveWindow = v.GetDuration("model.active_window")
	}
	if v.IsSet("model.decay") {
		cfg.Model.Decay = float32(v.GetFloat64("model.decay"))
	}
	if v.IsSet("model.memory.memtotal") {
		cfg.Model.Memory.MemTotalPct = v.GetInt("model.memory.memtotal")
	}
	if v.IsSet("model.memory.memfree") {
		cfg.Model.Memory.MemFreePct = v.GetInt("model.memory.memfree")
	}
	if v.IsSet("model.memory.memcached") {
		cfg.Model.Memory.MemCachedPct = v.GetInt("model.memory.memcached")
	}
	cfg.Model.Memory = cfg.Model.Memory.Clamp()

	if v.IsSet("persistence.state_path") {
		cfg.Persistence.StatePath = v.GetString("persistence.state_path")
	}
	if v.IsSet("persistence.autosave_interval") {
		cfg.Persistence.AutosaveInterval = v.GetDuration("persistence.autosave_interval")
		cfg.Persistence.HasAutosave = true
	}
	if v.IsSet("persistence.save_on_shutdown") {
		cfg.Persistence.SaveOnShutdown = v.GetBool("persistence.save_on_shutdown")
	}

	return cfg, nil
}

// EffectiveAutosave returns persistence.autosave_interval if set, else
// system.autosave.
func (c Config) EffectiveAutosave() time.Duration {
	if c.Persistence.HasAutosave {
		return c.Persistence.AutosaveInterval
	}
	return c.System.Autosave
}

func parseSortStrategy(s string) (planner.SortStrategy, error) {
	switch s {
	case "none":
		return planner.SortNone, nil
	case "path":
		return planner.SortPath, nil
	case "block":
		return planner.SortBlock, nil
	case "inode":
		return planner.SortInode, nil
	default:
		return 0, fmt.Errorf("config: unknown system.sortstrategy %q", s)
	}
}

// parsePrefixRules turns a list of "prefix" / "!prefix" strings into
// ordered PrefixRules; "!" negates (reject), anything else accepts.
func parsePrefixRules(raw []string) []observation.PrefixRule {
	rules := make([]observation.PrefixRule, 0, len(raw))
	for _, s := range raw {
		if len(s) > 0 && s[0] == '!' {
			rules = append(rules, observation.PrefixRule{Prefix: s[1:], Accept: false})
			continue
		}
		rules = append(rules, observation.PrefixRule{Prefix: s, Accept: true})
	}
	return rules
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileTemplate mirrors the daemon's on-disk YAML config shape: durations
// as human strings, everything else as its natural YAML scalar. It exists
// only for `preloadd init-config`; the runtime config path is always
// through viper (see Load), which accepts the same keys from file, env,
// or flag.
type fileTemplate struct {
	System struct {
		DoScan              bool     `yaml:"doscan"`
		DoPredict           bool     `yaml:"dopredict"`
		PrefetchConcurrency uint32   `yaml:"prefetch_concurrency"`
		SortStrategy        string   `yaml:"sortstrategy"`
		ExePrefix           []string `yaml:"exeprefix"`
		Autosave            string   `yaml:"autosave"`
	} `yaml:"system"`
	Model struct {
		Cycle          string `yaml:"cycle"`
		UseCorrelation bool   `yaml:"use_correlation"`
		MinSize        uint64 `yaml:"minsize"`
		ActiveWindow   string `yaml:"active_window"`
		Decay          float32 `yaml:"decay"`
		Memory         struct {
			MemTotal  int `yaml:"memtotal"`
			MemFree   int `yaml:"memfree"`
			MemCached int `yaml:"memcached"`
		} `yaml:"memory"`
	} `yaml:"model"`
	Persistence struct {
		StatePath        string `yaml:"state_path"`
		AutosaveInterval string `yaml:"autosave_interval,omitempty"`
		SaveOnShutdown   bool   `yaml:"save_on_shutdown"`
	} `yaml:"persistence"`
}

// WriteDefault writes a commented-free YAML config file at path, seeded
// from Defaults(), for operators bootstrapping a new host.
func WriteDefault(path string) error {
	def := Defaults()

	var tmpl fileTemplate
	tmpl.System.DoScan = def.System.DoScan
	tmpl.System.DoPredict = def.System.DoPredict
	tmpl.System.PrefetchConcurrency = def.System.PrefetchConcurrency
	tmpl.System.SortStrategy = def.System.SortStrategy.String()
	tmpl.System.Autosave = def.System.Autosave.String()

	tmpl.Model.Cycle = def.Model.Cycle.String()
	tmpl.Model.UseCorrelation = def.Model.UseCorrelation
	tmpl.Model.MinSize = def.Model.MinSize
	tmpl.Model.ActiveWindow = def.Model.ActiveWindow.String()
	tmpl.Model.Decay = def.Model.Decay
	tmpl.Model.Memory.MemTotal = def.Model.Memory.MemTotalPct
	tmpl.Model.Memory.MemFree = def.Model.Memory.MemFreePct
	tmpl.Model.Memory.MemCached = def.Model.Memory.MemCachedPct

	tmpl.Persistence.SaveOnShutdown = def.Persistence.SaveOnShutdown

	data, err := yaml.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("config: marshal default template: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

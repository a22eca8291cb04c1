package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cfgFile holds the path to the configuration file specified via
// --config. When empty, initConfig searches $HOME and the working
// directory for a preloadd.yaml.
var cfgFile string

// RootCmd is the entry point; running it with no subcommand starts the
// daemon (equivalent to `preloadd serve`).
var RootCmd = &cobra.Command{
	Use:   "preloadd",
	Short: "adaptive readahead daemon",
	Long: `preloadd observes process launches, learns pairwise co-occurrence
patterns between executables, predicts which executables and file regions
will be needed next cycle, and issues advisory readahead hints to warm the
page cache ahead of need.

Configuration can be provided via a config file, environment variables
(PRELOADD_ prefixed), or command-line flags, in that order of increasing
precedence.`,
	RunE: runServe,
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/preloadd.yaml or ./preloadd.yaml)")

	RootCmd.PersistentFlags().Bool("doscan", true, "enable the scan step")
	RootCmd.PersistentFlags().Bool("dopredict", true, "enable predict + plan + prefetch")
	RootCmd.PersistentFlags().Uint32("prefetch-concurrency", 4, "bounded concurrency for the prefetcher; 0 disables it")
	RootCmd.PersistentFlags().String("sortstrategy", "block", "issue order: none|path|block|inode")
	RootCmd.PersistentFlags().Duration("cycle", 0, "tick period as a duration, e.g. 20s (0 uses the built-in default)")
	RootCmd.PersistentFlags().String("state-path", "", "persistence file/DSN; empty disables persistence")
	RootCmd.PersistentFlags().String("http-addr", ":9165", "address for the /healthz and /metrics endpoints")

	viper.BindPFlag("system.doscan", RootCmd.PersistentFlags().Lookup("doscan"))
	viper.BindPFlag("system.dopredict", RootCmd.PersistentFlags().Lookup("dopredict"))
	viper.BindPFlag("system.prefetch_concurrency", RootCmd.PersistentFlags().Lookup("prefetch-concurrency"))
	viper.BindPFlag("system.sortstrategy", RootCmd.PersistentFlags().Lookup("sortstrategy"))
	viper.BindPFlag("model.cycle", RootCmd.PersistentFlags().Lookup("cycle"))
	viper.BindPFlag("persistence.state_path", RootCmd.PersistentFlags().Lookup("state-path"))
	viper.BindPFlag("http.addr", RootCmd.PersistentFlags().Lookup("http-addr"))

	RootCmd.AddCommand(dumpCmd)
	RootCmd.AddCommand(initConfigCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("preloadd")
	}

	viper.SetEnvPrefix("PRELOADD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

// Package cmd builds the soundtrack command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lexiplay/soundtrack/cmd/configcmd"
	"github.com/lexiplay/soundtrack/cmd/play"
	"github.com/lexiplay/soundtrack/cmd/serve"
	"github.com/lexiplay/soundtrack/internal/conf"
	"github.com/lexiplay/soundtrack/internal/logger"
	"github.com/lexiplay/soundtrack/internal/runtime"
)

// RootCommand creates and returns the root command
func RootCommand(rt *runtime.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "soundtrack",
		Short:         "Background audio orchestrator",
		Long:          "Plays an ambient and a gameplay track driven by host lifecycle events.",
		Version:       rt.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initialize(configFile)
	}

	rootCmd.AddCommand(
		serve.Command(rt),
		play.Command(),
		configcmd.Command(),
	)
	return rootCmd
}

// initialize loads settings and installs the global logger. It runs before
// every subcommand.
func initialize(configFile string) error {
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/soundtrack, /etc/soundtrack)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("ambient", "", "Locator of the app ambient track")
	flags.String("gameplay", "", "Locator of the gameplay track")

	bindings := map[string]string{
		"debug":               "debug",
		"audio.ambienttrack":  "ambient",
		"audio.gameplaytrack": "gameplay",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Package configcmd implements the config command group.
package configcmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lexiplay/soundtrack/internal/conf"
	"github.com/lexiplay/soundtrack/internal/errors"
)

const redacted = "[redacted]"

// Command creates the config command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	var showSecrets bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Show(cmd.OutOrStdout(), conf.Setting(), showSecrets)
		},
	}
	show.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print passwords and DSNs verbatim")

	cmd.AddCommand(show)
	return cmd
}

// Show writes settings to w as YAML. Credentials are masked unless
// showSecrets is set.
func Show(w io.Writer, settings *conf.Settings, showSecrets bool) error {
	if settings == nil {
		return fmt.Errorf("settings not loaded")
	}

	out := *settings
	if !showSecrets {
		if out.MQTT.Password != "" {
			out.MQTT.Password = redacted
		}
		if out.Sentry.DSN != "" {
			out.Sentry.DSN = redacted
		}
		out.Audio.AmbientTrack = errors.ScrubLocator(out.Audio.AmbientTrack)
		out.Audio.GameplayTrack = errors.ScrubLocator(out.Audio.GameplayTrack)
		out.MQTT.Broker = errors.ScrubLocator(out.MQTT.Broker)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

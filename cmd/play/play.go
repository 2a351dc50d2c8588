// Package play implements the interactive command that reads host lifecycle
// events from stdin.
package play

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexiplay/soundtrack/internal/app"
	"github.com/lexiplay/soundtrack/internal/conf"
)

const shutdownTimeout = 10 * time.Second

// Command creates the play command.
func Command() *cobra.Command {
	var foreground bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Drive the orchestrator interactively from stdin",
		Long: "Read lifecycle events (foreground, background, gameplay-enter, gameplay-exit, " +
			"gameplay-exit-resume) one per line and print both channels after each.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			core, err := app.NewCore(conf.Setting())
			if err != nil {
				return err
			}
			if foreground {
				core.Lifecycle.Foreground()
			}

			runErr := app.RunInteractive(ctx, core, cmd.InOrStdin(), cmd.OutOrStdout())

			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			core.Lifecycle.Background()
			if err := core.Close(closeCtx); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&foreground, "foreground", true, "Start the ambient track immediately")
	return cmd
}

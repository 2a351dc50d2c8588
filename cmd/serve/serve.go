// Package serve implements the long-running service command.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lexiplay/soundtrack/internal/app"
	"github.com/lexiplay/soundtrack/internal/conf"
	"github.com/lexiplay/soundtrack/internal/runtime"
)

// Command creates the serve command.
func Command(rt *runtime.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator behind the HTTP lifecycle API",
		Long: "Start the ambient track, then serve lifecycle events over HTTP " +
			"until interrupted. Metrics, MQTT and Sentry are enabled from configuration.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, conf.Setting(), rt)
		},
	}
}

func run(ctx context.Context, settings *conf.Settings, rt *runtime.Context) error {
	core, err := app.NewCore(settings)
	if err != nil {
		return err
	}
	return app.NewService(core, rt).Run(ctx)
}

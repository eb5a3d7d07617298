// Command galleryctl runs gallery operations from a shell: fetching
// scenario metadata, reconciling the mirror and browsing the catalog.
// It reads the same environment as the API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gallery-backend/infrastructure/config"
	"gallery-backend/infrastructure/di"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	timeout time.Duration

	container *di.Container
	cleanup   func()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:          "galleryctl",
	Short:        "Operate the scenario gallery backend",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		container, cleanup, err = di.InitializeContainer(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initialize container: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cleanup != nil {
			cleanup()
		}
		_ = container.Logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(listCmd)
}

// withTimeout bounds a command by the --timeout flag
func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

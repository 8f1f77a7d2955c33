package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/berth-dev/berth/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔╗ ┌─┐┬─┐┌┬┐┬ ┬
  ╠╩╗├┤ ├┬┘ │ ├─┤
  ╚═╝└─┘┴└─ ┴ ┴ ┴
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		showVersion bool
		doUpdate    bool
	)

	rootCmd := &cobra.Command{
		Use:   "berth",
		Short: "Provision Laravel Sail projects without port collisions",
		Long: `Berth provisions local Laravel Sail projects.

Each project gets host ports that no other registered project uses,
a local domain through valet or herd, and its composer dependencies
installed inside the app container. Features include:

  • Port allocation backed by a machine-wide registry
  • Safe parallel runs via a registry file lock
  • Local HTTPS domains with linked certificates
  • A live dashboard over everything provisioned`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Println(version)
				return nil
			}
			if doUpdate {
				return runUpdate(cmd.Context(), false)
			}
			return cmd.Help()
		},
	}

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Print the version and exit")
	rootCmd.Flags().BoolVar(&doUpdate, "update", false, "Update berth to the latest release")

	// Add commands
	rootCmd.AddCommand(
		initCmd(),
		listCmd(),
		cleanupCmd(),
		serveCmd(),
		updateCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errors.PrintError(err)
		os.Exit(errors.ExitStatus(err))
	}
}

// printBanner prints the berth ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

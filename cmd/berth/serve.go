package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berth-dev/berth/internal/config"
	"github.com/berth-dev/berth/internal/dashboard"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local dashboard",
		Long: `Serve a local web dashboard over the registry.

The dashboard shows every registered project with its domain, ports,
and path, refreshes open pages when the registry changes, and exposes
the registry as JSON under /api/registry and prometheus metrics under
/metrics.

Examples:
  berth serve
  berth serve --addr 127.0.0.1:8099`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	srv := dashboard.New(cfg, dashboard.Options{Addr: addr})

	printBanner()
	fmt.Println("  serve")
	fmt.Println()
	success("Dashboard running at http://%s", srv.Addr())
	info("Press Ctrl-C to stop")
	fmt.Println()

	return srv.Run(cmd.Context())
}

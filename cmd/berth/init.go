package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/berth/internal/config"
	"github.com/berth-dev/berth/internal/provision"
	"github.com/berth-dev/berth/internal/sail"
)

func initCmd() *cobra.Command {
	var (
		path        string
		noDomain    bool
		noSecure    bool
		skipInstall bool
		lockTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Provision the Sail project in the current directory",
		Long: `Provision a Laravel Sail project.

Berth scans docker-compose.yml for port variables, allocates a free
host port for each one that no other registered project uses, records
the assignment in the machine-wide registry, registers a local domain
through valet or herd, writes everything into .env, and installs
composer dependencies inside the app container.

Examples:
  berth init
  berth init --path ~/code/shop
  berth init --no-domain --skip-install
  berth init --lock-timeout 30s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, path, noDomain, noSecure, skipInstall, lockTimeout)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Project directory (default: current directory)")
	cmd.Flags().BoolVar(&noDomain, "no-domain", false, "Skip local domain registration")
	cmd.Flags().BoolVar(&noSecure, "no-secure", false, "Register the domain without HTTPS")
	cmd.Flags().BoolVar(&skipInstall, "skip-install", false, "Skip composer install in the app container")
	cmd.Flags().DurationVar(&lockTimeout, "lock-timeout", 0, "How long to wait for the registry lock (default from config)")

	return cmd
}

func runInit(cmd *cobra.Command, path string, noDomain, noSecure, skipInstall bool, lockTimeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	printBanner()
	fmt.Println("  init")
	fmt.Println()

	opts := provision.Options{
		Path:        path,
		NoDomain:    noDomain,
		NoSecure:    noSecure,
		SkipInstall: skipInstall,
		LockTimeout: lockTimeout,
		Info:        info,
		Warn:        warn,
	}
	// Hand over a proxy only when a tool is actually on PATH. The
	// provisioner treats a nil Proxy as "no domain".
	if proxy, err := sail.DetectProxy(); err == nil {
		opts.Proxy = proxy
	}

	result, err := provision.New(cfg, opts).Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println()
	success("Provisioned %s", result.Record.Name)
	for _, req := range result.Requests {
		info("%s=%d", req.Name, result.Record.Ports[req.Name])
	}
	if result.Record.Domain != "" {
		info("Domain: %s", result.URLs.AppURL)
	}
	fmt.Println()
	fmt.Println("  To start the project:")
	fmt.Println()
	fmt.Println("    ./vendor/bin/sail up -d")
	fmt.Println()

	return nil
}

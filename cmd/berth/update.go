package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berth-dev/berth/internal/config"
	"github.com/berth-dev/berth/internal/selfupdate"
)

func updateCmd() *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update berth to the latest release",
		Long: `Download and install the latest berth release.

The release manifest is fetched from the configured URL, the binary
for this platform is verified against its published checksum, and the
running executable is replaced in place.

Examples:
  berth update
  berth update --check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), checkOnly)
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only check whether a newer release exists")

	return cmd
}

func runUpdate(ctx context.Context, checkOnly bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	manifestURL := cfg.Update.Manifest
	if manifestURL == "" {
		manifestURL = config.DefaultManifest
	}
	updater := selfupdate.New(manifestURL, version)

	fmt.Println("  Checking for updates...")
	fmt.Println()

	manifest, newer, err := updater.Check(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("    Current: %s\n", version)
	fmt.Printf("    Latest:  %s\n", manifest.Latest)
	fmt.Println()

	if !newer {
		info("Already up to date!")
		return nil
	}
	if checkOnly {
		info("Run berth update to install %s", manifest.Latest)
		return nil
	}

	info("Downloading %s...", manifest.Latest)
	result, err := updater.Apply(ctx)
	if err != nil {
		return err
	}

	success("%s", result)
	return nil
}

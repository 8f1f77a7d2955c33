package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/berth-dev/berth/internal/config"
	"github.com/berth-dev/berth/internal/provision"
	"github.com/berth-dev/berth/internal/sail"
)

func cleanupCmd() *cobra.Command {
	var (
		path        string
		all         bool
		keepVolumes bool
		lockTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Deregister a project and release its ports",
		Long: `Deregister a provisioned project: remove its local domain,
delete its docker volumes, strip the managed keys from .env, and
release its ports back to the pool.

Projects whose directory no longer exists are pruned automatically.

Examples:
  berth cleanup
  berth cleanup --path ~/code/shop
  berth cleanup --all --keep-volumes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd, path, all, keepVolumes, lockTimeout)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", "", "Project directory (default: current directory)")
	cmd.Flags().BoolVar(&all, "all", false, "Deregister every project in the registry")
	cmd.Flags().BoolVar(&keepVolumes, "keep-volumes", false, "Leave docker volumes in place")
	cmd.Flags().DurationVar(&lockTimeout, "lock-timeout", 0, "How long to wait for the registry lock (default from config)")

	return cmd
}

func runCleanup(cmd *cobra.Command, path string, all, keepVolumes bool, lockTimeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("  Cleaning up...")
	fmt.Println()

	opts := provision.CleanupOptions{
		Path:        path,
		All:         all,
		KeepVolumes: keepVolumes,
		LockTimeout: lockTimeout,
		Info:        info,
		Warn:        warn,
	}
	if proxy, err := sail.DetectProxy(); err == nil {
		opts.Proxy = proxy
	}

	removed, err := provision.Cleanup(cmd.Context(), cfg, opts)
	if err != nil {
		return err
	}

	fmt.Println()
	switch len(removed) {
	case 0:
		info("Nothing to deregister")
	case 1:
		success("Deregistered %s", removed[0].Name)
	default:
		success("Deregistered %d projects", len(removed))
	}
	return nil
}

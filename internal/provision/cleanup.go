package provision

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/berth-dev/berth/internal/config"
	"github.com/berth-dev/berth/internal/envfile"
	"github.com/berth-dev/berth/internal/errors"
	"github.com/berth-dev/berth/internal/lock"
	"github.com/berth-dev/berth/internal/registry"
	"github.com/berth-dev/berth/internal/sail"
)

// CleanupOptions controls a deprovision run.
type CleanupOptions struct {
	// Path is the project to deregister. Ignored with All.
	Path string

	// All deregisters every project in the registry.
	All bool

	// KeepVolumes leaves the project's docker volumes in place.
	KeepVolumes bool

	// LockTimeout overrides the configured registry lock timeout.
	LockTimeout time.Duration

	Docker Docker
	Proxy  Proxy

	Info func(format string, args ...any)
	Warn func(format string, args ...any)
}

// Cleanup deregisters one project, or all of them, releasing their ports
// and undoing proxy registration, volumes, certificate links, and managed
// env keys. External cleanup is best-effort; the record removal and
// registry save are not.
func Cleanup(ctx context.Context, cfg *config.Config, opts CleanupOptions) ([]*registry.Record, error) {
	if opts.Docker == nil {
		opts.Docker = sail.NewDocker()
	}
	if opts.Info == nil {
		opts.Info = func(string, ...any) {}
	}
	if opts.Warn == nil {
		opts.Warn = func(string, ...any) {}
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = cfg.LockTimeoutDuration()
	}

	lk, err := lock.Acquire(ctx, cfg.LockPath(), lock.Options{Timeout: opts.LockTimeout})
	if err != nil {
		return nil, err
	}
	defer lk.Release()

	reg, err := registry.Load(cfg.RegistryPath())
	if err != nil {
		return nil, err
	}

	ropts := registry.ReconcileOptions{
		Volumes: opts.Docker,
		Warnf:   opts.Warn,
	}
	if opts.Proxy != nil {
		ropts.Proxy = opts.Proxy
	}
	pruned := registry.Reconcile(ctx, reg, ropts)
	for _, stale := range pruned {
		opts.Info("Pruned stale project %s (%s)", stale.Name, stale.Path)
	}

	var targets []*registry.Record
	if opts.All {
		targets = reg.Records()
	} else {
		dir := opts.Path
		if dir == "" {
			dir = "."
		}
		dir, err = filepath.Abs(dir)
		if err != nil {
			return nil, errors.Newf(errors.CategoryProject, "resolving project path: %v", err)
		}
		rec, ok := reg.Get(registry.NameForPath(dir))
		if !ok {
			rec = reg.FindByPath(dir)
		}
		if rec == nil {
			// A prune may already have covered it; that still counts.
			for _, p := range pruned {
				if p.Path == dir {
					if err := registry.Save(cfg.RegistryPath(), reg); err != nil {
						return nil, err
					}
					return []*registry.Record{p}, nil
				}
			}
			return nil, errors.New("E041").
				WithDetailf("No registry record matches %s.", dir).
				WithSuggestion("Run berth list to see what is registered.")
		}
		targets = []*registry.Record{rec}
	}

	removed := make([]*registry.Record, 0, len(targets))
	for _, rec := range targets {
		deprovision(ctx, rec, opts)
		reg.Remove(rec.Name)
		removed = append(removed, rec)
		opts.Info("Deregistered %s", rec.Name)
	}

	if len(removed) > 0 || len(pruned) > 0 {
		if err := registry.Save(cfg.RegistryPath(), reg); err != nil {
			return nil, err
		}
	}
	return removed, nil
}

// deprovision undoes the external side effects of a provision. Every step
// is best-effort.
func deprovision(ctx context.Context, rec *registry.Record, opts CleanupOptions) {
	if rec.Domain != "" && opts.Proxy != nil {
		if err := opts.Proxy.Unregister(ctx, rec.Domain); err != nil {
			opts.Warn("Could not unregister %s: %v", rec.Domain, err)
		}
	}

	if !opts.KeepVolumes {
		if err := opts.Docker.RemoveProjectVolumes(ctx, rec.Name, rec.Path); err != nil {
			opts.Warn("Could not remove volumes for %s: %v", rec.Name, err)
		}
	}

	if info, err := os.Stat(rec.Path); err != nil || !info.IsDir() {
		return
	}

	if rec.Domain != "" {
		if err := sail.UnlinkCerts(rec.Path, rec.Domain); err != nil {
			opts.Warn("Could not remove certificate links for %s: %v", rec.Name, err)
		}
	}

	envPath := filepath.Join(rec.Path, ".env")
	if envfile.Exists(envPath) {
		if err := envfile.Strip(envPath, envfile.ManagedKeys(rec.Ports)); err != nil {
			opts.Warn("Could not strip managed keys from %s: %v", envPath, err)
		}
	}
}

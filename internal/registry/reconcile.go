package registry

import (
	"context"
	"os"
)

// ProxyRemover removes a local domain registration. Implemented by the
// sail package; narrow so reconciliation is testable with fakes.
type ProxyRemover interface {
	Unregister(ctx context.Context, domain string) error
}

// VolumeRemover removes a project's Docker volumes.
type VolumeRemover interface {
	RemoveProjectVolumes(ctx context.Context, name, path string) error
}

// ReconcileOptions configures a reconcile pass.
type ReconcileOptions struct {
	// Proxy, when non-nil, is asked to unregister the domain of every
	// pruned record that has one.
	Proxy ProxyRemover

	// Volumes, when non-nil, is asked to remove the volumes of every
	// pruned record.
	Volumes VolumeRemover

	// Warnf receives one message per failed cleanup. Cleanup failures
	// never block the prune.
	Warnf func(format string, args ...any)

	// Exists overrides the path existence check. Tests use this; the
	// default asks the filesystem.
	Exists func(path string) bool
}

// Reconcile prunes records whose project directory no longer exists and
// returns them. Proxy and volume cleanup for pruned records is
// best-effort; the prune itself always happens, so the registry reflects
// disk reality afterwards.
func Reconcile(ctx context.Context, reg *Registry, opts ReconcileOptions) []*Record {
	exists := opts.Exists
	if exists == nil {
		exists = func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && info.IsDir()
		}
	}
	warnf := opts.Warnf
	if warnf == nil {
		warnf = func(string, ...any) {}
	}

	var pruned []*Record
	for _, name := range reg.Names() {
		rec := reg.records[name]
		if exists(rec.Path) {
			continue
		}

		if rec.Domain != "" && opts.Proxy != nil {
			if err := opts.Proxy.Unregister(ctx, rec.Domain); err != nil {
				warnf("could not unregister %s: %v", rec.Domain, err)
			}
		}
		if opts.Volumes != nil {
			if err := opts.Volumes.RemoveProjectVolumes(ctx, rec.Name, rec.Path); err != nil {
				warnf("could not remove volumes for %s: %v", rec.Name, err)
			}
		}

		reg.Remove(name)
		pruned = append(pruned, rec)
	}
	return pruned
}

package provision

import (
	"context"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/berth-dev/berth/internal/compose"
	"github.com/berth-dev/berth/internal/config"
	"github.com/berth-dev/berth/internal/envfile"
	"github.com/berth-dev/berth/internal/errors"
	"github.com/berth-dev/berth/internal/lock"
	"github.com/berth-dev/berth/internal/ports"
	"github.com/berth-dev/berth/internal/registry"
	"github.com/berth-dev/berth/internal/sail"
)

const tracerName = "berth"

// Docker is the container tooling surface the provisioner needs. Satisfied
// by sail.Docker; tests substitute fakes.
type Docker interface {
	Preflight(ctx context.Context) error
	ComposeRun(ctx context.Context, dir, service string, cmd ...string) error
	RemoveProjectVolumes(ctx context.Context, name, path string) error
}

// Proxy registers local domains. Satisfied by sail.Proxy. A nil Proxy means
// no tool was found; provisioning then runs without a domain.
type Proxy interface {
	Name() string
	TLD(ctx context.Context) string
	Register(ctx context.Context, dir, name string, secure bool) error
	Unregister(ctx context.Context, domain string) error
	CertPaths(domain string) (cert, key string)
}

// PortAllocator picks free ports for the extracted variables.
type PortAllocator interface {
	AllocateAll(reg *registry.Registry, reqs []ports.Request) (map[string]int, error)
}

// Options controls a single provision run.
type Options struct {
	// Path is the project directory. Empty means the current directory.
	Path string

	// NoDomain skips proxy registration even when a tool is available.
	NoDomain bool

	// NoSecure registers the domain over plain HTTP.
	NoSecure bool

	// SkipInstall skips the composer install step.
	SkipInstall bool

	// LockTimeout overrides the configured registry lock timeout.
	LockTimeout time.Duration

	Docker    Docker
	Proxy     Proxy
	Allocator PortAllocator

	// Info and Warn receive progress messages. Nil means silent.
	Info func(format string, args ...any)
	Warn func(format string, args ...any)
}

// Result summarizes a completed provision.
type Result struct {
	Record      *registry.Record
	Requests    []ports.Request // compose appearance order, for display
	ComposeFile string
	EnvFile     string
	URLs        envfile.URLs
	InstallRan  bool
}

// Provisioner runs the full init flow for one project.
type Provisioner struct {
	cfg  *config.Config
	opts Options
}

func New(cfg *config.Config, opts Options) *Provisioner {
	if opts.Docker == nil {
		opts.Docker = sail.NewDocker()
	}
	if opts.Allocator == nil {
		opts.Allocator = ports.NewAllocator()
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
	return &Provisioner{cfg: cfg, opts: opts}
}

// Run provisions the project. The registry lock is held from load until
// save; everything after the save (env rewrite, certificates, composer) runs
// unlocked so other invocations are not blocked behind container work.
func (p *Provisioner) Run(ctx context.Context) (res *Result, err error) {
	dir := p.opts.Path
	if dir == "" {
		dir = "."
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, errors.Newf(errors.CategoryProject, "resolving project path: %v", err)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "berth.provision",
		trace.WithAttributes(attribute.String("berth.project_path", dir)))
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}()

	// Preflight. Everything here fails fast, before the registry is
	// touched or locked.
	p.opts.Info("Checking prerequisites")
	if err := p.opts.Docker.Preflight(ctx); err != nil {
		return nil, err
	}

	composeFile, err := compose.Find(dir)
	if err != nil {
		return nil, err
	}

	envPath := filepath.Join(dir, ".env")
	if !envfile.Exists(envPath) {
		return nil, errors.New("E031").
			WithDetailf("Expected an env file at %s.", envPath).
			WithSuggestion("Copy the example env file and adjust it for your setup.").
			WithExample("cp .env.example .env")
	}
	hasPorts, err := envfile.HasPorts(envPath)
	if err != nil {
		return nil, err
	}
	if hasPorts {
		return nil, errors.New("E032").
			WithDetailf("%s already assigns *_PORT variables.", envPath).
			WithSuggestion("Clean the project up first, then provision it again.").
			WithExample("berth cleanup --path " + dir)
	}

	proxy := p.opts.Proxy
	if proxy == nil && !p.opts.NoDomain {
		p.opts.Warn("No proxy tool (valet or herd) on PATH, provisioning without a local domain")
	}

	// Extract port variables from the compose file.
	reqs, err := compose.ExtractPortVars(composeFile)
	if err != nil {
		return nil, err
	}
	p.opts.Info("Found %d port variable(s) in %s", len(reqs), filepath.Base(composeFile))
	span.SetAttributes(attribute.Int("berth.port_vars", len(reqs)))

	// Lock, load, reconcile. The deferred release covers every error
	// path; Release is idempotent so the explicit one below is safe.
	lk, err := lock.Acquire(ctx, p.cfg.LockPath(), lock.Options{Timeout: p.opts.LockTimeout})
	if err != nil {
		return nil, err
	}
	defer lk.Release()

	reg, err := registry.Load(p.cfg.RegistryPath())
	if err != nil {
		return nil, err
	}

	ropts := registry.ReconcileOptions{
		Volumes: p.opts.Docker,
		Warnf:   p.opts.Warn,
	}
	if proxy != nil {
		ropts.Proxy = proxy
	}
	for _, stale := range registry.Reconcile(ctx, reg, ropts) {
		p.opts.Info("Pruned stale project %s (%s)", stale.Name, stale.Path)
	}

	name := registry.NameForPath(dir)
	if _, ok := reg.Get(name); ok {
		return nil, alreadyRegistered(name, dir)
	}
	if other := reg.FindByPath(dir); other != nil {
		return nil, alreadyRegistered(other.Name, dir)
	}

	if ctx.Err() != nil {
		return nil, cancelled(ctx)
	}

	// Allocate a free port per variable.
	allocated, err := p.opts.Allocator.AllocateAll(reg, reqs)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		p.opts.Info("Allocated %s=%d", req.Name, allocated[req.Name])
	}

	rec := &registry.Record{Name: name, Path: dir, Ports: allocated}

	// Proxy registration is best-effort: a failure costs the domain, not
	// the provision.
	if proxy != nil && !p.opts.NoDomain {
		tld := proxy.TLD(ctx)
		if tld == "" {
			tld = p.cfg.TLD
		}
		domain := registry.DomainForPath(dir, tld)
		secure := p.cfg.Secured() && !p.opts.NoSecure
		if err := proxy.Register(ctx, dir, sail.SiteName(domain), secure); err != nil {
			p.opts.Warn("Could not register %s with %s: %v", domain, proxy.Name(), err)
		} else {
			rec.Domain = domain
			rec.ProxyService = p.cfg.ProxyService
			rec.ProxySecure = secure
			p.opts.Info("Registered %s with %s", domain, proxy.Name())
		}
	}

	if err := reg.Add(rec); err != nil {
		return nil, err
	}
	if err := registry.Save(p.cfg.RegistryPath(), reg); err != nil {
		return nil, err
	}
	if err := lk.Release(); err != nil {
		p.opts.Warn("Releasing registry lock: %v", err)
	}

	// The record is durable from here on. An env write failure leaves the
	// two out of sync, which cleanup repairs.
	urls := envfile.DeriveURLs(rec.Domain, rec.ProxySecure, allocated)
	if err := envfile.SetPorts(envPath, allocated, urls); err != nil {
		return nil, errors.FromError(err, "E033").
			WithSuggestion("The registry holds the new record but the env file was not updated. Clean up and retry.").
			WithExample("berth cleanup --path " + dir)
	}
	p.opts.Info("Wrote ports and URLs to %s", filepath.Base(envPath))

	if rec.ProxySecure {
		cert, key := proxy.CertPaths(rec.Domain)
		if err := sail.LinkCerts(dir, rec.Domain, cert, key); err != nil {
			p.opts.Warn("Could not link TLS certificates: %v", err)
		} else {
			p.opts.Info("Linked TLS certificates into %s", sail.CertLinkDir)
		}
	}

	installRan := false
	if !p.opts.SkipInstall {
		p.opts.Info("Installing composer dependencies, this can take a while")
		if err := p.opts.Docker.ComposeRun(ctx, dir, p.cfg.ProxyService, "composer", "install"); err != nil {
			if ctx.Err() != nil {
				return nil, cancelled(ctx)
			}
			p.opts.Warn("composer install failed: %v", err)
		} else {
			installRan = true
		}
	}

	return &Result{
		Record:      rec,
		Requests:    reqs,
		ComposeFile: composeFile,
		EnvFile:     envPath,
		URLs:        urls,
		InstallRan:  installRan,
	}, nil
}

func alreadyRegistered(name, dir string) error {
	return errors.New("E040").
		WithDetailf("A registry record named %s already covers %s.", name, dir).
		WithSuggestion("Deregister the project first, then provision it again.").
		WithExample("berth cleanup --path " + dir)
}

func cancelled(ctx context.Context) error {
	return errors.New("E060").Wrap(ctx.Err())
}

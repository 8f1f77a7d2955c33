package dashboard

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/berth-dev/berth/internal/config"
	"github.com/berth-dev/berth/internal/errors"
	"github.com/berth-dev/berth/internal/registry"
	"github.com/berth-dev/berth/internal/watch"
)

const tracerName = "berth"

// shutdownGrace bounds how long in-flight requests may run once the
// server has been asked to stop.
const shutdownGrace = 5 * time.Second

// Options configures a dashboard Server.
type Options struct {
	// Addr overrides the configured listen address.
	Addr string

	// PollInterval overrides how often the registry file is polled
	// for changes. Zero means the watcher default.
	PollInterval time.Duration

	// Metrics, when set, receives the dashboard metrics instead of
	// the process-global prometheus registry. Tests use this to keep
	// collectors isolated.
	Metrics *prometheus.Registry
}

// Server serves a read-only view of the registry over HTTP: an HTML
// overview page, a JSON API, prometheus metrics, and a websocket that
// notifies browsers when the registry file changes on disk.
//
// The server never takes the registry lock. It reads whatever snapshot
// is on disk and keeps the last good one when a read fails, so a
// dashboard left open cannot block an init or cleanup run.
type Server struct {
	cfg      *config.Config
	addr     string
	router   chi.Router
	reload   *ReloadServer
	watcher  *watch.Watcher
	metrics  *metrics
	gatherer prometheus.Gatherer

	mu       sync.RWMutex
	projects []projectView
	loadErr  string
}

// New builds a Server around cfg. The registry snapshot is loaded
// lazily when Serve starts.
func New(cfg *config.Config, opts Options) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = cfg.Dashboard.Addr
	}
	if addr == "" {
		addr = config.DefaultDashboardAddr
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Metrics != nil {
		registerer = opts.Metrics
		gatherer = opts.Metrics
	}

	s := &Server{
		cfg:      cfg,
		addr:     addr,
		reload:   NewReloadServer(),
		watcher:  watch.NewWatcher(cfg.RegistryPath(), opts.PollInterval),
		metrics:  newMetrics(registerer),
		gatherer: gatherer,
		projects: []projectView{},
	}
	s.watcher.OnChange(func() {
		s.reloadRegistry()
		s.reload.NotifyChanged()
	})
	s.router = s.routes()
	return s
}

// Addr returns the address the server will listen on.
func (s *Server) Addr() string {
	return s.addr
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Group(func(g chi.Router) {
		g.Use(s.instrument)
		g.Use(s.trace)
		g.Get("/", s.handleIndex)
		g.Get("/api/registry", s.handleRegistry)
		g.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	})

	// The websocket route stays outside the instrumented group so
	// long-lived connections do not skew the duration histogram.
	r.Get("/livereload", s.handleLivereload)

	return r
}

// Run listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Newf(errors.CategoryCLI, "dashboard cannot listen on %s: %v", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts
// down gracefully. A ctx-triggered stop returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.reloadRegistry()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		_ = s.watcher.Start(watchCtx)
	}()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return errors.Newf(errors.CategoryCLI, "dashboard server failed: %v", err)
	case <-ctx.Done():
	}

	// Close websocket clients first: http.Server.Shutdown does not
	// track hijacked connections, and closing them unparks their
	// read loops.
	s.reload.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
	}
	<-serveErr
	return nil
}

// reloadRegistry re-reads the registry file and refreshes the cached
// snapshot and gauges. On a read error the previous snapshot is kept
// and the error is surfaced on the page and in the API instead.
func (s *Server) reloadRegistry() {
	reg, err := registry.Load(s.cfg.RegistryPath())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.registryReloads.Inc()
	if err != nil {
		s.loadErr = err.Error()
		return
	}
	s.loadErr = ""
	s.projects = projectViews(reg)
	s.metrics.registeredProjects.Set(float64(reg.Len()))
	s.metrics.allocatedPorts.Set(float64(len(reg.Ports())))
}

func (s *Server) snapshot() ([]projectView, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projects, s.loadErr
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	projects, loadErr := s.snapshot()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, indexData{Projects: projects, Error: loadErr}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	projects, loadErr := s.snapshot()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(registryResponse{Projects: projects, Error: loadErr})
}

func (s *Server) handleLivereload(w http.ResponseWriter, r *http.Request) {
	s.metrics.reloadClients.Inc()
	defer s.metrics.reloadClients.Dec()
	s.reload.HandleWebSocket(w, r)
}

// instrument records request count, duration, and in-flight gauge.
// Routes are labelled by chi pattern, not raw path, to keep metric
// cardinality flat.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.requestsInFlight.Inc()
		defer s.metrics.requestsInFlight.Dec()

		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.metrics.requestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

// trace wraps each request in a span from the global tracer provider.
// Without a configured provider this is a no-op.
func (s *Server) trace(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "berth.dashboard "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", ww.Status()))
		if ww.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ww.Status()))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}

// registryResponse is the GET /api/registry payload.
type registryResponse struct {
	Projects []projectView `json:"projects"`
	Error    string        `json:"error,omitempty"`
}

// projectView is one registry record shaped for the page and the API.
type projectView struct {
	Name         string         `json:"name"`
	Path         string         `json:"path"`
	Domain       string         `json:"domain,omitempty"`
	ProxyService string         `json:"proxyService,omitempty"`
	Secure       bool           `json:"secure"`
	URL          string         `json:"url,omitempty"`
	Ports        map[string]int `json:"ports"`

	// PortList repeats Ports in stable name order for the template.
	PortList []portView `json:"-"`
}

type portView struct {
	Name string
	Port int
}

func projectViews(reg *registry.Registry) []projectView {
	records := reg.Records()
	views := make([]projectView, 0, len(records))
	for _, rec := range records {
		v := projectView{
			Name:         rec.Name,
			Path:         rec.Path,
			Domain:       rec.Domain,
			ProxyService: rec.ProxyService,
			Secure:       rec.ProxySecure,
			Ports:        rec.Ports,
		}
		if rec.Domain != "" {
			scheme := "http"
			if rec.ProxySecure {
				scheme = "https"
			}
			v.URL = scheme + "://" + rec.Domain
		}
		for _, name := range rec.PortNames() {
			v.PortList = append(v.PortList, portView{Name: name, Port: rec.Ports[name]})
		}
		views = append(views, v)
	}
	return views
}

// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file, or from ADMINKIT_* environment
// variables when no file exists.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/artpar/adminkit/adapters/auth"
	apihttp "github.com/artpar/adminkit/adapters/http"
	"github.com/artpar/adminkit/adapters/http/admin"
	"github.com/artpar/adminkit/adapters/http/demo"
	"github.com/artpar/adminkit/adapters/metrics"
	"github.com/artpar/adminkit/adapters/remote"
	"github.com/artpar/adminkit/adapters/sqlite"
	"github.com/artpar/adminkit/app"
	"github.com/artpar/adminkit/config"
	"github.com/artpar/adminkit/core/registry"
	"github.com/artpar/adminkit/core/resource"
	"github.com/artpar/adminkit/domain/gate"
	"github.com/artpar/adminkit/domain/user"
	"github.com/artpar/adminkit/ports"
)

// Module option defaults.
const (
	DefaultMetricsPath = "/metrics"
	DefaultDemoPath    = "/demo"
	DefaultDemoDSN     = ":memory:"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Holder
	Service    *app.ResourceService
	Metrics    *metrics.Collector
	DemoDB     *sqlite.DB
	HTTPServer *http.Server

	// demoResource is added to the registry when the demo module is on and
	// no resource named "users" is configured.
	demoResource *resource.Resource

	shutdownOnce sync.Once
}

// Options controls application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When it does not exist the
	// configuration is read from the environment.
	ConfigPath string

	// Watch reloads resources when the config file or resources_dir changes.
	Watch bool

	// Version is reported at /version.
	Version string

	// MetricsRegistry replaces the global Prometheus registry.
	MetricsRegistry *prometheus.Registry
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger := NewLogger(cfg.Logging)
	logger.Info().Msg("initializing adminkit")

	holder, err := newHolder(opts.ConfigPath, cfg, logger)
	if err != nil {
		return nil, err
	}
	cfg = holder.Get()

	a := &App{
		Logger: logger,
		Config: holder,
	}

	var gatherer prometheus.Gatherer
	metricsPath := DefaultMetricsPath
	if entry, ok := cfg.Modules.Lookup(config.ModuleMetrics); ok {
		if opts.MetricsRegistry != nil {
			a.Metrics = metrics.NewWithRegistry(opts.MetricsRegistry)
			gatherer = opts.MetricsRegistry
		} else {
			a.Metrics = metrics.New()
		}
		metricsPath = entry.Option("path", DefaultMetricsPath)
		logger.Info().Str("path", metricsPath).Msg("prometheus metrics enabled")
	}

	policy, err := AuthPolicy(cfg.Auth)
	if err != nil {
		a.Shutdown()
		return nil, err
	}

	var backend ports.Backend = remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout,
		Headers: cfg.Backend.Headers,
	})
	var recorder ports.Recorder
	if a.Metrics != nil {
		backend = a.Metrics.InstrumentBackend(backend)
		recorder = a.Metrics
	}

	routerCfg := apihttp.RouterConfig{
		Version:         opts.Version,
		RequestTimeout:  cfg.Server.WriteTimeout,
		Metrics:         a.Metrics,
		MetricsPath:     metricsPath,
		MetricsGatherer: gatherer,
		AdminPath:       cfg.Server.BasePath,
	}
	checkers := map[string]apihttp.HealthChecker{}

	if entry, ok := cfg.Modules.Lookup(config.ModuleDemo); ok {
		if err := a.initDemo(cfg, entry); err != nil {
			a.Shutdown()
			return nil, fmt.Errorf("init demo: %w", err)
		}
		routerCfg.DemoPath = entry.Option("path", DefaultDemoPath)
		routerCfg.DemoHandler = demo.NewHandler(sqlite.NewUserStore(a.DemoDB), logger).Router()
		checkers["demo_db"] = apihttp.HealthCheckFunc(a.DemoDB.PingContext)
	}

	snap := holder.Snapshot()
	a.Service = app.NewResourceService(
		app.ResourceDeps{
			Backend:  backend,
			Recorder: recorder,
			Logger:   logger.With().Str("component", "resources").Logger(),
		},
		app.ResourceConfig{
			Title:    snap.Config.Title,
			Registry: a.registry(snap),
			Policy:   policy,
		},
	)
	if a.Metrics != nil {
		a.Metrics.ResourcesLoaded.Set(float64(a.Service.Config().Registry.Len()))
	}

	holder.OnChange(func(s *config.Snapshot) {
		reg := a.registry(s)
		a.Service.UpdateConfig(s.Config.Title, reg)
		if a.Metrics != nil {
			a.Metrics.RecordReload(reg.Len(), nil)
		}
	})
	holder.OnError(func(err error) {
		if a.Metrics != nil {
			a.Metrics.RecordReload(0, err)
		}
	})

	if holder.Path() != "" {
		holder.WatchSignals()
		if opts.Watch {
			if err := holder.WatchFile(); err != nil {
				a.Shutdown()
				return nil, fmt.Errorf("watch config: %w", err)
			}
		}
	}

	adminHandler := admin.NewHandler(admin.Deps{
		Service:        a.Service,
		Logger:         logger,
		ForwardHeaders: cfg.Backend.ForwardHeaders,
	})
	routerCfg.AdminHandler = adminHandler.Router()

	router := apihttp.NewRouter(apihttp.NewHealthHandler(checkers), logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info().
		Str("title", cfg.Title).
		Str("backend", cfg.Backend.URL).
		Str("base_path", cfg.Server.BasePath).
		Str("auth", cfg.Auth.Mode).
		Int("resources", a.Service.Config().Registry.Len()).
		Msg("adminkit initialized")

	return a, nil
}

// DemoOptions configures the standalone demo backend.
type DemoOptions struct {
	Addr      string
	DSN       string
	Path      string
	LogFormat string
}

// NewDemo creates an application serving only the demo users backend.
func NewDemo(opts DemoOptions) (*App, error) {
	if opts.DSN == "" {
		opts.DSN = DefaultDemoDSN
	}
	if opts.Path == "" {
		opts.Path = DefaultDemoPath
	}

	logger := NewLogger(config.LoggingConfig{Level: "info", Format: opts.LogFormat})
	a := &App{Logger: logger}

	db, err := sqlite.Open(opts.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.DemoDB = db

	health := apihttp.NewHealthHandler(map[string]apihttp.HealthChecker{
		"demo_db": apihttp.HealthCheckFunc(db.PingContext),
	})
	router := apihttp.NewRouter(health, logger, apihttp.RouterConfig{
		DemoHandler: demo.NewHandler(sqlite.NewUserStore(db), logger).Router(),
		DemoPath:    opts.Path,
	})

	a.HTTPServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	logger.Info().Str("dsn", opts.DSN).Str("path", opts.Path).Msg("demo backend initialized")
	return a, nil
}

func newHolder(path string, cfg *config.Config, logger zerolog.Logger) (*config.Holder, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return config.NewHolder(path, logger)
		}
	}
	return config.NewStaticHolder(cfg, logger)
}

// initDemo opens the demo database and describes the users resource it
// serves. The resource points at this server over loopback.
func (a *App) initDemo(cfg *config.Config, entry config.ModuleEntry) error {
	dsn := entry.Option("dsn", DefaultDemoDSN)
	db, err := sqlite.Open(dsn)
	if err != nil {
		return err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	a.DemoDB = db

	base := "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Server.Port)) + entry.Option("path", DefaultDemoPath)
	res := user.Resource(base)
	a.demoResource = &res

	a.Logger.Info().Str("dsn", dsn).Str("endpoint", res.Endpoint).Msg("demo backend enabled")
	return nil
}

// registry returns the snapshot registry, with the demo users resource
// added when it is enabled and not overridden by configuration.
func (a *App) registry(s *config.Snapshot) *registry.Registry {
	if a.demoResource == nil {
		return s.Registry
	}
	if _, ok := s.Registry.Get(a.demoResource.Name); ok {
		return s.Registry
	}

	reg, err := registry.Build(append(slices.Clone(s.Config.Resources), *a.demoResource))
	if err != nil {
		a.Logger.Warn().Err(err).Msg("demo resource rejected")
		return s.Registry
	}
	return reg
}

// AuthPolicy builds the admin auth gate for the configured mode.
func AuthPolicy(cfg config.AuthConfig) (gate.Policy, error) {
	p := gate.Policy{RedirectTo: cfg.RedirectTo}

	switch cfg.Mode {
	case config.AuthNone, "":
		p.Checker = auth.AllowAll{}
	case config.AuthToken:
		p.Checker = auth.NewStaticToken(cfg.TokenHash)
	case config.AuthJWT:
		p.Checker = auth.NewTokenService(cfg.JWTSecret, cfg.JWTRole, 0)
	case config.AuthRemote:
		p.Checker = auth.NewRemoteSession(auth.RemoteSessionConfig{
			URL:     cfg.Remote.URL,
			Timeout: cfg.Remote.Timeout,
		})
	default:
		return gate.Policy{}, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}

	return p, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.HTTPServer.Handler
}

// Run starts the HTTP server and blocks until ctx is done, SIGINT or
// SIGTERM arrives, or the server fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info().Msg("shutting down")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops the application. It is safe to call more
// than once.
func (a *App) Shutdown() error {
	a.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Stop config watchers first so no reload races the teardown
		if a.Config != nil {
			a.Config.Stop()
		}

		if a.HTTPServer != nil {
			if err := a.HTTPServer.Shutdown(ctx); err != nil {
				a.Logger.Error().Err(err).Msg("http server shutdown error")
			}
		}

		if a.DemoDB != nil {
			if err := a.DemoDB.Close(); err != nil {
				a.Logger.Error().Err(err).Msg("database close error")
			}
		}

		a.Logger.Info().Msg("shutdown complete")
	})
	return nil
}

// NewLogger builds the application logger.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

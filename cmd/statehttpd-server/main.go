package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yndnr/statehttpd/internal/core/service"
	"github.com/yndnr/statehttpd/internal/infra/buildinfo"
	"github.com/yndnr/statehttpd/internal/infra/confloader"
	"github.com/yndnr/statehttpd/internal/infra/shutdown"
	"github.com/yndnr/statehttpd/internal/server/config"
	"github.com/yndnr/statehttpd/internal/server/httpserver"
	"github.com/yndnr/statehttpd/internal/server/httpserver/handler"
	"github.com/yndnr/statehttpd/internal/storage"
	"github.com/yndnr/statehttpd/internal/telemetry/logger"
	"github.com/yndnr/statehttpd/internal/telemetry/metric"
	"github.com/yndnr/statehttpd/pkg/crypto/adaptive"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		addr        = flag.String("addr", "", "Listen address, overrides httpd.addr")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("statehttpd-server " + buildinfo.String())
		return nil
	}

	overrides := map[string]any{}
	if *addr != "" {
		overrides["httpd.addr"] = *addr
	}
	loader := confloader.NewLoader(
		confloader.WithConfigFile(*configFile),
		confloader.WithOverrides(overrides),
	)
	cfg, err := loadConfig(loader)
	if err != nil {
		return err
	}

	log := logger.Install(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	log.Info("starting statehttpd-server",
		"version", buildinfo.Get().Version,
		"commit", buildinfo.Get().Commit,
		"config", *configFile)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	metrics := metric.NewRegistry()
	shutdownHandler := shutdown.NewHandler(shutdownTimeout, log)

	repo, closeRepo, err := openSessionRepository(cfg.Session, metrics, log)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	if closeRepo != nil {
		// Registered first so it runs after the server has written sessions.
		shutdownHandler.OnShutdown("session repository", func(context.Context) error {
			return closeRepo()
		})
	}

	storeOpts := []service.SessionOption{
		service.WithLogger(log),
		service.WithObserver(metrics.SetSessions),
		service.WithSweepInterval(cfg.Session.SweepInterval),
	}
	if repo != nil {
		storeOpts = append(storeOpts, service.WithRepository(repo))
	}
	sessions := service.NewSessionStore(storeOpts...)

	ctx := context.Background()
	if err := sessions.Load(ctx); err != nil {
		log.Warn("previous sessions not restored", "error", err)
	}

	srv := httpserver.New(cfg.HTTPD,
		httpserver.WithLogger(log),
		httpserver.WithMetrics(metrics),
		httpserver.WithSessionStore(sessions),
	)
	handler.New(srv, handler.WithMetrics(metrics, cfg.Metrics)).Register()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	shutdownHandler.OnShutdown("http server", srv.Stop)

	if path := loader.FilePath(); path != "" {
		w, err := watchConfig(loader, path, log)
		if err != nil {
			log.Warn("config file not watched", "path", path, "error", err)
		} else {
			shutdownHandler.OnShutdown("config watcher", func(context.Context) error {
				return w.Stop()
			})
		}
	}

	log.Info("server started", "addr", srv.Addr(), "tls", srv.UsingTLS())
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

func loadConfig(loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openSessionRepository selects the persistence backend. The returned
// close func is nil when there is nothing to release.
func openSessionRepository(cfg config.SessionSection, metrics *metric.Registry, log *slog.Logger) (service.SessionRepository, func() error, error) {
	switch cfg.Store {
	case "none":
		return nil, nil, nil

	case "badger":
		engine, err := storage.NewBadgerEngine(storage.DefaultKVConfig(cfg.BadgerDir), log)
		if err != nil {
			return nil, nil, err
		}
		metrics.MustRegister(engine.Collector(metric.Namespace))
		return storage.NewKVSessionStore(engine), engine.Close, nil

	default:
		var key []byte
		if cfg.EncryptionKey != "" {
			k, err := adaptive.KeyFromHex(cfg.EncryptionKey)
			if err != nil {
				return nil, nil, err
			}
			key = k
		}
		return storage.NewFileSessionStore(cfg.File, key, log), nil, nil
	}
}

// watchConfig re-reads the configuration on change. Only the log level
// is applied live; every other setting needs a restart.
func watchConfig(loader *confloader.Loader, path string, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(path, confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	w.OnChange(func(string) {
		cfg := config.Default()
		if err := loader.Reload(cfg); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if err := config.Verify(cfg); err != nil {
			log.Warn("reloaded config rejected", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w, nil
}

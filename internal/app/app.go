// Package app wires the catalog components into an HTTP server.
package app

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/product-catalog/internal/domain/catalog"
	"github.com/xenking/product-catalog/internal/handler"
	"github.com/xenking/product-catalog/internal/storage/diskmedia"
	"github.com/xenking/product-catalog/internal/storage/jsonfile"
	"github.com/xenking/product-catalog/pkg/health"
	"github.com/xenking/product-catalog/pkg/httpmiddleware"
)

// Catalog bundles the storage components and the service built on them.
type Catalog struct {
	Store   *jsonfile.Store
	Media   *diskmedia.Manager
	Service *catalog.Service
}

// NewCatalog opens the record store and the media directory and builds the
// catalog service. The store is loaded once so a corrupt document stops
// startup instead of failing every request.
func NewCatalog(ctx context.Context, m *app.Telemetry, cfg *Config) (*Catalog, error) {
	store := jsonfile.New(cfg.DataFile)
	if _, err := store.Load(ctx); err != nil {
		return nil, errors.Wrap(err, "open product store")
	}

	media, err := diskmedia.New(diskmedia.Config{
		PublicDir: cfg.PublicDir,
		MediaDir:  cfg.MediaDir,
		MaxSize:   cfg.MaxImageSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open media directory")
	}

	var opts []catalog.Option
	if m != nil {
		opts = append(opts,
			catalog.WithTracerProvider(m.TracerProvider()),
			catalog.WithMeterProvider(m.MeterProvider()),
		)
	}
	svc, err := catalog.NewService(store, media, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create catalog service")
	}

	return &Catalog{Store: store, Media: media, Service: svc}, nil
}

// NewMux registers the API, static files and health probes.
func NewMux(cfg *Config, c *Catalog, h *health.Health) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", h.LiveEndpoint)
	mux.HandleFunc("GET /readyz", h.ReadyEndpoint)

	handler.New(handler.Config{MaxImageSize: cfg.MaxImageSize}, c.Service).Register(mux)

	mux.Handle("GET /", http.FileServer(http.Dir(filepath.Clean(cfg.PublicDir))))
	return mux
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("data_file", cfg.DataFile),
		zap.String("public_dir", cfg.PublicDir),
	)

	c, err := NewCatalog(ctx, m, cfg)
	if err != nil {
		return err
	}

	healthSvc := health.New(2 * time.Second)
	healthSvc.AddLivenessCheck("goroutines", health.GoroutineCountCheck(10000))
	healthSvc.AddReadinessCheck("store", c.Store.Check)
	healthSvc.AddReadinessCheck("media", c.Media.Check)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Wrap(NewMux(cfg, c, healthSvc),
				httpmiddleware.RequestID(),
				httpmiddleware.InjectLogger(lg),
				httpmiddleware.LogRequests(),
				httpmiddleware.Recovery(),
			),
			"catalog-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

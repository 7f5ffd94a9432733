// cmd/broadcastd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/broadcast-bridge/broadcast"
	"github.com/tamzrod/broadcast-bridge/internal/config"
	"github.com/tamzrod/broadcast-bridge/internal/logging"
	"github.com/tamzrod/broadcast-bridge/internal/writer"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: broadcastd <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger := logging.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Engine
	// --------------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	clock := clockwork.NewRealClock()

	opts := broadcast.OptionsFromConfig(cfg.Broadcast)
	opts.Clock = clock
	opts.Log = logger
	opts.Registerer = reg

	eng := broadcast.New(opts)
	if err := initEngine(ctx, eng, cfg.App); err != nil {
		logger.Error("broadcast init failed", "error", err)
		os.Exit(1)
	}

	if err := eng.RegisterCallback(logEffects(logger)); err != nil {
		logger.Error("callback registration failed", "error", err)
		os.Exit(1)
	}

	// --------------------
	// Background runners
	// --------------------

	g, gctx := errgroup.WithContext(ctx)

	if plan, ok := writer.BuildStatusPlan(cfg.Export); ok {
		sw, closeWriter, err := writer.BuildStatusWriter(cfg.Export)
		if err != nil {
			logger.Error("status writer failed", "endpoint", plan.Endpoint, "error", err)
			os.Exit(1)
		}
		defer closeWriter()

		g.Go(func() error {
			runExport(gctx, eng, sw, clock, logger.With("endpoint", plan.Endpoint))
			return nil
		})
	}

	if cfg.Metrics.Listen != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("runner failed", "error", err)
	}

	if err := eng.UnInit(); err != nil {
		logger.Warn("broadcast uninit failed", "error", err)
	}
	logger.Info("broadcastd stopped")
}

// initEngine picks verified Init when a GUID is configured, InitEx otherwise.
func initEngine(ctx context.Context, eng *broadcast.Engine, app config.AppConfig) error {
	if app.GUID != "" {
		id, err := uuid.Parse(app.GUID)
		if err != nil {
			return err
		}
		return eng.Init(ctx, id)
	}
	return eng.InitEx(ctx, app.Index, app.Title)
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// logEffects logs transitions at Info and effects at Debug.
func logEffects(logger *slog.Logger) broadcast.Callback {
	return func(n broadcast.Notification) {
		switch n.Type {
		case broadcast.StatusNotification:
			logger.Info("broadcast state", "state", n.State.String())
		case broadcast.EffectNotification:
			if !logger.Enabled(context.Background(), slog.LevelDebug) {
				return
			}
			c := n.Effect.Colors
			logger.Debug("effect",
				"c1", c[0].Hex(), "c2", c[1].Hex(), "c3", c[2].Hex(),
				"c4", c[3].Hex(), "c5", c[4].Hex(),
				"app_specific", n.Effect.AppSpecific,
			)
		}
	}
}

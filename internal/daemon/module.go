// Package daemon composes the bridge daemon: one locked session, its
// whatsmeow client, the HTTP/WebSocket surface and the event pump, all
// wired through fx.
package daemon

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lautaromei/wpbb10/internal/bus"
	"github.com/lautaromei/wpbb10/internal/config"
	"github.com/lautaromei/wpbb10/internal/httpapi"
	"github.com/lautaromei/wpbb10/internal/hub"
	"github.com/lautaromei/wpbb10/internal/lock"
	"github.com/lautaromei/wpbb10/internal/logging"
	"github.com/lautaromei/wpbb10/internal/media"
	"github.com/lautaromei/wpbb10/internal/session"
	"github.com/lautaromei/wpbb10/internal/status"
	"github.com/lautaromei/wpbb10/internal/wa"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	ListenAddr  string // optional override; empty = use config
}

// Module returns the fx module for the daemon, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideCache,
			provideTranscoder,
			provideFactory,
			provideManager,
			provideHub,
			providePump,
			provideServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() *config.Config {
	path := session.ConfigPath()
	cfg := config.LoadOrDefault(path)
	// First run: persist the defaults so they are discoverable.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = config.Save(path, cfg)
	}
	return cfg
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideCache() *media.Cache {
	return media.NewCache()
}

func provideTranscoder(p Params, cfg *config.Config, logger *zap.Logger) media.Transcoder {
	return media.NewFFmpeg(cfg.FFmpegPath, session.TmpDir(p.SessionName), logger)
}

// provideFactory returns the client factory the manager rebuilds the
// whatsmeow session through on reconnect.
func provideFactory(p Params, logger *zap.Logger) wa.Factory {
	return func(ctx context.Context) (wa.Client, error) {
		return wa.NewAdapter(ctx, session.SessionDBPath(p.SessionName), logger)
	}
}

func provideManager(factory wa.Factory, machine *status.Machine, b *bus.Bus, cache *media.Cache, tr media.Transcoder, logger *zap.Logger) *session.Manager {
	return session.NewManager(factory, machine, b, cache, tr, session.ReconnectConfig{}, logger)
}

func provideHub(logger *zap.Logger) *hub.Hub {
	return hub.New(logger)
}

func providePump(b *bus.Bus, h *hub.Hub, logger *zap.Logger) *httpapi.Pump {
	return httpapi.NewPump(b, h, logger)
}

func provideServer(manager *session.Manager, h *hub.Hub, cfg *config.Config, logger *zap.Logger) *httpapi.Server {
	return httpapi.New(manager, h, logger, cfg.PublicURL)
}

func registerLifecycle(lc fx.Lifecycle, p Params, cfg *config.Config, srv *httpapi.Server, pump *httpapi.Pump, manager *session.Manager, lk *lock.Lock, logger *zap.Logger) {
	addr := p.ListenAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Pump first, so no lifecycle event is missed by early
			// WebSocket subscribers.
			pump.Start()

			go func() {
				logger.Info("http server listening", zap.String("addr", addr))
				if err := srv.Start(addr); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()

			if err := manager.Start(context.Background()); err != nil {
				logger.Error("session bootstrap failed", zap.Error(err))
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			manager.Stop()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown error", zap.Error(err))
			}
			pump.Stop()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

package daemon

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/lbastos/axlink/internal/auth"
	"github.com/lbastos/axlink/internal/bus"
	"github.com/lbastos/axlink/internal/config"
	"github.com/lbastos/axlink/internal/frame"
	"github.com/lbastos/axlink/internal/lock"
	"github.com/lbastos/axlink/internal/logging"
	"github.com/lbastos/axlink/internal/outbox"
	"github.com/lbastos/axlink/internal/profile"
	"github.com/lbastos/axlink/internal/station"
	"github.com/lbastos/axlink/internal/status"
	"github.com/lbastos/axlink/internal/store"
	"github.com/lbastos/axlink/internal/timeline"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	// Radio is the injected transport collaborator. Left nil, the daemon
	// runs with the link down and queued transmissions fail until a
	// transport is attached by the embedding process.
	Radio outbox.FrameSender
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideDirectory,
			provideTimeline,
			provideTracker,
			provideHandler,
			provideEngine,
			provideWatcher,
			provideRadio,
			provideSender,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideConfig(logger *zap.Logger) *config.Config {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("unreadable config, using defaults", zap.Error(err))
		}
		return &config.Config{}
	}
	return cfg
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, b *bus.Bus, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	db.SetBus(b)
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideDirectory(p Params, logger *zap.Logger) (*station.Directory, error) {
	dir, err := station.Load(profile.StationsPath(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("station directory loaded", zap.Int("stations", dir.Len()))
	return dir, nil
}

func provideTimeline() *timeline.Timeline {
	return timeline.New()
}

func provideTracker(tl *timeline.Timeline, b *bus.Bus, logger *zap.Logger) *auth.Tracker {
	return auth.NewTracker(tl, b, logger)
}

func provideHandler(b *bus.Bus, machine *status.Machine, logger *zap.Logger) *frame.Handler {
	return frame.NewHandler(b, machine, logger)
}

func provideEngine(tl *timeline.Timeline, db *store.DB, b *bus.Bus, logger *zap.Logger) *frame.Engine {
	return frame.NewEngine(tl, db, b, logger)
}

func provideWatcher(p Params, cfg *config.Config, db *store.DB, b *bus.Bus, logger *zap.Logger) *store.Watcher {
	interval := store.DefaultWatchInterval
	if cfg.WatchIntervalMS > 0 {
		interval = time.Duration(cfg.WatchIntervalMS) * time.Millisecond
	}
	return store.NewWatcher(db, profile.DBPath(p.ProfileName), b, interval, logger)
}

func provideRadio(p Params) outbox.FrameSender {
	if p.Radio != nil {
		return p.Radio
	}
	return linkDownRadio{}
}

func provideSender(cfg *config.Config, db *store.DB, tl *timeline.Timeline, radio outbox.FrameSender, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, tl, radio, b, cfg.OperatorCallsign, logger)
}

// linkDownRadio rejects transmissions while no transport is attached.
type linkDownRadio struct{}

func (linkDownRadio) SendFrame(context.Context, string, string, string) error {
	return errors.New("radio link is down")
}

func registerLifecycle(lc fx.Lifecycle, p Params, lk *lock.Lock, db *store.DB, dir *station.Directory, engine *frame.Engine, tracker *auth.Tracker, watcher *store.Watcher, sender *outbox.Sender, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Ingestion first: it must be listening before the transport
			// delivers the first frame.
			engine.Start(context.Background())
			tracker.Start(context.Background())
			watcher.Start(context.Background())
			sender.Start(context.Background())

			_ = machine.Transition(status.Offline)
			logger.Info("daemon started", zap.String("profile", p.ProfileName))
			return nil
		},
		OnStop: func(_ context.Context) error {
			sender.Stop()
			watcher.Stop()
			tracker.Stop()
			engine.Stop()

			if err := station.Save(profile.StationsPath(p.ProfileName), dir); err != nil {
				logger.Warn("error saving station directory", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

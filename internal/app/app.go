// Package app assembles a causeway instance from its configuration: the metamodel with its
// postprocessors, the persistence session, beans, the object manager and memento support.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/cli/config"
	"github.com/causeway-lang/causeway/internal/demo/petclinic"
	"github.com/causeway-lang/causeway/internal/logging"
	"github.com/causeway-lang/causeway/internal/metamodel/events"
	"github.com/causeway-lang/causeway/internal/metamodel/i18n"
	"github.com/causeway-lang/causeway/internal/metamodel/layout"
	"github.com/causeway-lang/causeway/internal/metamodel/postprocessors"
	"github.com/causeway-lang/causeway/internal/metamodel/progmodel"
	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/specloader"
	"github.com/causeway-lang/causeway/internal/runtime/adapter"
	"github.com/causeway-lang/causeway/internal/runtime/cache"
	"github.com/causeway-lang/causeway/internal/runtime/memento"
	"github.com/causeway-lang/causeway/internal/runtime/persistence"
	"github.com/causeway-lang/causeway/internal/runtime/persistence/memory"
	"github.com/causeway-lang/causeway/internal/runtime/persistence/sqlstore"
	"github.com/causeway-lang/causeway/internal/runtime/services"
)

// Domain registers the domain types; repo backs beans that store entities
type Domain func(reg *schema.Registry, repo *adapter.Repository) error

// Petclinic is the demo domain
func Petclinic(reg *schema.Registry, repo *adapter.Repository) error {
	return petclinic.Register(reg, repo)
}

// App is a wired causeway instance
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Bus          *events.Bus
	Registry     *schema.Registry
	Loader       *specloader.Loader
	Translations *i18n.Service
	Layouts      *layout.Source
	Refresher    *layout.Refresher
	Session      persistence.Session
	Beans        *services.Registry
	Objects      *adapter.ObjectManager
	Mementos     *memento.Support

	mu      sync.Mutex
	closers []func() error
}

// New builds the metamodel for domain and wires the runtime according to cfg. With
// metamodel.validate_on_startup set, metamodel validation failures are returned; otherwise they
// are logged and the instance starts anyway.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, domain Domain) (*App, error) {
	logger = logging.OrNop(logger)
	a := &App{Config: cfg, Logger: logger}

	a.Bus = events.NewBus(logger.Named("events"))
	a.Bus.Subscribe("*", 100, a.audit)

	a.Registry = schema.NewRegistry()
	repo := &adapter.Repository{}
	if err := domain(a.Registry, repo); err != nil {
		return nil, fmt.Errorf("failed to register domain: %w", err)
	}

	a.Translations = i18n.NewService(cfg.Metamodel.TranslationsDir, cfg.Metamodel.Tag(), logger)
	if err := a.Translations.Load(); err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}
	translation := postprocessors.Translation{Translator: a.Translations}
	a.Layouts = layout.NewSource(cfg.Metamodel.LayoutDir)

	a.Loader = specloader.NewLoader(a.Registry, progmodel.Default(logger, a.Bus), specloader.Config{
		IgnoredPackages: cfg.Metamodel.IgnoredPackages,
		Postprocessors: []specloader.Postprocessor{
			postprocessors.Naming{},
			layout.NewPostprocessor(a.Layouts, logger),
			translation,
		},
		Validators: []specloader.Validator{postprocessors.ReferenceValidator{}},
		Logger:     logger,
	})
	if err := a.Loader.CreateMetaModel(ctx); err != nil {
		if cfg.Metamodel.ValidateOnStartup {
			return nil, err
		}
		logger.Warn("metamodel has validation failures", zap.Error(err))
	}
	a.Refresher = layout.NewRefresher(a.Layouts, a.Loader, logger, translation)

	session, err := a.openSession(ctx)
	if err != nil {
		return nil, err
	}
	a.Session = session

	a.Beans = services.NewRegistry()
	if created := a.Beans.Instantiate(a.Loader.AllSpecifications()); len(created) > 0 {
		logger.Debug("beans instantiated", zap.Strings("beans", created))
	}
	a.Objects = adapter.NewObjectManager(a.Loader, a.Session, a.Beans, logger)
	repo.Objects = a.Objects

	store, err := a.openStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Mementos = memento.NewSupport(a.Objects, store, logger)

	logger.Info("causeway ready",
		zap.Int("specifications", len(a.Loader.AllSpecifications())),
		zap.String("persistence", cfg.Persistence.Driver),
		zap.String("memento_store", cfg.Memento.Store))
	return a, nil
}

func (a *App) audit(e *events.Event) error {
	if e.Phase == events.PhaseExecuted {
		a.Logger.Info("executed", zap.String("event", e.Name), zap.Stringer("feature", e.Identifier))
	}
	return nil
}

func (a *App) openSession(ctx context.Context) (persistence.Session, error) {
	p := a.Config.Persistence
	if p.Driver == config.DriverMemory {
		return memory.NewSession(), nil
	}

	storeConfig := sqlstore.Config{Driver: p.Driver, DSN: p.DSN, Table: p.Table}
	if p.RetryAttempts > 1 {
		storeConfig.Retry = sqlstore.RetryConfig{MaxAttempts: p.RetryAttempts, BaseBackoff: sqlstore.DefaultRetryConfig().BaseBackoff}
	}
	store, err := sqlstore.Open(ctx, storeConfig, a.Logger)
	if err != nil {
		return nil, err
	}
	a.onClose(store.Close)
	return store, nil
}

func (a *App) openStore(ctx context.Context) (memento.Store, error) {
	m := a.Config.Memento
	switch m.Store {
	case config.StoreCache:
		c := cache.NewMemoryCache(cache.Config{DefaultTTL: m.TTL, Prefix: m.Redis.Prefix}, time.Minute)
		a.onClose(c.Close)
		return memento.NewCacheStore(c, m.TTL), nil
	case config.StoreRedis:
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     m.Redis.Addr,
			Password: m.Redis.Password,
			DB:       m.Redis.DB,
			Config:   cache.Config{DefaultTTL: m.TTL, Prefix: m.Redis.Prefix},
		})
		if err != nil {
			return nil, err
		}
		a.onClose(c.Close)
		return memento.NewCacheStore(c, m.TTL), nil
	default:
		s := memento.NewInstanceStore(m.TTL, time.Minute)
		a.onClose(s.Close)
		return s, nil
	}
}

// WatchLayouts refreshes layouts as their files change and reports the refreshed logical type
// names, and any layout that failed to apply, to notify. The watcher stops on Close.
func (a *App) WatchLayouts(notify func(types []string, err error)) (*layout.Watcher, error) {
	w, err := layout.NewWatcher(a.Config.Metamodel.LayoutDir, layout.DefaultDebounce, a.Logger, func(files []string) error {
		refreshed, err := a.Refresher.Refresh(files)
		if notify != nil && (len(refreshed) > 0 || err != nil) {
			notify(refreshed, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return nil, err
	}
	a.onClose(w.Stop)
	return w, nil
}

func (a *App) onClose(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Close releases stores, caches and watchers in reverse order of creation
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

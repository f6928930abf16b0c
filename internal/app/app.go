package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dbchat-backend/internal/data/db"
	"github.com/yungbote/dbchat-backend/internal/http"
	"github.com/yungbote/dbchat-backend/internal/observability"
	"github.com/yungbote/dbchat-backend/internal/platform/logger"
	"github.com/yungbote/dbchat-backend/internal/realtime"
	"github.com/yungbote/dbchat-backend/internal/realtime/bus"
)

// Version is stamped at build time.
var Version = "dev"

const (
	pollWriteSlack  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Cfg       Config
	Repos     Repos
	Services  Services
	Server    *http.Server
	Watermark *realtime.Watermark
	Bus       bus.Bus

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(context.Background(), log, cfg.OtelOptions(Version))

	pg, err := openDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	theDB := pg.DB()

	watermark := realtime.NewWatermark(log)

	var eventBus bus.Bus
	if cfg.Redis.Addr != "" {
		eventBus, err = bus.NewRedisBus(log, bus.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			_ = pg.Close()
			log.Sync()
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
	} else {
		log.Info("REDIS_ADDR not set; watermark is process-local")
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, watermark, eventBus)
	handlerset := wireHandlers(log, theDB, cfg, serviceset)
	middleware := wireMiddleware(log, cfg, serviceset)

	// Writes must outlive the longest poll.
	writeTimeout := cfg.Chat.PollTimeout + pollWriteSlack
	server := http.NewServer(routerConfig(log, cfg, handlerset, middleware), cfg.HTTP.Addr, writeTimeout)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		Watermark:    watermark,
		Bus:          eventBus,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Migrate opens the database, migrates it and closes it again.
func Migrate(cfg Config) error {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	pg, err := openDB(log, cfg)
	if err != nil {
		return err
	}
	return pg.Close()
}

func openDB(log *logger.Logger, cfg Config) (*db.PostgresService, error) {
	pg, err := db.NewPostgresService(log, cfg.DBOptions())
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	return pg, nil
}

// Start launches background work. Bus events from other instances advance the
// local watermark.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Bus != nil {
		err := a.Bus.StartForwarder(ctx, func(ev bus.WatermarkEvent) {
			a.Watermark.Advance(ev.MessageID)
		})
		if err != nil {
			a.Log.Warn("Watermark forwarder failed to start", "error", err)
		}
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTP.Addr)
	return a.Server.Run()
}

func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("Bus close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

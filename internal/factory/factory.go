// Package factory wires the application together.
package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/typerush/typerush/internal/api"
	"github.com/typerush/typerush/internal/api/handler"
	"github.com/typerush/typerush/internal/config"
	"github.com/typerush/typerush/internal/dependencies/clock"
	"github.com/typerush/typerush/internal/dependencies/random"
	"github.com/typerush/typerush/internal/locker"
	"github.com/typerush/typerush/internal/metrics"
	"github.com/typerush/typerush/internal/realtime"
	"github.com/typerush/typerush/internal/services/auth"
	"github.com/typerush/typerush/internal/services/content"
	"github.com/typerush/typerush/internal/services/finish"
	"github.com/typerush/typerush/internal/services/lifecycle"
	"github.com/typerush/typerush/internal/services/matchmaker"
	"github.com/typerush/typerush/internal/services/participant"
	"github.com/typerush/typerush/internal/storage"
	"github.com/typerush/typerush/internal/storage/memory"
	redisstorage "github.com/typerush/typerush/internal/storage/redis"
	"github.com/typerush/typerush/internal/storage/sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	ContentService      *content.Service
	ParticipantManager  *participant.Manager
	LifecycleController *lifecycle.Controller
	FinishArbiter       *finish.Arbiter
	Matchmaker          *matchmaker.Service
	AuthService         *auth.Service

	// Realtime fanout
	HubManager  *realtime.HubManager
	Broadcaster *realtime.Broadcaster

	// Observability
	Metrics *metrics.Metrics

	// HTTP surface
	RaceHandler *handler.RaceHandler
	Router      http.Handler
}

// New creates a new application with all dependencies wired. The logger is
// optional; if nil, a no-op logger is used.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	switch cfg.Storage {
	case config.StorageMemory, "":
		store = memory.New()
	case config.StorageRedis:
		rcfg := redisstorage.DefaultConfig()
		rcfg.URL = cfg.RedisURL
		rcfg.RaceTTL = cfg.RaceTTL()
		rcfg.ParticipantTTL = cfg.RaceTTL()
		redisStore, err := redisstorage.New(rcfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		store = redisStore
	case config.StorageSQLite:
		sqliteStore, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite database: %w", err)
		}
		store = sqliteStore
	default:
		return nil, errors.New("invalid storage backend: must be 'memory', 'redis', or 'sqlite'")
	}

	app := newWithDependencies(store, clock.New(), random.New(), cfg, logger)

	if cfg.WordFile != "" {
		if err := app.ContentService.LoadFromFile(context.Background(), cfg.WordFile); err != nil {
			return nil, fmt.Errorf("loading word file %s: %w", cfg.WordFile, err)
		}
	}

	return app, nil
}

// hubSweepInterval is how often empty hubs are reaped
const hubSweepInterval = time.Minute

// scheduleHubSweep reaps hubs whose subscribers have all disconnected,
// rescheduling itself after each sweep. Hubs for finished races disappear
// once their last client goes away.
func scheduleHubSweep(clk clock.Clock, hubs *realtime.HubManager) {
	clk.AfterFunc(hubSweepInterval, func() {
		hubs.CleanupEmptyHubs()
		scheduleHubSweep(clk, hubs)
	})
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg *config.Config, logger *slog.Logger) *App {
	lock := locker.New()

	contentService := content.New(rnd, cfg.WordCount)
	participantManager := participant.NewManager(store, lock, clk, rnd, logger)
	lifecycleController := lifecycle.NewController(store, lock, clk, logger)
	finishArbiter := finish.NewArbiter(store, lock, lifecycleController, clk, logger)
	m := metrics.New()
	matchmakerService := matchmaker.NewService(store, contentService, participantManager, clk, rnd, cfg.MaxPlayers, m, logger)
	authService := auth.NewService(store, clk, cfg.SessionDuration(), logger)

	hubManager := realtime.NewHubManager(logger)
	broadcaster := realtime.NewBroadcaster(hubManager, clk, logger)
	scheduleHubSweep(clk, hubManager)

	raceHandler := handler.NewRaceHandler(handler.RaceHandlerConfig{
		Storage:          store,
		Matchmaker:       matchmakerService,
		Participants:     participantManager,
		Lifecycle:        lifecycleController,
		Arbiter:          finishArbiter,
		HubManager:       hubManager,
		Broadcaster:      broadcaster,
		Metrics:          m,
		Clock:            clk,
		Logger:           logger,
		CountdownSeconds: cfg.CountdownSeconds,
	})

	router := api.NewRouter(api.RouterConfig{
		Logger:      logger,
		AuthService: authService,
		RaceHandler: raceHandler,
		Metrics:     m,
	})

	return &App{
		Storage:             store,
		Clock:               clk,
		Random:              rnd,
		ContentService:      contentService,
		ParticipantManager:  participantManager,
		LifecycleController: lifecycleController,
		FinishArbiter:       finishArbiter,
		Matchmaker:          matchmakerService,
		AuthService:         authService,
		HubManager:          hubManager,
		Broadcaster:         broadcaster,
		Metrics:             m,
		RaceHandler:         raceHandler,
		Router:              router,
	}
}

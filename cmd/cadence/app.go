package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/cadence/internal/api"
	"github.com/phrazzld/cadence/internal/config"
	"github.com/phrazzld/cadence/internal/domain"
	"github.com/phrazzld/cadence/internal/domain/srs"
	"github.com/phrazzld/cadence/internal/events"
	"github.com/phrazzld/cadence/internal/platform/billing"
	"github.com/phrazzld/cadence/internal/platform/postgres"
	"github.com/phrazzld/cadence/internal/platform/redis"
	"github.com/phrazzld/cadence/internal/service/auth"
	"github.com/phrazzld/cadence/internal/service/scheduling"
	statsvc "github.com/phrazzld/cadence/internal/service/stats"
	"github.com/phrazzld/cadence/internal/store"
)

// application holds the shared dependencies of the server so they can be
// wired once and released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	engine     scheduling.Engine
	recorder   *scheduling.Recorder
	stats      *statsvc.Service
	jwtService auth.JWTService
	emitter    *events.InMemoryEventEmitter

	billingClient *billing.Client
	subscriber    *redis.Subscriber
}

// storage bundles the stores the engine runs on.
type storage struct {
	tx        store.Transactor
	schedules store.ScheduleStore
	history   store.HistoryStore
}

func postgresStorage(db *sql.DB, logger *slog.Logger) storage {
	return storage{
		tx:        postgres.NewTransactor(db, logger),
		schedules: postgres.NewPostgresScheduleStore(db, logger),
		history:   postgres.NewPostgresHistoryStore(db, logger),
	}
}

// newApplication wires every service on top of st. db may be nil when st
// does not need one.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB, st storage) (*application, error) {
	app := &application{config: cfg, logger: logger, db: db}

	srsService, err := buildSRSService(cfg.Scheduler)
	if err != nil {
		return nil, err
	}

	tiers, err := app.buildTierResolver()
	if err != nil {
		return nil, err
	}

	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.recorder = scheduling.NewRecorder(st.history, nil, logger)
	app.engine = scheduling.NewEngine(st.tx, st.schedules, app.recorder, srsService, tiers, logger)
	app.stats = statsvc.NewService(app.recorder, logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(scheduling.NewItemLifecycleHandler(app.engine, logger))

	logger.Info("application initialized",
		slog.Bool("billing_service", app.billingClient != nil),
		slog.Int("intervals_configured", len(cfg.Scheduler.Intervals)))
	return app, nil
}

// buildSRSService builds the scheduling algorithm from the configured tables.
func buildSRSService(cfg config.SchedulerConfig) (srs.Service, error) {
	policy, err := srs.NewIntervalPolicyFromNames(cfg.Intervals)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler.intervals: %w", err)
	}
	return srs.NewServiceWithPolicy(policy), nil
}

// buildTierResolver uses the billing service when one is configured and
// otherwise gives every user the default tier.
func (app *application) buildTierResolver() (scheduling.TierResolver, error) {
	cfg := app.config.Billing
	defaultTier, err := domain.ParseTier(cfg.DefaultTier)
	if err != nil {
		return nil, fmt.Errorf("invalid billing.default_tier: %w", err)
	}
	if cfg.BaseURL == "" {
		return billing.NewStaticResolver(defaultTier), nil
	}
	app.billingClient = billing.NewClient(cfg.BaseURL,
		time.Duration(cfg.TimeoutSeconds)*time.Second, defaultTier, app.logger)
	return app.billingClient, nil
}

func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterDeps{
		Reviews:       api.NewReviewHandler(app.engine, nil, app.logger),
		History:       api.NewHistoryHandler(app.recorder, app.logger),
		Stats:         api.NewStatsHandler(app.stats, nil, app.logger),
		ItemEvents:    api.NewItemEventHandler(app.emitter, app.logger),
		JWTService:    app.jwtService,
		InternalToken: app.config.Auth.InternalToken,
		Logger:        app.logger,
	})
}

// startSubscriber connects to Redis when an address is configured and
// forwards item events until ctx is done.
func (app *application) startSubscriber(ctx context.Context) error {
	cfg := app.config.Events
	if cfg.RedisAddr == "" {
		return nil
	}
	sub, err := redis.NewSubscriber(ctx, cfg.RedisAddr, cfg.Channel, app.emitter, app.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.subscriber = sub

	go func() {
		if err := sub.Run(ctx); err != nil {
			app.logger.Error("item event subscription stopped", "error", err)
		}
	}()
	return nil
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	if app.subscriber != nil {
		if err := app.subscriber.Close(); err != nil {
			app.logger.Error("error closing redis subscriber", "error", err)
		}
	}
	if app.billingClient != nil {
		if err := app.billingClient.Close(); err != nil {
			app.logger.Error("error closing billing client", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
}

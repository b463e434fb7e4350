package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"competency/internal/domain/assessment"
	"competency/internal/domain/cycle"
	"competency/internal/domain/escalation"
	"competency/internal/domain/notifications"
	"competency/internal/domain/reminders"
	"competency/internal/platform/config"
	"competency/internal/platform/db"
	"competency/internal/platform/email"
	"competency/internal/platform/jobs"
	"competency/internal/platform/metrics"
	"competency/migrations"
)

type App struct {
	Config      config.Config
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Router      http.Handler
	Assessments *assessment.Service
	Publisher   *notifications.TransitionPublisher
	Runner      *reminders.Runner
	Jobs        *jobs.Service
	Metrics     *metrics.Collector
}

// New connects to Postgres, applies migrations and seed data as configured,
// and wires the engine.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Engine.Location()
	if err != nil {
		return nil, err
	}
	esc, err := escalation.NewPolicy(escalation.Config{
		ManagerAfterDays: cfg.Engine.ManagerAfterDays,
		HRAfterDays:      cfg.Engine.HRAfterDays,
		Location:         loc,
	})
	if err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	app := &App{Config: cfg, DB: pool, Metrics: metrics.New()}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, migrationsFS(cfg)); err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if _, err := db.Seed(ctx, pool, cfg); err != nil {
			app.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	assessmentStore := assessment.NewStore(pool)
	cycleStore := cycle.NewStore(pool)
	notificationStore := notifications.NewStore(pool)

	ledger, err := app.ledger(ctx, notificationStore)
	if err != nil {
		app.Close()
		return nil, err
	}

	inbox := notifications.New(notificationStore, email.New(cfg)).WithRateLimit(cfg.EmailRatePerSecond)
	inbox.DefaultFrom = cfg.EmailFrom

	dispatcher := notifications.NewDispatcher(inbox, ledger, notificationStore, app.Metrics, notifications.DispatcherConfig{
		MaxAttempts: cfg.Engine.DispatchMaxAttempts,
		BaseBackoff: cfg.Engine.DispatchBaseBackoff,
		MaxBackoff:  cfg.Engine.DispatchMaxBackoff,
		SendTimeout: cfg.Engine.DispatchSendTimeout,
	})
	policy := notifications.NewPolicy(cfg.Engine.NormalReminderIntervalDays)
	app.Publisher = notifications.NewTransitionPublisher(policy, esc, cycleStore, dispatcher).
		WithAsync(cfg.Engine.TransitionNotifyTimeout)

	app.Assessments = assessment.NewService(assessmentStore, cycleStore, assessment.NewRatingPolicy(cfg.Engine.RequireCommentsForExtremes), app.Publisher)
	app.Runner = reminders.NewRunner(assessmentStore, cycleStore, esc, policy, dispatcher, app.Metrics, reminders.Config{
		Timeout:     cfg.Engine.ReminderTickTimeout,
		Concurrency: cfg.Engine.TickConcurrency,
	})
	app.Jobs = jobs.New(jobs.NewStore(pool), app.Runner, cfg.Engine.ReminderInterval)

	app.Router = NewRouter(Deps{
		Config:      cfg,
		Location:    loc,
		Assessments: app.Assessments,
		Snapshots:   assessmentStore,
		Cycles:      cycleStore,
		Escalation:  esc,
		Inbox:       inbox,
		Failures:    notificationStore,
		Reminders:   app.Jobs,
		Metrics:     app.Metrics,
		Ready:       pool.Ping,
	})
	return app, nil
}

func (a *App) ledger(ctx context.Context, store *notifications.Store) (notifications.Ledger, error) {
	switch a.Config.LedgerBackend {
	case config.LedgerRedis:
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return notifications.NewRedisLedger(a.Redis, a.Config.LedgerTTL), nil
	case config.LedgerMemory:
		slog.Warn("using in-memory notification ledger; duplicates are possible after restart")
		return notifications.NewMemoryLedger(), nil
	default:
		return store, nil
	}
}

func migrationsFS(cfg config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return migrations.FS
}

// Serve starts the scheduler and the HTTP server and blocks until ctx is
// cancelled, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	a.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("competency server listening", "addr", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.Publisher.Wait()
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Warn("redis close failed", "err", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

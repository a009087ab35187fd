// Package main is the entry point of the FlexBreak progression engine.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: progression rules without external dependencies
// - Application: command/query orchestration over the aggregate
// - Infrastructure: Postgres, Redis, scheduler, event bus
// - Interface: HTTP API
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/crisnc100/FlexBreak-sub005/config"

	// Application layer
	"github.com/crisnc100/FlexBreak-sub005/internal/application/command"
	"github.com/crisnc100/FlexBreak-sub005/internal/application/query"

	// Domain layer
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/challenge"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/progress"
	"github.com/crisnc100/FlexBreak-sub005/internal/domain/routine"

	// Infrastructure layer
	"github.com/crisnc100/FlexBreak-sub005/internal/infrastructure/messaging"
	"github.com/crisnc100/FlexBreak-sub005/internal/infrastructure/persistence/memory"
	"github.com/crisnc100/FlexBreak-sub005/internal/infrastructure/persistence/postgres"
	redisCache "github.com/crisnc100/FlexBreak-sub005/internal/infrastructure/persistence/redis"
	"github.com/crisnc100/FlexBreak-sub005/internal/infrastructure/scheduler"
	"github.com/crisnc100/FlexBreak-sub005/internal/infrastructure/scheduler/jobs"

	// Interface layer
	httpserver "github.com/crisnc100/FlexBreak-sub005/internal/interface/http"

	// Packages
	"github.com/crisnc100/FlexBreak-sub005/pkg/logger"
	"github.com/crisnc100/FlexBreak-sub005/pkg/timeutil"
)

// defaultUserID identifies the single on-device user's rows when the engine
// runs against shared storage.
const defaultUserID = "default"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{Level: logger.ParseLevel(cfg.Observability.LogLevel)})
	log.Info("starting FlexBreak progression engine",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone))

	cal := timeutil.NewCalendar(cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. PERSISTENCE
	// ─────────────────────────────────────────────────────────────────────────
	var (
		store       progress.Store
		routineLog  routine.Log
		healthDeps  = make(map[string]query.Pinger)
		dbConn      *postgres.Connection
	)

	if cfg.Database.Disabled || cfg.Database.URL == "" {
		log.Warn("database disabled, using in-memory stores")
		memStore := memory.NewProgressStore()
		store = memStore
		routineLog = memory.NewRoutineLog()
		healthDeps["store"] = memStore
	} else {
		log.Info("connecting to database...")
		dbConn, err = postgres.NewConnection(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if cfg.Database.AutoMigrate {
			log.Info("running database migrations...")
			if err := postgres.NewMigrator(dbConn).Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		store = postgres.NewProgressStore(dbConn, defaultUserID)
		routineLog = postgres.NewRoutineLog(dbConn, defaultUserID)
		healthDeps["postgres"] = dbConn
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ROUTINE LOG CACHE (Redis, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var cachedLog routine.CachedLog
	if !cfg.Redis.Disabled && dbConn != nil {
		log.Info("connecting to Redis...")
		redisCfg := redisCache.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout
		redisCfg.CacheTTL = cfg.Redis.CacheTTL

		client := redisCache.NewClient(redisCfg)
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
		} else {
			defer client.Close()
			cachedLog = redisCache.NewRoutineCache(client, routineLog, defaultUserID, redisCfg.CacheTTL, log)
			log.Info("Redis connection established")
		}
	}
	if cachedLog == nil {
		cachedLog = passthroughLog{routineLog}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. DOMAIN SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing progression engine...")

	ledger := progress.NewXPLedger(ledgerConfig(cfg.Engine))
	levels := progress.NewLevelCalculator(progress.DefaultLevelTable())
	streaks := progress.NewStreakTracker(streakConfig(cfg.Engine), cal)

	achievementCatalog, err := progress.DefaultAchievementCatalog()
	if err != nil {
		return fmt.Errorf("failed to load achievement catalog: %w", err)
	}
	achievements := progress.NewAchievementTracker(achievementCatalog)

	rewardCatalog, err := progress.DefaultRewardCatalog()
	if err != nil {
		return fmt.Errorf("failed to load reward catalog: %w", err)
	}
	rewards := progress.NewRewardUnlocker(rewardCatalog)

	templates, err := challenge.DefaultPool()
	if err != nil {
		return fmt.Errorf("failed to load challenge templates: %w", err)
	}
	engineCfg := challengeConfig(cfg.Engine, cfg.Features)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	challenges := challenge.NewEngine(engineCfg, cal, templates, rng)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	bus := messaging.NewInMemoryEventBus(messaging.DefaultConfig(log))
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	facade := command.NewFacade(command.Deps{
		Store:        store,
		Routines:     cachedLog,
		Ledger:       ledger,
		Levels:       levels,
		Streaks:      streaks,
		Achievements: achievements,
		Rewards:      rewards,
		Challenges:   challenges,
		Calendar:     cal,
		Bus:          bus,
		Logger:       log,
	})
	queries := query.NewService(store, levels, cal, log)

	// Catch up on anything that happened while the engine was down: streak
	// breaks and challenge cycles that rolled over.
	if _, err := facade.ValidateStreak(ctx); err != nil {
		log.Warn("startup streak validation failed", logger.Err(err))
	}
	if _, _, err := facade.RefreshChallenges(ctx); err != nil {
		log.Warn("startup challenge refresh failed", logger.Err(err))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(scheduler.Config{
			Location:          cfg.App.Location,
			RolloverHour:      cfg.Scheduler.RolloverHour,
			RolloverMinute:    cfg.Scheduler.RolloverMinute,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			JobTimeout:        cfg.Scheduler.JobTimeout,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}

		refreshJob := &jobs.ChallengeRefresh{Facade: facade}
		if err := sched.Every(cfg.Scheduler.ChallengeRefreshInterval, refreshJob); err != nil {
			return err
		}
		if err := sched.Daily(refreshJob); err != nil {
			return err
		}
		if err := sched.Every(cfg.Scheduler.FlexSaveGrantInterval, &jobs.FlexSaveGrant{Facade: facade}); err != nil {
			return err
		}
		if err := sched.Every(cfg.Scheduler.StreakCheckInterval, &jobs.StreakCheck{Facade: facade}); err != nil {
			return err
		}

		sched.Start()
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout

	server := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		Facade:     facade,
		Queries:    queries,
		HealthDeps: healthDeps,
		Logger:     log,
	})
	serverErr := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", logger.Err(err))
	}

	log.Info("engine stopped")
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Config adapters
// ─────────────────────────────────────────────────────────────────────────────

func ledgerConfig(e config.EngineConfig) progress.LedgerConfig {
	cfg := progress.DefaultLedgerConfig()
	cfg.ShortMinutes = e.ShortRoutineMaxMinutes
	cfg.MediumMinutes = e.MediumRoutineMaxMinutes
	cfg.ShortXP = e.ShortRoutineXP
	cfg.MediumXP = e.MediumRoutineXP
	cfg.LongXP = e.LongRoutineXP
	cfg.WelcomeBonusXP = e.WelcomeBonusXP
	cfg.HistoryCap = e.XPHistoryCap
	return cfg
}

func streakConfig(e config.EngineConfig) progress.StreakConfig {
	cfg := progress.DefaultStreakConfig()
	cfg.GrantPeriod = e.FlexSaveGrantPeriod
	cfg.MaxFlexSaves = e.MaxFlexSaves
	cfg.MinStreakToSave = e.MinStreakToSave
	return cfg
}

func challengeConfig(e config.EngineConfig, ff *config.FeatureFlags) challenge.Config {
	cfg := challenge.DefaultConfig()
	cfg.PopulationTargets[challenge.CategoryDaily] = e.DailyTarget
	cfg.PopulationTargets[challenge.CategoryWeekly] = e.WeeklyTarget
	cfg.PopulationTargets[challenge.CategoryMonthly] = e.MonthlyTarget
	cfg.PopulationTargets[challenge.CategorySpecial] = e.SpecialTarget
	cfg.RedemptionPeriods[challenge.CategoryDaily] = e.DailyRedemption
	cfg.RedemptionPeriods[challenge.CategoryWeekly] = e.WeeklyRedemption
	cfg.RedemptionPeriods[challenge.CategoryMonthly] = e.MonthlyRedemption
	cfg.RedemptionPeriods[challenge.CategorySpecial] = e.SpecialRedemption
	cfg.MaxDailyClaims = e.MaxDailyClaims
	cfg.MaxDailyClaimXP = e.MaxDailyClaimXP

	// A disabled category generates nothing; live challenges still expire
	// and get claimed normally.
	flagByCategory := map[challenge.Category]string{
		challenge.CategoryDaily:   config.FeatureChallengesDaily,
		challenge.CategoryWeekly:  config.FeatureChallengesWeekly,
		challenge.CategoryMonthly: config.FeatureChallengesMonthly,
		challenge.CategorySpecial: config.FeatureChallengesSpecial,
	}
	for cat, flag := range flagByCategory {
		if !ff.IsEnabled(flag) {
			cfg.PopulationTargets[cat] = 0
		}
	}
	return cfg
}

// passthroughLog adapts a plain routine.Log to routine.CachedLog when no
// cache layer is configured.
type passthroughLog struct {
	routine.Log
}

func (passthroughLog) Invalidate(ctx context.Context) {}

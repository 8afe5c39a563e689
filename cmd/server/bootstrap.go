package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/upskeel/lms/internal/api"
	"github.com/upskeel/lms/internal/app"
	"github.com/upskeel/lms/internal/app/maintenance"
	iauth "github.com/upskeel/lms/internal/auth"
	"github.com/upskeel/lms/internal/cache"
	"github.com/upskeel/lms/internal/database"
	"github.com/upskeel/lms/internal/events"
	"github.com/upskeel/lms/internal/middleware"
	"github.com/upskeel/lms/internal/models"
	"github.com/upskeel/lms/internal/monitoring"
	"github.com/upskeel/lms/internal/monitoring/checks"
	"github.com/upskeel/lms/internal/notifications"
	"github.com/upskeel/lms/pkg/logger"
	"github.com/upskeel/lms/pkg/mail"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Redis      *cache.RedisStore
	Events     events.Publisher
	Dispatcher *notifications.Dispatcher
	Monitoring *monitoring.Module
	Services   *app.Services
	Cleaner    *maintenance.Cleaner
	RateStore  middleware.RateStore
	Router     *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	models.SetNodeID(cfg.Server.NodeID)

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if seed, ok := cfg.Seed.AdminSeed(); ok {
		created, seedErr := database.SeedAdmin(stack.DB, seed)
		if seedErr != nil {
			return nil, fmt.Errorf("seed admin: %w", seedErr)
		}
		if created {
			log.Info("bootstrap admin created", zap.String("email", seed.Email))
		}
	}

	dbStore := cache.NewDatabaseStore(stack.DB)

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisStore(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(err))
			stack.Redis = nil
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	stack.Events = events.NopPublisher{}
	if cfg.Events.Kafka.Enabled {
		publisher, kafkaErr := events.NewKafkaPublisher(cfg.Events.KafkaSettings())
		if kafkaErr != nil {
			return nil, fmt.Errorf("initialise event publisher: %w", kafkaErr)
		}
		stack.Events = publisher
		log.Info("kafka publisher ready", zap.Strings("brokers", cfg.Events.Kafka.Brokers))
	}

	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}
	stack.Dispatcher, err = notifications.NewDispatcher(mailer, cfg.Notifications.DispatcherOptions())
	if err != nil {
		return nil, fmt.Errorf("initialise notification dispatcher: %w", err)
	}
	stack.Dispatcher.Start()

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Services, err = app.NewServices(stack.DB, jwtSvc, cfg, app.ServiceDeps{
		Notifier: stack.Dispatcher,
		Events:   stack.Events,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise services: %w", err)
	}

	stack.Monitoring, err = monitoring.NewModule(monitoring.Options{})
	if err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)
	registerHealthChecks(stack, dbStore, cfg)

	stack.Cleaner = maintenance.NewCleaner(
		stack.Services.Credentials,
		stack.Services.Audit,
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithCachePurger(dbStore),
		maintenance.WithRecorder(stack.Monitoring.Jobs()),
		maintenance.WithSchedules(cfg.Maintenance.TokenSchedule, cfg.Maintenance.AuditSchedule, cfg.Maintenance.CacheSchedule),
	)
	if cfg.Maintenance.Enabled {
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	switch {
	case stack.Redis != nil:
		stack.RateStore = middleware.NewCacheRateStore(stack.Redis)
	default:
		stack.RateStore = middleware.NewCacheRateStore(dbStore)
	}

	stack.Router, err = api.NewRouter(cfg, jwtSvc, stack.Services, api.RouterOptions{
		RateStore:  stack.RateStore,
		Monitoring: stack.Monitoring,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

func registerHealthChecks(stack *runtimeStack, dbStore *cache.DatabaseStore, cfg *app.Config) {
	health := stack.Monitoring.Health()
	health.SetTimeout(cfg.Monitoring.Health.Timeout)

	health.RegisterReadiness(checks.Database(stack.DB, cfg.Monitoring.Health.Timeout))
	if stack.Redis != nil {
		health.RegisterReadiness(checks.Cache("redis", stack.Redis, cfg.Monitoring.Health.Timeout))
	} else {
		health.RegisterReadiness(checks.Cache("database", dbStore, cfg.Monitoring.Health.Timeout))
	}
	health.RegisterReadiness(checks.Notifications(stack.Dispatcher))
	if cfg.Maintenance.Enabled {
		health.RegisterReadiness(checks.Maintenance(stack.Monitoring.Jobs(), 0))
	}
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	var errs error
	if s.Dispatcher != nil {
		errs = multierr.Append(errs, s.Dispatcher.Stop(ctx))
	}
	if s.Events != nil {
		errs = multierr.Append(errs, s.Events.Close())
	}
	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
	}
	if s.DB != nil {
		errs = multierr.Append(errs, database.Close(s.DB))
	}

	for _, err := range multierr.Errors(errs) {
		log.Warn("shutdown", zap.Error(err))
	}
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseSettings()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

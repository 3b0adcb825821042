package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ebingo-service/internal/api/http"
	"github.com/spec-kit/ebingo-service/internal/api/http/handlers"
	"github.com/spec-kit/ebingo-service/internal/auth"
	"github.com/spec-kit/ebingo-service/internal/clock"
	"github.com/spec-kit/ebingo-service/internal/config"
	"github.com/spec-kit/ebingo-service/internal/events"
	"github.com/spec-kit/ebingo-service/internal/observability"
	"github.com/spec-kit/ebingo-service/internal/persistence"
	"github.com/spec-kit/ebingo-service/internal/repository"
	"github.com/spec-kit/ebingo-service/internal/service"
	"github.com/spec-kit/ebingo-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App, "api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	venue := clock.NewVenue(cfg.Schedule.Timezone)
	logger.Info("venue clock", zap.String("location", venue.Location().String()))

	pool := pg.PoolHandle()
	branchRepo := repository.NewBranchRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)
	visitRepo := repository.NewVisitRepository(pool)
	sessionRepo := repository.NewSessionRepository(redis.ClientHandle())
	scheduleCache := repository.NewScheduleCache(redis.ClientHandle())

	scheduleService := service.NewScheduleService(service.ScheduleDependencies{
		BranchRepo: branchRepo,
		Cache:      scheduleCache,
		Clock:      venue,
		Location:   venue.Location(),
		CacheTTL:   cfg.Schedule.CacheTTL(),
		Logger:     logger,
	})
	branchService := service.NewBranchService(service.BranchDependencies{
		BranchRepo:  branchRepo,
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Schedules:   scheduleService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Logger:      logger,
	})
	userService := service.NewUserService(userRepo, branchRepo, cfg.Auth.BcryptCost)
	memberService := service.NewMemberService(service.MemberDependencies{
		MemberRepo: memberRepo,
		VisitRepo:  visitRepo,
		Clock:      venue,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	worker.StartNotificationWorker(ctx,
		service.NewNotificationService(dispatcher, logger, cfg.Notification),
		worker.NewWindowWatcher(branchService, scheduleService, dispatcher, logger),
		cfg.Schedule.WatchInterval(),
	)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())
	hoursGuard := auth.NewHoursGuard(scheduleService, logger, metrics)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Branches:       handlers.NewBranchesHandler(branchService, scheduleService),
		Users:          handlers.NewUsersHandler(userService),
		Members:        handlers.NewMembersHandler(memberService),
		AuthMiddleware: authMiddleware,
		HoursGuard:     hoursGuard,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

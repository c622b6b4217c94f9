package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"career-quest/config"
	"career-quest/gamification"
	"career-quest/handlers"
	"career-quest/logger"
	"career-quest/middleware"
	"career-quest/models"
	"career-quest/services"
	"career-quest/utils"
	"career-quest/workers"
)

func main() {
	cfg, foundEnv := config.Load()
	logger.InitLogger(cfg.LogLevel)
	if !foundEnv {
		logger.Log.Warn("⚠️  No .env file found, reading environment variables directly")
	}

	if cfg.DatabaseURL == "" {
		logger.Log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to database")
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.DailyChallenge{},
		&models.DailyChallengeProgress{},
		&models.Mission{},
		&models.JobApplication{},
		&models.NotebookEntry{},
		&models.LearningProgress{},
		&models.Activity{},
	); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate database")
	}

	if err := services.ValidateCatalog(services.DefaultCatalog, services.DefaultChallengeTemplates); err != nil {
		logger.Log.WithError(err).Fatal("achievement catalog is invalid")
	}
	if err := services.SeedAchievements(db, services.DefaultCatalog); err != nil {
		logger.Log.WithError(err).Fatal("failed to seed achievements")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var locker services.UserLocker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Log.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		locker = services.NewRedisLocker(rdb, cfg.LockTTL)
		logger.Log.WithField("addr", cfg.RedisAddr).Info("🔒 per-user locks in redis")
	} else {
		locker = services.NewMemoryLocker()
		logger.Log.Info("🔒 per-user locks in process memory")
	}

	var icons handlers.IconStore
	if cfg.R2.Enabled() {
		store, err := utils.NewR2Store(ctx, cfg.R2)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to initialize R2 client")
		}
		icons = store
	} else {
		logger.Log.Warn("⚠️  R2 not configured, icon uploads disabled")
	}

	metrics := services.NewMetrics()
	achievementService := services.NewAchievementService(db)
	challengeService := services.NewDailyChallengeService(db, cfg.DayPolicy)
	userService := services.NewUserService(db, locker)
	engine := services.NewEngine(db, locker, achievementService, challengeService, metrics)

	sched, err := challengeService.StartChallengeScheduler(ctx)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to start challenge scheduler")
	}
	workers.NewCatchUpWorker(userService, engine, cfg.CatchUpInterval).Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:     "career-quest",
		BodyLimit:   10 * 1024 * 1024,
		JSONEncoder: sonic.Marshal,
		JSONDecoder: sonic.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				logger.Log.WithError(err).WithField("path", c.Path()).Error("❌ unhandled error")
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Admin-Token",
		MaxAge:       86400,
	}))
	app.Use(middleware.RequestMetrics(metrics))

	deps := &handlers.Deps{
		Users:        userService,
		Achievements: achievementService,
		Missions:     services.NewMissionService(db),
		Applications: services.NewJobApplicationService(db),
		Notebook:     services.NewNotebookService(db),
		Learning:     services.NewLearningService(db),
		Engine:       engine,
		Icons:        icons,
		AdminToken:   cfg.AdminToken,
		Weights:      gamification.DefaultXPWeights,
	}

	handlers.SetupSystemRoutes(app, db, metrics)
	handlers.SetupUserRoutes(app, deps)
	handlers.SetupCareerRoutes(app, deps)
	handlers.SetupAdminRoutes(app, deps)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Log.WithError(err).Error("Server error")
		}
	}()

	logger.Log.WithFields(map[string]any{
		"port":       cfg.Port,
		"day_policy": cfg.DayPolicy,
		"origins":    cfg.AllowedOrigins,
	}).Info("✅ Server running")

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		logger.Log.WithError(err).Warn("scheduler shutdown")
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Log.WithError(err).Warn("server shutdown")
	}
}

package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam_platform_backend/internal/config"
	"exam_platform_backend/internal/controller"
	"exam_platform_backend/internal/middleware"
	"exam_platform_backend/internal/repository"
	"exam_platform_backend/internal/service"
	"exam_platform_backend/pkg/configwatcher"
	"exam_platform_backend/pkg/database"
	"exam_platform_backend/pkg/logger"
	"exam_platform_backend/pkg/monitoring"
	"exam_platform_backend/pkg/security"
	"exam_platform_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracerShutdown  func(context.Context) error
	configCallbacks []func(*config.Config)
}

type repositories struct {
	student    *repository.StudentRepository
	test       *repository.TestRepository
	attempt    *repository.AttemptRepository
	statistics *repository.StatisticsRepository
}

type services struct {
	auth        *service.AuthService
	test        *service.TestService
	scoring     *service.ScoringService
	statistics  *service.StatisticsService
	subject     *service.SubjectService
	leaderboard *service.LeaderboardService
	progress    *service.ProgressService
}

type controllers struct {
	auth      *controller.AuthController
	test      *controller.TestController
	attempt   *controller.AttemptController
	analytics *controller.AnalyticsController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		student:    repository.NewStudentRepository(db),
		test:       repository.NewTestRepository(db),
		attempt:    repository.NewAttemptRepository(db),
		statistics: repository.NewStatisticsRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.student, cfg)
	s.test = service.NewTestService(repos.test, repos.attempt)
	s.statistics = service.NewStatisticsService(repos.statistics, repos.attempt)
	s.leaderboard = service.NewLeaderboardService(repos.test, repos.attempt, rdb, cfg)
	s.scoring = service.NewScoringService(repos.test, repos.attempt, s.statistics, s.leaderboard, cfg, db)
	s.subject = service.NewSubjectService(repos.test, repos.attempt, cfg)
	s.progress = service.NewProgressService(repos.test, repos.attempt, s.statistics)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		test:      controller.NewTestController(s.test),
		attempt:   controller.NewAttemptController(s.scoring),
		analytics: controller.NewAnalyticsController(s.leaderboard, s.progress, s.subject),
		health:    controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(func(c *gin.Context) {
		c.Set("config", a.Config)
		c.Next()
	})
	router.Use(middleware.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// 超时未交卷的作答定期置为 abandoned
	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			if err := s.scoring.AbandonExpiredAttempts(); err != nil {
				logger.Log.Error("abandon expired attempts error", zap.Error(err))
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("exam-platform", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerShutdown = tp.Shutdown
	}

	app.registerRoutes(router, controllers, repos)

	app.startBackgroundTasks(services)
	app.watchConfig()

	return app
}

// watchConfig 配置热加载：评分默认值与榜单参数无需重启即可调整。
// 限流参数在启动时被中间件捕获，不在热加载范围内。
func (a *App) watchConfig() {
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		a.Config.ApplyReloadable(newCfg)
		logger.Log.Info("config reloaded",
			zap.Float64("defaultPositiveMarks", newCfg.Scoring.DefaultPositiveMarks),
			zap.Float64("learningGapThreshold", newCfg.Scoring.LearningGapThreshold))
	})

	go configwatcher.WatchConfig("configs/config.yaml", a.Config, func(cfg interface{}) {
		newCfg, ok := cfg.(*config.Config)
		if !ok {
			return
		}
		for _, callback := range a.configCallbacks {
			callback(newCfg)
		}
	})
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}

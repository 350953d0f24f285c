package app

import (
	"context"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/controller"
	"coursehub_backend/internal/repository"
	"coursehub_backend/internal/service"
	"coursehub_backend/pkg/configwatcher"
	"coursehub_backend/pkg/database"
	"coursehub_backend/pkg/logger"
	"coursehub_backend/pkg/monitoring"
	"coursehub_backend/pkg/security"
	"coursehub_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	cron            *cron.Cron
	tracer          *sdktrace.TracerProvider
	bgCtx           context.Context
	stopBackground  context.CancelFunc
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	ledger     *repository.LedgerRepository
	course     *repository.CourseRepository
	enrollment *repository.EnrollmentRepository
	progress   *repository.ProgressRepository
	assignment *repository.AssignmentRepository
	quiz       *repository.QuizRepository
	blog       *repository.BlogRepository
}

type services struct {
	rules      *service.Rules
	guard      *service.SubmissionGuard
	storage    *service.StorageService
	auth       *service.AuthService
	ledger     *service.LedgerService
	access     *service.LessonAccessService
	enrollment *service.EnrollmentService
	release    *service.ReleaseService
	quiz       *service.QuizService
	assignment *service.AssignmentService
	blog       *service.BlogService
}

type controllers struct {
	auth       *controller.AuthController
	learning   *controller.LearningController
	quiz       *controller.QuizController
	assignment *controller.AssignmentController
	blog       *controller.BlogController
	points     *controller.PointsController
	admin      *controller.AdminController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		ledger:     repository.NewLedgerRepository(db),
		course:     repository.NewCourseRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		progress:   repository.NewProgressRepository(db),
		assignment: repository.NewAssignmentRepository(db),
		quiz:       repository.NewQuizRepository(db),
		blog:       repository.NewBlogRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	rules := service.NewRules(cfg.Rewards, cfg.Progression)
	guard := service.NewSubmissionGuard(rdb)
	storage := service.NewStorageService(&cfg.Storage)
	ledger := service.NewLedgerService(db, repos.user, repos.ledger)
	access := service.NewLessonAccessService(db, repos.course, repos.enrollment, repos.progress,
		repos.assignment, repos.quiz, repos.user, ledger, rules)

	return &services{
		rules:      rules,
		guard:      guard,
		storage:    storage,
		auth:       service.NewAuthService(repos.user, &cfg.JWT),
		ledger:     ledger,
		access:     access,
		enrollment: service.NewEnrollmentService(repos.enrollment, repos.course),
		release:    service.NewReleaseService(db, repos.course),
		quiz:       service.NewQuizService(db, repos.quiz, access, ledger, guard, rules),
		assignment: service.NewAssignmentService(db, repos.assignment, repos.course, access, ledger, guard, storage, rules),
		blog:       service.NewBlogService(db, repos.blog, repos.user, ledger, guard, rules),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		learning:   controller.NewLearningController(s.access, s.enrollment),
		quiz:       controller.NewQuizController(s.quiz),
		assignment: controller.NewAssignmentController(s.assignment),
		blog:       controller.NewBlogController(s.blog),
		points:     controller.NewPointsController(s.ledger),
		admin:      controller.NewAdminController(s.release, s.enrollment, s.access),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.bgCtx, cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时发布到期的课时与章节
func (a *App) startBackgroundTasks(s *services) {
	a.cron = cron.New()
	_, err := a.cron.AddFunc(a.Config.Scheduler.ReleaseCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.release.ProcessScheduledReleases(ctx); err != nil {
			logger.Log.Error("scheduled release error", zap.Error(err))
		}
	})
	if err != nil {
		logger.Log.Fatal("Invalid scheduler.release_cron", zap.String("expr", a.Config.Scheduler.ReleaseCron), zap.Error(err))
	}
	a.cron.Start()
}

// watchConfig 配置文件变更时热更新积分规则
func (a *App) watchConfig(ctx context.Context) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		if err := a.services.rules.Update(cfg.Rewards, cfg.Progression); err != nil {
			logger.Log.Error("Rejected rewards reload", zap.Error(err))
			return
		}
		logger.Log.Info("Rewards rules reloaded", zap.Any("rewards", cfg.Rewards))
	})

	file := filepath.Join(a.ConfigDir, "config.yaml")
	go func() {
		err := configwatcher.WatchConfig(ctx, file, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.String("file", file), zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移
	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
	}
	app.bgCtx, app.stopBackground = context.WithCancel(context.Background())
	if cfg.MigrateOnly {
		return app
	}

	if cfg.Redis.Enabled {
		rdb, err := database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		app.Redis = rdb
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, app.Redis)
	app.services = services
	controllers := app.initControllers(services, db, app.Redis)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("coursehub", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)
	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	defer a.stopBackground()
	a.watchConfig(a.bgCtx)

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// 等待正在执行的定时任务结束
	<-a.cron.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}

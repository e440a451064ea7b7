package app

import (
	"context"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/controller"
	"interview_assistant_backend/internal/jobs"
	"interview_assistant_backend/internal/repository"
	"interview_assistant_backend/internal/service"
	"interview_assistant_backend/pkg/configwatcher"
	"interview_assistant_backend/pkg/database"
	"interview_assistant_backend/pkg/logger"
	"interview_assistant_backend/pkg/monitoring"
	"interview_assistant_backend/pkg/security"
	"interview_assistant_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configFile = "configs/config.yaml"

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user          *repository.UserRepository
	question      *repository.QuestionRepository
	attempt       *repository.AttemptRepository
	faceEmbedding *repository.FaceEmbeddingRepository
}

type services struct {
	auth       *service.AuthService
	allocator  *service.AllocatorService
	ai         *service.AIService
	attempt    *service.AttemptService
	analytics  *service.AnalyticsService
	storage    *service.StorageService
	face       *service.FaceService
	speech     *service.SpeechService
	proctorHub *service.ProctorHub
	topUp      *jobs.QuestionTopUpJob
}

type controllers struct {
	auth      *controller.AuthController
	user      *controller.UserController
	question  *controller.QuestionController
	attempt   *controller.AttemptController
	analytics *controller.AnalyticsController
	interview *controller.InterviewController
	proctor   *controller.ProctorController
	speech    *controller.SpeechController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置文件变更后调用，依次通知已注册的回调
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	logger.Log.Info("Configuration reloaded", zap.Int("callbacks", len(callbacks)))
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		question:      repository.NewQuestionRepository(db),
		attempt:       repository.NewAttemptRepository(db),
		faceEmbedding: repository.NewFaceEmbeddingRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, &cfg.JWT)
	s.allocator = service.NewAllocatorService(db, rdb, cfg.Allocator)
	s.ai = service.NewAIService(cfg.AI)
	s.attempt = service.NewAttemptService(repos.attempt)
	s.analytics = service.NewAnalyticsService(repos.attempt, repos.user)
	s.face = service.NewFaceService(cfg.Face, repos.faceEmbedding, s.storage)
	s.speech = service.NewSpeechService(cfg.Speech)
	s.proctorHub = service.NewProctorHub(cfg.Proctor, nil)
	s.topUp = jobs.NewQuestionTopUpJob(repos.question, s.ai, cfg.Jobs)

	// 可热更新的参数
	a.RegisterConfigCallback(func(c *config.Config) {
		s.allocator.UpdateConfig(c.Allocator)
		s.ai.UpdateConfig(c.AI)
		s.proctorHub.UpdateConfig(c.Proctor)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		user:      controller.NewUserController(s.analytics),
		question:  controller.NewQuestionController(s.allocator),
		attempt:   controller.NewAttemptController(s.attempt),
		analytics: controller.NewAnalyticsController(s.analytics),
		interview: controller.NewInterviewController(s.ai, s.attempt),
		proctor:   controller.NewProctorController(s.proctorHub, s.face),
		speech:    controller.NewSpeechController(s.speech),
		health:    controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if cfg.RateLimit.MaxRequests > 0 && window > 0 {
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	if err := s.topUp.Start(); err != nil {
		logger.Log.Error("Failed to start question top-up job", zap.Error(err))
	}
}

// New 用已建立的连接组装路由与服务，测试直接使用
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" && cfg.Storage.LocalPath != "" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	migrate := cfg.Server.Mode != "release" || cfg.ForceMigrate
	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("interview-assistant", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.startBackgroundTasks(app.services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 配置热更新
	if abs, err := filepath.Abs(configFile); err == nil {
		go configwatcher.WatchConfig(abs, a.ApplyConfig)
	}

	// 启动服务器
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

	a.shutdownServices()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}

// shutdownServices 关闭监考会话、定时任务与外部客户端
func (a *App) shutdownServices() {
	if a.services == nil {
		return
	}
	a.services.proctorHub.Stop()
	a.services.topUp.Stop()
	if err := a.services.speech.Close(); err != nil {
		logger.Log.Warn("Failed to close speech client", zap.Error(err))
	}
}

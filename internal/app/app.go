package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social_chat_backend/internal/config"
	"social_chat_backend/internal/controller"
	"social_chat_backend/internal/repository"
	"social_chat_backend/internal/service"
	"social_chat_backend/internal/util"
	"social_chat_backend/pkg/database"
	"social_chat_backend/pkg/logger"
	"social_chat_backend/pkg/monitoring"
	"social_chat_backend/pkg/security"
	"social_chat_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	friendship *repository.FriendshipRepository
	group      *repository.GroupRepository
	message    *repository.MessageRepository
	poll       *repository.PollRepository
}

type services struct {
	storage    *service.StorageService
	auth       *service.AuthService
	user       *service.UserService
	friendship *service.FriendshipService
	group      *service.GroupService
	message    *service.MessageService
	summary    *service.SummaryService
	poll       *service.PollService
	chatHub    *service.ChatHub
}

type controllers struct {
	auth    *controller.AuthController
	user    *controller.UserController
	friend  *controller.FriendController
	group   *controller.GroupController
	message *controller.MessageController
	poll    *controller.PollController
	chat    *controller.ChatController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置热加载入口，分发给已注册的各回调
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("Config reloaded")
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		friendship: repository.NewFriendshipRepository(db, rdb),
		group:      repository.NewGroupRepository(db, rdb),
		message:    repository.NewMessageRepository(db),
		poll:       repository.NewPollRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user, s.storage)
	s.friendship = service.NewFriendshipService(repos.friendship, repos.user)
	s.group = service.NewGroupService(repos.group, repos.friendship, repos.user)
	s.message = service.NewMessageService(repos.message, repos.group, repos.friendship)
	s.summary = service.NewSummaryService(cfg.Summarizer)

	botID, err := database.BotUserID(db)
	if err != nil {
		logger.Log.Warn("bot user not found, poll summaries will not be announced", zap.Error(err))
	}
	s.poll = service.NewPollService(repos.poll, repos.group, repos.message, s.summary, s.message, botID)

	s.chatHub = service.NewChatHub(rdb, repos.user)
	s.chatHub.BindServices(s.message, s.poll)
	go s.chatHub.Run()

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth, s.user),
		user:    controller.NewUserController(s.user, s.friendship, s.chatHub),
		friend:  controller.NewFriendController(s.friendship, s.chatHub),
		group:   controller.NewGroupController(s.group, s.chatHub),
		message: controller.NewMessageController(s.message, s.chatHub),
		poll:    controller.NewPollController(s.poll, s.chatHub),
		chat:    controller.NewChatController(s.chatHub),
		health:  controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg, db, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("social-chat", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	// 总结服务参数支持热加载
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.summary.UpdateConfig(newCfg.Summarizer)
	})

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
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

	// 清理 WebSocket连接和Redis在线状态
	if a.services != nil && a.services.chatHub != nil {
		a.services.chatHub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Sync()
	log.Println("Server exiting")
}

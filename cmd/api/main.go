package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/dispatchcrew/airdispatch/pkg/validator"

	"github.com/dispatchcrew/airdispatch/internal/adapter/handler"
	"github.com/dispatchcrew/airdispatch/internal/adapter/repository"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/bus"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/cache"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/database"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/external/dispatch"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/external/notify"
	"github.com/dispatchcrew/airdispatch/internal/infrastructure/storage"
	"github.com/dispatchcrew/airdispatch/internal/realtime"
	"github.com/dispatchcrew/airdispatch/internal/usecase/approval"
	"github.com/dispatchcrew/airdispatch/internal/usecase/pipeline"
	policyUsecase "github.com/dispatchcrew/airdispatch/internal/usecase/policy"
	"github.com/dispatchcrew/airdispatch/internal/usecase/poller"
	"github.com/dispatchcrew/airdispatch/pkg/config"
	"github.com/dispatchcrew/airdispatch/pkg/extract"
	"github.com/dispatchcrew/airdispatch/pkg/jwt"
	"github.com/dispatchcrew/airdispatch/pkg/stt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true
	e.HidePort = false

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	log.Println("🔧 Initializing dependencies...")

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run AutoMigrate only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Running GORM AutoMigrate (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run AutoMigrate: %v", err)
		}
	} else {
		log.Println("🔄 Skipping GORM AutoMigrate; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize Redis
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	channelRepo := repository.NewChannelRepository(db)
	tmRepo := repository.NewTransmissionRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	execRepo := repository.NewExecutionRepository(db)

	// Initialize event bus
	log.Println("📡 Initializing event bus...")
	eventBus := bus.NewRedisBus(redisClient, logger)

	// Initialize collaborators
	log.Println("🤖 Initializing collaborators...")
	transcriber := stt.NewAssemblyAIClient(&cfg.Assembly, logger)

	var extractor extract.Extractor
	if cfg.Extract.APIKey != "" {
		log.Println("🧠 Using LLM extraction")
		extractor = extract.NewLLMExtractor(&cfg.Extract)
	} else {
		log.Println("🧠 Using heuristic extraction (no EXTRACT_API_KEY set)")
		extractor = extract.NewHeuristicExtractor()
	}

	dispatchClient := dispatch.NewClient(&cfg.Dispatch)
	slackNotifier := notify.NewSlackNotifier(&cfg.Slack)

	// Initialize audio storage
	log.Println("🗄️  Initializing audio storage...")
	audioStore, err := storage.NewAudioStore(&cfg.Storage)
	if err != nil {
		log.Printf("⚠️  Audio storage unavailable, uploads disabled: %v", err)
		audioStore = nil
	}

	// Initialize JWT manager
	log.Println("🔑 Initializing JWT manager...")
	jwtManager := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)

	// Initialize approval service and policy engine
	log.Println("⚖️  Initializing policy engine...")
	approvalService := approval.NewService(execRepo, tmRepo, dispatchClient, dispatchClient, slackNotifier, eventBus, logger)
	engine := policyUsecase.NewEngine(policyRepo, execRepo, approvalService, logger)

	// Initialize ingestion pipeline
	log.Println("🏭 Initializing ingestion pipeline...")
	pipelineService := pipeline.NewService(channelRepo, tmRepo, transcriber, extractor, engine, eventBus, cfg.Pipeline, logger)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	if err := pipelineService.Start(rootCtx); err != nil {
		log.Fatalf("Failed to start pipeline workers: %v", err)
	}
	defer pipelineService.Stop()

	// Initialize channel poller
	channelPoller := poller.New(channelRepo, pipelineService, cfg.Poller, logger)
	if err := channelPoller.Start(); err != nil {
		log.Fatalf("Failed to start channel poller: %v", err)
	}
	defer channelPoller.Stop()

	// Initialize realtime gateway
	log.Println("🔌 Initializing realtime gateway...")
	sessionStore := cache.NewRedisStore(redisClient)
	registry := realtime.NewRegistry(sessionStore, logger)
	gateway := realtime.NewGateway(jwtManager, registry, logger)
	consumer := realtime.NewConsumer(eventBus, registry, logger)
	go func() {
		if err := consumer.Run(rootCtx); err != nil {
			log.Printf("⚠️  Event consumer stopped: %v", err)
		}
	}()

	// Initialize handlers
	log.Println("🚀 Initializing handlers...")
	channelHandler := handler.NewChannelHandler(channelRepo, logger)
	transmissionHandler := handler.NewTransmissionHandler(pipelineService, tmRepo, audioStore, logger)
	policyHandler := handler.NewPolicyHandler(policyRepo, logger)
	executionHandler := handler.NewExecutionHandler(approvalService, execRepo, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient, dispatchClient, registry)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	router := handler.NewRouter(cfg, jwtManager, channelHandler, transmissionHandler, policyHandler, executionHandler, healthHandler, gateway)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/mx32-chat/backend/internal/aggregator"
	"github.com/mx32-chat/backend/internal/api/handlers"
	"github.com/mx32-chat/backend/internal/chat"
	"github.com/mx32-chat/backend/internal/composer"
	"github.com/mx32-chat/backend/internal/docstore"
	"github.com/mx32-chat/backend/internal/llm"
	"github.com/mx32-chat/backend/internal/metrics"
	"github.com/mx32-chat/backend/internal/metricsource"
	"github.com/mx32-chat/backend/internal/middleware/ratelimit"
	"github.com/mx32-chat/backend/internal/middleware/security"
	"github.com/mx32-chat/backend/internal/middleware/validation"
	"github.com/mx32-chat/backend/internal/session"
	"github.com/mx32-chat/backend/internal/storage/sqlite"
	"github.com/mx32-chat/backend/pkg/config"
	appLogger "github.com/mx32-chat/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting MX32 Chat API Server")

	metrics.Init()

	ctx := context.Background()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	store, err := docstore.NewFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
	if err != nil {
		appLogger.Fatal("Failed to create Firestore client", zap.Error(err))
	}
	defer store.Close()

	var sessions session.Store
	if cfg.Redis.Enabled {
		redisSessions, err := session.NewRedisStore(
			ctx,
			fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Session.Window,
			time.Duration(cfg.Redis.SessionTTLMin)*time.Minute,
		)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisSessions.Close()
		sessions = redisSessions
	} else {
		sessions = session.NewMemoryStore(cfg.Session.Window)
	}

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.TimeoutSec,
	)

	fetcher := metricsource.NewFetcher(
		time.Duration(cfg.Metrics.TimeoutSec)*time.Second,
		cfg.Metrics.MaxAttempts,
	)

	agg := aggregator.New(store, fetcher)

	comp := composer.New(llmClient, cfg.LLM.Model, llm.Options{
		Temperature:     cfg.LLM.Temperature,
		MaxTokens:       cfg.LLM.MaxTokens,
		TopP:            cfg.LLM.TopP,
		ReasoningEffort: cfg.LLM.ReasoningEffort,
		Stream:          cfg.LLM.Stream,
	})

	engine := chat.NewEngine(agg, comp, sessions, sqliteClient)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.Origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: strings.Split(cfg.CORS.Origins, ","),
		IsDevelopment:  cfg.Logging.Level == "debug",
	}))
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	chatHandler := handlers.NewChatHandler(engine)
	stateHandler := handlers.NewStateHandler(agg)
	historyHandler := handlers.NewHistoryHandler(sqliteClient)

	api := app.Group("/api/v1")

	api.Post("/chat", chatHandler.HandleChat)
	api.Get("/chat/history", historyHandler.GetChatHistory)
	api.Get("/chat/conversation/:session_id", chatHandler.GetConversation)
	api.Delete("/chat/conversation/:session_id", chatHandler.ClearConversation)

	api.Post("/states/query", stateHandler.QueryState)
	api.Post("/states/similar", stateHandler.FindSimilarStates)
	api.Get("/states", stateHandler.ListStates)
	api.Get("/states/:name/summary", stateHandler.GetStateSummary)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"marketplace-chat/internal/db"
	"marketplace-chat/internal/handlers"
	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/storage"
	"marketplace-chat/internal/store"
	"marketplace-chat/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func Run() {
	// Load Env
	_ = utils.LoadEnv()

	log := logging.New(logging.Config{
		Level:   utils.GetEnv("LOG_LEVEL", "info"),
		Pretty:  utils.GetEnvBool("LOG_PRETTY", false),
		Service: "marketplace-chat",
	})

	ctx := context.Background()

	// Init DB
	connString := utils.GetEnv("DATABASE_URL", "")
	if connString == "" {
		// Fallback to individual vars
		connString = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "chatdb") + "?sslmode=disable"
	}

	pool, err := db.Connect(ctx, connString)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}
	log.Info().Msg("connected to PostgreSQL")

	// Object storage for message media
	objects, err := storage.NewS3Store(ctx, storage.S3Config{
		Endpoint:        utils.GetEnv("S3_ENDPOINT", ""),
		Region:          utils.GetEnv("S3_REGION", ""),
		Bucket:          utils.GetEnv("S3_BUCKET", "chat-media"),
		AccessKeyID:     utils.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: utils.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		UsePathStyle:    utils.GetEnvBool("S3_USE_PATH_STYLE", false),
		PublicURL:       utils.GetEnv("S3_PUBLIC_URL", ""),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init object storage")
	}

	// Core components
	messageStore := store.NewPostgresStore(pool)
	chatService := services.NewChatService(messageStore, objects, log)
	hub := handlers.NewHub(log)

	// Fiber App
	app := fiber.New(fiber.Config{
		BodyLimit: utils.GetEnvInt("BODY_LIMIT_MB", 25) * 1024 * 1024,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Routes
	api := app.Group("/api")

	protected := api.Group("/")
	protected.Use(handlers.AuthMiddleware)

	protected.Post("/rooms", handlers.CreateRoomHandler(chatService))
	protected.Get("/rooms", handlers.GetRoomsHandler(chatService))
	protected.Get("/rooms/:room_id/messages", handlers.GetMessagesHandler(chatService))
	protected.Post("/messages", handlers.SendMessageHandler(chatService, hub))
	protected.Post("/messages/media", handlers.UploadMediaHandler(chatService, hub, log))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// WebSocket Route
	// Note: Middleware order matters. WSUpgradeMiddleware gates non-WS
	// requests, AuthMiddleware checks the token before the upgrade.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", handlers.AuthMiddleware)
	app.Get("/ws", handlers.WebSocketHandler(chatService, hub, log))

	// Start Server
	port := utils.GetEnv("PORT", "3001")
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Panic().Err(err).Msg("server stopped")
		}
	}()

	// Graceful Shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c // Block until signal
	log.Info().Msg("gracefully shutting down...")
	_ = app.Shutdown()
	log.Info().Msg("server shutdown complete")
}

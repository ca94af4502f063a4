package app

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage/redis/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatapp/realtime-chat/internal/config"
	"github.com/chatapp/realtime-chat/internal/handlers"
	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/metrics"
	"github.com/chatapp/realtime-chat/internal/models"
	"github.com/chatapp/realtime-chat/internal/realtime"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Tokens handlers.TokenValidator
	Auth   handlers.AuthAPI
	OAuth  handlers.OAuthProvider
	Users  handlers.UserAPI
	Chat   handlers.ChatAPI
	AI     handlers.AIAPI
	Hub    *realtime.Hub
}

// NewServer builds the Fiber app with middleware and all routes registered.
func NewServer(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "realtime-chat",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    handlers.MaxUploadSize + 1<<20,
	})

	app.Use(recover.New())
	if !cfg.IsProduction() {
		app.Use(logger.New())
	}
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigin,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	app.Use(metrics.Middleware())

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		logging.Warn().Err(err).Str("dir", cfg.Server.UploadDir).Msg("failed to create upload dir")
	}
	app.Static("/uploads", cfg.Server.UploadDir, fiber.Static{
		ModifyResponse: handlers.UploadHeaders,
	})

	api := app.Group("/api", rateLimiter(cfg))
	registerAuthRoutes(api, cfg, deps)
	registerUserRoutes(api, deps)
	registerChatRoutes(api, cfg, deps)
	registerAIRoutes(api, deps)

	app.Get("/health", handlers.HealthHandler(cfg.Server.Env))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", handlers.AuthMiddleware(deps.Tokens))
	app.Get("/ws", handlers.WebSocketHandler(deps.Hub))

	app.Use(handlers.NotFound)
	return app
}

func rateLimiter(cfg *config.Config) fiber.Handler {
	lc := limiter.Config{
		Max:        cfg.RateLimit.MaxRequests,
		Expiration: cfg.RateLimit.Window,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests from this IP, please try again later.",
			})
		},
	}
	if cfg.Redis.URL != "" {
		lc.Storage = redis.New(redis.Config{URL: cfg.Redis.URL})
		logging.Info().Msg("rate limiter using redis storage")
	}
	return limiter.New(lc)
}

func registerAuthRoutes(api fiber.Router, cfg *config.Config, deps Deps) {
	auth := api.Group("/auth")
	auth.Post("/register", handlers.RegisterHandler(deps.Auth))
	auth.Post("/login", handlers.LoginHandler(deps.Auth))
	auth.Post("/refresh", handlers.RefreshHandler(deps.Auth))
	auth.Get("/google", handlers.GoogleAuthHandler(deps.OAuth))
	auth.Get("/google/callback", handlers.GoogleCallbackHandler(deps.Auth, deps.OAuth, cfg.Server.FrontendURL))

	requireAuth := handlers.AuthMiddleware(deps.Tokens)
	auth.Post("/logout", requireAuth, handlers.LogoutHandler(deps.Auth))
	auth.Get("/me", requireAuth, handlers.MeHandler(deps.Auth))
}

func registerUserRoutes(api fiber.Router, deps Deps) {
	var presence handlers.PresenceBroadcaster
	if deps.Hub != nil {
		presence = deps.Hub
	}

	users := api.Group("/users", handlers.AuthMiddleware(deps.Tokens))
	users.Get("/", handlers.ListUsersHandler(deps.Users))
	users.Patch("/profile", handlers.UpdateProfileHandler(deps.Users))
	users.Patch("/status", handlers.UpdateStatusHandler(deps.Users, presence))
	users.Get("/:id", handlers.GetUserHandler(deps.Users))
}

func registerChatRoutes(api fiber.Router, cfg *config.Config, deps Deps) {
	var relay handlers.Relayer
	if deps.Hub != nil {
		relay = deps.Hub
	}

	chat := api.Group("/chat", handlers.AuthMiddleware(deps.Tokens))
	chat.Get("/sessions", handlers.ListSessionsHandler(deps.Chat))
	chat.Post("/sessions", handlers.CreateSessionHandler(deps.Chat))
	chat.Get("/sessions/:id", handlers.GetSessionHandler(deps.Chat))
	chat.Delete("/sessions/:id", handlers.DeleteSessionHandler(deps.Chat))
	chat.Get("/sessions/:id/messages", handlers.ListMessagesHandler(deps.Chat))
	chat.Post("/sessions/:id/messages", handlers.SendMessageHandler(deps.Chat, relay))
	chat.Post("/sessions/:id/upload", handlers.UploadHandler(deps.Chat, relay, cfg.Server.UploadDir, cfg.Server.BaseURL))
	chat.Get("/sessions/:id/media", handlers.SessionMediaHandler(deps.Chat, models.MessageImage))
	chat.Get("/sessions/:id/docs", handlers.SessionMediaHandler(deps.Chat, models.MessageFile))
	chat.Get("/sessions/:id/links", handlers.SessionLinksHandler(deps.Chat))
	chat.Patch("/messages/:id/read", handlers.MarkReadHandler(deps.Chat))
}

func registerAIRoutes(api fiber.Router, deps Deps) {
	ai := api.Group("/ai", handlers.AuthMiddleware(deps.Tokens))
	ai.Get("/sessions", handlers.ListAISessionsHandler(deps.AI))
	ai.Post("/sessions", handlers.CreateAISessionHandler(deps.AI))
	ai.Delete("/sessions/:id", handlers.DeleteAISessionHandler(deps.AI))
	ai.Get("/sessions/:id/messages", handlers.ListAIMessagesHandler(deps.AI))
	ai.Post("/sessions/:id/messages", handlers.SendAIMessageHandler(deps.AI))
}

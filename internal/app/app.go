// Package app wires configuration, storage, services and the HTTP surface
// into a runnable server.
package app

import (
	"context"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"github.com/chatapp/realtime-chat/internal/config"
	"github.com/chatapp/realtime-chat/internal/db"
	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/realtime"
	"github.com/chatapp/realtime-chat/internal/services"
	"github.com/chatapp/realtime-chat/internal/utils"
)

const shutdownTimeout = 15 * time.Second

func Run() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	if err := db.InitDB(ctx, cfg.Database.URL); err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.Migrate(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to apply schema")
	}
	// Nobody is connected to a freshly started process.
	utils.LogError(db.ResetPresence(ctx), "reset presence")

	// Services
	tokens := services.NewTokenManager(cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.ExpiresIn, cfg.JWT.RefreshExpiresIn)
	authService := services.NewAuthService(db.Pool, tokens)
	userService := services.NewUserService(db.Pool)
	chatService := services.NewChatService(db.Pool)

	var assistant services.Assistant
	if gemini := services.NewGeminiClient(cfg.Gemini.APIKey, cfg.Gemini.Model); gemini != nil {
		assistant = gemini
	} else {
		logging.Warn().Msg("GEMINI_API_KEY not set, AI chat disabled")
	}
	aiService := services.NewAIService(db.Pool, assistant)

	deps := Deps{
		Tokens: tokens,
		Auth:   authService,
		Users:  userService,
		Chat:   chatService,
		AI:     aiService,
		Hub:    realtime.NewHub(chatService),
	}
	if google := services.NewGoogleOAuth(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.GoogleCallbackURL()); google != nil {
		deps.OAuth = google
	} else {
		logging.Warn().Msg("google oauth not configured")
	}

	server := NewServer(cfg, deps)

	go func() {
		logging.Info().Str("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("server listening")
		if err := server.Listen(":" + cfg.Server.Port); err != nil {
			logging.Fatal().Err(err).Msg("server stopped")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				logging.Info().Msg("gracefully shutting down")
				deps.Hub.Shutdown()
				return server.ShutdownWithContext(ctx)
			},
			"postgres": func(_ context.Context) error {
				db.CloseDB()
				return nil
			},
		},
	)

	exitCode := <-wait
	logging.Info().Int("exit_code", exitCode).Msg("server shutdown complete")
	os.Exit(exitCode)
}

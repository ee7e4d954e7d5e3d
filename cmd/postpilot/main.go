package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/postpilothq/postpilot/internal/agents"
	"github.com/postpilothq/postpilot/internal/chat"
	"github.com/postpilothq/postpilot/internal/config"
	"github.com/postpilothq/postpilot/internal/credentials"
	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/notify"
	"github.com/postpilothq/postpilot/internal/pipeline"
	"github.com/postpilothq/postpilot/internal/posting"
	"github.com/postpilothq/postpilot/internal/secrets"
	"github.com/postpilothq/postpilot/internal/server"
	"github.com/postpilothq/postpilot/internal/store/postgres"
	redisstore "github.com/postpilothq/postpilot/internal/store/redis"
)

// imageProbeTimeout bounds the reachability check on submitted image URLs.
const imageProbeTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("POSTPILOT_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("POSTPILOT_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL and make sure the schema exists.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	// Connect to Redis.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	// Token vault over the stored platform connections.
	key, err := secrets.KeyFromHex(cfg.Credentials.Key)
	if err != nil {
		return fmt.Errorf("credentials key: %w", err)
	}
	vault, err := secrets.NewVault(key)
	if err != nil {
		return fmt.Errorf("credentials key: %w", err)
	}
	creds := credentials.NewManager(store.Credentials(), vault)

	// Create the chat model and the agent suite on top of it.
	registry := agents.NewRegistry()
	registry.Register("openai", agents.NewOpenAIModel)
	registry.Register("claude", agents.NewClaudeModel)
	registry.Register("gemini", agents.NewGeminiModel)

	chatModel, err := registry.Create(ctx, agents.ModelConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("chat model: %w", err)
	}
	suite := agents.NewSuite(chatModel)

	// Graph API clients behind the retrying executor.
	graph := posting.NewGraphClient(cfg.Graph.BaseURL)
	executor := posting.NewExecutor(creds, map[domain.Platform]posting.Client{
		domain.PlatformFacebook:  posting.NewFacebookClient(graph),
		domain.PlatformInstagram: posting.NewInstagramClient(graph),
	})

	// Slack notifications are optional; without a token runs finish silently.
	var notifier pipeline.Notifier = notify.NewNop()
	if cfg.Slack.BotToken != "" && cfg.Slack.Channel != "" {
		notifier = notify.NewSlackNotifier(slacklib.New(cfg.Slack.BotToken), cfg.Slack.Channel)
	}

	// Create the publish pipeline.
	runner := pipeline.NewOrchestrator(
		suite,
		suite,
		suite,
		pipeline.NewHTTPImageChecker(imageProbeTimeout),
		creds,
		executor,
		store.Conversations(),
		store.Transcripts(),
		pubsub,
		notifier,
		cfg.LLM.AgentTimeout,
	)

	// Create the marketing chat service.
	chats := chat.NewService(store.Conversations(), store.Transcripts(), store.Businesses(), suite, suite, pubsub)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(cfg, store, pubsub, runner, chats, creds)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

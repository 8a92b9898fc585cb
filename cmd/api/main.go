package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	supabase "github.com/supabase-community/supabase-go"

	"github.com/zhouzirui/boardroom/backend/internal/config"
	"github.com/zhouzirui/boardroom/backend/internal/handler"
	"github.com/zhouzirui/boardroom/backend/internal/service/ai"
	"github.com/zhouzirui/boardroom/backend/internal/service/chat"
	"github.com/zhouzirui/boardroom/backend/internal/service/identity"
	"github.com/zhouzirui/boardroom/backend/internal/service/session"
	"github.com/zhouzirui/boardroom/backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only", "error", envErr)
	}
	logger.Info("configuration loaded", cfg.Report()...)
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}
	if err := cfg.Validate(); err != nil {
		fatal(logger, "invalid configuration", err)
	}

	var sb *supabase.Client
	if cfg.Store.Driver == config.StoreSupabase || cfg.Auth.Provider == config.AuthSupabase {
		sb, err = cfg.Store.NewSupabaseClient()
		if err != nil {
			fatal(logger, "failed to initialise Supabase client", err)
		}
		logger.Info("Supabase client initialised")
	}

	repo, err := store.Open(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		SQLitePath:  cfg.Store.SQLitePath,
		Supabase:    sb,
	})
	if err != nil {
		fatal(logger, "failed to open store", err)
	}
	defer repo.Close()

	var provider identity.Provider
	if cfg.Auth.Provider == config.AuthMemory {
		logger.Warn("using in-memory auth provider; accounts are lost on restart")
		provider = identity.NewMemoryProvider()
	} else {
		provider = identity.NewSupabaseProvider(sb.Auth)
	}
	gateway := identity.NewGateway(provider, logger)

	chatModel, err := ai.NewChatModel(ctx, cfg.AI)
	if err != nil {
		fatal(logger, "failed to create chat model", err)
	}
	aiService, err := ai.NewService(ctx, chatModel, cfg.AI.ModelName(), logger)
	if err != nil {
		fatal(logger, "failed to initialize AI service", err)
	}
	logger.Info("AI service initialized", "provider", cfg.AI.Provider, "model", cfg.AI.ModelName())

	sessionService := session.NewService(repo, logger)
	chatService := chat.NewService(repo, sessionService, aiService, chat.Options{
		HistoryLimit:      cfg.Chat.HistoryLimit,
		SerializeSessions: cfg.Chat.SerializeSessions,
		Logger:            logger,
	})

	router := handler.NewRouter(handler.Dependencies{
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Authenticator:  gateway,
		Accounts:       gateway,
		Sessions:       sessionService,
		Agents:         repo,
		Chat:           chatService,
		Store:          repo,
	})

	startServer(ctx, logger, cfg.Server, router)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func startServer(ctx context.Context, logger *slog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Boardroom backend listening", "addr", addr)
	if err := runServer(ctx, srv); err != nil {
		fatal(logger, "server error", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

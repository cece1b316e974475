package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/config"
	"github.com/zhouzirui/heartchat/backend/internal/handler"
	"github.com/zhouzirui/heartchat/backend/internal/logging"
	"github.com/zhouzirui/heartchat/backend/internal/metrics"
	"github.com/zhouzirui/heartchat/backend/internal/service/ai"
	"github.com/zhouzirui/heartchat/backend/internal/service/auth"
	"github.com/zhouzirui/heartchat/backend/internal/service/chat"
	"github.com/zhouzirui/heartchat/backend/internal/service/ocr"
	"github.com/zhouzirui/heartchat/backend/internal/service/reply"
	"github.com/zhouzirui/heartchat/backend/internal/service/speech"
	"github.com/zhouzirui/heartchat/backend/internal/store"
)

const sessionPurgeInterval = time.Hour

var envFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "heartchat",
		Short:         "HeartChat backend: emotion-aware chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAPI(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context())
		},
	})
	return root
}

// bootstrap loads .env, configuration and the process logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	envErr := godotenv.Load(envFile)

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Warn("failed to load .env file, continuing with system environment variables only",
			zap.String("path", envFile), zap.Error(envErr))
	}
	return cfg, logger, nil
}

func runMigrate(ctx context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("schema ready", zap.String("path", cfg.Store.Path))
	return nil
}

func runAPI(ctx context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("history store opened", zap.String("path", cfg.Store.Path))

	collector := metrics.New()

	// Initialize AI responder; without a completer it answers with the unavailable reply
	var completer ai.Completer
	if cfg.AI.Enabled() {
		completer, err = cfg.AI.NewCompleter(ctx)
		if err != nil {
			logger.Warn("failed to initialize AI completer, continuing without AI functionality", zap.Error(err))
			completer = nil
		} else {
			logger.Info("AI completer initialized", zap.String("provider", cfg.AI.Provider))
		}
	} else {
		logger.Info("AI 模型未配置，跳过生成式回复初始化")
	}
	responder := ai.NewResponder(completer, cfg.AI.ResponderOptions(), logger, collector)

	selector := reply.NewSelector(responder, reply.WithLogger(logger), reply.WithMetrics(collector))
	recorder := chat.NewRecorder(st, logger, collector)
	chatSvc := chat.NewService(selector, recorder, logger)
	authSvc := auth.NewService(st, cfg.Server.SessionTTL, logger)

	speechSvc := speech.NewService(cfg.Speech.Model(), logger)
	if !speechSvc.Enabled() {
		logger.Info("语音服务凭证未配置，跳过语音功能初始化")
	}

	var engine ocr.Engine
	if cfg.OCR.Enabled {
		engine = ocr.NewTesseractEngine(cfg.OCR.Command, cfg.OCR.Language)
	}
	ocrSvc := ocr.NewService(engine, logger)

	router := handler.NewRouter(handler.Deps{
		Chat:           chatSvc,
		Auth:           authSvc,
		Speech:         speechSvc,
		OCR:            ocrSvc,
		Store:          st,
		Metrics:        collector,
		AIEnabled:      responder.Available(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SecureCookie:   cfg.Server.CookieSecure,
		Logger:         logger,
	})

	go purgeSessions(ctx, st, logger)

	return startServer(ctx, cfg.Server, router, logger)
}

// purgeSessions drops expired login sessions until ctx is cancelled.
func purgeSessions(ctx context.Context, st *store.SQLiteStore, logger *zap.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.PurgeExpiredSessions(ctx)
			if err != nil {
				logger.Warn("session purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired sessions purged", zap.Int64("count", n))
			}
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("HeartChat backend listening", zap.String("addr", addr))
	if err := runServer(ctx, srv); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
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

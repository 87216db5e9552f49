package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/config"
	"github.com/zhouzirui/mindpeers/client/internal/handler"
	"github.com/zhouzirui/mindpeers/client/internal/logging"
	"github.com/zhouzirui/mindpeers/client/internal/service/replay"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log, false)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	script, err := replay.LoadScript(cfg.Stub.ScriptPath)
	if err != nil {
		logger.Fatal("failed to load replay script", zap.Error(err))
	}
	if cfg.Stub.ScriptPath == "" {
		logger.Info("using built-in replay script")
	} else {
		logger.Info("loaded replay script", zap.String("path", cfg.Stub.ScriptPath), zap.Int("rules", len(script.Rules)))
	}

	router := handler.NewRouter(replay.NewService(script, logger), logger)

	srv := &http.Server{
		Addr:              cfg.Stub.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("MindPeers stand-in service listening", zap.String("addr", cfg.Stub.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
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

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pdfchat/internal/app"
	"pdfchat/internal/config"
	"pdfchat/internal/platform/logger"
	"pdfchat/internal/server"
	"pdfchat/internal/session"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/pdfchat/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slogger := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	components, err := app.BuildComponents(cfg)
	if err != nil {
		log.Fatalf("failed to assemble pipeline: %v", err)
	}

	manager := session.NewManager(app.NewSessionFactory(cfg, components, slogger))
	handler := server.NewHandler(manager, slogger,
		int64(cfg.Server.MaxUploadMB)<<20, cfg.Server.SessionCapacity)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.NewRouter(handler, slogger),
	}

	go func() {
		slogger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSecs)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slogger.Error("shutdown failed", "error", err)
	}
	manager.Shutdown()
}

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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"glass-station/config"
	telegram "glass-station/internal/api"
	"glass-station/internal/container"
	"glass-station/internal/domain/entity"
	"glass-station/internal/infrastructure/metrics"
	"glass-station/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	flags := pflag.NewFlagSet("glass-station", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to YAML config (default: $STATION_CONFIG)")
	logLevel := flags.String("log-level", "", "override log level: debug, info, warn, error")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("parse flags: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics.Init()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	// Собираем сервисы станции
	appContainer, err := container.New(cfg, logger)
	if err != nil {
		logger.Fatal("build container", zap.Error(err))
	}
	station := appContainer.StationService

	if cfg.AutoStart {
		if err := station.Start(ctx); err != nil {
			logger.Fatal("start station", zap.Error(err))
		}
		if cfg.StartMode == entity.ModeAutomatic {
			if err := station.SetAutomatic(ctx); err != nil {
				logger.Warn("enable automatic mode", zap.Error(err))
			}
		}
	}

	// Панель запускается только после автостарта
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, station, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Fatal("create bot", zap.Error(err))
		}
		station.SetNotifier(bot)
		go func() {
			if err := bot.Run(ctx); err != nil {
				logger.Error("bot stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("TELEGRAM_TOKEN is not set, control panel disabled")
	}

	logger.Info("station is running",
		zap.String("device_id", cfg.DeviceID),
		zap.String("server", cfg.ServerURL),
	)
	<-ctx.Done()
	logger.Info("station shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := station.Stop(stopCtx); err != nil {
		logger.Warn("stop station", zap.Error(err))
	}
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server", zap.Error(err))
	}
}

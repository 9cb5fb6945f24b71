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

	"github.com/hamed0406/slotwatch/internal/config"
	"github.com/hamed0406/slotwatch/internal/fetch"
	"github.com/hamed0406/slotwatch/internal/httpapi"
	apimw "github.com/hamed0406/slotwatch/internal/httpapi/middleware"
	"github.com/hamed0406/slotwatch/internal/logging"
	"github.com/hamed0406/slotwatch/internal/metrics"
	"github.com/hamed0406/slotwatch/internal/notify"
	"github.com/hamed0406/slotwatch/internal/repo"
	"github.com/hamed0406/slotwatch/internal/repo/memory"
	pg "github.com/hamed0406/slotwatch/internal/repo/postgres"
	"github.com/hamed0406/slotwatch/internal/repo/sqlite"
	"github.com/hamed0406/slotwatch/internal/scheduler"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Resolve()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	alerts, closeAlerts, err := openAlertLog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAlerts()

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}

	chrome := fetch.NewChromeFetcher(logger, cfg.SourceURL, cfg.TableSelector, fetch.Columns{
		Location:     cfg.LocationColumn,
		TotalDates:   cfg.TotalDatesColumn,
		EarliestDate: cfg.EarliestDateColumn,
	})
	defer chrome.Close()
	fetcher := &fetch.RetryFetcher{Inner: chrome, Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff}

	m := metrics.New()
	mon := scheduler.NewMonitor(logger, fetcher, notifier, alerts, m, scheduler.Options{
		Interval:     cfg.PollInterval,
		Threshold:    cfg.ChangeThreshold,
		FetchTimeout: cfg.FetchTimeout,
		TableFile:    cfg.TableFile,
	}, scheduler.State{})

	api := httpapi.NewServer(logger, mon, alerts, m.Handler())
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(keys, cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	monDone := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(monDone)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_error", zap.Error(err))
	}
	<-monDone
	logger.Info("shutdown_complete")
	return nil
}

// openAlertLog picks postgres, then sqlite, then memory.
func openAlertLog(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.AlertLog, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		store, err := pg.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("alert_log", zap.String("backend", "postgres"))
		return store, store.Close, nil
	case cfg.AlertDBPath != "":
		store, err := sqlite.New(cfg.AlertDBPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("alert_log", zap.String("backend", "sqlite"), zap.String("path", cfg.AlertDBPath))
		return store, func() { _ = store.Close() }, nil
	default:
		logger.Info("alert_log", zap.String("backend", "memory"))
		return memory.New(200), func() {}, nil
	}
}

// buildNotifier fans out to every configured channel, or logs alerts when
// none is configured.
func buildNotifier(cfg config.Config, logger *zap.Logger) (notify.Notifier, error) {
	var multi notify.Multi
	if s := notify.NewSlack(cfg.SlackWebhookURL); s != nil {
		multi = append(multi, s)
	}
	if l := notify.NewLine(cfg.LineChannelToken, cfg.LineUserID); l != nil {
		multi = append(multi, l)
	}
	tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		return nil, err
	}
	if tg != nil {
		multi = append(multi, tg)
	}

	if len(multi) == 0 {
		logger.Warn("notify_no_channels", zap.String("fallback", "log"))
		return &notify.Log{Logger: logger}, nil
	}
	names := make([]string, 0, len(multi))
	for _, n := range multi {
		names = append(names, n.Name())
	}
	logger.Info("notify_channels", zap.Strings("channels", names))
	return multi, nil
}

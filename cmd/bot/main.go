package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"tenderbot/internal/bot"
	"tenderbot/internal/cache"
	"tenderbot/internal/config"
	"tenderbot/internal/fetcher"
	"tenderbot/internal/ratelimit"
	"tenderbot/internal/scanner"
	"tenderbot/internal/storage"
	"tenderbot/internal/summary"
)

const (
	summaryCallsPerMinute = 60
	cacheMaxAge           = 30 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	summaryCache, err := cache.NewFileStore(cfg.CacheDir)
	if err != nil {
		log.Error("open summary cache", "dir", cfg.CacheDir, "error", err)
		os.Exit(1)
	}
	if n, err := summaryCache.Sweep(cacheMaxAge); err != nil {
		log.Warn("sweep summary cache", "error", err)
	} else if n > 0 {
		log.Info("swept summary cache", "removed", n)
	}

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	summarizer := summary.New(
		openai.NewClient(cfg.OpenAIAPIKey),
		summaryCache,
		ratelimit.New(summaryCallsPerMinute),
		log,
	)

	sched := scanner.New(store, fetcher.New(http.DefaultClient, cfg.FeedURL), summarizer, b, log)
	sched.SetTickInterval(cfg.FetchInterval)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot", "feed_url", cfg.FeedURL, "interval", cfg.FetchInterval)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

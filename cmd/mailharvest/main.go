package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quailyard/mailharvest/internal/config"
	"github.com/quailyard/mailharvest/internal/ingest"
	"github.com/quailyard/mailharvest/internal/mailsource"
	"github.com/quailyard/mailharvest/internal/message"
	"github.com/quailyard/mailharvest/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)
	logger.Info("mailharvest starting",
		"protocol", cfg.Mail.Protocol,
		"host", cfg.Mail.Host,
		"mailbox", cfg.Mail.GetMailbox(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, cfg.Database.URI, cfg.Database.Database, cfg.Database.Collection, logger)
	if err != nil {
		logger.Error("store unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close(context.Background()) }()

	pipeline := ingest.New(
		newSource(cfg.Mail, logger),
		message.Parser{},
		st,
		ingest.Options{
			Mailbox:  cfg.Mail.GetMailbox(),
			MarkSeen: cfg.Mail.MarkSeen,
			Workers:  cfg.Ingest.GetConcurrency(),
		},
		logger,
	)

	interval := cfg.Ingest.Interval()
	if interval <= 0 {
		if _, err := pipeline.Run(ctx); err != nil {
			logger.Error("run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Daemon mode: keep polling on the interval; a failed run is
	// logged and retried on the next tick.
	if _, err := pipeline.Run(ctx); err != nil {
		logger.Error("run failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("mailharvest stopped")
			return
		case <-ticker.C:
			if _, err := pipeline.Run(ctx); err != nil {
				logger.Error("run failed", "error", err)
			}
		}
	}
}

func newSource(mail config.Mail, logger *slog.Logger) ingest.MailSource {
	if mail.Protocol == "pop3" {
		return mailsource.NewPOP3(
			mail.Host, mail.GetPort(),
			mail.Username, mail.Password,
			mail.InsecureSkipVerify, logger,
		)
	}
	return mailsource.NewIMAP(
		mail.Host, mail.GetPort(),
		mail.Username, mail.Password,
		mail.InsecureSkipVerify, logger,
	)
}

func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
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

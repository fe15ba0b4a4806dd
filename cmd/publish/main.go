package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"Newsletterwebserver/internal/config"
	"Newsletterwebserver/internal/content"
)

func main() {
	source := flag.String("source", "nouvelle_edition.html", "edition HTML file to publish")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	now := time.Now().In(cfg.Location)
	publisher := content.NewPublisher(cfg.ContentDir, cfg.Location)
	if err := publisher.Publish(context.Background(), *source, now); err != nil {
		logger.Error("publish failed", "source", *source, "err", err)
		os.Exit(1)
	}

	logger.Info("edition published",
		"source", *source,
		"dir", cfg.ContentDir,
		"visible_from", now.Add(cfg.ContentDelay).Format(time.DateTime),
	)
}

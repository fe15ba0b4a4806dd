package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"

	"Newsletterwebserver/internal/config"
	"Newsletterwebserver/internal/domain"
	"Newsletterwebserver/internal/email"
	"Newsletterwebserver/internal/service"
	"Newsletterwebserver/internal/store"
)

func main() {
	var (
		provider = flag.String("provider", "", "mail provider: smtp, brevo or mailgun (default APP_MAIL_PROVIDER)")
		htmlPath = flag.String("html", "", "send this HTML file instead of the digest of approved offers")
		to       = flag.String("to", "", "send a single test message to this address")
		dryRun   = flag.Bool("dry-run", false, "print the newsletter HTML and exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		color.Red.Println(err.Error())
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *provider, *htmlPath, *to, *dryRun); err != nil {
		color.Red.Println(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, provider, htmlPath, to string, dryRun bool) error {
	stores, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Close()

	svc := &service.DispatchService{
		Subscribers: stores.Subscribers,
		Submissions: stores.Submissions,
		Logs:        stores.DispatchLog,
		FromEmail:   cfg.Mail.From,
		FromName:    cfg.Mail.FromName,
		Subject:     cfg.Mail.Subject,
		Logger:      logger,
		OnResult:    printResult,
	}

	html, err := newsletterHTML(ctx, svc, htmlPath)
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Println(html)
		return nil
	}

	if svc.Sender, err = email.NewSender(cfg.Mail, provider); err != nil {
		return fmt.Errorf("mail sender: %w", err)
	}

	if to != "" {
		if err := svc.SendTest(ctx, to, html); err != nil {
			return fmt.Errorf("test send: %w", err)
		}
		color.Green.Printf("Email de test envoyé à %s\n", to)
		return nil
	}

	report, err := svc.SendToAll(ctx, html)
	if err != nil {
		return err
	}
	color.Cyan.Printf("Terminé : %d envoyés, %d échecs (%s)\n", report.Sent, report.Failed, svc.Sender.Provider())
	if report.Failed > 0 {
		return fmt.Errorf("%d envois en échec", report.Failed)
	}
	return nil
}

func newsletterHTML(ctx context.Context, svc *service.DispatchService, path string) (string, error) {
	if path == "" {
		return svc.RenderDigest(ctx)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return string(b), nil
}

func printResult(entry domain.DispatchLog) {
	if entry.Status == domain.DispatchSent {
		color.Green.Printf("✓ %s\n", entry.Recipient)
		return
	}
	color.Red.Printf("✗ %s : %s\n", entry.Recipient, entry.Error)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	"github.com/vitacall/notifier/internal/api/handlers/notification"
	"github.com/vitacall/notifier/internal/api/router"
	"github.com/vitacall/notifier/internal/api/server"
	"github.com/vitacall/notifier/internal/config"
	"github.com/vitacall/notifier/internal/dispatcher"
	"github.com/vitacall/notifier/internal/enrich"
	"github.com/vitacall/notifier/internal/provider"
	"github.com/vitacall/notifier/internal/repository/directory"
	notifrepo "github.com/vitacall/notifier/internal/repository/notification"
	notifsvc "github.com/vitacall/notifier/internal/service/notification"
	"github.com/vitacall/notifier/internal/template"
	"github.com/vitacall/notifier/pkg/sendgrid"
	"github.com/vitacall/notifier/pkg/smsgate"
	"github.com/vitacall/notifier/pkg/smtpmail"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	cfg := config.Must()
	val := validator.New()

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.Database)
	if err = rdb.Ping(ctx).Err(); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	registry, err := template.NewRegistry(cfg.Notify.DefaultLocale)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to build template registry")
	}

	repo := notifrepo.NewRepository(db)
	dir := directory.NewRepository(db, cfg.Notify.BaseURL)
	enricher := enrich.New(dir, cfg.Notify.BaseURL)

	var emailSender provider.EmailSender

	switch cfg.Email.Provider {
	case "sendgrid":
		client := sendgrid.NewClient(cfg.Email.SendGrid.APIKey, cfg.Email.SendGrid.BaseURL)
		emailSender = provider.NewSendGridSender(client, cfg.Email.FromEmail, cfg.Email.FromName)
	case "smtp":
		client := smtpmail.NewClient(cfg.Email.SMTP.Host, cfg.Email.SMTP.Port, cfg.Email.SMTP.Username, cfg.Email.SMTP.Password)
		emailSender = provider.NewSMTPSender(client, cfg.Email.FromEmail, cfg.Email.FromName)
	default:
		zlog.Logger.Fatal().Str("provider", cfg.Email.Provider).Msg("unknown email provider")
	}

	smsSender := provider.NewSMSGateSender(smsgate.NewClient(cfg.SMS.BaseURL, cfg.SMS.APIKey, cfg.SMS.From))
	adapter := provider.NewAdapter(emailSender, smsSender)

	disp := dispatcher.New(repo, dir, enricher, registry, adapter, dispatcher.Config{
		Interval:     cfg.Dispatcher.Interval,
		BatchSize:    cfg.Dispatcher.BatchSize,
		Workers:      cfg.Workers.Count,
		SendTimeout:  cfg.Dispatcher.SendTimeout,
		ClaimTimeout: cfg.Dispatcher.ClaimTimeout,
	}, cfg.Retry)

	dispDone := make(chan error, 1)
	go func() {
		dispDone <- disp.Run(ctx)
	}()

	service := notifsvc.NewService(repo, dir, rdb, cfg.Notify.DefaultLocale)
	notifHandler := notification.NewHandler(service, val, cfg)

	r := router.New(notifHandler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	select {
	case <-ctx.Done():
		zlog.Logger.Info().Msg("shutdown signal received")
	case err := <-dispDone:
		// The dispatcher only returns an error for configuration
		// failures; running on with it down would silently strand
		// pending notifications.
		if err != nil {
			zlog.Logger.Error().Err(err).Msg("dispatcher halted")
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}

	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}
}

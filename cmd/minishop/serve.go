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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	appadmin "github.com/Zhima-Mochi/minishop-chapa/internal/application/admin"
	appcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-chapa/internal/application/notification"
	apporder "github.com/Zhima-Mochi/minishop-chapa/internal/application/order"
	apppay "github.com/Zhima-Mochi/minishop-chapa/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/chapa"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/mailer"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	httppresentation "github.com/Zhima-Mochi/minishop-chapa/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/minishop-chapa/internal/presentation/worker"
)

const readHeaderTimeout = 10 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification worker and payment reconciler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(*configPath)
			if err != nil {
				return err
			}
			defer rt.close()
			return serve(cmd.Context(), rt)
		},
	}
}

func serve(parent context.Context, rt *runtime) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := rt.cfg
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	repos, err := openRepositories(ctx, rt, cfg.DB.MigrateOnStart)
	if err != nil {
		return err
	}
	defer func() { _ = repos.close() }()

	ids := id.NewUUIDGenerator()
	bus := outbox.NewBus(rt.tel, outbox.Options{
		QueueSize:      cfg.Outbox.QueueSize,
		Concurrency:    cfg.Outbox.Concurrency,
		HandlerTimeout: cfg.Outbox.HandlerTimeout,
	})

	content := newContentService(rt, repos)
	if err := content.SeedDefaults(ctx, cfg.Store.Name); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}

	gateway := chapa.New(cfg.Chapa.BaseURL, cfg.Chapa.SecretKey, &http.Client{Timeout: cfg.Chapa.Timeout})
	if cfg.Chapa.SecretKey == "" {
		rt.log.Warn("chapa_secret_key_missing")
	}
	if cfg.Chapa.WebhookSecret == "" {
		rt.log.Warn("chapa_webhook_secret_missing")
	}

	verify := apppay.NewVerifyPaymentUseCase(repos.payments, repos.orders, repos.products, gateway, bus, cfg.Chapa.Timeout, rt.tel)
	svc := httppresentation.Services{
		Auth:        newAuthService(rt, repos),
		Catalog:     appcatalog.NewService(repos.products, repos.categories, ids, rt.tel),
		Orders:      apporder.NewService(repos.orders, repos.products, bus, rt.tel),
		CreateOrder: apporder.NewCreateOrderUseCase(repos.orders, repos.products, ids, ids, content, bus, rt.tel),
		InitiatePayment: apppay.NewInitiatePaymentUseCase(repos.orders, repos.payments, repos.users, gateway, ids, ids,
			apppay.URLs{Callback: cfg.Chapa.CallbackURL, Return: cfg.Chapa.ReturnURL}, cfg.Chapa.Timeout, rt.tel),
		VerifyPayment: verify,
		Webhook:       apppay.NewHandleWebhookUseCase(cfg.Chapa.WebhookSecret, verify, rt.tel),
		Payments:      apppay.NewService(repos.payments),
		Content:       content,
		Admin:         appadmin.NewService(repos.users, repos.products, repos.orders, content, rt.tel),
	}

	if cfg.Auth.AdminEmail != "" {
		if _, err := svc.Auth.CreateAdmin(ctx, "Admin", cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		rt.log.Info("admin_bootstrapped", observability.F("email", cfg.Auth.AdminEmail))
	}

	notifier := notification.New(
		workerpresentation.NewSubscriber(bus, "notifications", rt.tel),
		repos.orders, repos.users, content, content,
		mailer.NewLogMailer(rt.log, cfg.Notification.LogBody),
		rt.tel,
	)
	notifier.Start()
	bus.Start(ctx)

	workers, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()
	reconcilerDone := make(chan struct{})
	if cfg.Reconciler.Enabled {
		rec := apppay.NewReconciler(repos.payments, verify, apppay.ReconcilerConfig{
			Grace:       cfg.Reconciler.Grace,
			Expiry:      cfg.Reconciler.Expiry,
			BaseBackoff: cfg.Reconciler.BaseBackoff,
			MaxBackoff:  cfg.Reconciler.MaxBackoff,
			BatchSize:   cfg.Reconciler.BatchSize,
		}, rt.tel)
		go func() {
			defer close(reconcilerDone)
			workerpresentation.NewReconcilerRunner(rec, cfg.Reconciler.Interval, rt.tel).Run(workers)
		}()
	} else {
		close(reconcilerDone)
	}

	handler := httppresentation.NewHandler(svc, httppresentation.Options{
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Metrics:      promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{Registry: rt.registry}),
		Ready:        repos.ready,
	}, rt.log, rt.tel)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		rt.log.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("backend", cfg.Repository.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			rt.log.Error("http_server_error", observability.F("error", err.Error()))
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		rt.log.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		rt.log.Info("http_server_stopped")
	}
	cancelWorkers()
	<-reconcilerDone
	bus.Stop(shutdownCtx)
	return runErr
}

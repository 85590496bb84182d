package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	appauth "github.com/Zhima-Mochi/minishop-chapa/internal/application/auth"
	appcontent "github.com/Zhima-Mochi/minishop-chapa/internal/application/content"
	"github.com/Zhima-Mochi/minishop-chapa/internal/config"
	domcatalog "github.com/Zhima-Mochi/minishop-chapa/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-chapa/internal/domain/order"
	dompay "github.com/Zhima-Mochi/minishop-chapa/internal/domain/payment"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/id"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/passwords"
	"github.com/Zhima-Mochi/minishop-chapa/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/pkg/logging"
)

// runtime holds the process-wide logging and telemetry.
type runtime struct {
	cfg      *config.Config
	zap      *zap.Logger
	log      observability.Logger
	tel      observability.Observability
	registry *prometheus.Registry
}

func newRuntime(configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	base, err := logging.NewLogger(logging.Options{
		Service: cfg.Service.Name,
		Env:     cfg.Service.Env,
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	zap.ReplaceGlobals(base)

	systemLogger := zaplogger.New(logging.WithTrace(base, logging.SystemTraceID, logging.SystemSpanID))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tel := infraobs.NewPrometheus(oteltrace.New(otel.GetTracerProvider(), cfg.Service.Name), zaplogger.New(base), prometrics.New("", "", reg))

	return &runtime{cfg: cfg, zap: base, log: systemLogger, tel: tel, registry: reg}, nil
}

func (rt *runtime) close() { _ = rt.zap.Sync() }

// repositories is the storage backend selected by repository.backend.
type repositories struct {
	users      domuser.Repository
	sessions   domuser.SessionRepository
	products   domcatalog.ProductRepository
	categories domcatalog.CategoryRepository
	orders     domorder.Repository
	payments   dompay.Repository
	content    appcontent.Repositories
	ready      func(ctx context.Context) error
	close      func() error
}

func openRepositories(ctx context.Context, rt *runtime, migrate bool) (*repositories, error) {
	switch rt.cfg.Repository.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, postgres.Config{
			DSN:             rt.cfg.DB.DSN,
			MaxOpenConns:    rt.cfg.DB.MaxOpenConns,
			MaxIdleConns:    rt.cfg.DB.MaxIdleConns,
			ConnMaxLifetime: rt.cfg.DB.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := runMigrations(ctx, rt, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		return postgresRepositories(db), nil
	default:
		users := memory.NewUserRepository()
		products, categories := memory.NewCatalogRepositories()
		return &repositories{
			users:      users,
			sessions:   users,
			products:   products,
			categories: categories,
			orders:     memory.NewOrderRepository(),
			payments:   memory.NewPaymentRepository(),
			content: appcontent.Repositories{
				Banners:   memory.NewBannerRepository(),
				Pages:     memory.NewPageRepository(),
				Templates: memory.NewTemplateRepository(),
				Settings:  memory.NewSettingRepository(),
			},
			close: func() error { return nil },
		}, nil
	}
}

func postgresRepositories(db *sql.DB) *repositories {
	users := postgres.NewUserRepository(db)
	return &repositories{
		users:      users,
		sessions:   users,
		products:   postgres.NewProductRepository(db),
		categories: postgres.NewCategoryRepository(db),
		orders:     postgres.NewOrderRepository(db),
		payments:   postgres.NewPaymentRepository(db),
		content: appcontent.Repositories{
			Banners:   postgres.NewBannerRepository(db),
			Pages:     postgres.NewPageRepository(db),
			Templates: postgres.NewTemplateRepository(db),
			Settings:  postgres.NewSettingRepository(db),
		},
		ready: func(ctx context.Context) error { return postgres.Ping(ctx, db) },
		close: db.Close,
	}
}

func runMigrations(ctx context.Context, rt *runtime, db *sql.DB) error {
	applied, err := postgres.Migrate(ctx, db)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rt.log.Info("migrations_applied", observability.F("count", len(applied)), observability.F("versions", applied))
	return nil
}

func newAuthService(rt *runtime, repos *repositories) *appauth.Service {
	ids := id.NewUUIDGenerator()
	return appauth.NewService(repos.users, repos.sessions, passwords.NewBcrypt(rt.cfg.Auth.BcryptCost),
		ids, ids, rt.cfg.Auth.SessionTTL, rt.tel)
}

func newContentService(rt *runtime, repos *repositories) *appcontent.Service {
	return appcontent.NewService(repos.content, id.NewUUIDGenerator(), rt.cfg.Store.Currency, rt.tel)
}

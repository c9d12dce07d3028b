package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"privflow/internal/bootstrap/config"
	"privflow/internal/bootstrap/database"
	"privflow/internal/bootstrap/logging"
	domain "privflow/internal/domain/privileging"
	cacheinfra "privflow/internal/infrastructure/cache"
	"privflow/internal/infrastructure/metrics"
	"privflow/internal/infrastructure/notify"
	sqliterepo "privflow/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "privflow/internal/infrastructure/persistence/sqlite/uow"
	"privflow/internal/ports"
	"privflow/internal/transport/httpapi"
	"privflow/internal/usecase/directory"
	"privflow/internal/usecase/privileging"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Invoke(configureLogging),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewLedgerRepository,
			fx.As(new(ports.LedgerRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewDirectoryRepository,
			fx.As(new(ports.OrganizationDirectory)),
			fx.As(new(ports.DirectoryWriter)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(metrics.NewRecorder),
	fx.Provide(provideNotifier),
	fx.Provide(provideWorkflow),
	fx.Provide(directory.NewService),
	fx.Provide(provideHTTPServer),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func configureLogging(cfg config.Config) error {
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logging.SetDefault(logger.With(slog.String("app", cfg.App.Name), slog.String("env", cfg.App.Env)))
	return nil
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.Notifier, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	switch strings.ToLower(cfg.Notification.Driver) {
	case "nats":
		n, err := notify.DialNATS(cfg.Notification.NATSURL, cfg.Notification.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return n.Close()
			},
		})
		logging.Info(logCtx, "nats notifier connected", slog.String("url", cfg.Notification.NATSURL))
		return n, nil
	default:
		return notify.NewLogNotifier(), nil
	}
}

type workflowParams struct {
	fx.In

	Config    config.Config
	Repo      ports.LedgerRepository
	Directory ports.OrganizationDirectory
	UOW       ports.UnitOfWork
	Notifier  ports.Notifier
	Metrics   *metrics.Recorder
	Cache     ports.Cache
}

func provideWorkflow(p workflowParams) *privileging.Service {
	return privileging.NewService(
		p.Repo,
		p.Directory,
		p.UOW,
		p.Notifier,
		p.Metrics,
		p.Cache,
		privileging.Options{
			Policy: domain.EscalationPolicy{
				WarningDays:    p.Config.Escalation.WarningDays,
				EscalationDays: p.Config.Escalation.EscalationDays,
				MaxLevel:       p.Config.Escalation.MaxLevel,
			},
			AutoApproveCore: p.Config.Workflow.AutoApproveCore,
			SweepWorkers:    p.Config.Escalation.SweepWorkers,
		},
	)
}

func provideHTTPServer(svc *privileging.Service, recorder *metrics.Recorder) *httpapi.Server {
	return httpapi.NewServer(svc, recorder.Handler())
}

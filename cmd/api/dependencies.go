package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/audit"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/billing"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/payment"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/registry"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/statement"
	"github.com/SmokyRM/snt-ulybka-sub005/internal/domain/tariff"
	"github.com/SmokyRM/snt-ulybka-sub005/pkg/config"
	"github.com/SmokyRM/snt-ulybka-sub005/pkg/cron"
	"github.com/SmokyRM/snt-ulybka-sub005/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	AuditRepo    audit.Repository
	PlotRepo     registry.Repository
	TariffRepo   tariff.Repository
	PaymentRepo  payment.Repository
	BillingRepo  billing.Repository
	BatchRepo    statement.Repository

	// Services
	TariffService    *tariff.Service
	BillingService   *billing.Service
	ImportService    *statement.Service
	RegistryImporter *registry.Importer
	Scheduler        *cron.Scheduler

	// Handlers
	TariffHandler   *tariff.Handler
	BillingHandler  *billing.Handler
	ImportHandler   *statement.Handler
	RegistryHandler *registry.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initDatabase(ctx context.Context) error {
	database, err := db.Connect(ctx, &d.Config.Database, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.Migrate("migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

func (d *Dependencies) initRepositories() {
	d.AuditRepo = audit.NewPostgresRepository(d.DB.Pool)
	d.PlotRepo = registry.NewPostgresRepository(d.DB.Pool)
	d.TariffRepo = tariff.NewPostgresRepository(d.DB.Pool)
	d.PaymentRepo = payment.NewPostgresRepository(d.DB.Pool)
	d.BillingRepo = billing.NewPostgresRepository(d.DB.Pool)
	d.BatchRepo = statement.NewPostgresRepository(d.DB.Pool)
	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices() {
	d.TariffService = tariff.NewService(d.TariffRepo, d.AuditRepo, d.Logger)
	d.BillingService = billing.NewService(d.BillingRepo, d.PlotRepo, d.TariffRepo, d.PaymentRepo, d.AuditRepo, d.Logger)
	d.ImportService = statement.NewService(d.BatchRepo, d.PlotRepo, d.PaymentRepo, d.BillingService, d.AuditRepo, d.Logger,
		statement.Options{
			PreviewRowCap: d.Config.Import.PreviewRowCap,
			MaxRows:       d.Config.Import.MaxRows,
		})
	d.RegistryImporter = registry.NewImporter(d.PlotRepo)

	if d.Config.Observability.DebtSnapshotJob != "" {
		d.Scheduler = cron.NewScheduler(d.BillingService, d.Config.Observability.DebtSnapshotJob, d.Logger)
	}
}

func (d *Dependencies) initHandlers() {
	maxFile := d.Config.Import.MaxFileSizeBytes
	d.TariffHandler = tariff.NewHandler(d.TariffService, d.Logger)
	d.BillingHandler = billing.NewHandler(d.BillingService, d.Logger)
	d.ImportHandler = statement.NewHandler(d.ImportService, maxFile, d.Logger)
	d.RegistryHandler = registry.NewHandler(d.PlotRepo, d.RegistryImporter, maxFile, d.Logger)
}

// Close releases held resources.
func (d *Dependencies) Close() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

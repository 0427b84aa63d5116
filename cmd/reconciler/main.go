package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/procure/reconciler/internal/application/ingest"
	"github.com/procure/reconciler/internal/application/recon"
	"github.com/procure/reconciler/internal/infrastructure/config"
	"github.com/procure/reconciler/internal/infrastructure/csvsource"
	"github.com/procure/reconciler/internal/infrastructure/event"
	"github.com/procure/reconciler/internal/infrastructure/logger"
	"github.com/procure/reconciler/internal/infrastructure/persistence"
	"github.com/procure/reconciler/internal/infrastructure/reportsink"
	"github.com/procure/reconciler/internal/infrastructure/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Warn("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditLogHandler(log))

	service := ingest.NewService(
		persistence.NewGormPurchaseOrderRepository(db.DB),
		persistence.NewGormInvoiceRepository(db.DB),
		bus,
		log,
		cfg.Ingest.AllowUnlinkedInvoices,
	)
	engine := recon.NewEngine(persistence.NewGormReconciliationRepository(db.DB), log)
	source := csvsource.NewDirectorySource(cfg.Ingest.InputDir, cfg.Ingest.ArchiveDir, log)
	sink := reportsink.NewCSVSink(cfg.Ingest.ReportDir, log)

	runner := ingest.NewRunner(source, service, engine, sink, bus, log)

	log.Info("Batch run starting",
		zap.String("input_dir", cfg.Ingest.InputDir),
		zap.String("report_dir", cfg.Ingest.ReportDir),
	)
	if err := runner.Run(ctx); err != nil {
		log.Fatal("Batch run failed", zap.Error(err))
	}
	log.Info("Batch run finished")
}

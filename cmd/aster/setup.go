package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/aster/config"
	changelogrepo "github.com/Ramsey-B/aster/internal/repositories/changelog"
	"github.com/Ramsey-B/aster/pkg/cache"
	"github.com/Ramsey-B/aster/pkg/changelog"
	"github.com/Ramsey-B/aster/pkg/database"
	"github.com/Ramsey-B/aster/pkg/events"
	"github.com/Ramsey-B/aster/pkg/kafka"
	"github.com/Ramsey-B/aster/pkg/reconcile"
	"github.com/Ramsey-B/aster/pkg/tracing"
	"github.com/Ramsey-B/aster/pkg/tracing/exporters"
)

const dimensionCacheTTL = 15 * time.Minute

func connectDatabase(cfg *config.Config, logger ectologger.Logger) (database.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.UserName,
		cfg.Database.Password, cfg.Database.Name, cfg.Database.SSLMode)

	conn, err := sqlx.Connect(cfg.Database.Driver, dsn)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		return nil, err
	}

	conn.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return database.NewDatabaseInstance(conn, logger), nil
}

func setupTracing(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	switch cfg.Tracing.Exporter {
	case "otlp":
		otlpExporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.Tracing.OTLPEndpoint,
			Protocol: cfg.Tracing.OTLPProtocol,
			Insecure: cfg.Tracing.OTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		exporter = otlpExporter
	default:
		exporter = &exporters.ConsoleExporter{}
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.App.Name))

	return provider.Shutdown, nil
}

func newEmitter(cfg *config.Config, logger ectologger.Logger) (*events.Emitter, func() error) {
	if !cfg.Kafka.Enabled {
		return nil, func() error { return nil }
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.OutputTopic,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: time.Duration(cfg.Kafka.BatchTimeoutMS) * time.Millisecond,
		RequiredAcks: cfg.Kafka.RequiredAcks,
		Compression:  cfg.Kafka.Compression,
	}, logger)

	return events.NewEmitter(producer, logger), producer.Close
}

func newReconciler(cfg *config.Config, db database.DB, logger ectologger.Logger, emitter *events.Emitter) *reconcile.Reconciler {
	repo := changelogrepo.NewRepository(db, logger)
	recorder := changelog.NewRecorder(repo, logger, cfg.App.Source)
	dimCache := cache.NewDimensionCache(dimensionCacheTTL)
	return reconcile.New(db, logger, recorder, dimCache, emitter)
}

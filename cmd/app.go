// cmd/app.go

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/invoicing-microservice/invoicer/pkg/archive"
	"github.com/invoicing-microservice/invoicer/pkg/config"
	"github.com/invoicing-microservice/invoicer/pkg/invoice"
	"github.com/invoicing-microservice/invoicer/pkg/logging"
	"github.com/invoicing-microservice/invoicer/pkg/numbering"
	"github.com/invoicing-microservice/invoicer/pkg/pipeline"
	"github.com/invoicing-microservice/invoicer/pkg/render"
	"github.com/invoicing-microservice/invoicer/pkg/store"
)

// application holds the wired components and the resources to release.
type application struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	service  *pipeline.Service
	coercion invoice.CoercionPolicy

	db    *sql.DB
	redis *redis.Client
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	logger, err := logging.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	app := &application{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app.coercion, err = invoice.ParseCoercionPolicy(cfg.Input.Coercion)
	if err != nil {
		return nil, err
	}

	records, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	numbers, err := app.allocator(records)
	if err != nil {
		app.Close()
		return nil, err
	}

	var opts []pipeline.Option
	if cfg.Archive.S3Bucket != "" {
		s3, err := archive.NewS3(cfg.Archive.S3Region, cfg.Archive.S3Bucket, cfg.Archive.S3Prefix)
		if err != nil {
			app.Close()
			return nil, err
		}
		opts = append(opts, pipeline.WithArchiver(s3))
	}

	app.service = pipeline.NewService(records, numbers, app.renderer(), logger.Named("pipeline"), opts...)
	return app, nil
}

// openStore uses PostgreSQL when a database URL is configured and memory
// otherwise.
func (app *application) openStore(ctx context.Context) (invoice.Store, error) {
	if app.cfg.Database.URL == "" {
		app.logger.Warn("no database configured, invoices are kept in memory")
		return store.NewMemory(), nil
	}
	db, err := store.Open(ctx, app.cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	app.db = db
	pg := store.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

func (app *application) allocator(records invoice.Store) (numbering.Allocator, error) {
	if app.cfg.Numbering.Strategy == "opaque" {
		return numbering.NewOpaque(), nil
	}

	switch app.cfg.Numbering.Counter {
	case "redis":
		opt, err := redis.ParseURL(app.cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		app.redis = redis.NewClient(opt)
		return numbering.NewSequential(numbering.NewRedisCounter(app.redis, app.cfg.Redis.Key, records)), nil
	case "postgres":
		pg, ok := records.(*store.Postgres)
		if !ok {
			return nil, errors.New("numbering.counter=postgres requires a database")
		}
		return numbering.NewSequential(pg.Counter("invoice")), nil
	default:
		return numbering.NewSequential(numbering.NewStoreCounter(records)), nil
	}
}

func (app *application) renderer() *render.Renderer {
	rc := app.cfg.Render
	var engine render.Engine
	switch rc.Engine {
	case "fpdf":
		engine = render.NewFPDFEngine()
	default:
		engine = render.NewChromeEngine(rc.ChromePath)
	}
	return render.NewRenderer(
		engine,
		&render.Template{Path: rc.TemplatePath},
		render.Options{CurrencySymbol: rc.CurrencySymbol, Timeout: rc.Timeout},
		app.logger.Named("render"),
		render.NewMetrics(app.registry),
	)
}

func (app *application) Close() {
	if app.redis != nil {
		app.redis.Close()
	}
	if app.db != nil {
		app.db.Close()
	}
	app.logger.Sync()
}

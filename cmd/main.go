// cmd/main.go

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

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/invoicing-microservice/invoicer/pkg/api"
	"github.com/invoicing-microservice/invoicer/pkg/auth"
	"github.com/invoicing-microservice/invoicer/pkg/config"
	"github.com/invoicing-microservice/invoicer/pkg/store"
)

func main() {
	app := &cli.App{
		Name:  "invoicer",
		Usage: "generate GST invoice PDFs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to YAML config file"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the PostgreSQL schema",
				Action: migrate,
			},
			{
				Name:  "sample",
				Usage: "render the sample invoice to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Value: "test-invoice.pdf", Usage: "output file"},
				},
				Action: sample,
			},
			{
				Name:  "token",
				Usage: "sign a bearer token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sub", Required: true, Usage: "account id"},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "email"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: token,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(c.String("config"))
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := api.NewServer(app.service, auth.NewJWTVerifier(cfg.Auth.JWTSecret), app.logger.Named("http"), api.Options{
		Development: cfg.Development(),
		Coercion:    app.coercion,
		Gatherer:    app.registry,
	})
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		app.logger.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("env", cfg.Env))
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url (DATABASE_URL) is not set")
	}
	db, err := store.Open(c.Context, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	return store.NewPostgres(db).Migrate(c.Context)
}

func sample(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	app, err := newApplication(c.Context, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.service.Sample(c.Context)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.String("out"), out.PDF, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", c.String("out"), err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", c.String("out"), len(out.PDF))
	return nil
}

func token(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) is not set")
	}
	tok, err := auth.NewJWTVerifier(cfg.Auth.JWTSecret).Sign(auth.Identity{
		ID:    c.String("sub"),
		Name:  c.String("name"),
		Email: c.String("email"),
	}, c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

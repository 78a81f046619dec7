package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/contentstore"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, logger, os.Args[2:])
	case "content":
		err = runContent(ctx, logger, os.Args[2:])
	case "paths":
		err = runPaths(ctx, os.Args[2:])
	case "version":
		fmt.Printf("spacetraveling %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(spacetraveling.EnvOr("LOG_LEVEL", "info"))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func runServe(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", spacetraveling.EnvOr("CONFIG", ""), "YAML config file")
	fs.Parse(args)

	cfg, err := spacetraveling.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	app := spacetraveling.New(cfg, views.New(cfg).Funcs(), spacetraveling.WithLogger(logger))
	defer app.Close()

	errc := make(chan error, 1)
	go func() { errc <- app.Start(ctx) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Echo.Shutdown(shutdownCtx)
}

// runContent serves a local content API backed by SQLite, optionally seeded
// from a fixture.
func runContent(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("content", flag.ExitOnError)
	addr := fs.String("addr", spacetraveling.EnvOr("CONTENT_ADDR", ":4000"), "listen address")
	dbPath := fs.String("db", spacetraveling.EnvOr("CONTENT_DB", "data/content.db"), "SQLite database path")
	seed := fs.String("seed", "", "YAML or JSON fixture to load before serving")
	token := fs.String("token", spacetraveling.EnvOr("PRISMIC_ACCESS_TOKEN", ""), "required access token")
	fs.Parse(args)

	store, err := contentstore.NewStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if *seed != "" {
		f, err := contentstore.ReadFixture(*seed)
		if err != nil {
			return err
		}
		n, err := store.Seed(ctx, f)
		if err != nil {
			return err
		}
		logger.Info("seeded documents", "count", n, "fixture", *seed)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	contentstore.NewServer(store, *token).Register(e.Group("/api/v2"))

	errc := make(chan error, 1)
	go func() {
		logger.Info("content api listening", "addr", *addr, "db", *dbPath)
		if err := e.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// runPaths prints every post path the site would prerender.
func runPaths(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("paths", flag.ExitOnError)
	configPath := fs.String("config", spacetraveling.EnvOr("CONFIG", ""), "YAML config file")
	fs.Parse(args)

	cfg, err := spacetraveling.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if cfg.PrismicEndpoint == "" {
		return errors.New("PRISMIC_ENDPOINT is required")
	}
	client, err := prismic.New(cfg.PrismicEndpoint, prismic.WithAccessToken(cfg.PrismicAccessToken))
	if err != nil {
		return err
	}
	paths, err := spacetraveling.NewDetail(client).StaticPaths(ctx)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func printUsage() {
	fmt.Println(`spacetraveling - A blog front-end for a headless CMS, built with Go, Echo, and templ

Usage:
  spacetraveling <command> [flags]

Commands:
  serve      Prerender and serve the site (-config file.yaml)
  content    Serve a local content API from SQLite (-addr, -db, -seed, -token)
  paths      Print every post path the site prerenders (-config file.yaml)
  version    Print the spacetraveling version
  help       Show this help message

Examples:
  spacetraveling content -seed posts.yaml
  PRISMIC_ENDPOINT=http://localhost:4000/api/v2 spacetraveling serve`)
}

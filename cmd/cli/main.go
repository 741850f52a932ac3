package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/modelbind/internal/app"
	"github.com/vk/modelbind/internal/cli"
	"github.com/vk/modelbind/internal/config"
	"github.com/vk/modelbind/internal/ctxlog"
	"github.com/vk/modelbind/models/arena"
)

// main is the entrypoint for the modelbind client.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctxlog.WithLogger(ctx, slog.Default()), opts.ConfigPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	bindApp, err := app.New(outW, cfg, &arena.Module{})
	if err != nil {
		return err
	}
	return bindApp.Run(ctx)
}

// applyOverrides lets command-line flags win over config file settings.
func applyOverrides(cfg *config.Config, opts *cli.Options) {
	if opts.ManifestsPath != "" {
		cfg.ManifestsPath = opts.ManifestsPath
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
}

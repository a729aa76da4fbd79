// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/tomtom215/taskgraph/internal/auth"
	"github.com/tomtom215/taskgraph/internal/config"
	"github.com/tomtom215/taskgraph/internal/logging"
	"github.com/tomtom215/taskgraph/internal/supervisor"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	issueToken  bool
	subject     string
	showVersion bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("taskgraph", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&opts.issueToken, "issue-token", false, "print a signed admin token and exit")
	fs.StringVar(&opts.subject, "subject", "admin", "subject claim for --issue-token")
	fs.BoolVar(&opts.showVersion, "version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if opts.issueToken {
		if err := issueToken(os.Stdout, &cfg.Security, opts.subject); err != nil {
			logging.Fatal().Err(err).Msg("Failed to issue admin token")
		}
		return
	}

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// issueToken writes an admin JWT for subject followed by a newline.
func issueToken(w io.Writer, sec *config.SecurityConfig, subject string) error {
	manager, err := auth.NewJWTManager(sec)
	if err != nil {
		return err
	}
	token, err := manager.GenerateToken(subject, auth.RoleAdmin)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

func run(cfg *config.Config) error {
	logging.Info().
		Str("version", version).
		Str("space_id", cfg.ClickUp.SpaceID).
		Int("target_lists", len(cfg.ClickUp.TargetListIDs)).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("eventbus", cfg.EventBus.Transport).
		Msg("Starting taskgraph with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	app.addServices(tree)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Str("addr", app.server.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}

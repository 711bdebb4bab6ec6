/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/suparena/personstore"
	"github.com/suparena/personstore/config"
	errs "github.com/suparena/personstore/errors"
	"github.com/suparena/personstore/logging"
)

// Exit codes by failure kind.
const (
	exitFailure     = 1
	exitInvalid     = 2
	exitNotFound    = 3
	exitConflict    = 4
	exitUnavailable = 5
)

// Runner holds the dependencies of every command action.
type Runner struct {
	cfg    *config.Config
	app    *personstore.App
	logger *slog.Logger
	output io.Writer
}

// RunnerOpts configures NewRunner.
type RunnerOpts struct {
	// App serves every command when set; otherwise each command opens and closes
	// its own from the loaded configuration.
	App    *personstore.App
	Logger *slog.Logger
	Output io.Writer
}

// NewRunner creates a Runner with the provided options
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{
		app:    opts.App,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) command() *cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		registerCommand, findCommand, updateCommand, deathCommand, listCommand,
		removeCommand, importCommand, bootstrapCommand, configCommand, versionCommand,
	} {
		commands = append(commands, fn(r))
	}

	return &cli.Command{
		Name:    "personctl",
		Usage:   "Manage persons in a PersonStore backend",
		Version: personstore.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				Sources: cli.EnvVars("PERSONSTORE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level",
			},
		},
		Before:   r.setup,
		Commands: commands,
	}
}

// setup loads the configuration and builds the logger before any command runs.
func (r *Runner) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
		if err := cfg.Validate(); err != nil {
			return ctx, err
		}
	}
	r.cfg = cfg

	if r.logger == nil {
		if r.logger, err = logging.New(os.Stderr, cfg.LogLevel); err != nil {
			return ctx, err
		}
	}
	return ctx, nil
}

// withApp runs fn against the injected App, or against one opened for this command.
func (r *Runner) withApp(ctx context.Context, fn func(*personstore.App) error) error {
	if r.app != nil {
		return fn(r.app)
	}
	app, err := personstore.Open(ctx, r.cfg, r.logger, nil)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format+"\n", args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func exitCode(err error) int {
	switch {
	case errs.IsValidationError(err):
		return exitInvalid
	case errs.IsNotFound(err):
		return exitNotFound
	case errs.IsConcurrentModification(err), errs.IsDuplicateIdentifier(err):
		return exitConflict
	case errs.IsBackendUnavailable(err), errs.IsCacheUnavailable(err):
		return exitUnavailable
	default:
		return exitFailure
	}
}

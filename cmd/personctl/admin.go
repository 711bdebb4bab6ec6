/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/suparena/personstore"
	"github.com/suparena/personstore/config"
	"github.com/suparena/personstore/datastore"
	"github.com/suparena/personstore/datastore/ddb"
	"github.com/suparena/personstore/datastore/postgres"
	"github.com/suparena/personstore/domain"
	"github.com/suparena/personstore/usecase"
)

// importEntry is one person in an import file.
type importEntry struct {
	Name      string `yaml:"name"`
	BirthDate string `yaml:"birth_date"`
	DeathDate string `yaml:"death_date"`
	Data      string `yaml:"data"`
}

func readImportFile(path string) ([]usecase.NewPerson, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	var entries []importEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse import file %s: %w", path, err)
	}

	batch := make([]usecase.NewPerson, 0, len(entries))
	for i, e := range entries {
		birth, err := domain.ParseDate(e.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		np := usecase.NewPerson{Name: e.Name, BirthDate: birth}
		if e.DeathDate != "" {
			death, err := domain.ParseDate(e.DeathDate)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			np.DeathDate = &death
		}
		if e.Data != "" {
			np.Data = []byte(e.Data)
		}
		batch = append(batch, np)
	}
	return batch, nil
}

// Import registers every person in a YAML file in one unit of work.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	batch, err := readImportFile(cmd.String("file"))
	if err != nil {
		return err
	}
	return r.withApp(ctx, func(app *personstore.App) error {
		people, err := app.People.BatchImport(ctx, batch)
		if err != nil {
			return err
		}
		return r.writeJSON(people)
	})
}

// Bootstrap prepares the configured backend: schema migrations for postgres,
// the table and id counter for dynamodb.
func (r *Runner) Bootstrap(ctx context.Context, cmd *cli.Command) error {
	switch r.cfg.BackendName() {
	case datastore.Postgres:
		pg := r.cfg.Postgres
		db, err := postgres.Open(ctx, postgres.ConnOptions{URL: pg.URL, Driver: pg.Driver})
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db, r.logger); err != nil {
			return err
		}
		return r.writePlainln("postgres schema is up to date")

	case datastore.DynamoDB:
		d := r.cfg.DynamoDB
		client, err := ddb.NewDynamoDBClient(ctx, ddb.ClientOptions{
			Region:    d.Region,
			AccessKey: d.AccessKey,
			SecretKey: d.SecretKey,
			Endpoint:  d.Endpoint,
		})
		if err != nil {
			return err
		}
		created, err := ddb.EnsureTable(ctx, client, d.Table, cmd.Duration("wait"), r.logger)
		if err != nil {
			return err
		}
		if err := ddb.New(client, d.Table, ddb.WithLogger(r.logger)).Bootstrap(ctx); err != nil {
			return err
		}
		if created {
			return r.writePlainln("created table %s", d.Table)
		}
		return r.writePlainln("table %s is ready", d.Table)

	default:
		return r.writePlainln("the %s backend needs no bootstrap", r.cfg.Backend)
	}
}

// Config prints the effective configuration with credentials redacted.
func (r *Runner) Config(ctx context.Context, cmd *cli.Command) error {
	out, err := config.Dump(r.cfg)
	if err != nil {
		return err
	}
	_, err = r.output.Write(out)
	return err
}

// Version prints build information.
func (r *Runner) Version(ctx context.Context, cmd *cli.Command) error {
	return r.writeJSON(personstore.GetVersionInfo())
}

func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Register every person listed in a YAML file, all or nothing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "YAML list of name, birth_date, death_date and data entries",
				Required: true,
			},
		},
		Action: r.Import,
	}
}

func bootstrapCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "bootstrap",
		Usage: "Create the schema or table the configured backend needs",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "How long to wait for a new DynamoDB table to become active",
				Value: 2 * time.Minute,
			},
		},
		Action: r.Bootstrap,
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "config",
		Usage:  "Print the effective configuration",
		Action: r.Config,
	}
}

func versionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Print version information",
		Action: r.Version,
	}
}

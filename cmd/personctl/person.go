/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/urfave/cli/v3"

	"github.com/suparena/personstore"
	"github.com/suparena/personstore/domain"
	errs "github.com/suparena/personstore/errors"
)

func idFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:     "id",
			Usage:    "Person id",
			Required: true,
		},
		&cli.Int64Flag{
			Name:     "revision",
			Aliases:  []string{"r"},
			Usage:    "Revision the change is based on",
			Required: true,
		},
	}
}

// dateFlag parses an ISO-8601 date flag; an unset flag yields nil.
func dateFlag(cmd *cli.Command, name string) (*strfmt.Date, error) {
	if !cmd.IsSet(name) {
		return nil, nil
	}
	d, err := domain.ParseDate(cmd.String(name))
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Register stores a new person and prints it.
func (r *Runner) Register(ctx context.Context, cmd *cli.Command) error {
	birth, err := dateFlag(cmd, "birth")
	if err != nil {
		return err
	}
	death, err := dateFlag(cmd, "death")
	if err != nil {
		return err
	}
	var data []byte
	if cmd.IsSet("data") {
		data = []byte(cmd.String("data"))
	}

	return r.withApp(ctx, func(app *personstore.App) error {
		p, err := app.People.Register(ctx, cmd.String("name"), *birth, death, data)
		if err != nil {
			return err
		}
		return r.writeJSON(p)
	})
}

// Find prints one person.
func (r *Runner) Find(ctx context.Context, cmd *cli.Command) error {
	return r.withApp(ctx, func(app *personstore.App) error {
		p, err := app.People.Find(ctx, cmd.Int64("id"))
		if err != nil {
			return err
		}
		return r.writeJSON(p)
	})
}

// Update applies the given field changes.
func (r *Runner) Update(ctx context.Context, cmd *cli.Command) error {
	var patch domain.Patch
	if cmd.IsSet("name") {
		name := cmd.String("name")
		patch.Name = &name
	}
	var err error
	if patch.BirthDate, err = dateFlag(cmd, "birth"); err != nil {
		return err
	}
	if patch.DeathDate, err = dateFlag(cmd, "death"); err != nil {
		return err
	}
	patch.ClearDeathDate = cmd.Bool("clear-death")
	if cmd.IsSet("data") {
		patch.Data = []byte(cmd.String("data"))
		patch.ReplaceData = true
	}
	if cmd.Bool("clear-data") {
		if patch.Data != nil {
			return errs.NewValidationError("data", "cannot both set and clear")
		}
		patch.ReplaceData = true
	}

	return r.withApp(ctx, func(app *personstore.App) error {
		p, err := app.People.Update(ctx, cmd.Int64("id"), cmd.Int64("revision"), patch)
		if err != nil {
			return err
		}
		return r.writeJSON(p)
	})
}

// RecordDeath records the death date of a person.
func (r *Runner) RecordDeath(ctx context.Context, cmd *cli.Command) error {
	date, err := dateFlag(cmd, "date")
	if err != nil {
		return err
	}
	return r.withApp(ctx, func(app *personstore.App) error {
		p, err := app.People.RecordDeath(ctx, cmd.Int64("id"), cmd.Int64("revision"), *date)
		if err != nil {
			return err
		}
		return r.writeJSON(p)
	})
}

// List prints every person, or those whose name starts with --name-prefix.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	return r.withApp(ctx, func(app *personstore.App) error {
		var (
			people []domain.Person
			err    error
		)
		if prefix := cmd.String("name-prefix"); prefix != "" {
			people, err = app.People.Search(ctx, func(p domain.Person) bool {
				return strings.HasPrefix(p.Name, prefix)
			})
		} else {
			people, err = app.People.ListAll(ctx)
		}
		if err != nil {
			return err
		}
		if people == nil {
			people = []domain.Person{}
		}
		return r.writeJSON(people)
	})
}

// Remove deletes a person.
func (r *Runner) Remove(ctx context.Context, cmd *cli.Command) error {
	return r.withApp(ctx, func(app *personstore.App) error {
		id := cmd.Int64("id")
		if err := app.People.Unregister(ctx, id, cmd.Int64("revision")); err != nil {
			return err
		}
		return r.writePlainln("removed person %d", id)
	})
}

func registerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Register a new person",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Full name", Required: true},
			&cli.StringFlag{Name: "birth", Usage: "Birth date (YYYY-MM-DD)", Required: true},
			&cli.StringFlag{Name: "death", Usage: "Death date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "data", Usage: "Opaque payload"},
		},
		Action: r.Register,
	}
}

func findCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "find",
		Usage: "Print a person by id",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "id", Usage: "Person id", Required: true},
		},
		Action: r.Find,
	}
}

func updateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Change fields of a person",
		Flags: append(idFlags(),
			&cli.StringFlag{Name: "name", Usage: "New name"},
			&cli.StringFlag{Name: "birth", Usage: "New birth date (YYYY-MM-DD)"},
			&cli.StringFlag{Name: "death", Usage: "New death date (YYYY-MM-DD)"},
			&cli.BoolFlag{Name: "clear-death", Usage: "Remove the death date"},
			&cli.StringFlag{Name: "data", Usage: "Replace the payload"},
			&cli.BoolFlag{Name: "clear-data", Usage: "Remove the payload"},
		),
		Action: r.Update,
	}
}

func deathCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "death",
		Usage: "Record the death of a person",
		Flags: append(idFlags(),
			&cli.StringFlag{Name: "date", Usage: "Death date (YYYY-MM-DD)", Required: true},
		),
		Action: r.RecordDeath,
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List persons in id order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name-prefix", Usage: "Only persons whose name starts with this"},
		},
		Action: r.List,
	}
}

func removeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "remove",
		Aliases: []string{"rm"},
		Usage:   "Delete a person",
		Flags:   idFlags(),
		Action:  r.Remove,
	}
}

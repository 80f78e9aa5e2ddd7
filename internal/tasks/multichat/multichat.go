// Package multichat sends one prompt to several chat models at once and
// prints every answer, or the error of each model that failed.
package multichat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/aitasks/core/fanout"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
)

// ErrAllFailed is returned when no model answered.
var ErrAllFailed = errors.New("every model failed")

// Command is the multichat program.
func Command() cli.Command {
	return cli.Command{
		Name: "multichat",
		Usage: "usage: multichat [-models a,b] [-roster file.yaml] [prompt]\n\n" +
			"Asks every model of the roster the same question and prints the answers.",
		Run: run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	fs := env.FlagSet(Command())
	models := fs.String("models", "", "comma-separated roster names, models or providers to query")
	rosterPath := fs.String("roster", env.Config.RosterPath, "YAML roster file (default: built-in roster)")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}

	roster, err := loadRoster(*rosterPath)
	if err != nil {
		return err
	}
	roster, err = roster.Select(strings.Split(*models, ","))
	if err != nil {
		return err
	}

	in, err := input.FirstOf(
		input.Args(fs.Args()),
		env.Console.Prompt("Enter your message: "),
	).Collect(ctx)
	if err != nil {
		return err
	}

	targets, err := env.Factory.Targets(roster)
	if err != nil {
		return err
	}

	env.Notef("Asking %d models...", len(targets))
	slots, err := fanout.Run(ctx, in.Text, targets, fanout.WithLogger(env.Logger))
	if err != nil {
		return err
	}

	Print(env, slots)
	if failed := fanout.Failed(slots); len(failed) == len(slots) {
		return fmt.Errorf("%w (%d of %d)", ErrAllFailed, len(failed), len(slots))
	}
	return nil
}

// Print writes one section per slot in roster order.
func Print(env *cli.Env, slots []fanout.Slot) {
	for i, slot := range slots {
		if i > 0 {
			env.Printf("\n")
		}
		env.Printf("=== %s ===\n", slot.Name)
		if !slot.OK() {
			env.Printf("Error: %v\n", slot.Err)
			continue
		}
		env.Printf("%s\n", strings.TrimSpace(slot.Response.Content))
	}
}

func loadRoster(path string) (config.Roster, error) {
	if path == "" {
		return config.DefaultRoster(), nil
	}
	return config.LoadRoster(path)
}

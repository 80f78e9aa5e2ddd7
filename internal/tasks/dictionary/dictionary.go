// Package dictionary turns an English word into a bilingual English-Finnish
// dictionary entry printed as JSON.
package dictionary

import (
	"context"
	"fmt"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/providers/ai/openai"
)

const (
	defaultTemperature = 0.3

	systemPrompt = "You are a bilingual English-Finnish dictionary generator. " +
		"Given an English word you write its Finnish dictionary entry: " +
		"'word' is the Finnish translation and every other field is written in Finnish. " +
		"Output valid JSON only. No markdown and no commentary."
)

// Entry is one dictionary entry. Lists are never null.
type Entry struct {
	Word       string   `json:"word" jsonschema:"description=the Finnish translation"`
	Definition string   `json:"definition" jsonschema:"description=definition in Finnish"`
	Synonyms   []string `json:"synonyms" jsonschema:"description=Finnish synonyms"`
	Antonyms   []string `json:"antonyms" jsonschema:"description=Finnish antonyms"`
	Examples   []string `json:"examples" jsonschema:"description=Finnish example sentences"`
}

// degraded keeps the raw model reply as the definition.
func degraded(word string) func(raw string) Entry {
	return func(raw string) Entry {
		return Entry{Word: word, Definition: raw}
	}
}

// Command is the dictionary program.
func Command() cli.Command {
	return cli.Command{
		Name:  "dictionary",
		Usage: "usage: dictionary [-o file] [word]\n\nPrints a Finnish dictionary entry for an English word as JSON.",
		Run:   run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	fs := env.FlagSet(Command())
	outFile := fs.String("o", "", "also save the entry under this name in the output directory")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}

	in, err := input.FirstOf(
		input.Args(fs.Args()),
		env.Console.Prompt("Word? "),
	).Collect(ctx)
	if err != nil {
		return err
	}
	if err := env.Config.Require(config.OpenAI); err != nil {
		return err
	}

	entry, err := Lookup(ctx, env, in.Text)
	if err != nil {
		return err
	}

	data, err := artifact.MarshalJSON(entry)
	if err != nil {
		return err
	}
	if _, err := env.Stdout.Write(data); err != nil {
		return err
	}

	if *outFile != "" {
		sink, err := env.Factory.Sink(ctx, "")
		if err != nil {
			return err
		}
		path, err := sink.Put(ctx, *outFile, data, "application/json")
		if err != nil {
			return err
		}
		env.Notef("Saved to %s", path)
	}
	return nil
}

// Lookup asks the model for the entry of word. Replies that are not clean
// JSON are recovered; a reply without any JSON yields an entry whose
// definition holds the raw text. Warnings go to stderr.
func Lookup(ctx context.Context, env *cli.Env, word string) (Entry, error) {
	base, err := env.Factory.Client(config.OpenAI,
		client.WithModel(env.Config.ModelOr(config.OpenAI, openai.DefaultChatModel)),
		client.WithTemperature(env.Config.TemperatureOr(config.OpenAI, defaultTemperature)),
		client.WithSystemPrompt(systemPrompt),
	)
	if err != nil {
		return Entry{}, err
	}
	dict := client.FromBaseClient[Entry](base).WithFallback(degraded(word))

	result, err := dict.SendMessage(ctx,
		fmt.Sprintf("Generate a dictionary entry for the word: '%s'. Remember: JSON output only.", word),
		client.WithJSONResponse(),
	)
	if err != nil {
		return Entry{}, err
	}
	env.Warn(result.Warning)
	return result.Data, nil
}

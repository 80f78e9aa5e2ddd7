// Package travelblog is an interactive SEO travel blog writer. Every topic
// produces several versions and the whole conversation is kept as history,
// so later versions are written knowing the earlier ones.
package travelblog

import (
	"context"
	"errors"
	"strings"

	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/openai"
	"github.com/leofalp/aitasks/providers/memory/inmemory"
)

const (
	DefaultVersions = 3

	SystemPrompt = "You are a creative content writer specializing in travel. " +
		"Write a short blog post based on the topic given below. " +
		"Ensure the writing is search engine optimized (SEO) by using varied synonyms and phrases. " +
		"Produce three distinct versions of the content. " +
		"Start the piece with a captivating introduction and include at least three cities with short descriptions. " +
		"End with a compelling call-to-action. Don't use a preamble."

	topicPrompt = "\nDiscovering Hidden Gems: The Underrated Cities You Need to Visit. Give me topic?\n... "
)

// Generation is tuned for varied wording: high temperature with penalties
// against repeating tokens and topics.
var Generation = ai.GenerationConfig{
	Temperature:      utils.Ptr(float32(1.5)),
	TopP:             1,
	PresencePenalty:  1.0,
	FrequencyPenalty: 1.0,
}

// Command is the travelblog program.
func Command() cli.Command {
	return cli.Command{
		Name: "travelblog",
		Usage: "usage: travelblog [-versions n] [-model name]\n\n" +
			"Writes SEO-friendly travel blog posts. Works with any OpenAI-compatible server (OPENAI_API_BASE_URL).",
		Run: run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	fs := env.FlagSet(Command())
	versions := fs.Int("versions", DefaultVersions, "versions written per topic")
	model := fs.String("model", env.Config.ModelOr(config.OpenAI, openai.DefaultChatModel), "chat model")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	if *versions < 1 {
		return ai.NewValidationError("versions", "must be at least 1, got %d", *versions)
	}

	settings := env.Config.Provider(config.OpenAI)
	// Local servers such as LM Studio accept any key.
	if settings.BaseURL == "" {
		if err := env.Config.Require(config.OpenAI); err != nil {
			return err
		}
	}

	writer, err := env.Factory.Client(config.OpenAI,
		client.WithModel(*model),
		client.WithSystemPrompt(SystemPrompt),
		client.WithMemory(inmemory.New()),
		client.WithGenerationConfig(Generation),
	)
	if err != nil {
		return err
	}

	env.Notef("SEO-OPTIMIZED TRAVEL BLOG GENERATOR")
	env.Notef("====================")
	env.Notef("Give a travel topic to %s, and I'll generate %d distinct SEO-friendly versions for you.", *model, *versions)
	env.Notef(" --> Enter 'exit' or 'quit' to say goodbye.")

	for {
		topic, err := env.Console.ReadLine(ctx, topicPrompt)
		if errors.Is(err, input.ErrClosed) || isExit(topic) {
			env.Notef("\nFarewell!")
			return nil
		}
		if err != nil {
			return err
		}

		if err := Write(ctx, env, writer, topic, *versions); err != nil {
			return err
		}
	}
}

// Write asks writer for n versions of topic and prints each one as it is
// generated. The client's memory receives every topic message and every
// assembled reply in order.
func Write(ctx context.Context, env *cli.Env, writer *client.Client, topic string, n int) error {
	for i := 1; i <= n; i++ {
		stream, err := writer.StreamMessage(ctx, topic)
		if err != nil {
			return err
		}

		env.Printf("\nStory %d:\n", i)
		started := false
		for event, err := range stream.Iter() {
			if err != nil {
				env.Printf("\n")
				return err
			}
			if event.Type != ai.StreamEventContent {
				continue
			}
			text := event.Content
			if !started {
				text = strings.TrimLeft(text, " \t\r\n")
				started = text != ""
			}
			env.Printf("%s", text)
		}
		env.Printf("\n")
	}
	return nil
}

func isExit(topic string) bool {
	switch strings.ToLower(strings.TrimSpace(topic)) {
	case "", "exit", "quit":
		return true
	}
	return false
}

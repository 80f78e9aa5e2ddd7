// Package interpreter records speech, transcribes it, translates the text
// and reads the translation aloud. Every intermediate result is saved.
package interpreter

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/chain"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/openai"
	"github.com/samber/lo"
)

// Artifact names written by the chain.
const (
	OriginalTextFile    = "original_text.txt"
	TranslatedTextFile  = "translated_text.txt"
	TranslatedSpeechMP3 = "translated_speech.mp3"

	translateModel = "gpt-4o"
)

// Language is a translation target.
type Language struct {
	Name string
	Code string
}

var Languages = []Language{
	{Name: "English", Code: "en"},
	{Name: "Finnish", Code: "fi"},
	{Name: "Swedish", Code: "sv"},
}

// ParseLanguage accepts a language name or its ISO code in any case.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	lang, ok := lo.Find(Languages, func(l Language) bool {
		return strings.EqualFold(l.Name, s) || strings.EqualFold(l.Code, s)
	})
	if !ok {
		names := lo.Map(Languages, func(l Language, _ int) string { return l.Name })
		return Language{}, ai.NewValidationError("language", "%q is not one of %s", s, strings.Join(names, ", "))
	}
	return lang, nil
}

// State flows through the chain.
type State struct {
	Target      Language
	Audio       []byte
	MimeType    string
	Transcript  string
	Translation string
	// Saved lists where each artifact ended up, in chain order.
	Saved []string
}

// Command is the interpreter program recording with the configured recorder.
func Command() cli.Command {
	return NewCommand(nil)
}

// NewCommand returns the program recording from open. A nil open uses the
// recorder command of the configuration.
func NewCommand(open input.Opener) cli.Command {
	return cli.Command{
		Name: "interpreter",
		Usage: "usage: interpreter [-lang en|fi|sv] [-file recording]\n\n" +
			"Records speech, then transcribes, translates and speaks the translation.",
		Run: func(ctx context.Context, env *cli.Env, args []string) error {
			return run(ctx, env, args, open)
		},
	}
}

func run(ctx context.Context, env *cli.Env, args []string, open input.Opener) error {
	fs := env.FlagSet(NewCommand(open))
	langFlag := fs.String("lang", "", "target language: English, Finnish or Swedish (asked when empty)")
	file := fs.String("file", "", "use this audio file instead of recording")
	voice := fs.String("voice", openai.DefaultVoice, "text-to-speech voice")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	if err := env.Config.Require(config.OpenAI); err != nil {
		return err
	}

	env.Notef("VOICE INTERPRETER PROGRAM")
	env.Notef("=========================")

	target, err := chooseLanguage(ctx, env, *langFlag)
	if err != nil {
		return err
	}
	env.Notef("\nTarget language selected: %s", target.Name)

	if open == nil {
		open = input.CommandOpener(env.Config.Recorder)
	}
	recording, err := input.FirstOf(
		input.AudioFile(*file),
		env.Console.Audio(open, input.DefaultAudioConfig()),
	).Collect(ctx)
	if err != nil {
		return err
	}

	sink, err := env.Factory.Sink(ctx, "")
	if err != nil {
		return err
	}
	pipeline, err := NewChain(env, sink, *voice)
	if err != nil {
		return err
	}
	state := &State{Target: target, Audio: recording.Audio, MimeType: recording.MimeType}
	if err := pipeline.Run(ctx, state); err != nil {
		return err
	}

	for _, path := range state.Saved {
		env.Notef("Saved %s", path)
	}
	env.Notef("Done.")
	return nil
}

func chooseLanguage(ctx context.Context, env *cli.Env, flagValue string) (Language, error) {
	if flagValue != "" {
		return ParseLanguage(flagValue)
	}
	names := lo.Map(Languages, func(l Language, _ int) string { return l.Name })
	i, err := env.Console.Choose(ctx, "Available target languages:", names)
	if err != nil {
		return Language{}, err
	}
	return Languages[i], nil
}

// NewChain builds transcribe → translate → speak. Each step saves its output
// to sink before the next one starts, so a failure keeps earlier results.
func NewChain(env *cli.Env, sink artifact.Sink, voice string) (*chain.Chain[State], error) {
	provider := env.Factory.OpenAI()
	translator, err := env.Factory.ClientFor(provider, config.OpenAI,
		client.WithModel(env.Config.ModelOr(config.OpenAI, translateModel)),
	)
	if err != nil {
		return nil, err
	}

	save := func(ctx context.Context, s *State, name string, data []byte, contentType string) error {
		path, err := sink.Put(ctx, name, data, contentType)
		if err != nil {
			return err
		}
		s.Saved = append(s.Saved, path)
		return nil
	}

	return chain.New[State](chain.WithLogger(env.Logger)).
		Step("transcribe", func(ctx context.Context, s *State) error {
			env.Notef("\nTranscribing...")
			resp, err := client.Transcribe(ctx, provider, ai.TranscriptionRequest{
				Model:    openai.DefaultTranscriptionModel,
				Audio:    s.Audio,
				FileName: "recorded." + artifact.ExtensionFor(s.MimeType),
				MimeType: s.MimeType,
			})
			if err != nil {
				return err
			}
			s.Transcript = strings.TrimSpace(resp.Text)
			if s.Transcript == "" {
				return ai.NewValidationError("audio", "no speech was recognized")
			}
			env.Printf("Original Text:\n%s\n\n", s.Transcript)
			return save(ctx, s, OriginalTextFile, []byte(s.Transcript), "text/plain; charset=utf-8")
		}).
		Step("translate", func(ctx context.Context, s *State) error {
			env.Notef("Translating...")
			resp, err := translator.SendMessage(ctx, s.Transcript,
				client.WithInstructions(fmt.Sprintf("You are a translator. Translate everything to %s. Only return the translated text.", s.Target.Name)),
			)
			if err != nil {
				return err
			}
			s.Translation = strings.TrimSpace(resp.Content)
			env.Printf("Translated Text:\n%s\n", s.Translation)
			return save(ctx, s, TranslatedTextFile, []byte(s.Translation), "text/plain; charset=utf-8")
		}).
		Step("speak", func(ctx context.Context, s *State) error {
			env.Notef("Generating speech...")
			resp, err := client.Synthesize(ctx, provider, ai.SpeechRequest{
				Model:  openai.DefaultSpeechModel,
				Input:  s.Translation,
				Voice:  voice,
				Format: "mp3",
			})
			if err != nil {
				return err
			}
			return save(ctx, s, TranslatedSpeechMP3, resp.Audio, resp.MimeType)
		}), nil
}

// Package speech2image turns spoken commands into images. Each round records
// a command, generates an image from its transcript and answers with a
// spoken message saved as an audio file.
package speech2image

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/openai"
)

const (
	imageModel = "dall-e-2"
	imageSize  = "1024x1024"

	msgRepeat = "Please repeat your command."
	msgFailed = "I couldn't generate the image. Please try again."
)

// Round is the outcome of one recorded command.
type Round struct {
	Command  string
	ImageURL string
	// Speech lists the saved spoken answers.
	Speech []string
}

// Command is the speech2image program recording with the configured recorder.
func Command() cli.Command {
	return NewCommand(nil)
}

// NewCommand returns the program recording from open. A nil open uses the
// recorder command of the configuration.
func NewCommand(open input.Opener) cli.Command {
	return cli.Command{
		Name:  "speech2image",
		Usage: "usage: speech2image [-save]\n\nSay what to draw; an image is generated from each spoken command.",
		Run: func(ctx context.Context, env *cli.Env, args []string) error {
			return run(ctx, env, args, open)
		},
	}
}

type session struct {
	env      *cli.Env
	provider *openai.OpenAIProvider
	sink     artifact.Sink
	save     bool
}

func run(ctx context.Context, env *cli.Env, args []string, open input.Opener) error {
	fs := env.FlagSet(NewCommand(open))
	save := fs.Bool("save", false, "download every generated image")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	if err := env.Config.Require(config.OpenAI); err != nil {
		return err
	}
	if open == nil {
		open = input.CommandOpener(env.Config.Recorder)
	}
	sink, err := env.Factory.Sink(ctx, "")
	if err != nil {
		return err
	}

	s := &session{env: env, provider: env.Factory.OpenAI(), sink: sink, save: *save}
	recorder := env.Console.Audio(open, input.DefaultAudioConfig())

	for n := 1; ; n++ {
		env.Notef("Listening for voice command...")
		recording, err := recorder.Collect(ctx)
		if errors.Is(err, input.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := s.Round(ctx, n, recording); err != nil {
			return err
		}

		again, err := env.Console.Confirm(ctx, "Generate another image?")
		if errors.Is(err, input.ErrClosed) || (err == nil && !again) {
			env.Notef("Command input ended.")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Round handles one recording. Recognition and generation failures are
// answered with a spoken message and do not end the session; only failures
// to speak or save are returned.
func (s *session) Round(ctx context.Context, n int, recording input.Input) (Round, error) {
	var round Round

	transcript, err := client.Transcribe(ctx, s.provider, ai.TranscriptionRequest{
		Audio:    recording.Audio,
		FileName: "command." + artifact.ExtensionFor(recording.MimeType),
		MimeType: recording.MimeType,
	})
	if err == nil {
		round.Command = strings.TrimSpace(transcript.Text)
	} else {
		s.env.Notef("Sorry, I did not understand the command: %v", err)
	}
	if round.Command == "" {
		return round, s.speak(ctx, &round, n, "repeat", msgRepeat)
	}
	s.env.Printf("Recognized command: %s\n", round.Command)

	if err := s.speak(ctx, &round, n, "generating", "Generating an image based on: "+round.Command); err != nil {
		return round, err
	}

	image, err := client.GenerateImage(ctx, s.provider, ai.ImageRequest{
		Model:  imageModel,
		Prompt: round.Command,
		N:      1,
		Size:   imageSize,
	})
	if err == nil && len(image.URLs()) == 0 {
		err = ai.NewProviderErrorf(config.OpenAI, "no image URL returned")
	}
	if err != nil {
		s.env.Notef("Failed to generate image: %v", err)
		return round, s.speak(ctx, &round, n, "failed", msgFailed)
	}
	round.ImageURL = image.URLs()[0]
	s.env.Printf("Generated Image URL: %s\n", round.ImageURL)

	if s.save {
		path, err := artifact.Save(ctx, s.env.Factory.HTTPClient(), s.sink, round.ImageURL, fmt.Sprintf("image_%d.png", n))
		if err != nil {
			return round, err
		}
		s.env.Notef("Image saved as %s", path)
	}
	return round, s.speak(ctx, &round, n, "done", "Here is your generated image: "+round.Command)
}

func (s *session) speak(ctx context.Context, round *Round, n int, label, message string) error {
	resp, err := client.Synthesize(ctx, s.provider, ai.SpeechRequest{Input: message, Format: "mp3"})
	if err != nil {
		return err
	}
	path, err := s.sink.Put(ctx, fmt.Sprintf("speech_%d_%s.mp3", n, label), resp.Audio, resp.MimeType)
	if err != nil {
		return err
	}
	round.Speech = append(round.Speech, path)
	s.env.Notef("%s (%s)", message, path)
	return nil
}

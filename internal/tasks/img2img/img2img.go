// Package img2img describes a local image with a vision model and generates a
// new image from that description.
package img2img

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/chain"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/openai"
)

const (
	describePrompt    = "What’s in this image?"
	describeMaxTokens = 300
	imageSize         = "1024x1024"
	// maxImagePrompt is the dall-e-3 prompt limit.
	maxImagePrompt = 4000
)

// ErrEmptyDescription aborts the chain before an image is requested.
var ErrEmptyDescription = errors.New("the description is empty, cannot generate an image")

// State flows through the chain.
type State struct {
	Path        string
	Image       []byte
	MimeType    string
	Description string
	ImageURL    string
	// SavedAs is set when the generated image was downloaded.
	SavedAs string
}

// Command is the img2img program.
func Command() cli.Command {
	return cli.Command{
		Name:  "img2img",
		Usage: "usage: img2img [-save] [image-path]\n\nDescribes an image and generates a new one from the description.",
		Run:   run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	fs := env.FlagSet(Command())
	save := fs.Bool("save", false, "download the generated image to the output directory")
	imageModel := fs.String("image-model", openai.DefaultImageModel, "image generation model")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}

	in, err := input.FirstOf(
		input.Args(fs.Args()),
		env.Console.Prompt("Enter a local filepath to an image: "),
	).Collect(ctx)
	if err != nil {
		return err
	}
	if err := env.Config.Require(config.OpenAI); err != nil {
		return err
	}

	pipeline, err := NewChain(env, *imageModel, *save)
	if err != nil {
		return err
	}
	state := &State{Path: strings.Trim(in.Text, `'"`)}
	if err := pipeline.Run(ctx, state); err != nil {
		return err
	}

	env.Printf("Generated image based on the description: %s\n", state.ImageURL)
	if state.SavedAs != "" {
		env.Notef("Image saved as %s", state.SavedAs)
	}
	return nil
}

// NewChain builds read → describe → generate, plus save when requested.
func NewChain(env *cli.Env, imageModel string, save bool) (*chain.Chain[State], error) {
	provider := env.Factory.OpenAI()
	vision, err := env.Factory.ClientFor(provider, config.OpenAI,
		client.WithModel(env.Config.ModelOr(config.OpenAI, openai.DefaultChatModel)),
		client.WithMaxOutputTokens(describeMaxTokens),
	)
	if err != nil {
		return nil, err
	}

	c := chain.New[State](chain.WithLogger(env.Logger)).
		Step("read image", readImage).
		Step("describe", func(ctx context.Context, s *State) error {
			resp, err := vision.SendMessage(ctx, describePrompt, client.WithImage(s.MimeType, s.Image))
			if err != nil {
				return err
			}
			s.Description = strings.TrimSpace(resp.Content)
			if s.Description == "" {
				return ErrEmptyDescription
			}
			env.Printf("Description: %s\n", s.Description)
			return nil
		}).
		Step("generate image", func(ctx context.Context, s *State) error {
			resp, err := client.GenerateImage(ctx, provider, ai.ImageRequest{
				Model:  imageModel,
				Prompt: utils.TruncateString(s.Description, maxImagePrompt),
				N:      1,
				Size:   imageSize,
			})
			if err != nil {
				return err
			}
			urls := resp.URLs()
			if len(urls) == 0 {
				return ai.NewProviderErrorf(config.OpenAI, "no image URL returned")
			}
			s.ImageURL = urls[0]
			return nil
		})

	if save {
		c.Step("save image", func(ctx context.Context, s *State) error {
			sink, err := env.Factory.Sink(ctx, "")
			if err != nil {
				return err
			}
			data, contentType, err := artifact.Download(ctx, env.Factory.HTTPClient(), s.ImageURL)
			if err != nil {
				return err
			}
			s.SavedAs, err = sink.Put(ctx, artifact.UniqueName("generated", artifact.ExtensionFor(contentType)), data, contentType)
			return err
		})
	}
	return c, nil
}

func readImage(_ context.Context, s *State) error {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return fmt.Errorf("couldn't read the image, make sure the path is correct and the file exists: %w", err)
	}
	if len(data) == 0 {
		return ai.NewValidationError("image", "%s is empty", s.Path)
	}
	s.Image = data
	s.MimeType = http.DetectContentType(data)
	if !strings.HasPrefix(s.MimeType, "image/") {
		s.MimeType = artifact.ContentTypeFor(s.Path)
	}
	if !strings.HasPrefix(s.MimeType, "image/") {
		return ai.NewValidationError("image", "%s is not an image (%s)", s.Path, s.MimeType)
	}
	return nil
}

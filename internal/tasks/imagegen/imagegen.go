// Package imagegen generates images with a Replicate model from a prompt and
// a handful of tunable parameters, then saves them locally.
package imagegen

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/replicate"
	"github.com/samber/lo"
)

var (
	// AspectRatios are the ratios flux-schnell accepts.
	AspectRatios = []string{"1:1", "16:9", "21:9", "3:2", "2:3", "4:5", "5:4", "4:3", "3:4", "9:16", "9:21"}
	Formats      = []string{"webp", "png", "jpg"}
)

// Params are the user-facing generation parameters. A nil Seed is random.
type Params struct {
	Prompt         string
	NegativePrompt string
	Seed           *int
	AspectRatio    string
	Format         string
	Count          int
	Quality        int
	Steps          int
}

// DefaultParams returns the values used for blank answers.
func DefaultParams() Params {
	return Params{
		AspectRatio: "1:1",
		Format:      "webp",
		Count:       1,
		Quality:     80,
		Steps:       4,
	}
}

// Validate checks every parameter before anything is sent.
func (p Params) Validate() error {
	switch {
	case utils.IsBlank(p.Prompt):
		return ai.NewValidationError("prompt", "must not be empty")
	case p.Seed != nil && *p.Seed < 0:
		return ai.NewValidationError("seed", "must not be negative, got %d", *p.Seed)
	case !lo.Contains(AspectRatios, p.AspectRatio):
		return ai.NewValidationError("aspect_ratio", "%q is not one of %s", p.AspectRatio, strings.Join(AspectRatios, ", "))
	case !lo.Contains(Formats, p.Format):
		return ai.NewValidationError("output_format", "%q is not one of %s", p.Format, strings.Join(Formats, ", "))
	case p.Count < 1 || p.Count > 4:
		return ai.NewValidationError("num_outputs", "%d is outside [1, 4]", p.Count)
	case p.Quality < 1 || p.Quality > 100:
		return ai.NewValidationError("output_quality", "%d is outside [1, 100]", p.Quality)
	case p.Steps < 1 || p.Steps > 4:
		return ai.NewValidationError("num_inference_steps", "%d is outside [1, 4]", p.Steps)
	}
	return nil
}

// Request maps the parameters onto an image request for model.
func (p Params) Request(model string) ai.ImageRequest {
	return ai.ImageRequest{
		Model:          model,
		Prompt:         p.Prompt,
		NegativePrompt: p.NegativePrompt,
		Seed:           p.Seed,
		AspectRatio:    p.AspectRatio,
		OutputFormat:   p.Format,
		N:              p.Count,
		Quality:        p.Quality,
		Steps:          p.Steps,
	}
}

func (p Params) seedLabel() string {
	if p.Seed == nil {
		return "random"
	}
	return strconv.Itoa(*p.Seed)
}

// Command is the imagegen program.
func Command() cli.Command {
	return cli.Command{
		Name: "imagegen",
		Usage: "usage: imagegen [flags] [prompt]\n\n" +
			"Generates images with Replicate. Without a prompt every parameter is asked interactively.",
		Run: run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	def := DefaultParams()
	fs := env.FlagSet(Command())
	negative := fs.String("negative", "", "negative prompt")
	seed := fs.Int("seed", -1, "seed for reproducible output (-1 for random)")
	aspect := fs.String("aspect", def.AspectRatio, "aspect ratio: "+strings.Join(AspectRatios, ", "))
	format := fs.String("format", def.Format, "output format: "+strings.Join(Formats, ", "))
	count := fs.Int("n", def.Count, "number of images (1-4)")
	quality := fs.Int("quality", def.Quality, "output quality (1-100)")
	steps := fs.Int("steps", def.Steps, "inference steps (1-4)")
	model := fs.String("model", replicate.DefaultModel, "Replicate model (owner/name)")
	yes := fs.Bool("y", false, "skip the confirmation")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}
	if err := env.Config.Require(config.Replicate); err != nil {
		return err
	}

	params := Params{
		Prompt:         strings.TrimSpace(strings.Join(fs.Args(), " ")),
		NegativePrompt: *negative,
		AspectRatio:    *aspect,
		Format:         *format,
		Count:          *count,
		Quality:        *quality,
		Steps:          *steps,
	}
	if *seed >= 0 {
		params.Seed = seed
	}

	if params.Prompt == "" {
		env.Notef("Welcome to the image generator!")
		env.Notef("This program uses the Replicate API to generate images.\n")
		var err error
		if params, err = Ask(ctx, env.Console, params); err != nil {
			return err
		}
	}
	if err := params.Validate(); err != nil {
		return err
	}

	describe(env, params)
	if !*yes {
		ok, err := env.Console.Confirm(ctx, "Do you want to continue?")
		if err != nil {
			return err
		}
		if !ok {
			env.Notef("Exiting")
			return nil
		}
	}

	env.Notef("Generating image...")
	resp, err := client.GenerateImage(ctx, env.Factory.Replicate(), params.Request(*model))
	if err != nil {
		return err
	}

	sink, err := env.Factory.Sink(ctx, "")
	if err != nil {
		return err
	}
	urls := resp.URLs()
	names := make([]string, len(urls))
	for i, u := range urls {
		names[i] = fmt.Sprintf("output_%d.%s", i, params.Format)
		path, err := artifact.Save(ctx, env.Factory.HTTPClient(), sink, u, names[i])
		if err != nil {
			return err
		}
		env.Notef("Image saved as %s", path)
	}

	env.Printf("URLs of the generated images:\n")
	for i, u := range urls {
		env.Printf("%s: %s\n", names[i], u)
	}
	return nil
}

// Ask fills params from the console. Blank answers keep the current value;
// numbers that do not parse are validation errors.
func Ask(ctx context.Context, console *input.Console, params Params) (Params, error) {
	ask := func(label, current string) (string, error) {
		answer, err := console.ReadLine(ctx, fmt.Sprintf("%s [%s]: ", label, current))
		if err != nil {
			return "", err
		}
		return utils.FirstNonEmpty(answer, current), nil
	}
	askInt := func(field, label string, current int) (int, error) {
		answer, err := ask(label, strconv.Itoa(current))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			return 0, ai.NewValidationError(field, "%q is not a number", answer)
		}
		return n, nil
	}

	var err error
	if params.Prompt, err = console.ReadLine(ctx, "Prompt for generated image: "); err != nil {
		return params, err
	}
	if params.NegativePrompt, err = ask("Negative prompt", params.NegativePrompt); err != nil {
		return params, err
	}

	seed, err := console.ReadLine(ctx, "Set seed for reproducible generation (integer or leave blank for random): ")
	if err != nil {
		return params, err
	}
	if seed != "" {
		n, convErr := strconv.Atoi(seed)
		if convErr != nil {
			return params, ai.NewValidationError("seed", "%q is not a number", seed)
		}
		params.Seed = &n
	}

	if params.AspectRatio, err = ask("Set aspect ratio ("+strings.Join(AspectRatios, ", ")+")", params.AspectRatio); err != nil {
		return params, err
	}
	if params.Format, err = ask("Set output format ("+strings.Join(Formats, ", ")+")", params.Format); err != nil {
		return params, err
	}
	if params.Count, err = askInt("num_outputs", "Set number of images to generate (1-4)", params.Count); err != nil {
		return params, err
	}
	if params.Quality, err = askInt("output_quality", "Set output quality (1-100)", params.Quality); err != nil {
		return params, err
	}
	if params.Steps, err = askInt("num_inference_steps", "Set number of inference steps (1-4)", params.Steps); err != nil {
		return params, err
	}
	return params, nil
}

func describe(env *cli.Env, p Params) {
	env.Notef("\nGenerating image using Replicate with the following parameters:")
	env.Notef("Prompt: %s", p.Prompt)
	if p.NegativePrompt != "" {
		env.Notef("Negative prompt: %s", p.NegativePrompt)
	}
	env.Notef("Seed: %s", p.seedLabel())
	env.Notef("Aspect ratio: %s", p.AspectRatio)
	env.Notef("Output format: %s", p.Format)
	env.Notef("Number of images: %d", p.Count)
	env.Notef("Output quality: %d", p.Quality)
	env.Notef("Number of inference steps: %d\n", p.Steps)
}

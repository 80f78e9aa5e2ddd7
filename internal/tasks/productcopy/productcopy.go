// Package productcopy writes a product description and a marketing slogan
// for each product photo with a Gemini vision model.
package productcopy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/gemini"
)

const (
	// UnparsedSlogan marks a reply without a usable slogan.
	UnparsedSlogan = "(Could not parse slogan)"

	tableTitle = "Gemini Product Descriptions"
)

// Copy is the generated text for one image.
type Copy struct {
	Description string `json:"description" jsonschema:"description=vivid 2-3 sentence product description of at most 100 words"`
	Slogan      string `json:"slogan" jsonschema:"description=catchy 8-word marketing slogan"`
}

func degraded(raw string) Copy {
	return Copy{Description: strings.TrimSpace(raw), Slogan: UnparsedSlogan}
}

// withSlogan marks a decoded reply that left the slogan out.
func withSlogan(c Copy) Copy {
	if strings.TrimSpace(c.Slogan) == "" {
		c.Slogan = UnparsedSlogan
	}
	return c
}

// BuildPrompt returns the copywriting prompt with optional extra context.
func BuildPrompt(extra string) string {
	prompt := "You are a product copywriter. For the given product photo, " +
		"write a vivid 2–3‑sentence product description (100 words max). " +
		"Then craft a catchy 8‑word marketing slogan. Output exactly the JSON schema:\n" +
		"{\n  \"description\": <string>,\n  \"slogan\": <string>\n}\n"
	if extra = strings.TrimSpace(extra); extra != "" {
		prompt += "Additional context: " + extra
	}
	return prompt
}

// Command is the productcopy program.
func Command() cli.Command {
	return cli.Command{
		Name: "productcopy",
		Usage: "usage: productcopy IMAGE... [-e context] [-model name] [-outfile output.json]\n\n" +
			"Generates product descriptions and slogans from product photos via Gemini.",
		Run: run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	flags := env.FlagSet(Command())
	var extra string
	flags.StringVar(&extra, "extra", "", "extra context to refine the description")
	flags.StringVar(&extra, "e", "", "shorthand for -extra")
	model := flags.String("model", env.Config.ModelOr(config.Gemini, gemini.DefaultModel), "Gemini vision model")
	outfile := flags.String("outfile", "output.json", "file to dump JSON results")
	images, err := cli.ParseInterspersed(flags, args)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("%w: at least one image is required", cli.ErrUsage)
	}
	if err := env.Config.Require(config.Gemini); err != nil {
		return err
	}

	base, err := env.Factory.Client(config.Gemini, client.WithModel(*model))
	if err != nil {
		return err
	}
	writer := client.FromBaseClient[Copy](base).WithFallback(degraded)
	prompt := BuildPrompt(extra)

	results := map[string]Copy{}
	var order []string
	for _, path := range images {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			env.Notef("Skipping missing file %s", path)
			continue
		}
		if err != nil {
			return err
		}
		mimeType := http.DetectContentType(data)
		if !strings.HasPrefix(mimeType, "image/") {
			return ai.NewValidationError("image", "%s is not an image (%s)", path, mimeType)
		}

		result, err := writer.SendMessage(ctx, prompt, client.WithImage(mimeType, data))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		env.Warn(result.Warning)

		name := filepath.Base(path)
		if _, seen := results[name]; !seen {
			order = append(order, name)
		}
		results[name] = withSlogan(result.Data)
	}

	if err := PrintTable(env, order, results); err != nil {
		return err
	}

	data, err := artifact.MarshalJSON(results)
	if err != nil {
		return err
	}
	sink, err := artifact.NewFileSink(filepath.Dir(*outfile))
	if err != nil {
		return err
	}
	saved, err := sink.Put(ctx, filepath.Base(*outfile), data, "application/json")
	if err != nil {
		return err
	}
	env.Notef("\nResults saved to %s", saved)
	return nil
}

// PrintTable writes the results as an aligned table in input order.
func PrintTable(env *cli.Env, order []string, results map[string]Copy) error {
	env.Printf("%s\n\n", tableTitle)
	tw := tabwriter.NewWriter(env.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Image\tDescription\tSlogan")
	for _, name := range order {
		c := results[name]
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", name, oneLine(c.Description, "-"), oneLine(c.Slogan, "-"))
	}
	return tw.Flush()
}

func oneLine(s, empty string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return empty
	}
	return s
}

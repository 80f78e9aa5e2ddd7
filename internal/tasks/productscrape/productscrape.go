// Package productscrape scrapes a product page and asks a chat model for an
// improved description.
package productscrape

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/providers/ai"
	"github.com/leofalp/aitasks/providers/ai/openai"
	"github.com/leofalp/aitasks/providers/tool/productpage"
)

// Result is the scraped product plus the rewritten description.
type Result struct {
	productpage.Product
	ImprovedDescription string `json:"improved_description"`
}

var generation = ai.GenerationConfig{MaxTokens: 150, TopP: 1}

// Command is the productscrape program.
func Command() cli.Command {
	return cli.Command{
		Name:  "productscrape",
		Usage: "usage: productscrape [url]\n\nScrapes a product page and prints it as JSON with an improved description.",
		Run:   run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	fs := env.FlagSet(Command())
	if err := cli.Parse(fs, args); err != nil {
		return err
	}

	in, err := input.FirstOf(
		input.Args(fs.Args()),
		env.Console.Prompt("Enter product URL: "),
	).Collect(ctx)
	if err != nil {
		return err
	}
	if err := env.Config.Require(config.OpenAI); err != nil {
		return err
	}

	product, err := productpage.Scrape(ctx, env.Factory.HTTPClient(), in.Text)
	if err != nil {
		return err
	}

	improved, err := Improve(ctx, env, product)
	if err != nil {
		return err
	}

	data, err := artifact.MarshalJSON(Result{Product: product, ImprovedDescription: improved})
	if err != nil {
		return err
	}
	_, err = env.Stdout.Write(data)
	return err
}

// Improve asks the model for a more appealing description of product.
func Improve(ctx context.Context, env *cli.Env, product productpage.Product) (string, error) {
	cfg := generation
	temperature := env.Config.TemperatureOr(config.OpenAI, 0.7)
	cfg.Temperature = &temperature

	c, err := env.Factory.Client(config.OpenAI,
		client.WithModel(env.Config.ModelOr(config.OpenAI, openai.DefaultChatModel)),
		client.WithGenerationConfig(cfg),
	)
	if err != nil {
		return "", err
	}
	resp, err := c.SendMessage(ctx, Prompt(product))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// Prompt renders the rewrite request. The price is reduced to its digits.
func Prompt(product productpage.Product) string {
	return fmt.Sprintf("Improve the product description by considering the product name, price, review rating, and existing description.\n\n"+
		"Product Name: %s\nOriginal Description: %s\nPrice: %s\nReview Rating: %s\n\n"+
		"Provide a more appealing and accurate improved description.",
		product.Name, product.Description, productpage.CleanPrice(product.Price), product.Rating)
}

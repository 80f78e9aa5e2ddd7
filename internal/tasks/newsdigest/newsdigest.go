// Package newsdigest searches recent news with Serper and optionally
// summarizes each article with a chat model.
package newsdigest

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/core/input"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai/openai"
	"github.com/leofalp/aitasks/providers/tool/serper"
	"github.com/leofalp/aitasks/providers/tool/webfetch"
)

const (
	DefaultTerm    = "AI-news"
	DefaultResults = 5

	summaryPrompt = "Summarize the following article in 100-150 words:\n\n%s"
	// maxArticleChars keeps long pages inside the model context.
	maxArticleChars = 12000
	fetchUserAgent  = "Mozilla/5.0"
)

// Item is one digest entry. Summary and Error are set in summarize mode.
type Item struct {
	serper.Article
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Digest is the result of one run.
type Digest struct {
	Term   string `json:"term"`
	Period string `json:"period"`
	Items  []Item `json:"items"`
}

// Command is the newsdigest program.
func Command() cli.Command {
	return cli.Command{
		Name: "newsdigest",
		Usage: "usage: newsdigest [-period today|week|month|year] [-n 1-10] [-summarize] [-o digest.json] [term]\n\n" +
			"Searches news and prints the hits, optionally with a summary of each article.",
		Run: run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	fs := env.FlagSet(Command())
	periodFlag := fs.String("period", "today", "time period: today, week, month or year")
	num := fs.Int("n", DefaultResults, "number of results (1-10)")
	summarize := fs.Bool("summarize", false, "load every article and summarize it")
	outFile := fs.String("o", "", "also save the digest as JSON under this name")
	if err := cli.Parse(fs, args); err != nil {
		return err
	}

	period, err := serper.ParsePeriod(*periodFlag)
	if err != nil {
		return err
	}
	in, err := input.FirstOf(input.Args(fs.Args()), input.Text(DefaultTerm)).Collect(ctx)
	if err != nil {
		return err
	}
	query := Query{Term: in.Text, Period: period, Num: *num, Summarize: *summarize}
	if err := env.Config.Require(query.Providers()...); err != nil {
		return err
	}

	env.Notef("Searching...")
	digest, err := Search(ctx, env, query, func(i int, item Item) {
		env.Printf("### %d. [%s](%s)\n%s\n", i+1, item.Title, item.Link, item.Snippet)
		switch {
		case item.Error != "":
			env.Printf("Could not summarize: %s\n", item.Error)
		case item.Summary != "":
			env.Printf("\n%s\n", item.Summary)
		}
		env.Printf("\n")
	})
	if err != nil {
		return err
	}
	if len(digest.Items) == 0 {
		env.Printf("No news found for '%s' in %s.\n", digest.Term, digest.Period)
		return nil
	}

	if *outFile != "" {
		sink, err := env.Factory.Sink(ctx, "")
		if err != nil {
			return err
		}
		path, err := artifact.WriteJSON(ctx, sink, *outFile, digest)
		if err != nil {
			return err
		}
		env.Notef("Saved to %s", path)
	}
	env.Notef("Done!")
	return nil
}

// Query is one news search.
type Query struct {
	Term      string
	Period    serper.Period
	Num       int
	Summarize bool
}

// Providers lists the API keys the query needs.
func (q Query) Providers() []string {
	if q.Summarize {
		return []string{config.Serper, config.OpenAI}
	}
	return []string{config.Serper}
}

// Search runs the query and, in summarize mode, loads and summarizes every
// article. onItem, when set, sees each item as soon as it is complete. An
// article that cannot be summarized keeps its error in the item.
func Search(ctx context.Context, env *cli.Env, q Query, onItem func(int, Item)) (Digest, error) {
	digest := Digest{Term: q.Term, Period: q.Period.Label()}
	articles, err := env.Factory.Serper().News(ctx, serper.NewsRequest{Query: q.Term, Period: q.Period, Num: q.Num})
	if err != nil {
		return digest, err
	}

	var summarizer *client.Client
	if q.Summarize && len(articles) > 0 {
		summarizer, err = env.Factory.Client(config.OpenAI,
			client.WithModel(env.Config.ModelOr(config.OpenAI, openai.DefaultChatModel)),
			client.WithTemperature(0),
		)
		if err != nil {
			return digest, err
		}
	}

	digest.Items = make([]Item, len(articles))
	for i, article := range articles {
		item := Item{Article: article}
		if summarizer != nil {
			env.Logger.Debug("summarizing article", "link", article.Link)
			item.Summary, err = Summarize(ctx, summarizer, article.Link)
			if err != nil {
				item.Error = err.Error()
			}
		}
		digest.Items[i] = item
		if onItem != nil {
			onItem(i, item)
		}
	}
	return digest, nil
}

// Summarize loads the page at link and asks summarizer for a 100-150 word
// summary of its text.
func Summarize(ctx context.Context, summarizer *client.Client, link string) (string, error) {
	page, err := webfetch.Fetch(ctx, webfetch.Input{URL: link, UserAgent: fetchUserAgent})
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", link, err)
	}
	if utils.IsBlank(page.Markdown) {
		return "", fmt.Errorf("%s has no readable text", link)
	}

	resp, err := summarizer.SendMessage(ctx, fmt.Sprintf(summaryPrompt, utils.TruncateString(page.Markdown, maxArticleChars)))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

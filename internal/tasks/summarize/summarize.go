// Package summarize answers a query, by default "Summarize the content",
// about local documents and web pages.
package summarize

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leofalp/aitasks/core/artifact"
	"github.com/leofalp/aitasks/core/client"
	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/config"
	"github.com/leofalp/aitasks/internal/utils"
	"github.com/leofalp/aitasks/providers/ai/openai"
	"github.com/leofalp/aitasks/providers/tool/webfetch"
)

const (
	DefaultQuery = "Summarize the content"

	systemPrompt = "You answer questions about the documents provided by the user. " +
		"Base the answer only on their content."
	// maxDocumentChars bounds each text source.
	maxDocumentChars = 60000
	previewChars     = 500
)

// files collects -f values; each value may hold several comma-separated paths.
type files []string

func (f *files) String() string { return strings.Join(*f, ",") }

func (f *files) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*f = append(*f, p)
		}
	}
	return nil
}

var _ flag.Value = (*files)(nil)

// Command is the summarize program.
func Command() cli.Command {
	return cli.Command{
		Name: "summarize",
		Usage: "usage: summarize [-f file]... [-u url] [-q query] [-o output] [file...]\n\n" +
			"Answers a query about text, Markdown, CSV, HTML, DOCX and PDF files or a web page.",
		Run: run,
	}
}

func run(ctx context.Context, env *cli.Env, args []string) error {
	fs := env.FlagSet(Command())
	var paths files
	fs.Var(&paths, "f", "input file (repeatable): "+strings.Join(Extensions, ", "))
	url := fs.String("u", "", "URL to extract text from")
	query := fs.String("q", DefaultQuery, "query to run on the content")
	output := fs.String("o", "", "file to write the result to")
	rest, err := cli.ParseInterspersed(fs, args)
	if err != nil {
		return err
	}
	paths = append(paths, rest...)

	if len(paths) == 0 && strings.TrimSpace(*url) == "" {
		return fmt.Errorf("%w: provide at least one input source: a file (-f) or a URL (-u)", cli.ErrUsage)
	}
	if utils.IsBlank(*query) {
		*query = DefaultQuery
	}
	if err := env.Config.Require(config.OpenAI); err != nil {
		return err
	}

	var docs []Document
	for _, path := range paths {
		env.Notef("Processing file: %s", path)
		doc, err := Load(path)
		if errors.Is(err, ErrUnsupported) {
			env.Notef("Skipping %s: %v", path, err)
			continue
		}
		if err != nil {
			return err
		}
		env.Logger.Debug("extracted document", "file", path, "preview", utils.TruncateString(doc.Text, previewChars))
		docs = append(docs, doc)
	}
	if *url != "" {
		env.Notef("Processing URL: %s", *url)
		page, err := webfetch.Fetch(ctx, webfetch.Input{URL: *url})
		if err != nil {
			return err
		}
		docs = append(docs, Document{Name: page.URL, Text: page.Markdown, MimeType: "text/markdown"})
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no supported input", cli.ErrUsage)
	}

	env.Notef("Executing query: %s", *query)
	answer, err := Ask(ctx, env, *query, docs)
	if err != nil {
		return err
	}
	if answer == "" {
		env.Notef("No result was generated.")
		return nil
	}

	if *output != "" {
		sink, err := artifact.NewFileSink(filepath.Dir(*output))
		if err != nil {
			return err
		}
		path, err := artifact.WriteText(ctx, sink, filepath.Base(*output), answer+"\n")
		if err != nil {
			return err
		}
		env.Notef("Writing result to: %s", path)
		return nil
	}
	env.Printf("Result:\n%s\n", answer)
	return nil
}

// Ask sends the query with every document in one request. Text documents are
// inlined under their name; PDFs are attached.
func Ask(ctx context.Context, env *cli.Env, query string, docs []Document) (string, error) {
	c, err := env.Factory.Client(config.OpenAI,
		client.WithModel(env.Config.ModelOr(config.OpenAI, openai.DefaultChatModel)),
		client.WithSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", err
	}

	var prompt strings.Builder
	prompt.WriteString(query)
	var opts []client.SendMessageOption
	for _, doc := range docs {
		if doc.Data != nil {
			opts = append(opts, client.WithDocument(doc.MimeType, doc.Data))
			fmt.Fprintf(&prompt, "\n\n### %s\n(attached)", doc.Name)
			continue
		}
		fmt.Fprintf(&prompt, "\n\n### %s\n%s", doc.Name, utils.TruncateString(strings.TrimSpace(doc.Text), maxDocumentChars))
	}

	resp, err := c.SendMessage(ctx, prompt.String(), opts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

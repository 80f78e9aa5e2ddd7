package summarize

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/leofalp/aitasks/internal/cli"
	"github.com/leofalp/aitasks/internal/tasks/taskstest"
)

type fakeOpenAI struct {
	mu       sync.Mutex
	prompts  []string
	files    []string
	article  string
	requests int
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/article" {
		_, _ = io.WriteString(w, f.article)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	var body struct {
		Messages []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	user := body.Messages[len(body.Messages)-1].Content

	var text string
	if err := json.Unmarshal(user, &text); err != nil {
		var parts []struct {
			Type string `json:"type"`
			Text string `json:"text"`
			File *struct {
				FileName string `json:"filename"`
				FileData string `json:"file_data"`
			} `json:"file"`
		}
		_ = json.Unmarshal(user, &parts)
		for _, p := range parts {
			switch p.Type {
			case "text":
				text = p.Text
			case "file":
				f.files = append(f.files, p.File.FileData)
			}
		}
	}
	f.prompts = append(f.prompts, text)
	_, _ = io.WriteString(w, taskstest.ChatReply("The documents describe a sauna trip."))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeDocx(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(out)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>First</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">paragraph.</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
</w:body></w:document>`)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDocxText(t *testing.T) {
	path := writeDocx(t, t.TempDir(), "notes.docx")
	got, err := DocxText(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "First\tparagraph.\nSecond paragraph." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	doc, err := Load(writeFile(t, dir, "page.html", "<html><body><h1>Title</h1><p>Body text</p></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Text, "# Title") || !strings.Contains(doc.Text, "Body text") {
		t.Errorf("unexpected markdown %q", doc.Text)
	}

	doc, err = Load(writeFile(t, dir, "report.pdf", "%PDF-1.4 fake"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.MimeType != "application/pdf" || doc.Text != "" || len(doc.Data) == 0 {
		t.Errorf("unexpected pdf document %+v", doc)
	}

	if _, err := Load(writeFile(t, dir, "fake.pdf", "not a pdf")); err == nil {
		t.Error("expected an error for a fake PDF")
	}
	if _, err := Load(writeFile(t, dir, "image.png", "png")); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestRun_FilesAndURL(t *testing.T) {
	dir := t.TempDir()
	notes := writeFile(t, dir, "notes.txt", "We went to the sauna.")
	csv := writeFile(t, dir, "costs.csv", "item,price\nsauna,15\n")
	docx := writeDocx(t, dir, "plan.docx")
	pdf := writeFile(t, dir, "ticket.pdf", "%PDF-1.4 ticket")
	skipped := writeFile(t, dir, "photo.png", "png")

	fake := &fakeOpenAI{article: "<html><body><p>Löyly is the steam.</p></body></html>"}
	h := taskstest.New(t, fake, "")

	args := []string{"-f", notes + "," + csv, "-f", docx, pdf, skipped, "-u", h.Server.URL + "/article", "-q", "What happened?"}
	if code := cli.Execute(context.Background(), Command(), h.Env, args); code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}

	if h.Stdout.String() != "Result:\nThe documents describe a sauna trip.\n" {
		t.Errorf("unexpected stdout %q", h.Stdout)
	}
	if fake.requests != 1 {
		t.Fatalf("expected one model call, got %d", fake.requests)
	}
	prompt := fake.prompts[0]
	for _, want := range []string{
		"What happened?",
		"### notes.txt\nWe went to the sauna.",
		"### costs.csv\nitem,price",
		"### plan.docx\nFirst\tparagraph.",
		"### ticket.pdf\n(attached)",
		"Löyly is the steam.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt misses %q:\n%s", want, prompt)
		}
	}
	if len(fake.files) != 1 || !strings.HasPrefix(fake.files[0], "data:application/pdf;base64,") {
		t.Errorf("unexpected attached files %v", fake.files)
	}
	if !strings.Contains(h.Stderr.String(), "Skipping "+skipped) {
		t.Errorf("unsupported file not reported: %s", h.Stderr)
	}
}

func TestRun_OutputFile(t *testing.T) {
	dir := t.TempDir()
	notes := writeFile(t, dir, "notes.md", "# Trip\nSauna and lake.")
	fake := &fakeOpenAI{}
	h := taskstest.New(t, fake, "")
	out := filepath.Join(dir, "results", "summary.txt")

	if code := cli.Execute(context.Background(), Command(), h.Env, []string{"-f", notes, "-o", out}); code != cli.ExitOK {
		t.Fatalf("exit code %d: %s", code, h.Stderr)
	}
	if h.Stdout.Len() != 0 {
		t.Errorf("stdout must stay empty, got %q", h.Stdout)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "The documents describe a sauna trip.\n" {
		t.Errorf("unexpected file content %q", data)
	}
	if !strings.HasPrefix(fake.prompts[0], DefaultQuery) {
		t.Errorf("default query not used: %q", fake.prompts[0])
	}
}

func TestRun_Validation(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no input", nil, cli.ExitUsage},
		{"only unsupported files", []string{"-f", writeFile(t, dir, "a.png", "x")}, cli.ExitUsage},
		{"missing file", []string{filepath.Join(dir, "missing.txt")}, cli.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeOpenAI{}
			h := taskstest.New(t, fake, "")
			if code := cli.Execute(context.Background(), Command(), h.Env, tt.args); code != tt.code {
				t.Errorf("exit code %d, want %d: %s", code, tt.code, h.Stderr)
			}
			if fake.requests != 0 {
				t.Errorf("expected no model calls, got %d", fake.requests)
			}
		})
	}
}

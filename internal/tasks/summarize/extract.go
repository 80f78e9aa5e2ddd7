package summarize

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/leofalp/aitasks/providers/tool/webfetch"
)

// ErrUnsupported is returned by Load for unknown file extensions.
var ErrUnsupported = errors.New("unsupported file type")

// Document is one loaded source. Text sources set Text; PDFs are passed to
// the model as they are and set Data instead.
type Document struct {
	Name     string
	Text     string
	Data     []byte
	MimeType string
}

// Extensions lists the supported file types.
var Extensions = []string{".txt", ".md", ".csv", ".html", ".htm", ".docx", ".pdf"}

// Load reads path and extracts its text according to the extension.
func Load(path string) (Document, error) {
	doc := Document{Name: filepath.Base(path)}
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md", ".csv":
		data, err := os.ReadFile(path)
		if err != nil {
			return doc, err
		}
		if !utf8.Valid(data) {
			return doc, fmt.Errorf("%s is not valid UTF-8 text", path)
		}
		doc.Text = string(data)
		doc.MimeType = "text/plain"
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return doc, err
		}
		if doc.Text, err = webfetch.ToMarkdown(string(data)); err != nil {
			return doc, err
		}
		doc.MimeType = "text/markdown"
	case ".docx":
		text, err := DocxText(path)
		if err != nil {
			return doc, err
		}
		doc.Text = text
		doc.MimeType = "text/plain"
	case ".pdf":
		data, err := os.ReadFile(path)
		if err != nil {
			return doc, err
		}
		if !strings.HasPrefix(string(data), "%PDF") {
			return doc, fmt.Errorf("%s is not a PDF file", path)
		}
		doc.Data = data
		doc.MimeType = "application/pdf"
	default:
		return doc, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	return doc, nil
}

// DocxText returns the paragraphs of a Word document, one per line.
func DocxText(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer archive.Close()

	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", path, err)
		}
		defer rc.Close()
		return paragraphs(rc)
	}
	return "", fmt.Errorf("%s has no word/document.xml", path)
}

func paragraphs(r io.Reader) (string, error) {
	var b strings.Builder
	dec := xml.NewDecoder(r)
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

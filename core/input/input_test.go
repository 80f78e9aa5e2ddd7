package input

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leofalp/aitasks/core/capture"
	"github.com/leofalp/aitasks/providers/ai"
)

func TestFirstOf(t *testing.T) {
	ctx := context.Background()
	console := NewConsole(strings.NewReader("typed word\n"), nil)

	in, err := FirstOf(Args([]string{"serendipity"}), console.Prompt("Word: ")).Collect(ctx)
	if err != nil || in.Text != "serendipity" || in.Origin != "args" {
		t.Errorf("argument must win, got %+v, %v", in, err)
	}

	in, err = FirstOf(Args(nil), console.Prompt("Word: ")).Collect(ctx)
	if err != nil || in.Text != "typed word" || in.Origin != "prompt" {
		t.Errorf("prompt must be used without arguments, got %+v, %v", in, err)
	}

	_, err = FirstOf(Args(nil), Text("  ")).Collect(ctx)
	if !ai.IsValidationError(err) {
		t.Errorf("expected ValidationError when every source is empty, got %v", err)
	}
}

func TestRequired(t *testing.T) {
	_, err := Required("url", Text("")).Collect(context.Background())
	var ve *ai.ValidationError
	if !errors.As(err, &ve) || ve.Field != "url" {
		t.Errorf("expected a ValidationError on url, got %v", err)
	}
}

func TestConsole_SharedReader(t *testing.T) {
	var out bytes.Buffer
	console := NewConsole(strings.NewReader("first\nsecond\nlast"), &out)
	ctx := context.Background()

	for _, want := range []string{"first", "second", "last"} {
		got, err := console.ReadLine(ctx, "> ")
		if err != nil || got != want {
			t.Fatalf("got %q, %v; want %q", got, err, want)
		}
	}
	if _, err := console.ReadLine(ctx, "> "); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if out.String() != "> > > > " {
		t.Errorf("unexpected prompts %q", out.String())
	}
}

func TestConsole_ConfirmAndChoose(t *testing.T) {
	ctx := context.Background()
	console := NewConsole(strings.NewReader("YES\nno\n7\nfinnish\n2\n"), nil)

	if ok, _ := console.Confirm(ctx, "Generate?"); !ok {
		t.Error("YES must confirm")
	}
	if ok, _ := console.Confirm(ctx, "Generate?"); ok {
		t.Error("no must not confirm")
	}

	options := []string{"English", "Finnish", "Swedish"}
	if i, err := console.Choose(ctx, "Language", options); err != nil || i != 1 {
		t.Errorf("expected Finnish after an invalid choice, got %d, %v", i, err)
	}
	if i, err := console.Choose(ctx, "Language", options); err != nil || i != 1 {
		t.Errorf("expected index 1, got %d, %v", i, err)
	}
}

func TestConsole_Audio(t *testing.T) {
	pr, pw := io.Pipe()
	stdinR, stdinW := io.Pipe()
	console := NewConsole(stdinR, nil)

	source := console.Audio(func(context.Context) (io.ReadCloser, error) {
		return pr, nil
	}, DefaultAudioConfig())

	go func() {
		_, _ = stdinW.Write([]byte("\n")) // start
		_, _ = pw.Write([]byte{1, 0, 2, 0})
		_, _ = stdinW.Write([]byte("\n")) // stop
	}()

	in, err := source.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !capture.IsWAV(in.Audio) || len(in.Audio) != 48 || in.MimeType != "audio/wav" {
		t.Errorf("unexpected audio input: %d bytes, %q", len(in.Audio), in.MimeType)
	}
}

func TestAudioFile(t *testing.T) {
	ctx := context.Background()

	in, err := AudioFile("").Collect(ctx)
	if err != nil || !in.Empty() {
		t.Errorf("an empty path must collect nothing, got %+v, %v", in, err)
	}

	path := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(path, []byte("ID3 audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	in, err = AudioFile(path).Collect(ctx)
	if err != nil || string(in.Audio) != "ID3 audio" || in.MimeType != "audio/mpeg" || in.Origin != "file" {
		t.Errorf("unexpected input %+v, %v", in, err)
	}

	if _, err := AudioFile(path + ".missing").Collect(ctx); err == nil {
		t.Error("a missing file must fail")
	}
}

package input

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/leofalp/aitasks/core/capture"
)

// Opener starts a recorder and returns its audio stream.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// AudioConfig describes the PCM stream produced by the recorder.
type AudioConfig struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	// MaxBytes caps the recording size; zero means no cap.
	MaxBytes int
}

// DefaultAudioConfig matches "arecord -f S16_LE -r 16000 -c 1 -t raw".
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:    capture.DefaultSampleRate,
		Channels:      capture.DefaultChannels,
		BitsPerSample: capture.DefaultBitsPerSample,
	}
}

// Audio returns a source that records between two presses of Enter and
// yields the recording as WAV. Streams that already carry a WAV header are
// passed through unchanged.
func (c *Console) Audio(open Opener, cfg AudioConfig) Source {
	return SourceFunc(func(ctx context.Context) (Input, error) {
		if err := c.WaitEnter(ctx, "Press Enter to start recording..."); err != nil {
			return Input{}, err
		}

		stream, err := open(ctx)
		if err != nil {
			return Input{}, fmt.Errorf("failed to start recording: %w", err)
		}
		session := capture.NewSession(stream, capture.WithMaxBytes(cfg.MaxBytes))
		if err := session.Start(); err != nil {
			_ = stream.Close()
			return Input{}, err
		}
		c.Printf("Recording... press Enter to stop.\n")

		waitErr := c.WaitEnter(ctx, "")
		pcm, err := session.Stop()
		if err != nil {
			return Input{}, err
		}
		if waitErr != nil {
			return Input{}, waitErr
		}
		c.Printf("Recording stopped (%d bytes).\n", len(pcm))

		if len(pcm) == 0 || capture.IsWAV(pcm) {
			return Input{Audio: pcm, MimeType: "audio/wav", Origin: "audio"}, nil
		}
		wav, err := capture.EncodeWAV(pcm, cfg.SampleRate, cfg.Channels, cfg.BitsPerSample)
		if err != nil {
			return Input{}, err
		}
		return Input{Audio: wav, MimeType: "audio/wav", Origin: "audio"}, nil
	})
}

// CommandOpener starts the recorder given as a command line.
func CommandOpener(commandLine string) Opener {
	return func(ctx context.Context) (io.ReadCloser, error) {
		return capture.ParseCommand(ctx, commandLine)
	}
}

// AudioFile reads a recording from disk. An empty path collects an empty
// Input so that FirstOf moves on to the next source.
func AudioFile(path string) Source {
	return SourceFunc(func(context.Context) (Input, error) {
		path = strings.TrimSpace(path)
		if path == "" {
			return Input{Origin: "file"}, nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return Input{}, fmt.Errorf("failed to read audio file: %w", err)
		}
		return Input{Audio: data, MimeType: audioMimeType(path), Origin: "file"}, nil
	})
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".mpga": "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".flac": "audio/flac",
}

func audioMimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "audio/wav"
}

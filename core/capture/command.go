package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// drainTimeout bounds how long Close waits for a reader to consume what the
// killed recorder had already written.
const drainTimeout = 2 * time.Second

// Recorder is an external recording process whose stdout is the audio
// stream. Closing it terminates the process.
type Recorder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr strings.Builder

	drained   chan struct{}
	eofOnce   sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Command starts name with args and returns its stdout as a capture source.
// Typical use: capture.Command(ctx, "arecord", "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw").
func Command(ctx context.Context, name string, args ...string) (*Recorder, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("recorder command must not be empty")
	}

	cmd := exec.CommandContext(ctx, name, args...)
	r := &Recorder{cmd: cmd, drained: make(chan struct{})}
	cmd.Stderr = &r.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open recorder output: %w", err)
	}
	r.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start recorder %q: %w", name, err)
	}
	return r, nil
}

// ParseCommand splits a command line such as "arecord -q -f S16_LE" on
// whitespace and starts it with [Command].
func ParseCommand(ctx context.Context, commandLine string) (*Recorder, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, errors.New("recorder command must not be empty")
	}
	return Command(ctx, fields[0], fields[1:]...)
}

func (r *Recorder) Read(p []byte) (int, error) {
	n, err := r.stdout.Read(p)
	if err != nil {
		r.eofOnce.Do(func() { close(r.drained) })
	}
	return n, err
}

// Close kills the recorder and waits for it to exit. Output the recorder
// wrote before it died stays readable until the reader reaches EOF or
// drainTimeout passes.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		if r.cmd.Process != nil {
			_ = r.cmd.Process.Kill()
		}
		select {
		case <-r.drained:
		case <-time.After(drainTimeout):
		}
		err := r.cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			r.closeErr = err
		}
	})
	return r.closeErr
}

// Stderr returns what the recorder printed on its standard error.
func (r *Recorder) Stderr() string {
	return r.stderr.String()
}

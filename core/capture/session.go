package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	ErrAlreadyStarted = errors.New("capture session already started")
	ErrNotStarted     = errors.New("capture session not started")
)

const readChunkSize = 4096

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxBytes stops buffering once n bytes have been captured. The source
// keeps being drained so the recorder never blocks.
func WithMaxBytes(n int) SessionOption {
	return func(s *Session) {
		s.maxBytes = n
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session captures bytes from a source between Start and Stop.
type Session struct {
	src      io.ReadCloser
	maxBytes int
	logger   *slog.Logger

	started atomic.Bool
	stopped atomic.Bool
	done    chan struct{}

	// Owned by the recording goroutine until done is closed.
	buf     bytes.Buffer
	readErr error
}

// NewSession creates a session over src. Nothing is read before Start.
func NewSession(src io.ReadCloser, opts ...SessionOption) *Session {
	s := &Session{
		src:  src,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Start begins recording in the background.
func (s *Session) Start() error {
	if s.src == nil {
		return errors.New("capture source must not be nil")
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go s.record()
	return nil
}

// Recording reports whether the session is capturing.
func (s *Session) Recording() bool {
	return s.started.Load() && !s.stopped.Load()
}

// record drains the source until it reports an error. A read error after
// Stop closed the source is the expected end of the stream.
func (s *Session) record() {
	defer close(s.done)

	chunk := make([]byte, readChunkSize)
	for {
		n, err := s.src.Read(chunk)
		if n > 0 && (s.maxBytes <= 0 || s.buf.Len() < s.maxBytes) {
			data := chunk[:n]
			if s.maxBytes > 0 {
				data = data[:min(n, s.maxBytes-s.buf.Len())]
			}
			s.buf.Write(data)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !s.stopped.Load() {
				s.readErr = err
			}
			return
		}
	}
}

// Stop closes the source, waits for the recorder to drain what the source
// still delivers and returns everything captured. Reading errors caused by
// closing the source are not reported. Stop may be called once.
func (s *Session) Stop() ([]byte, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}
	if !s.stopped.CompareAndSwap(false, true) {
		return nil, errors.New("capture session already stopped")
	}

	closeErr := s.src.Close()
	<-s.done

	if closeErr != nil && !isClosedError(closeErr) {
		s.logger.Warn("failed to close capture source", "error", closeErr)
	}
	if s.readErr != nil {
		return s.buf.Bytes(), fmt.Errorf("capture failed: %w", s.readErr)
	}
	s.logger.Debug("capture stopped", "bytes", s.buf.Len())
	return s.buf.Bytes(), nil
}

func isClosedError(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, fs.ErrClosed)
}

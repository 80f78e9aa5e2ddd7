package artifact

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrExpired is returned for entries older than the sink's expiry.
var ErrExpired = errors.New("artifact expired")

// Entry is one artifact held by a MemorySink.
type Entry struct {
	Name        string
	ContentType string
	Data        []byte
	ExpiresAt   time.Time
}

// MemorySink keeps artifacts in memory under random ids until they expire.
// A background goroutine removes expired entries until Close is called.
type MemorySink struct {
	expiry   time.Duration
	maxBytes int

	mu    sync.Mutex
	store map[string]Entry
	size  int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemorySink creates a sink whose entries live for expiry. maxBytes caps
// the total stored size, zero meaning unlimited. cleanupInterval zero
// disables the background sweep; expired entries are still refused on read.
func NewMemorySink(expiry time.Duration, maxBytes int, cleanupInterval time.Duration) *MemorySink {
	s := &MemorySink{
		expiry:   expiry,
		maxBytes: maxBytes,
		store:    make(map[string]Entry),
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					s.cleanup()
				case <-s.stop:
					return
				}
			}
		}()
	}
	return s
}

// ErrStoreFull is returned when an entry does not fit in the sink.
var ErrStoreFull = errors.New("artifact store is full")

// Put stores data and returns its id.
func (s *MemorySink) Put(_ context.Context, name string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && s.size+len(data) > s.maxBytes {
		s.removeExpiredLocked(time.Now())
		if s.size+len(data) > s.maxBytes {
			return "", ErrStoreFull
		}
	}

	id := uuid.NewString()
	s.store[id] = Entry{
		Name:        name,
		ContentType: contentType,
		Data:        data,
		ExpiresAt:   time.Now().Add(s.expiry),
	}
	s.size += len(data)
	return id, nil
}

// Get returns the entry stored under id.
func (s *MemorySink) Get(id string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.store[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if time.Now().After(entry.ExpiresAt) {
		delete(s.store, id)
		s.size -= len(entry.Data)
		return Entry{}, ErrExpired
	}
	return entry, nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.store)
}

// Close stops the background sweep.
func (s *MemorySink) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemorySink) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeExpiredLocked(time.Now())
}

func (s *MemorySink) removeExpiredLocked(now time.Time) {
	for id, entry := range s.store {
		if now.After(entry.ExpiresAt) {
			delete(s.store, id)
			s.size -= len(entry.Data)
		}
	}
}

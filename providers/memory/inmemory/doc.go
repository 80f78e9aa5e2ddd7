// Package inmemory provides a concurrency-safe, process-local implementation
// of [memory.Provider] backed by a slice guarded by a sync.RWMutex.
package inmemory

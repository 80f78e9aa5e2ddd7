// Package memory defines the conversation history contract used by
// multi-turn programs. The only implementation is the process-local
// [github.com/leofalp/aitasks/providers/memory/inmemory] store: history is
// never persisted across runs.
package memory

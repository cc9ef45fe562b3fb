package session

import (
	"sync"

	"github.com/authdash/internal/reactive"
)

// Navigator changes the current client location
type Navigator interface {
	// Push navigates to path
	Push(path string)
	// Reload restarts the current view from scratch
	Reload()
}

// History is an in-process Navigator that records every push. The current
// location is observable so a driver can follow navigation.
type History struct {
	mu       sync.Mutex
	entries  []string
	reloads  int
	location *reactive.Cell[string]
}

// NewHistory starts at path
func NewHistory(path string) *History {
	return &History{
		entries:  []string{path},
		location: reactive.New(path),
	}
}

// Push appends path and notifies location watchers, even when unchanged
func (h *History) Push(path string) {
	h.mu.Lock()
	h.entries = append(h.entries, path)
	h.mu.Unlock()
	h.location.Set(path, reactive.Force())
}

// Reload re-announces the current location
func (h *History) Reload() {
	h.mu.Lock()
	h.reloads++
	h.mu.Unlock()
	h.location.Set(h.location.Get(), reactive.Force())
}

// Current returns the current location
func (h *History) Current() string {
	return h.location.Get()
}

// Location exposes the current location cell
func (h *History) Location() *reactive.Cell[string] {
	return h.location
}

// Entries returns every location visited, oldest first
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Reloads returns how many times Reload was called
func (h *History) Reloads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reloads
}

package gazetteer

import (
	"fmt"
	"sync"
)

// Holder keeps the current index for long-running processes and swaps it on reload.
type Holder struct {
	mu   sync.RWMutex
	idx  *Index
	path string
}

// NewHolder creates an empty holder for the gazetteer at path (file or directory).
func NewHolder(path string) *Holder {
	return &Holder{path: path}
}

// NewStaticHolder wraps an already built index; Reload is a no-op.
func NewStaticHolder(idx *Index) *Holder {
	return &Holder{idx: idx}
}

// Load opens the gazetteer and replaces the current index on success.
func (h *Holder) Load() error {
	if h.path == "" {
		return nil
	}
	idx, err := Open(h.path)
	if err != nil {
		return fmt.Errorf("load gazetteer %s: %w", h.path, err)
	}
	h.mu.Lock()
	h.idx = idx
	h.mu.Unlock()
	return nil
}

// Reload reloads the gazetteer from disk (hot reload). The previous index
// stays in place when loading fails.
func (h *Holder) Reload() error {
	return h.Load()
}

// Index returns the current index (nil before the first successful Load).
func (h *Holder) Index() *Index {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idx
}

// Len returns the number of entries in the current index.
func (h *Holder) Len() int {
	if idx := h.Index(); idx != nil {
		return idx.Len()
	}
	return 0
}

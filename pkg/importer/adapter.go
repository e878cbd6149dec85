// Package importer downloads administrative datasets and compiles them into
// gazetteer directories (manifest.yaml + data.gob).
package importer

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Adapter downloads one source and writes a gazetteer directory.
type Adapter interface {
	// ID returns the unique identifier of this adapter (e.g. "insee-cog-communes").
	ID() string
	// GazetteerID returns the target gazetteer ID, also the output subdirectory.
	GazetteerID() string
	Description() string
	// DefaultURL returns the URL used when seeding the source store.
	DefaultURL() string
	License() string
	// Import downloads sourceURL, transforms it, and writes data.gob +
	// manifest.yaml into outputDir/GazetteerID().
	Import(ctx context.Context, sourceURL, outputDir string) error
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.ID()] = a
}

// Get returns a registered adapter by ID.
func Get(id string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown import source: %q", id)
	}
	return a, nil
}

// All returns all registered adapters sorted by ID.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

package engine

import (
	"sort"
	"sync"

	"github.com/yildizm/LogoMatch/internal/feature"
	"github.com/yildizm/LogoMatch/internal/index"
)

// CollectionStore owns the prepared state of one engine instance:
// per-folder indexes and the extracted feature cache. It is an
// explicit handle, never ambient state, so independent engines and
// tests cannot observe each other.
type CollectionStore struct {
	mu          sync.RWMutex
	collections map[string]*index.Collection
	features    map[string]feature.Bundle // image path -> bundle
}

// NewCollectionStore creates an empty store
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{
		collections: make(map[string]*index.Collection),
		features:    make(map[string]feature.Bundle),
	}
}

// Set installs a folder's collection and feature bundles, replacing
// any prior state for that folder atomically.
func (cs *CollectionStore) Set(folder string, coll *index.Collection, bundles map[string]feature.Bundle) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if prior, ok := cs.collections[folder]; ok {
		for _, path := range prior.Paths {
			delete(cs.features, path)
		}
	}
	cs.collections[folder] = coll
	for path, b := range bundles {
		cs.features[path] = b
	}
}

// Get returns a folder's collection if prepared
func (cs *CollectionStore) Get(folder string) (*index.Collection, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	coll, ok := cs.collections[folder]
	return coll, ok
}

// Bundle returns the cached feature bundle for an image path
func (cs *CollectionStore) Bundle(path string) (feature.Bundle, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	b, ok := cs.features[path]
	return b, ok
}

// Folders lists prepared folder paths, sorted
func (cs *CollectionStore) Folders() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	folders := make([]string, 0, len(cs.collections))
	for folder := range cs.collections {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders
}

// Len returns the number of prepared folders
func (cs *CollectionStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.collections)
}

// Clear drops all prepared state
func (cs *CollectionStore) Clear() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.collections = make(map[string]*index.Collection)
	cs.features = make(map[string]feature.Bundle)
}

// Package catalog persists per-file sample maps and profiles so a data
// dictionary can be assembled across runs.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/datacatalog-cli/internal/sampler"
)

// ErrNotFound is returned by Get when no entry exists for a file.
var ErrNotFound = errors.New("catalog entry not found")

// Entry is the catalog record of one file. Folder and File identify it;
// storing the same pair again replaces the previous entry.
type Entry struct {
	ID        string             `json:"id"`
	Folder    string             `json:"folder"`
	File      string             `json:"file"`
	Format    string             `json:"format"`
	Samples   *sampler.SampleMap `json:"samples,omitempty"`
	Profile   json.RawMessage    `json:"profile,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewEntry returns an entry with a fresh id and timestamp.
func NewEntry(folder, file, format string) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Folder:    folder,
		File:      file,
		Format:    format,
		CreatedAt: time.Now().UTC(),
	}
}

// Store is a catalog backend.
type Store interface {
	Put(ctx context.Context, e *Entry) error
	Get(ctx context.Context, folder, file string) (*Entry, error)
	// List returns all entries ordered by folder, then file.
	List(ctx context.Context) ([]*Entry, error)
	Close() error
}

type factory func(ctx context.Context, path string) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register makes a backend available under driver. Registering a driver twice
// panics.
func Register(driver string, f factory) {
	mu.Lock()
	defer mu.Unlock()
	if driver == "" || f == nil {
		panic("catalog: Register called with empty driver or nil factory")
	}
	if _, exists := factories[driver]; exists {
		panic(fmt.Sprintf("catalog: driver %q already registered", driver))
	}
	factories[driver] = f
}

func init() {
	Register("json", openJSON)
	Register("sqlite", openSQLite)
}

// Open returns the store for driver at path.
func Open(ctx context.Context, driver, path string) (Store, error) {
	mu.RLock()
	f := factories[driver]
	mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}
	if path == "" {
		return nil, errors.New("catalog path is empty")
	}
	return f(ctx, path)
}

func sortEntries(es []*Entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Folder == es[j].Folder {
			return es[i].File < es[j].File
		}
		return es[i].Folder < es[j].Folder
	})
}

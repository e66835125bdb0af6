package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/KaramelBytes/datacatalog-cli/internal/utils"
)

// jsonStore keeps the whole catalog in one JSON document, rewritten
// atomically on every Put.
type jsonStore struct {
	mu      sync.Mutex
	path    string
	entries []*Entry
}

type jsonDoc struct {
	Entries []*Entry `json:"entries"`
}

func openJSON(_ context.Context, path string) (Store, error) {
	s := &jsonStore{path: path}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var doc jsonDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	s.entries = doc.Entries
	return s, nil
}

func (s *jsonStore) Put(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	replaced := false
	for i, cur := range s.entries {
		if cur.Folder == e.Folder && cur.File == e.File {
			s.entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		s.entries = append(s.entries, e)
	}
	sortEntries(s.entries)
	if err := utils.EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(jsonDoc{Entries: s.entries})
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(s.path, data)
}

func (s *jsonStore) Get(_ context.Context, folder, file string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Folder == folder && e.File == file {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Join(folder, file))
}

func (s *jsonStore) List(_ context.Context) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]*Entry(nil), s.entries...)
	sortEntries(out)
	return out, nil
}

func (s *jsonStore) Close() error { return nil }

// Package snapshot keeps request payloads on disk for audit and debugging,
// one file per request named by a time-ordered ULID, with count-based
// retention.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/alnah/go-docgen/internal/fileutil"
)

const ext = ".json"

// ErrNotFound is returned by Get for unknown or malformed ids.
var ErrNotFound = errors.New("snapshot not found")

// Meta describes a stored snapshot.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Size      int64     `json:"size"`
}

// Store reads and writes snapshots under one directory.
type Store struct {
	dir  string
	keep int

	// mu serializes Prune so two runs never race on the same files.
	mu sync.Mutex
}

// NewStore creates dir if needed. keep is how many snapshots Prune retains;
// zero keeps everything.
func NewStore(dir string, keep int) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot directory is required")
	}
	if keep < 0 {
		return nil, fmt.Errorf("snapshot keep count must not be negative, got %d", keep)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &Store{dir: dir, keep: keep}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes payload under a new id and returns the id.
func (s *Store) Save(payload []byte) (string, error) {
	id := ulid.Make().String()
	if err := fileutil.WriteFileAtomic(s.path(id), payload, 0o640); err != nil {
		return "", fmt.Errorf("saving snapshot %s: %w", id, err)
	}
	return id, nil
}

// Get returns the payload stored under id.
func (s *Store) Get(id string) ([]byte, error) {
	if _, err := ulid.ParseStrict(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading snapshot %s: %w", id, err)
	}
	return data, nil
}

// List returns all snapshots, newest first. Files that are not snapshots
// are ignored.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	metas := make([]Meta, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		id, err := ulid.ParseStrict(strings.TrimSuffix(e.Name(), ext))
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		metas = append(metas, Meta{
			ID:        id.String(),
			CreatedAt: ulid.Time(id.Time()).UTC(),
			Size:      info.Size(),
		})
	}

	// ULIDs sort lexically in creation order.
	sort.Slice(metas, func(i, j int) bool { return metas[i].ID > metas[j].ID })
	return metas, nil
}

// Prune deletes all but the newest keep snapshots and returns how many
// were removed.
func (s *Store) Prune() (int, error) {
	if s.keep == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metas, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(metas) <= s.keep {
		return 0, nil
	}

	var errs []error
	removed := 0
	for _, m := range metas[s.keep:] {
		if err := os.Remove(s.path(m.ID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+ext)
}

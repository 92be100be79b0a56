// internal/store/file.go
//
// YAML page store: one `<id>.yaml` file per page.
//
// Notes
// -----
// • Ids are checked with routing.ValidMachineName before touching the
//   filesystem, so an id can never escape the directory.
// • Writes go to a temp file first and are renamed into place.
// • Oxford commas, two spaces after periods.

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/pagemanager/internal/page"
	"github.com/yanizio/pagemanager/internal/routing"
)

const fileExt = ".yaml"

// FileStore keeps pages as YAML files under dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a store rooted at dir, creating it when missing.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if !routing.ValidMachineName(id) {
		return "", fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return filepath.Join(s.dir, id+fileExt), nil
}

// Load reads one page.
func (s *FileStore) Load(_ context.Context, id string) (page.Config, error) {
	p, err := s.path(id)
	if err != nil {
		return page.Config{}, err
	}
	return readFile(p, id)
}

func readFile(p, id string) (page.Config, error) {
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return page.Config{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return page.Config{}, err
	}
	var cfg page.Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return page.Config{}, fmt.Errorf("decode %s: %w", p, err)
	}
	cfg.ID = id
	return cfg, nil
}

// All reads every `*.yaml` file, ordered by id.
func (s *FileStore) All(_ context.Context) ([]page.Config, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	out := make([]page.Config, 0, len(entries))
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), fileExt)
		if e.IsDir() || !ok || !routing.ValidMachineName(id) {
			continue
		}
		cfg, err := readFile(filepath.Join(s.dir, e.Name()), id)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Save writes cfg atomically.
func (s *FileStore) Save(_ context.Context, cfg page.Config) error {
	p, err := s.path(cfg.ID)
	if err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode page %s: %w", cfg.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+cfg.ID+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Delete removes a page file.
func (s *FileStore) Delete(_ context.Context, id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	return nil
}

// Exists reports whether a page file is present.
func (s *FileStore) Exists(_ context.Context, id string) (bool, error) {
	p, err := s.path(id)
	if err != nil {
		return false, nil
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

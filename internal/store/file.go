package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/maauso/mediagen/internal/asset"
)

// ErrInvalidID is returned for ids that cannot be used as a file name.
var ErrInvalidID = errors.New("store: invalid asset id")

// FileStore implements TaskStore with one JSON document per asset in a
// directory on local disk. Writes go to a temp file first and are renamed into
// place so a crash never leaves a half-written record.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir.
// If dir is empty, a mediagen directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "mediagen", "assets")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory path.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Put writes a to <dir>/<id>.json, replacing any previous version.
func (s *FileStore) Put(ctx context.Context, a asset.Asset) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	target, err := s.path(a.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal asset: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.CreateTemp(s.dir, a.ID+"_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename asset file: %w", err)
	}
	return nil
}

// Get reads the record for id.
func (s *FileStore) Get(ctx context.Context, id string) (asset.Asset, error) {
	select {
	case <-ctx.Done():
		return asset.Asset{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	p, err := s.path(id)
	if err != nil {
		return asset.Asset{}, err
	}

	data, err := os.ReadFile(p) // #nosec G304 - path is built from a validated id
	if err != nil {
		if os.IsNotExist(err) {
			return asset.Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
		}
		return asset.Asset{}, fmt.Errorf("read asset file: %w", err)
	}

	var a asset.Asset
	if err := json.Unmarshal(data, &a); err != nil {
		return asset.Asset{}, fmt.Errorf("unmarshal asset %s: %w", id, err)
	}
	return a, nil
}

// GetAll reads every record in the directory. Temp files and unreadable
// documents are skipped, returning the first decode error only when nothing
// could be read at all.
func (s *FileStore) GetAll(ctx context.Context) ([]asset.Asset, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store directory: %w", err)
	}

	var (
		out      []asset.Asset
		firstErr error
	)
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		a, err := s.Get(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, a)
	}

	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Close is a no-op for FileStore.
func (s *FileStore) Close() error {
	return nil
}

// Compile-time check that FileStore implements TaskStore.
var _ TaskStore = (*FileStore)(nil)

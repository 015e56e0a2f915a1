// Package local stores progress records as JSON documents on disk, one file
// per learner.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
)

const progressCollection = "progress"

// Store provides thread-safe JSON file storage
type Store struct {
	basePath string
	mu       sync.RWMutex
}

// NewStore creates a new local JSON store
func NewStore(basePath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(basePath, progressCollection), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Get loads the progress record for learnerID
func (s *Store) Get(ctx context.Context, learnerID string) (*domain.UserProgress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(learnerID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, learnerID)
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	var p domain.UserProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	p.Hydrate()
	return &p, nil
}

// Save writes the record, replacing any previous version. The file is
// written to a temporary name first so readers never see a partial document.
func (s *Store) Save(ctx context.Context, p *domain.UserProgress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.LearnerID == "" {
		return fmt.Errorf("%w: learner id is empty", domain.ErrInvalidInput)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(p.LearnerID)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".progress-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// path maps a learner id to a file name. Ids come from external identity
// providers and may contain path separators.
func (s *Store) path(learnerID string) string {
	return filepath.Join(s.basePath, progressCollection, url.PathEscape(learnerID)+".json")
}

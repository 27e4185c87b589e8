package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	domrepo "github.com/seethefuture888888-creator/kangbo/internal/domain/repository"
	applogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

// FileSnapshotStore keeps the latest snapshot as a JSON file. Readers never observe a partial write.
type FileSnapshotStore struct {
	path     string
	validate *validator.Validate
	l        *applogger.Logger
	// rename is swapped in tests to force the direct-overwrite path.
	rename func(oldpath, newpath string) error
}

func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{
		path:     path,
		validate: validator.New(),
		l:        applogger.Nop(),
		rename:   os.Rename,
	}
}

// SetLogger injects a structured logger.
func (s *FileSnapshotStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

func (s *FileSnapshotStore) Path() string { return s.path }

// Write replaces the snapshot with raw: temp file in the same directory, then rename.
// If the rename fails the file is overwritten directly and restored on failure.
func (s *FileSnapshotStore) Write(_ context.Context, raw []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("snapshot temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("snapshot temp write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("snapshot temp sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot temp close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("snapshot temp chmod: %w", err)
	}

	renameErr := s.rename(tmpName, s.path)
	if renameErr == nil {
		return nil
	}
	s.l.Warn("snapshot rename failed, overwriting in place",
		applogger.String("path", s.path),
		applogger.Error(renameErr),
	)
	return s.overwrite(raw)
}

func (s *FileSnapshotStore) overwrite(raw []byte) error {
	previous, readErr := os.ReadFile(s.path)
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		if readErr == nil {
			if restoreErr := os.WriteFile(s.path, previous, 0o644); restoreErr != nil {
				s.l.Error("snapshot restore failed", applogger.String("path", s.path), applogger.Error(restoreErr))
			}
		}
		return fmt.Errorf("snapshot overwrite: %w", err)
	}
	return nil
}

// Read returns the raw snapshot bytes after checking they decode into a well-formed payload.
func (s *FileSnapshotStore) Read(ctx context.Context) ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", domrepo.ErrSnapshotNotFound, s.path)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if _, err := s.decode(ctx, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Load reads and decodes the snapshot.
func (s *FileSnapshotStore) Load(ctx context.Context) (*models.DashboardPayload, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", domrepo.ErrSnapshotNotFound, s.path)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return s.decode(ctx, raw)
}

func (s *FileSnapshotStore) decode(ctx context.Context, raw []byte) (*models.DashboardPayload, error) {
	var p models.DashboardPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domrepo.ErrSnapshotInvalid, err)
	}
	if err := s.validate.StructCtx(ctx, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domrepo.ErrSnapshotInvalid, err)
	}
	return &p, nil
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hilthontt/synchat/internal/domain"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const URLPrefix = "/uploads"

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// LocalStorage stores uploads under <basePath>/<roomID>/<unixnano>_<filename>.
type LocalStorage struct {
	fs       afero.Fs
	basePath string
	maxSize  int64
	now      func() time.Time
	logger   *zap.SugaredLogger
}

func NewLocalStorage(fs afero.Fs, basePath string, maxSize int64, logger *zap.SugaredLogger) (*LocalStorage, error) {
	if maxSize <= 0 {
		maxSize = domain.MaxBlobSize
	}

	if err := fs.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	return &LocalStorage{
		fs:       fs,
		basePath: basePath,
		maxSize:  maxSize,
		now:      time.Now,
		logger:   logger,
	}, nil
}

func (s *LocalStorage) Put(ctx context.Context, roomID, filename string, r io.Reader) (*domain.Blob, error) {
	if filename == "" {
		return nil, domain.ErrEmptyFilename
	}

	safeName := SanitizeFilename(filename)
	kind, err := domain.ClassifyBlob(safeName)
	if err != nil {
		return nil, err
	}

	roomPath, err := s.roomPath(roomID)
	if err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(roomPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create room directory: %w", err)
	}

	storedName := fmt.Sprintf("%d_%s", s.now().UnixNano(), safeName)
	fullPath := filepath.Join(roomPath, storedName)

	dst, err := s.fs.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(r, s.maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxSize {
		err = domain.ErrFileTooLarge
	}
	if err != nil {
		_ = s.fs.Remove(fullPath)
		if errors.Is(err, domain.ErrFileTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	return &domain.Blob{
		RoomID:   roomID,
		Name:     storedName,
		Filename: safeName,
		URL:      path.Join(URLPrefix, roomID, storedName),
		Kind:     kind,
		Size:     written,
	}, nil
}

func (s *LocalStorage) Open(ctx context.Context, roomID, name string) (io.ReadSeekCloser, error) {
	roomPath, err := s.roomPath(roomID)
	if err != nil {
		return nil, domain.ErrBlobNotFound
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, domain.ErrBlobNotFound
	}

	f, err := s.fs.Open(filepath.Join(roomPath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, domain.ErrBlobNotFound
	}

	return f, nil
}

// DeleteAll removes every file of the room and then the room directory.
// Failures on single entries are logged and skipped.
func (s *LocalStorage) DeleteAll(ctx context.Context, roomID string) error {
	roomPath, err := s.roomPath(roomID)
	if err != nil {
		return nil
	}

	entries, err := afero.ReadDir(s.fs, roomPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warnw("failed to list room uploads", "room", roomID, "error", err)
		}
		return nil
	}

	for _, entry := range entries {
		if err := s.fs.RemoveAll(filepath.Join(roomPath, entry.Name())); err != nil {
			s.logger.Warnw("failed to remove upload", "room", roomID, "file", entry.Name(), "error", err)
		}
	}

	if err := s.fs.Remove(roomPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warnw("failed to remove room upload directory", "room", roomID, "error", err)
	}

	return nil
}

// roomPath maps a room token to its namespace, refusing anything that could
// escape the uploads directory.
func (s *LocalStorage) roomPath(roomID string) (string, error) {
	if roomID == "" || roomID != filepath.Base(roomID) || strings.HasPrefix(roomID, ".") {
		return "", domain.ErrInvalidInput
	}
	return filepath.Join(s.basePath, roomID), nil
}

// SanitizeFilename keeps only the base name with a conservative character set.
func SanitizeFilename(filename string) string {
	clean := filename
	if i := strings.LastIndexAny(clean, `/\`); i >= 0 {
		clean = clean[i+1:]
	}
	clean = strings.Join(strings.Fields(clean), "_")
	clean = unsafeFilenameChars.ReplaceAllString(clean, "")
	clean = strings.TrimLeft(clean, "._")
	if clean == "" {
		return "unnamed"
	}
	return clean
}

// Package uploads stores public images (event banners, speaker photos)
// on local disk, named by ULID so listings sort by upload time.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file exceeds size limit")
)

// Categories map to subdirectories under the store root.
const (
	CategoryEvents   = "events"
	CategorySpeakers = "speakers"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

type Store struct {
	dir     string
	maxSize int64
	logger  zerolog.Logger
}

func NewStore(dir string, maxSize int64, logger zerolog.Logger) (*Store, error) {
	for _, category := range []string{CategoryEvents, CategorySpeakers} {
		if err := os.MkdirAll(filepath.Join(dir, category), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &Store{
		dir:     dir,
		maxSize: maxSize,
		logger:  logger.With().Str("component", "uploads").Logger(),
	}, nil
}

// Dir returns the store root, which the router serves under /static/.
func (s *Store) Dir() string { return s.dir }

// Save writes the upload and returns its store-relative path
// ("events/01J....png"). The original filename only contributes its
// extension.
func (s *Store) Save(category, originalName string, r io.Reader) (string, error) {
	if category != CategoryEvents && category != CategorySpeakers {
		return "", fmt.Errorf("unknown upload category %q", category)
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w %q", ErrUnsupportedType, ext)
	}

	name := ulid.Make().String() + ext
	relPath := path.Join(category, name)
	target := filepath.Join(s.dir, category, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	reader := r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1)
	}
	written, err := io.Copy(f, reader)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if s.maxSize > 0 && written > s.maxSize {
		_ = os.Remove(target)
		return "", fmt.Errorf("%w (%d bytes max)", ErrTooLarge, s.maxSize)
	}

	s.logger.Info().Str("path", relPath).Int64("bytes", written).Msg("file stored")
	return relPath, nil
}

// Remove deletes a previously stored file; missing files are fine.
func (s *Store) Remove(relPath string) error {
	clean := filepath.Clean(relPath)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("invalid upload path %q", relPath)
	}
	err := os.Remove(filepath.Join(s.dir, clean))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// Package media stores uploaded and fetched files under the media root.
package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
)

var ErrInvalidName = errors.New("invalid file name")

type FileStore struct {
	root string
}

func NewFileStore(conf *core.Config) *FileStore {
	return &FileStore{root: conf.MediaRoot}
}

// Save writes data to `name` (slash separated, relative to the media root) and returns the stored name.
// An existing file is overwritten.
func (s *FileStore) Save(_ context.Context, name string, data []byte) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(name))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidName
	}

	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media directory")
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", errors.Wrap(err, "writing media file")
	}
	return clean, nil
}

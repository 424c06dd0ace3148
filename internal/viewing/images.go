package viewing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/signalscope/signalscope/internal/ai"
)

// ImageStore writes rendered round images to the data directory. Refs are bare
// filenames; the round row records the format for content-type derivation.
type ImageStore struct {
	dir string
}

func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ImageStore{dir: dir}, nil
}

func (s *ImageStore) Save(name string, img ai.Image) (string, error) {
	if img.Format == "" {
		return "", errors.New("image has no format")
	}
	ref := fmt.Sprintf("%s.%s", name, img.Format)
	if err := os.WriteFile(filepath.Join(s.dir, ref), img.Data, 0o644); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *ImageStore) Open(ref string) ([]byte, error) {
	// Refs come from the store, but keep path traversal out anyway.
	if ref != filepath.Base(ref) {
		return nil, errors.New("bad image ref")
	}
	return os.ReadFile(filepath.Join(s.dir, ref))
}

// ContentType maps a stored format to its MIME type.
func ContentType(format string) string {
	switch format {
	case "svg":
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

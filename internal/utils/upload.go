package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageBytes caps uploaded images at 5 MiB.
const MaxImageBytes = 5 << 20

var (
	ErrImageTooLarge   = errors.New("image exceeds 5 MiB")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var allowedImages = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// SaveImage sniffs r, rejects anything but an allowed image type, and
// writes it under root/uploads/<kind>/<uuid><ext>. It returns the path
// relative to root using forward slashes.
func SaveImage(root, kind string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", ErrImageTooLarge
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedImages...) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	rel := path.Join("uploads", kind, uuid.NewString()+mt.Extension())
	dst := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return rel, nil
}

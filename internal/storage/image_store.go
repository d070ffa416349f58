// Package storage persists uploaded product images on local disk.
package storage

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"veloce/internal/apperrors"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// MaxImageWidth is the width uploads are scaled down to.
const MaxImageWidth = 800

// ImageStore saves an uploaded image and returns the generated file name.
// Remove discards a file returned by Save.
type ImageStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Remove(ctx context.Context, name string) error
}

// LocalImageStore writes normalised JPEGs into a directory served under a
// public path prefix.
type LocalImageStore struct {
	dir string
}

// NewLocalImageStore creates dir if needed.
func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", dir, err)
	}
	return &LocalImageStore{dir: dir}, nil
}

// Dir is the directory files are written to.
func (s *LocalImageStore) Dir() string {
	return s.dir
}

// Save decodes a PNG or JPEG upload, scales it to at most MaxImageWidth and
// writes it as "<uuid>.jpg".
func (s *LocalImageStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	var (
		img image.Image
		err error
	)
	switch strings.ToLower(filepath.Ext(originalName)) {
	case ".png":
		img, err = png.Decode(r)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(r)
	default:
		return "", fmt.Errorf("%w: unsupported image format %q", apperrors.ErrValidation, filepath.Ext(originalName))
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to decode image: %v", apperrors.ErrValidation, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if img.Bounds().Dx() > MaxImageWidth {
		img = resize.Resize(MaxImageWidth, 0, img, resize.Lanczos3)
	}

	filename := uuid.New().String() + ".jpg"
	out, err := os.Create(filepath.Join(s.dir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 80}); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return filename, nil
}

// Remove deletes a file previously returned by Save. A missing file is not
// an error.
func (s *LocalImageStore) Remove(_ context.Context, name string) error {
	if name == "" || filepath.Base(name) != name || name == "." || name == ".." {
		return fmt.Errorf("%w: invalid image name %q", apperrors.ErrValidation, name)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image %s: %w", name, err)
	}
	return nil
}

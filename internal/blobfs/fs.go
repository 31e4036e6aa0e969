// Package blobfs stores binary clipboard payloads as opaquely named files
// in a single flat directory.
package blobfs

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultDir is the blob directory name under the store root.
const DefaultDir = "images"

// extensions maps sniffed content types to file extensions.
var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// BlobFS is a filesystem rooted at the blob directory. Files are written
// once under generated names and only ever removed afterwards.
type BlobFS struct {
	root string
}

// New creates a BlobFS rooted at root. The directory is created by Ensure.
func New(root string) *BlobFS {
	return &BlobFS{root: root}
}

// Ensure creates the blob directory if it does not exist.
func (b *BlobFS) Ensure() error {
	return os.MkdirAll(b.root, 0o755)
}

// Write stores data under a new collision-resistant name and returns it.
// The file is written to a temporary name first and renamed into place, so
// a crash never leaves a partially written blob under a returned ref.
func (b *BlobFS) Write(data []byte) (string, error) {
	if err := b.Ensure(); err != nil {
		return "", fmt.Errorf("failed to create blob directory: %w", err)
	}

	ref := uuid.NewString() + extensionFor(data)
	tmp, err := os.CreateTemp(b.root, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp blob: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close blob: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(b.root, ref)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move blob into place: %w", err)
	}

	return ref, nil
}

// Open implements fs.FS
func (b *BlobFS) Open(name string) (fs.File, error) {
	if !validRef(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return os.Open(filepath.Join(b.root, name))
}

// ReadFile implements fs.ReadFileFS
func (b *BlobFS) ReadFile(name string) ([]byte, error) {
	if !validRef(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	return os.ReadFile(filepath.Join(b.root, name))
}

// Remove deletes a blob. Removing a blob that does not exist is not an error.
func (b *BlobFS) Remove(ref string) error {
	if !validRef(ref) {
		return &fs.PathError{Op: "remove", Path: ref, Err: fs.ErrInvalid}
	}
	err := os.Remove(filepath.Join(b.root, ref))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the absolute path of a blob.
func (b *BlobFS) Path(ref string) string {
	path := filepath.Join(b.root, ref)
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Size returns the total size of all blobs, or 0 if the directory cannot
// be read.
func (b *BlobFS) Size() int64 {
	var total int64
	filepath.WalkDir(b.root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// validRef reports whether ref names a file directly inside the blob dir.
func validRef(ref string) bool {
	return fs.ValidPath(ref) && ref != "." && !strings.Contains(ref, "/")
}

// extensionFor sniffs the image format, defaulting to .png like the
// clipboard readers deliver.
func extensionFor(data []byte) string {
	if ext, ok := extensions[http.DetectContentType(data)]; ok {
		return ext
	}
	return ".png"
}

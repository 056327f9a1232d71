package xps

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage receives the parts of a finished package.
type Storage interface {
	WriteBlob(path string, blob []byte) error
}

// DirStorage writes package parts as plain files below Dir. The result is not
// a valid XPS document but is convenient for inspecting the generated markup.
type DirStorage struct {
	Dir string
}

// ZipStorage writes package parts as entries of a zip archive.
type ZipStorage struct {
	z *zip.Writer
}

// NewDirStorage creates a storage writing below dir. Missing directories are
// created on the first write.
func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{Dir: dir}
}

// WriteBlob writes one part as a file, creating its parent directories.
func (ds *DirStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	fn := filepath.Join(ds.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(fn), 0777); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(fn, blob, 0666); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// NewZipStorage creates a storage writing a zip archive to out. Close must be
// called after the last part.
func NewZipStorage(out io.Writer) *ZipStorage {
	return &ZipStorage{z: zip.NewWriter(out)}
}

// WriteBlob adds one deflated entry; the leading "/" of part names is dropped.
func (zs *ZipStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	f, err := zs.z.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err = f.Write(blob); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Close writes the zip central directory. The archive is unusable until Close
// returns without error.
func (zs *ZipStorage) Close() error {
	return zs.z.Close()
}

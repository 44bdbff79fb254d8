// Package fsutil provides filesystem helpers shared by the resource
// cache. All operations go through afero so the cache can be backed by
// an in-memory filesystem in tests.
package fsutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/mhellwig/mapdeck/pkg/errors"
)

// File and directory permission constants used throughout the cache.
const (
	FileModeDefault os.FileMode = 0o644
	DirModeDefault  os.FileMode = 0o755
)

// EnsureDir creates a directory and all necessary parents if they do
// not exist.
func EnsureDir(fs afero.Fs, path string) error {
	if err := fs.MkdirAll(path, DirModeDefault); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", path)
	}
	return nil
}

// EnsureFileDir creates the parent directory of a file path if it does
// not exist.
func EnsureFileDir(fs afero.Fs, filePath string) error {
	return EnsureDir(fs, filepath.Dir(filePath))
}

// Move moves a file from src to dst, attempting an atomic rename first
// and falling back to copy + delete when the filesystem refuses the
// rename (e.g. across mount points).
func Move(fs afero.Fs, src, dst string) error {
	if src == "" || dst == "" {
		return errors.Wrap(errors.ErrInvalidPath, "source and destination cannot be empty")
	}
	if err := EnsureFileDir(fs, dst); err != nil {
		return err
	}
	if err := fs.Rename(src, dst); err == nil {
		return nil
	}
	if err := Copy(fs, src, dst); err != nil {
		return err
	}
	if err := fs.Remove(src); err != nil {
		return errors.Wrapf(err, "failed to remove %s after copy", src)
	}
	return nil
}

// Copy copies the contents of srcFile to dstFile.
func Copy(fs afero.Fs, srcFile, dstFile string) error {
	src, err := fs.Open(srcFile)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", srcFile)
	}
	defer func() { _ = src.Close() }()

	dst, err := fs.Create(dstFile)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dstFile)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "failed to copy %s to %s", srcFile, dstFile)
	}
	return nil
}

// WriteFileAtomic writes data to path by writing a sibling temp file
// and renaming it into place, so readers never observe partial content.
func WriteFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	if err := EnsureFileDir(fs, path); err != nil {
		return err
	}
	tmp, err := afero.TempFile(fs, filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpPath)
		return errors.Wrapf(err, "failed to write %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpPath)
		return errors.Wrapf(err, "failed to close %s", tmpPath)
	}
	if err := fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return errors.Wrapf(err, "failed to replace %s", path)
	}
	return fs.Chmod(path, perm)
}

package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	apperrors "github.com/stack-analysis/pkg/errors"
)

// LocalStorage publishes into a directory, e.g. a shared volume that a
// profile viewer serves from.
type LocalStorage struct {
	fs       afero.Fs
	basePath string
}

// NewLocalStorage creates a LocalStorage rooted at basePath. A nil fs uses
// the OS file system.
func NewLocalStorage(fs afero.Fs, basePath string) (*LocalStorage, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if basePath == "" {
		basePath = "./storage"
	}

	if err := fs.MkdirAll(basePath, 0o755); err != nil {
		return nil, storageError("create storage directory", err)
	}
	return &LocalStorage{fs: fs, basePath: basePath}, nil
}

// Upload writes obj to a temporary file next to its destination and renames
// it into place, so readers never see a partial export.
func (s *LocalStorage) Upload(ctx context.Context, obj *Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(obj.Key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return storageError("create directory for "+obj.Key, err)
	}

	tmp := fullPath + ".part"
	file, err := s.fs.Create(tmp)
	if err != nil {
		return storageError("create "+obj.Key, err)
	}
	_, err = io.Copy(file, obj.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = s.fs.Rename(tmp, fullPath)
	}
	if err != nil {
		_ = s.fs.Remove(tmp)
		return storageError("write "+obj.Key, err)
	}
	return nil
}

// Download opens the file stored at key.
func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := s.fs.Open(fullPath)
	if os.IsNotExist(err) {
		return nil, apperrors.Newf(apperrors.CodeStorageError, "file not found: %s", key)
	}
	if err != nil {
		return nil, storageError("open "+key, err)
	}
	return file, nil
}

// Delete removes the file at key.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := s.fs.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return storageError("delete "+key, err)
	}
	return nil
}

// Exists reports whether a file is stored at key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	ok, err := afero.Exists(s.fs, fullPath)
	if err != nil {
		return false, storageError("stat "+key, err)
	}
	return ok, nil
}

// GetURL returns the file path of key.
func (s *LocalStorage) GetURL(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(path.Clean("/" + key)))
}

// GetBasePath returns the directory files are published into.
func (s *LocalStorage) GetBasePath() string {
	return s.basePath
}

// resolve maps key below basePath. Keys may not climb out of it.
func (s *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || slices.Contains(strings.Split(key, "/"), "..") {
		return "", apperrors.Newf(apperrors.CodeStorageError, "invalid object key %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean)), nil
}

func storageError(op string, err error) error {
	return apperrors.Wrap(apperrors.CodeStorageError, "local storage: "+op, err)
}

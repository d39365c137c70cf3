// Package storage publishes exported files to object storage.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/stack-analysis/pkg/config"
	apperrors "github.com/stack-analysis/pkg/errors"
)

// Object is one exported file on its way to a backend.
type Object struct {
	Key  string
	Body io.Reader
	// Size is the body length in bytes, or 0 when unknown.
	Size int64
	// ContentType and ContentEncoding are derived from the file name by
	// MediaType.
	ContentType     string
	ContentEncoding string
}

// Storage is a backend that published files land in.
type Storage interface {
	// Upload stores obj under obj.Key, replacing any existing object.
	Upload(ctx context.Context, obj *Object) error

	// Download opens the object at key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns where a reader of the run finds key.
	GetURL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeNone  StorageType = "none"
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// mediaTypes maps export file suffixes to content type and encoding.
// Longer suffixes come first.
var mediaTypes = []struct {
	suffix, contentType, encoding string
}{
	{".pb.gz", "application/vnd.google.protobuf", "gzip"},
	{".json.gz", "application/json", "gzip"},
	{".graph.gz", "application/octet-stream", "gzip"},
	{".graph.zst", "application/octet-stream", "zstd"},
	{".csv", "text/csv; charset=utf-8", ""},
	{".xml", "application/xml", ""},
	{".json", "application/json", ""},
	{".folded", "text/plain; charset=utf-8", ""},
	{".dot", "text/vnd.graphviz", ""},
}

// MediaType returns the content type and encoding of an export file.
// Unknown names are opaque binary.
func MediaType(name string) (contentType, encoding string) {
	lower := strings.ToLower(name)
	for _, m := range mediaTypes {
		if strings.HasSuffix(lower, m.suffix) {
			return m.contentType, m.encoding
		}
	}
	return "application/octet-stream", ""
}

// NewStorage creates the backend selected by cfg. Local storage writes
// through fs.
func NewStorage(cfg *config.StorageConfig, fs afero.Fs) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
			Endpoint:  cfg.Endpoint,
		})
	default:
		return NewLocalStorage(fs, cfg.LocalPath)
	}
}

// ValidateConfig checks that cfg names an enabled, complete backend.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return apperrors.New(apperrors.CodeConfigError, "storage config is nil")
	}

	var missing string
	switch StorageType(cfg.Type) {
	case StorageTypeNone:
		return apperrors.New(apperrors.CodeConfigError, "storage is disabled")
	case StorageTypeCOS:
		switch {
		case cfg.Bucket == "":
			missing = "COS bucket"
		case cfg.Region == "":
			missing = "COS region"
		case cfg.SecretID == "" || cfg.SecretKey == "":
			missing = "COS credentials"
		}
	case StorageTypeLocal, "":
		if cfg.LocalPath == "" {
			missing = "local storage path"
		}
	default:
		return apperrors.Newf(apperrors.CodeConfigError, "unsupported storage type: %s", cfg.Type)
	}

	if missing != "" {
		return apperrors.Newf(apperrors.CodeConfigError, "%s is required", missing)
	}
	return nil
}

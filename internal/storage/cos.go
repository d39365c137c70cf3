package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"

	apperrors "github.com/stack-analysis/pkg/errors"
)

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // e.g., "myqcloud.com"
	Scheme    string // e.g., "https" or "http"
	// Endpoint replaces the bucket URL derived from the fields above,
	// e.g. for a COS-compatible gateway.
	Endpoint string
}

// COSStorage publishes to a Tencent Cloud COS bucket. Objects are stored
// with the content type of the export so browsers and viewers open them
// directly from their URL.
type COSStorage struct {
	client  *cos.Client
	baseURL string
}

// NewCOSStorage creates a COSStorage.
func NewCOSStorage(cfg *COSConfig) (*COSStorage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, apperrors.New(apperrors.CodeConfigError, "bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, apperrors.New(apperrors.CodeConfigError, "credentials are required for COS storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain)
	}
	bucketURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "invalid COS bucket URL", err)
	}
	serviceURL, err := url.Parse(fmt.Sprintf("%s://cos.%s.%s", scheme, cfg.Region, domain))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "invalid COS service URL", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL:  bucketURL,
		ServiceURL: serviceURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSStorage{client: client, baseURL: endpoint}, nil
}

// Upload puts obj with its content type and encoding.
func (s *COSStorage) Upload(ctx context.Context, obj *Object) error {
	header := &cos.ObjectPutHeaderOptions{
		ContentType:     obj.ContentType,
		ContentEncoding: obj.ContentEncoding,
		ContentLength:   obj.Size,
	}
	_, err := s.client.Object.Put(ctx, obj.Key, obj.Body, &cos.ObjectPutOptions{ObjectPutHeaderOptions: header})
	if err != nil {
		return cosError("upload", obj.Key, err)
	}
	return nil
}

// Download opens the object at key.
func (s *COSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, cosError("download", key, err)
	}
	return resp.Body, nil
}

// Delete removes the object at key.
func (s *COSStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Object.Delete(ctx, key, nil); err != nil {
		return cosError("delete", key, err)
	}
	return nil
}

// Exists reports whether an object is stored at key.
func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, cosError("stat", key, err)
	}
	return ok, nil
}

// GetURL returns the bucket URL of key.
func (s *COSStorage) GetURL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}

func cosError(op, key string, err error) error {
	return apperrors.Wrap(apperrors.CodeStorageError, fmt.Sprintf("cos %s %s", op, key), err)
}

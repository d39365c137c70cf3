package storage

import (
	"bytes"
	"context"
	"hash/crc64"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack-analysis/pkg/config"
	apperrors "github.com/stack-analysis/pkg/errors"
)

func TestNewCOSStorage_Validation(t *testing.T) {
	t.Run("MissingBucket", func(t *testing.T) {
		cfg := &COSConfig{
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}

		storage, err := NewCOSStorage(cfg)
		assert.Error(t, err)
		assert.Nil(t, storage)
		assert.Contains(t, err.Error(), "bucket and region are required")
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		cfg := &COSConfig{
			Bucket: "test-bucket",
			Region: "ap-guangzhou",
		}

		storage, err := NewCOSStorage(cfg)
		assert.Error(t, err)
		assert.Nil(t, storage)
		assert.Contains(t, err.Error(), "credentials are required")
	})

	t.Run("ValidConfig", func(t *testing.T) {
		cfg := &COSConfig{
			Bucket:    "test-bucket",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}

		storage, err := NewCOSStorage(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, storage)
	})
}

func TestCOSStorage_GetURL(t *testing.T) {
	cfg := &COSConfig{
		Bucket:    "my-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "test-id",
		SecretKey: "test-key",
	}

	storage, err := NewCOSStorage(cfg)
	require.NoError(t, err)

	url := storage.GetURL("path/to/file.txt")
	assert.Equal(t, "https://my-bucket.cos.ap-guangzhou.myqcloud.com/path/to/file.txt", url)
}

// fakeCOS records the objects PUT to it and serves them back.
type fakeCOS struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers map[string]http.Header
}

func (f *fakeCOS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = body
		f.headers[r.URL.Path] = r.Header.Clone()
		w.Header().Set("x-cos-hash-crc64ecma", crc(body))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("x-cos-hash-crc64ecma", crc(body))
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func crc(body []byte) string {
	return strconv.FormatUint(crc64.Checksum(body, crc64.MakeTable(crc64.ECMA)), 10)
}

func TestCOSStorage_RoundTrip(t *testing.T) {
	fake := &fakeCOS{objects: map[string][]byte{}, headers: map[string]http.Header{}}
	server := httptest.NewServer(fake)
	defer server.Close()

	storage, err := NewCOSStorage(&COSConfig{
		Bucket:    "test-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "test-id",
		SecretKey: "test-key",
		Endpoint:  server.URL,
	})
	require.NoError(t, err)
	ctx := context.Background()

	body := []byte("a;b;,3")
	require.NoError(t, storage.Upload(ctx, &Object{
		Key:         "runs/t1/cpu.csv",
		Body:        bytes.NewReader(body),
		Size:        int64(len(body)),
		ContentType: "text/csv; charset=utf-8",
	}))
	assert.Equal(t, body, fake.objects["/runs/t1/cpu.csv"])
	assert.Equal(t, "text/csv; charset=utf-8", fake.headers["/runs/t1/cpu.csv"].Get("Content-Type"))

	ok, err := storage.Exists(ctx, "runs/t1/cpu.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	profile := []byte{0x1f, 0x8b, 0x08}
	ct, enc := MediaType("cpu.pb.gz")
	require.NoError(t, storage.Upload(ctx, &Object{
		Key: "runs/t1/cpu.pb.gz", Body: bytes.NewReader(profile), ContentType: ct, ContentEncoding: enc,
	}))
	assert.Equal(t, "gzip", fake.headers["/runs/t1/cpu.pb.gz"].Get("Content-Encoding"))
	require.NoError(t, storage.Delete(ctx, "runs/t1/cpu.pb.gz"))

	rc, err := storage.Download(ctx, "runs/t1/cpu.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "a;b;,3", string(data))

	require.NoError(t, storage.Delete(ctx, "runs/t1/cpu.csv"))
	assert.Empty(t, fake.objects)

	assert.Equal(t, server.URL+"/runs/t1/cpu.csv", storage.GetURL("runs/t1/cpu.csv"))
}

func TestNewStorage(t *testing.T) {
	t.Run("COS", func(t *testing.T) {
		cfg := &config.StorageConfig{
			Type:      "cos",
			Bucket:    "test-bucket",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}

		storage, err := NewStorage(cfg, nil)
		require.NoError(t, err)
		_, ok := storage.(*COSStorage)
		assert.True(t, ok)
	})

	t.Run("Local", func(t *testing.T) {
		cfg := &config.StorageConfig{Type: "local", LocalPath: "/published"}

		storage, err := NewStorage(cfg, afero.NewMemMapFs())
		require.NoError(t, err)
		_, ok := storage.(*LocalStorage)
		assert.True(t, ok)
	})
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		name, contentType, encoding string
	}{
		{"cpu.csv", "text/csv; charset=utf-8", ""},
		{"cpu.xml", "application/xml", ""},
		{"cpu.json", "application/json", ""},
		{"summary.json", "application/json", ""},
		{"cpu.callgraph.json", "application/json", ""},
		{"cpu.flamegraph.json.gz", "application/json", "gzip"},
		{"memallocs.pb.gz", "application/vnd.google.protobuf", "gzip"},
		{"cpu.graph", "application/octet-stream", ""},
		{"cpu.graph.zst", "application/octet-stream", "zstd"},
		{"CPU.FOLDED", "text/plain; charset=utf-8", ""},
		{"cpu.dot", "text/vnd.graphviz", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, enc := MediaType(tt.name)
			assert.Equal(t, tt.contentType, ct)
			assert.Equal(t, tt.encoding, enc)
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{name: "NilConfig", cfg: nil, wantErr: "storage config is nil"},
		{name: "Disabled", cfg: &config.StorageConfig{Type: "none"}, wantErr: "storage is disabled"},
		{name: "InvalidStorageType", cfg: &config.StorageConfig{Type: "s3"}, wantErr: "unsupported storage type"},
		{
			name:    "COSMissingBucket",
			cfg:     &config.StorageConfig{Type: "cos", Region: "ap-guangzhou", SecretID: "id", SecretKey: "key"},
			wantErr: "COS bucket is required",
		},
		{
			name:    "COSMissingRegion",
			cfg:     &config.StorageConfig{Type: "cos", Bucket: "b", SecretID: "id", SecretKey: "key"},
			wantErr: "COS region is required",
		},
		{
			name:    "COSMissingCredentials",
			cfg:     &config.StorageConfig{Type: "cos", Bucket: "b", Region: "ap-guangzhou"},
			wantErr: "COS credentials are required",
		},
		{name: "LocalMissingPath", cfg: &config.StorageConfig{Type: "local"}, wantErr: "local storage path is required"},
		{name: "ValidCOSConfig", cfg: &config.StorageConfig{Type: "cos", Bucket: "b", Region: "r", SecretID: "id", SecretKey: "key"}},
		{name: "ValidLocalConfig", cfg: &config.StorageConfig{Type: "local", LocalPath: "/tmp/storage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrConfigError)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

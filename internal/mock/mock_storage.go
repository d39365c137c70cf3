package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/stack-analysis/internal/storage"
)

// MockStorage is a mock storage backend.
type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

// Upload records the object and drains its body, as a real backend would.
func (m *MockStorage) Upload(ctx context.Context, obj *storage.Object) error {
	if obj.Body != nil {
		_, _ = io.Copy(io.Discard, obj.Body)
	}
	args := m.Called(ctx, obj)
	return args.Error(0)
}

// ExpectUpload expects an upload of key with the given content type.
func (m *MockStorage) ExpectUpload(key, contentType string) *mock.Call {
	return m.On("Upload", mock.Anything, mock.MatchedBy(func(obj *storage.Object) bool {
		return obj.Key == key && obj.ContentType == contentType
	}))
}

// Download mocks the Download method.
func (m *MockStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// Exists mocks the Exists method.
func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// GetURL mocks the GetURL method.
func (m *MockStorage) GetURL(key string) string {
	return m.Called(key).String(0)
}

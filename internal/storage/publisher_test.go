package storage

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/stack-analysis/pkg/errors"
)

func TestPublisher_Key(t *testing.T) {
	p := NewPublisher(nil, nil, "/runs/", nil)
	assert.Equal(t, "runs/t1/cpu.csv", p.Key("t1", "/out/cpu.csv"))

	p = NewPublisher(nil, nil, "", nil)
	assert.Equal(t, "t1/cpu.xml", p.Key("t1", "/out/cpu.xml"))
}

func TestPublisher_Publish(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/cpu.csv", []byte("csv"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/out/cpu.xml", []byte("xml"), 0644))

	store, err := NewLocalStorage(fs, "/published")
	require.NoError(t, err)
	p := NewPublisher(store, fs, "runs", nil)

	published, err := p.Publish(context.Background(), "t1", []string{"/out/cpu.csv", "/out/cpu.xml"})
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "runs/t1/cpu.csv", published[0].Key)
	assert.Equal(t, "/published/runs/t1/cpu.csv", published[0].URL)

	data, err := afero.ReadFile(fs, "/published/runs/t1/cpu.xml")
	require.NoError(t, err)
	assert.Equal(t, "xml", string(data))
}

func TestPublisher_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/out/cpu.csv", []byte("csv"), 0644))
	store, err := NewLocalStorage(fs, "/published")
	require.NoError(t, err)

	published, err := NewPublisher(store, fs, "", nil).Publish(context.Background(), "t1", []string{"/out/cpu.csv", "/out/gone.csv"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorageError)
	assert.Len(t, published, 1)
}

package writer

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestDocument_Write(t *testing.T) {
	v := sample{Name: "a<b>&c", Value: 42}

	t.Run("compact keeps html characters", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, JSON[sample]().Write(v, &buf))
		assert.Equal(t, `{"name":"a<b>&c","value":42}`+"\n", buf.String())
	})

	t.Run("pretty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrettyJSON[sample]().Write(v, &buf))
		assert.Contains(t, buf.String(), "\n  \"name\"")

		var decoded sample
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, v, decoded)
	})

	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, GzipJSON[sample]().Write(v, &buf))
		assert.Equal(t, v, gunzip(t, &buf))
	})
}

func TestDocument_Save(t *testing.T) {
	fs := afero.NewMemMapFs()
	v := sample{Name: strings.Repeat("frame;", 500), Value: 7}

	size, err := JSON[sample]().Save(fs, "/out/plain.json", v)
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, "/out/plain.json")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size.JSON)
	assert.Equal(t, size.JSON, size.Stored)
	assert.Equal(t, 100.0, size.Ratio())

	size, err = GzipJSON[sample]().Save(fs, "/out/doc.json.gz", v)
	require.NoError(t, err)
	info, err := fs.Stat("/out/doc.json.gz")
	require.NoError(t, err)
	assert.Equal(t, info.Size(), size.Stored)
	assert.Equal(t, int64(len(data)), size.JSON)
	assert.Less(t, size.Ratio(), 50.0)

	f, err := fs.Open("/out/doc.json.gz")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, v, gunzip(t, f))
}

func TestDocument_SaveErrors(t *testing.T) {
	_, err := JSON[sample]().Save(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/x.json", sample{})
	assert.Error(t, err)

	_, err = JSON[chan int]().Save(afero.NewMemMapFs(), "/x.json", make(chan int))
	assert.Error(t, err)

	d := &Document[sample]{Gzip: true, Level: 42}
	assert.Error(t, d.Write(sample{}, io.Discard))
}

func TestSize_Ratio(t *testing.T) {
	assert.Zero(t, Size{}.Ratio())
	assert.Equal(t, 25.0, Size{JSON: 400, Stored: 100}.Ratio())
}

func gunzip(t *testing.T, r io.Reader) sample {
	t.Helper()
	zr, err := gzip.NewReader(r)
	require.NoError(t, err)
	defer zr.Close()

	var v sample
	err = json.NewDecoder(zr).Decode(&v)
	if errors.Is(err, io.EOF) {
		t.Fatal("empty gzip stream")
	}
	require.NoError(t, err)
	return v
}

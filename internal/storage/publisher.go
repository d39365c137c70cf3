package storage

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	apperrors "github.com/stack-analysis/pkg/errors"
	"github.com/stack-analysis/pkg/utils"
)

// Published describes one uploaded file.
type Published struct {
	Path string // local path the file was read from
	Key  string
	URL  string
}

// Publisher uploads the files of a run under <prefix>/<trace id>/<name>.
type Publisher struct {
	store  Storage
	fs     afero.Fs
	prefix string
	logger utils.Logger
}

// NewPublisher creates a publisher reading local files from fs.
func NewPublisher(store Storage, fs afero.Fs, prefix string, logger utils.Logger) *Publisher {
	return &Publisher{
		store:  store,
		fs:     fs,
		prefix: strings.Trim(prefix, "/"),
		logger: utils.Or(logger),
	}
}

// Key returns the object key of a local file for a run.
func (p *Publisher) Key(traceID, localPath string) string {
	name := filepath.Base(localPath)
	if p.prefix == "" {
		return path.Join(traceID, name)
	}
	return path.Join(p.prefix, traceID, name)
}

// Publish uploads every file in order and stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, traceID string, files []string) ([]Published, error) {
	out := make([]Published, 0, len(files))
	for _, local := range files {
		key := p.Key(traceID, local)
		if err := p.upload(ctx, key, local); err != nil {
			return out, apperrors.Wrap(apperrors.CodeStorageError, "failed to publish "+local, err)
		}
		url := p.store.GetURL(key)
		p.logger.Debug("Published %s to %s", local, url)
		out = append(out, Published{Path: local, Key: key, URL: url})
	}
	return out, nil
}

func (p *Publisher) upload(ctx context.Context, key, local string) error {
	f, err := p.fs.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()

	obj := &Object{Key: key, Body: f}
	if info, err := f.Stat(); err == nil {
		obj.Size = info.Size()
	}
	obj.ContentType, obj.ContentEncoding = MediaType(local)
	return p.store.Upload(ctx, obj)
}

// Package jsonfile implements the catalog record store as a single JSON
// document that is rewritten wholesale on every save.
package jsonfile

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/product-catalog/internal/domain/catalog"
)

var _ catalog.Repository = (*Store)(nil)

// Store persists the product collection in one file.
type Store struct {
	path string
}

// New returns a Store backed by the document at path. Nothing is touched on
// disk until the first Load or Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the backing document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the whole collection. A missing document is initialized to an
// empty collection; an existing one that cannot be decoded is reported as
// catalog.ErrStoreCorrupt and left as is.
func (s *Store) Load(ctx context.Context) ([]catalog.Product, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		zctx.From(ctx).Info("Initializing empty product store", zap.String("path", s.path))
		if err := s.Save(ctx, nil); err != nil {
			return nil, err
		}
		return []catalog.Product{}, nil
	}
	if err != nil {
		return nil, &catalog.StoreError{Kind: catalog.ErrStoreUnavailable, Op: "read " + s.path, Err: err}
	}

	products, err := decodeDocument(data)
	if err != nil {
		return nil, &catalog.StoreError{Kind: catalog.ErrStoreCorrupt, Op: "decode " + s.path, Err: err}
	}
	return products, nil
}

// Save replaces the document with the given collection. The data is written
// to a temporary file in the same directory and renamed over the target, so
// a concurrent reader sees either the old or the new document.
func (s *Store) Save(_ context.Context, products []catalog.Product) error {
	if err := s.write(encodeDocument(products)); err != nil {
		return &catalog.StoreError{Kind: catalog.ErrStoreUnavailable, Op: "write " + s.path, Err: err}
	}
	return nil
}

func (s *Store) write(data []byte) (rerr error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() {
		if rerr != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "replace document")
	}
	return nil
}

// Check reports whether the document is readable, or absent inside an
// existing directory. It is used as a readiness probe.
func (s *Store) Check(_ context.Context) error {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		info, err := os.Stat(filepath.Dir(s.path))
		if err != nil {
			return errors.Wrap(err, "stat store directory")
		}
		if !info.IsDir() {
			return errors.Errorf("%s is not a directory", filepath.Dir(s.path))
		}
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "open store document")
	}
	return f.Close()
}

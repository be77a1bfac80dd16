// Package diskmedia stores product images as files under a public directory.
package diskmedia

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/product-catalog/internal/domain/catalog"
)

var _ catalog.Assets = (*Manager)(nil)

const maxExtLen = 10

// Config describes where images live.
type Config struct {
	// PublicDir is the root served to clients; references are relative to it.
	PublicDir string
	// MediaDir is the image directory relative to PublicDir, in slash form.
	MediaDir string
	// MaxSize is the upload limit in bytes. Zero means catalog.DefaultMaxImageSize.
	MaxSize int64
}

// Manager owns the image files of the catalog.
type Manager struct {
	dir     string // absolute-or-relative filesystem directory holding images
	prefix  string // reference prefix, e.g. "/uploads/images/"
	maxSize int64
	now     func() time.Time
}

// New returns a Manager for the given configuration. The image directory is
// created when missing.
func New(cfg Config) (*Manager, error) {
	mediaDir := strings.Trim(path.Clean("/"+cfg.MediaDir), "/")
	if mediaDir == "" {
		return nil, errors.New("media directory must not be the public root")
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = catalog.DefaultMaxImageSize
	}

	dir := filepath.Join(cfg.PublicDir, filepath.FromSlash(mediaDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create media directory")
	}

	return &Manager{
		dir:     dir,
		prefix:  "/" + mediaDir + "/",
		maxSize: cfg.MaxSize,
		now:     time.Now,
	}, nil
}

// MaxSize returns the upload limit in bytes.
func (m *Manager) MaxSize() int64 {
	return m.maxSize
}

// Store validates the upload and writes it under a new unique name.
func (m *Manager) Store(ctx context.Context, u catalog.Upload) (string, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(u.ContentType)), "image/") {
		return "", errors.Wrapf(catalog.ErrUnsupportedMediaType, "content type %q", u.ContentType)
	}
	if u.Size > m.maxSize {
		return "", errors.Wrapf(catalog.ErrPayloadTooLarge, "%d bytes exceeds %d", u.Size, m.maxSize)
	}

	name := m.fileName(u.Filename)
	full := filepath.Join(m.dir, name)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "create image file")
	}

	// Read one byte past the limit to detect bodies larger than declared.
	n, err := io.Copy(f, io.LimitReader(u.Body, m.maxSize+1))
	if err == nil && n > m.maxSize {
		err = errors.Wrapf(catalog.ErrPayloadTooLarge, "body exceeds %d bytes", m.maxSize)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrap(cerr, "close image file")
	}
	if err != nil {
		_ = os.Remove(full)
		if errors.Is(err, catalog.ErrPayloadTooLarge) {
			return "", err
		}
		return "", errors.Wrap(err, "write image file")
	}

	ref := m.prefix + name
	zctx.From(ctx).Debug("Image stored",
		zap.String("ref", ref),
		zap.Int64("bytes", n),
	)
	return ref, nil
}

// Remove deletes the file behind ref. A file that is already gone only
// gets logged.
func (m *Manager) Remove(ctx context.Context, ref string) error {
	full, err := m.resolve(ref)
	if err != nil {
		return err
	}

	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		zctx.From(ctx).Info("Image already absent", zap.String("ref", ref))
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "remove %s", ref)
	}
	return nil
}

// Check verifies the image directory is present.
func (m *Manager) Check(_ context.Context) error {
	info, err := os.Stat(m.dir)
	if err != nil {
		return errors.Wrap(err, "stat media directory")
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", m.dir)
	}
	return nil
}

// resolve maps a reference to a file inside the media directory, refusing
// anything that would escape it.
func (m *Manager) resolve(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, m.prefix)
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", errors.Errorf("reference %q is outside %s", ref, m.prefix)
	}
	return filepath.Join(m.dir, name), nil
}

// fileName builds "product-<unix ms>-<uuid><.ext>" keeping a sanitized
// extension of the client file name.
func (m *Manager) fileName(original string) string {
	return fmt.Sprintf("product-%d-%s%s", m.now().UnixMilli(), uuid.NewString(), cleanExt(original))
}

func cleanExt(original string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(original), "."))
	if ext == "" || len(ext) > maxExtLen {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return "." + ext
}

package main

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/product-catalog/internal/domain/catalog"
)

const imageWorkers = 4

// seedEntry is one element of the products file.
type seedEntry struct {
	Name        string
	Description string
	Price       string
	Image       string
}

type seedImage struct {
	name        string
	contentType string
	data        []byte
}

type creator interface {
	Create(ctx context.Context, f catalog.Fields, img *catalog.Upload) (*catalog.Product, error)
}

// readSeedFile reads a products file, transparently decompressing ".gz".
func readSeedFile(path string) ([]seedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	return parseSeed(data)
}

// parseSeed decodes [{"name","description","price","image"?}, ...]. Prices
// may be numbers or strings.
func parseSeed(data []byte) ([]seedEntry, error) {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Array {
		return nil, errors.New("products file must hold a JSON array")
	}

	var entries []seedEntry
	err := d.Arr(func(d *jx.Decoder) error {
		var e seedEntry
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "name":
				e.Name, err = d.Str()
			case "description":
				e.Description, err = d.Str()
			case "price":
				e.Price, err = decodePrice(d)
			case "image":
				if d.Next() == jx.Null {
					return d.Null()
				}
				e.Image, err = d.Str()
			default:
				return d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "entry %d", len(entries))
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// decodePrice accepts a string, which gets the client text rule later, or a
// number, which must already be a plain positive integer.
func decodePrice(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Number {
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		if err := catalog.CheckNumberPrice(n.String()); err != nil {
			return "", err
		}
		return n.String(), nil
	}
	return d.Str()
}

// loadImages reads the images referenced by entries concurrently. The
// result is indexed like entries; entries without an image get nil.
func loadImages(ctx context.Context, dir string, entries []seedEntry) ([]*seedImage, error) {
	images := make([]*seedImage, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(imageWorkers)
	for i, e := range entries {
		if e.Image == "" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := readImage(filepath.Join(dir, filepath.FromSlash(e.Image)))
			if err != nil {
				return errors.Wrapf(err, "entry %d", i)
			}
			images[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func readImage(path string) (*seedImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &seedImage{
		name:        filepath.Base(path),
		contentType: contentType,
		data:        data,
	}, nil
}

// seed creates the entries in order and returns how many were created
// before the first failure.
func seed(ctx context.Context, c creator, entries []seedEntry, images []*seedImage) (int, error) {
	lg := zctx.From(ctx)
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		var upload *catalog.Upload
		if img := images[i]; img != nil {
			upload = &catalog.Upload{
				Filename:    img.name,
				ContentType: img.contentType,
				Size:        int64(len(img.data)),
				Body:        bytes.NewReader(img.data),
			}
		}

		p, err := c.Create(ctx, catalog.Fields{
			Name:        e.Name,
			Description: e.Description,
			Price:       e.Price,
		}, upload)
		if err != nil {
			return i, errors.Wrapf(err, "entry %d (%s)", i, e.Name)
		}
		lg.Debug("Product seeded", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	return len(entries), nil
}

// Command seed-catalog loads products from a JSON file (optionally gzip
// compressed) into the catalog, storing their images alongside.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/product-catalog/internal/app"
	"github.com/xenking/product-catalog/internal/domain/catalog"
)

func main() {
	var (
		productsFile string
		imagesDir    string
		cfg          app.Config
	)

	flag.StringVar(&productsFile, "products-file", "products.json", "path to products JSON file (.json or .json.gz)")
	flag.StringVar(&imagesDir, "images-dir", ".", "directory image paths in the products file are relative to")
	flag.StringVar(&cfg.DataFile, "data-file", "data/products.json", "path of the product collection document")
	flag.StringVar(&cfg.PublicDir, "public-dir", "public", "directory served as static content")
	flag.StringVar(&cfg.MediaDir, "media-dir", "uploads/images", "image directory relative to the public directory")
	flag.Int64Var(&cfg.MaxImageSize, "max-image-size", catalog.DefaultMaxImageSize, "maximum image size in bytes")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, &cfg, productsFile, imagesDir); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, cfg *app.Config, productsFile, imagesDir string) error {
	lg := zctx.From(ctx)

	entries, err := readSeedFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}
	lg.Info("Products file parsed", zap.String("path", productsFile), zap.Int("count", len(entries)))

	images, err := loadImages(ctx, imagesDir, entries)
	if err != nil {
		return errors.Wrap(err, "load images")
	}

	c, err := app.NewCatalog(ctx, nil, cfg)
	if err != nil {
		return err
	}

	created, err := seed(ctx, c.Service, entries, images)
	lg.Info("Products created", zap.Int("count", created))
	return err
}

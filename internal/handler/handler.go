// Package handler exposes the catalog service over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/product-catalog/internal/domain/catalog"
)

// Catalog is the subset of the catalog service used by the handlers.
type Catalog interface {
	Create(ctx context.Context, f catalog.Fields, img *catalog.Upload) (*catalog.Product, error)
	Get(ctx context.Context, id string) (*catalog.Product, error)
	List(ctx context.Context) ([]catalog.Product, error)
	Update(ctx context.Context, id string, f catalog.Fields, img *catalog.Upload) (*catalog.Product, error)
	RemoveImage(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

var _ Catalog = (*catalog.Service)(nil)

// formOverhead is the room left for text fields and multipart framing on
// top of the image size limit.
const formOverhead = 1 << 20

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// MaxImageSize is the image upload limit in bytes. Zero means
	// catalog.DefaultMaxImageSize.
	MaxImageSize int64
}

// Handler serves the product API.
type Handler struct {
	catalog     Catalog
	maxBodySize int64
}

// New constructs a Handler.
func New(cfg Config, c Catalog) *Handler {
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = catalog.DefaultMaxImageSize
	}
	return &Handler{
		catalog:     c,
		maxBodySize: cfg.MaxImageSize + formOverhead,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("POST /api/products", h.CreateProduct)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("POST /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.DeleteProduct)
	mux.HandleFunc("DELETE /api/products/{id}/image", h.RemoveProductImage)
}

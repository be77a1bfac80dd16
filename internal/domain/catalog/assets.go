package catalog

import (
	"context"
	"io"
)

// DefaultMaxImageSize is the upload limit used when none is configured (5 MiB).
const DefaultMaxImageSize int64 = 5 << 20

// Upload is an image payload received from a client.
type Upload struct {
	// Filename is the client-side name; only its extension is kept.
	Filename    string
	ContentType string
	// Size is the declared payload size in bytes.
	Size int64
	Body io.Reader
}

// Assets stores and removes image files referenced by products.
type Assets interface {
	// Store persists the payload under a fresh name and returns its reference.
	Store(ctx context.Context, u Upload) (string, error)
	// Remove deletes the asset behind ref. A missing asset is not an error.
	Remove(ctx context.Context, ref string) error
}

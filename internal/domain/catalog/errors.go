package catalog

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors forming the closed set of failure kinds reported by the
// catalog. Callers match them with errors.Is.
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when no product has the requested id.
	ErrNotFound = errors.New("product not found")
	// ErrNoImage is returned when removing the image of a product that has none.
	ErrNoImage = errors.New("product has no image")
	// ErrUnsupportedMediaType is returned for uploads that are not images.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	// ErrPayloadTooLarge is returned for uploads above the size limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrStoreUnavailable is returned when the record store cannot be read or written.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreCorrupt is returned when the record store document cannot be decoded.
	ErrStoreCorrupt = errors.New("store corrupt")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

// Is reports ErrValidation as a match so callers can test the kind only.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError is a record store failure. It matches its Kind
// (ErrStoreUnavailable or ErrStoreCorrupt) and unwraps to the cause.
type StoreError struct {
	Kind error
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == e.Kind
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Error kind labels returned by KindOf.
const (
	KindValidation           = "validation"
	KindNotFound             = "not_found"
	KindNoImage              = "no_image"
	KindUnsupportedMediaType = "unsupported_media_type"
	KindPayloadTooLarge      = "payload_too_large"
	KindStoreUnavailable     = "store_unavailable"
	KindStoreCorrupt         = "store_corrupt"
	KindInternal             = "internal"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrValidation, KindValidation},
	{ErrNotFound, KindNotFound},
	{ErrNoImage, KindNoImage},
	{ErrUnsupportedMediaType, KindUnsupportedMediaType},
	{ErrPayloadTooLarge, KindPayloadTooLarge},
	{ErrStoreCorrupt, KindStoreCorrupt},
	{ErrStoreUnavailable, KindStoreUnavailable},
}

// KindOf returns the label of the failure kind err belongs to, "" for nil
// and KindInternal for errors outside the taxonomy.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

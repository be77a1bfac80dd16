package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/product-catalog/internal/domain/catalog"
)

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	e.Num(jx.Num(p.Price.String()))
	e.FieldStart("imageRef")
	if p.HasImage() {
		e.Str(p.ImageRef)
	} else {
		e.Null()
	}
	e.FieldStart("createdAt")
	e.Str(p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if !p.ModifiedAt.IsZero() {
		e.FieldStart("modifiedAt")
		e.Str(p.ModifiedAt.UTC().Format(time.RFC3339Nano))
	}
	e.ObjEnd()
}

// mapError converts domain errors to an HTTP status, a stable kind and a
// client-facing message.
func mapError(err error) (status int, kind, message string) {
	var badReq *BadRequestError
	if errors.As(err, &badReq) {
		return http.StatusBadRequest, "bad_request", badReq.Error()
	}

	kind = catalog.KindOf(err)
	switch kind {
	case catalog.KindValidation:
		return http.StatusBadRequest, kind, catalog.ErrValidation.Error()
	case catalog.KindNotFound:
		return http.StatusNotFound, kind, catalog.ErrNotFound.Error()
	case catalog.KindNoImage:
		return http.StatusNotFound, kind, catalog.ErrNoImage.Error()
	case catalog.KindUnsupportedMediaType:
		return http.StatusUnsupportedMediaType, kind, "only image uploads are accepted"
	case catalog.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge, kind, catalog.ErrPayloadTooLarge.Error()
	case catalog.KindStoreUnavailable:
		return http.StatusServiceUnavailable, kind, catalog.ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, kind, "internal error"
	}
}

// writeError renders err as {"error":{"kind","message","fields"?}}.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, kind, message := mapError(err)

	lg := zctx.From(ctx)
	if status >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.String("kind", kind), zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.String("kind", kind), zap.Error(err))
	}

	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("error")
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(kind)
	e.FieldStart("message")
	e.Str(message)

	var verr *catalog.ValidationError
	if errors.As(err, &verr) {
		e.FieldStart("fields")
		e.ArrStart()
		for _, f := range verr.Fields {
			e.ObjStart()
			e.FieldStart("field")
			e.Str(f.Field)
			e.FieldStart("reason")
			e.Str(f.Reason)
			e.ObjEnd()
		}
		e.ArrEnd()
	}

	e.ObjEnd()
	e.ObjEnd()
	writeJSON(w, status, e)
}

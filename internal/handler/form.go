package handler

import (
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/product-catalog/internal/domain/catalog"
)

// multipartMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const multipartMemory = 8 << 20

// BadRequestError reports a request body that could not be parsed.
type BadRequestError struct {
	Err error
}

func (e *BadRequestError) Error() string {
	return "malformed request: " + e.Err.Error()
}

func (e *BadRequestError) Unwrap() error {
	return e.Err
}

// readForm extracts product fields and the optional image from the request
// body. The returned cleanup func is never nil and releases the image file
// and any multipart temp files.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request) (catalog.Fields, *catalog.Upload, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "application/json":
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return catalog.Fields{}, nil, noop, bodyError(err)
		}
		f, err := decodeFields(data)
		if err != nil {
			return catalog.Fields{}, nil, noop, err
		}
		return f, nil, noop, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return catalog.Fields{}, nil, noop, bodyError(err)
		}
		return formFields(r.PostForm), nil, noop, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return catalog.Fields{}, nil, noop, bodyError(err)
		}
		cleanup := func() { _ = r.MultipartForm.RemoveAll() }

		f := formFields(r.PostForm)
		file, fh, err := r.FormFile("image")
		if errors.Is(err, http.ErrMissingFile) {
			return f, nil, cleanup, nil
		}
		if err != nil {
			return f, nil, cleanup, &BadRequestError{Err: errors.Wrap(err, "image")}
		}

		img := &catalog.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        file,
		}
		return f, img, func() {
			_ = file.Close()
			cleanup()
		}, nil

	default:
		return catalog.Fields{}, nil, noop, errors.Wrapf(catalog.ErrUnsupportedMediaType, "request content type %q", mediaType)
	}
}

func formFields(v url.Values) catalog.Fields {
	return catalog.Fields{
		Name:        v.Get("name"),
		Description: v.Get("description"),
		Price:       v.Get("price"),
	}
}

// decodeFields reads {"name","description","price"} from a JSON object.
// A string price follows the client text rule; a numeric price must be a
// plain positive integer. Malformed JSON is a *BadRequestError, a rejected
// numeric price a *catalog.ValidationError.
func decodeFields(data []byte) (catalog.Fields, error) {
	var (
		f        catalog.Fields
		priceErr error
	)
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return f, &BadRequestError{Err: errors.New("body must be a JSON object")}
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			return decodeText(d, &f.Name)
		case "description":
			return decodeText(d, &f.Description)
		case "price":
			if d.Next() == jx.Number {
				n, err := d.Num()
				if err != nil {
					return errors.Wrap(err, "price")
				}
				f.Price = n.String()
				priceErr = catalog.CheckNumberPrice(f.Price)
				return nil
			}
			return decodeText(d, &f.Price)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return f, &BadRequestError{Err: err}
	}
	if priceErr != nil {
		return f, priceErr
	}
	return f, nil
}

func decodeText(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errors.Wrapf(catalog.ErrPayloadTooLarge, "request body exceeds %d bytes", tooLarge.Limit)
	}
	return &BadRequestError{Err: err}
}

package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// ListProducts returns every product in insertion order.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	e := &jx.Encoder{}
	e.ArrStart()
	for _, p := range products {
		encodeProduct(e, p)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	e := &jx.Encoder{}
	encodeProduct(e, *p)
	writeJSON(w, http.StatusOK, e)
}

// CreateProduct accepts a form (multipart with an optional "image" file, or
// urlencoded) or a JSON object and creates a product from it.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, img, cleanup, err := h.readForm(w, r)
	defer cleanup()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	p, err := h.catalog.Create(ctx, f, img)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	e := &jx.Encoder{}
	encodeProduct(e, *p)
	w.Header().Set("Location", "/api/products/"+p.ID)
	writeJSON(w, http.StatusCreated, e)
}

// UpdateProduct replaces the editable fields of a product. A new image in
// the form replaces the current one.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, img, cleanup, err := h.readForm(w, r)
	defer cleanup()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	p, err := h.catalog.Update(ctx, r.PathValue("id"), f, img)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	e := &jx.Encoder{}
	encodeProduct(e, *p)
	writeJSON(w, http.StatusOK, e)
}

// RemoveProductImage detaches the image of a product.
func (h *Handler) RemoveProductImage(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.RemoveImage(r.Context(), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProduct removes a product together with its image.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

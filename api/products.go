package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/models"
	"github.com/shopdesk/catalog-service/internal/pipeline"
	"github.com/shopdesk/catalog-service/internal/sheets"
)

// GetProducts lists the catalog, newest first. ?search and ?category narrow
// the list; category "all" means no filter.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "all" {
		category = ""
	}

	var (
		products []models.Product
		err      error
	)
	if search == "" && category == "" {
		products, err = h.store.ListProducts(r.Context())
	} else {
		products, err = h.store.SearchProducts(r.Context(), search, category)
	}
	if err != nil {
		h.serverError(w, r, "failed to list products", err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.store.GetProduct(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProduct adds one product entered by hand.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := decodeJSON(r, &p); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if res := h.validator.Validate(&p); !res.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  res.Error(),
			"errors": res.Errors,
		})
		return
	}

	if err := h.store.CreateProduct(r.Context(), &p); err != nil {
		h.serverError(w, r, "failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var u models.ProductUpdate
	if err := decodeJSON(r, &u); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if u.Empty() {
		h.sendError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if res := h.validator.ValidateUpdate(&u); !res.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  res.Error(),
			"errors": res.Errors,
		})
		return
	}

	p, err := h.store.UpdateProduct(r.Context(), id, u)
	if errors.Is(err, db.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to update product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	err := h.store.DeleteProduct(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to delete product", err)
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted successfully")
}

// ExportProducts downloads the catalog as an XLSX workbook that the
// spreadsheet import accepts back.
func (h *Handler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list products", err)
		return
	}

	filename := fmt.Sprintf("products-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := sheets.WriteProductsXLSX(w, products); err != nil {
		requestLogger(r, h.logger).Error().Err(err).Msg("export failed")
	}
}

// GetProductImage serves the product photo. Archived images are streamed
// from storage; external URLs are redirected to.
func (h *Handler) GetProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.store.GetProduct(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to get product", err)
		return
	}

	switch {
	case p.ImageURL == "":
		h.sendError(w, http.StatusNotFound, "Product has no image")
		return
	case strings.HasPrefix(p.ImageURL, "http://"), strings.HasPrefix(p.ImageURL, "https://"):
		http.Redirect(w, r, p.ImageURL, http.StatusFound)
		return
	case h.images == nil:
		h.sendError(w, http.StatusServiceUnavailable, "storage not available")
		return
	}

	obj, contentType, err := h.images.Open(r.Context(), p.ImageURL)
	if err != nil {
		requestLogger(r, h.logger).Warn().Err(err).Str("path", p.ImageURL).Msg("image not available")
		h.sendError(w, http.StatusNotFound, "Image not found")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, obj); err != nil {
		requestLogger(r, h.logger).Warn().Err(err).Msg("image stream interrupted")
	}
}

// UploadProductSheet imports products from the spreadsheet posted as "file".
func (h *Handler) UploadProductSheet(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.readSheet(w, r)
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}

	result, err := h.intake.ImportProductSheet(r.Context(), name, data)
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  fmt.Sprintf("Successfully imported %d products", len(result.Products)),
		"products": result.Products,
		"rejected": result.Rejected,
		"session":  result.Session,
	})
}

// UploadProductImages runs OCR over the photos posted as "files" and stores
// the extracted products.
func (h *Handler) UploadProductImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.readImages(w, r)
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}

	result, err := h.intake.ImportProductImages(r.Context(), images)
	if errors.Is(err, pipeline.ErrNothingExtracted) {
		h.sendError(w, http.StatusBadRequest, "No products could be extracted from the images")
		return
	}
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       fmt.Sprintf("Successfully extracted and created %d products from OCR", len(result.Products)),
		"extractedText": result.ExtractedText,
		"products":      result.Products,
		"rejected":      result.Rejected,
		"images":        result.Images,
		"session":       result.Session,
	})
}

// PreviewProducts runs extraction without storing anything.
func (h *Handler) PreviewProducts(w http.ResponseWriter, r *http.Request) {
	images, err := h.readImages(w, r)
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}
	batch, err := h.extractor.ExtractProducts(r.Context(), images)
	if err != nil && !errors.Is(err, pipeline.ErrNothingExtracted) {
		h.serverError(w, r, "extraction failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"extractedText": batch.Text(),
		"products":      nonNil(batch.Records),
		"images":        batch.Images,
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

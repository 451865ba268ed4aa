package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/pipeline"
	"github.com/shopdesk/catalog-service/internal/services"
)

var (
	errNoFile       = errors.New("No file uploaded")
	errNoFiles      = errors.New("No files uploaded")
	errTooManyFiles = errors.New("too many files")
	errFileTooLarge = errors.New("file too large")
	errNotImage     = errors.New("only image files are allowed")
)

// multipartOverhead covers boundaries and headers on top of the file bytes.
const multipartOverhead = 1 << 20

// parseUpload bounds the request body and parses the multipart form.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) error {
	limit := h.cfg.Upload.MaxFileSize*int64(h.cfg.Upload.MaxFiles) + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errFileTooLarge
		}
		return fmt.Errorf("failed to parse form: %w", err)
	}
	return nil
}

// formFiles returns the headers under any of fields, in upload order.
func formFiles(r *http.Request, fields ...string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	var out []*multipart.FileHeader
	for _, f := range fields {
		out = append(out, r.MultipartForm.File[f]...)
	}
	return out
}

func (h *Handler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.cfg.Upload.MaxFileSize {
		return nil, fmt.Errorf("%w: %s", errFileTooLarge, fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.cfg.Upload.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	if int64(len(data)) > h.cfg.Upload.MaxFileSize {
		return nil, fmt.Errorf("%w: %s", errFileTooLarge, fh.Filename)
	}
	return data, nil
}

// readSheet returns the single spreadsheet posted as "file".
func (h *Handler) readSheet(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	if err := h.parseUpload(w, r); err != nil {
		return "", nil, err
	}
	files := formFiles(r, "file")
	if len(files) == 0 {
		return "", nil, errNoFile
	}
	data, err := h.readFile(files[0])
	if err != nil {
		return "", nil, err
	}
	return files[0].Filename, data, nil
}

// readImages returns the photos posted as "files" or "file".
func (h *Handler) readImages(w http.ResponseWriter, r *http.Request) ([]pipeline.Image, error) {
	if err := h.parseUpload(w, r); err != nil {
		return nil, err
	}
	files := formFiles(r, "files", "file")
	if len(files) == 0 {
		return nil, errNoFiles
	}
	if len(files) > h.cfg.Upload.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d per upload", errTooManyFiles, h.cfg.Upload.MaxFiles)
	}

	images := make([]pipeline.Image, 0, len(files))
	for _, fh := range files {
		data, err := h.readFile(fh)
		if err != nil {
			return nil, err
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		if !strings.HasPrefix(contentType, "image/") {
			return nil, fmt.Errorf("%w: %s", errNotImage, fh.Filename)
		}
		images = append(images, pipeline.Image{Name: fh.Filename, Data: data, ContentType: contentType})
	}
	return images, nil
}

// sendUploadError maps upload and import failures to responses.
func (h *Handler) sendUploadError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errNoFile), errors.Is(err, errNoFiles):
		h.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errFileTooLarge):
		h.sendError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, errTooManyFiles), errors.Is(err, errNotImage):
		h.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNoValidProducts):
		h.sendError(w, http.StatusBadRequest, "No valid products found in file")
	case errors.Is(err, services.ErrNoValidContacts):
		h.sendError(w, http.StatusBadRequest, "No valid users found in file")
	case errors.Is(err, pipeline.ErrNothingExtracted):
		h.sendError(w, http.StatusBadRequest, "Nothing could be extracted from the images")
	default:
		if strings.HasPrefix(err.Error(), "failed to parse form") {
			h.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.serverError(w, r, "import failed", err)
	}
}

// GetUploadSessions lists recent import runs; ?limit defaults to 50.
func (h *Handler) GetUploadSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := parsePositive(v)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, 500)
	}
	sessions, err := h.store.ListUploadSessions(r.Context(), limit)
	if err != nil {
		h.serverError(w, r, "failed to list upload sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sessions))
}

func (h *Handler) GetUploadSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sess, err := h.store.GetUploadSession(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Upload session not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to get upload session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

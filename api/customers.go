package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/shopdesk/catalog-service/internal/auth"
	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/models"
	"github.com/shopdesk/catalog-service/internal/pipeline"
)

// GetContacts lists imported customers.
func (h *Handler) GetContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.store.ListContacts(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(contacts))
}

func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var c models.Contact
	if err := decodeJSON(r, &c); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if c.Name == "" || c.Email == "" {
		h.sendError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := h.store.CreateContact(r.Context(), &c); err != nil {
		h.serverError(w, r, "failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// UploadContactSheet imports customers from the spreadsheet posted as "file".
func (h *Handler) UploadContactSheet(w http.ResponseWriter, r *http.Request) {
	name, data, err := h.readSheet(w, r)
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}

	result, err := h.intake.ImportContactSheet(r.Context(), name, data)
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  fmt.Sprintf("Successfully imported %d users", len(result.Contacts)),
		"users":    result.Contacts,
		"rejected": result.Rejected,
		"session":  result.Session,
	})
}

// UploadContactImages reads customers off photographed lists.
func (h *Handler) UploadContactImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.readImages(w, r)
	if errors.Is(err, errNoFiles) {
		err = errNoFile
	}
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}

	result, err := h.intake.ImportContactImages(r.Context(), images)
	if errors.Is(err, pipeline.ErrNothingExtracted) {
		h.sendError(w, http.StatusBadRequest, "No users could be extracted from the images")
		return
	}
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       fmt.Sprintf("Successfully extracted %d users from image", len(result.Contacts)),
		"extractedText": result.ExtractedText,
		"users":         result.Contacts,
		"images":        result.Images,
		"session":       result.Session,
	})
}

// PreviewContacts runs contact extraction without storing anything.
func (h *Handler) PreviewContacts(w http.ResponseWriter, r *http.Request) {
	images, err := h.readImages(w, r)
	if err != nil {
		h.sendUploadError(w, r, err)
		return
	}
	batch, err := h.extractor.ExtractContacts(r.Context(), images)
	if err != nil && !errors.Is(err, pipeline.ErrNothingExtracted) {
		h.serverError(w, r, "extraction failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"extractedText": batch.Text(),
		"users":         nonNil(batch.Records),
		"images":        batch.Images,
	})
}

type assignmentRequest struct {
	UserEmail  string      `json:"userEmail"`
	UserName   string      `json:"userName"`
	ProductIDs []uuid.UUID `json:"productIds"`
	AssignedBy string      `json:"assignedBy"`
}

// GetAssignments lists assignments, optionally for one customer (?email=).
func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	var (
		assignments []models.Assignment
		err         error
	)
	if email := strings.TrimSpace(r.URL.Query().Get("email")); email != "" {
		assignments, err = h.store.ListAssignmentsByEmail(r.Context(), email)
	} else {
		assignments, err = h.store.ListAssignments(r.Context())
	}
	if err != nil {
		h.serverError(w, r, "failed to list assignments", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(assignments))
}

// CreateAssignments assigns products to a customer. assignedBy defaults to
// the signed-in account, then to "system".
func (h *Handler) CreateAssignments(w http.ResponseWriter, r *http.Request) {
	var req assignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserEmail = strings.TrimSpace(req.UserEmail)
	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserEmail == "" || req.UserName == "" || len(req.ProductIDs) == 0 {
		h.sendError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if req.AssignedBy == "" {
		req.AssignedBy = "system"
		if u, err := auth.UserFromContext(r.Context()); err == nil {
			req.AssignedBy = u.Email
		}
	}

	created, err := h.store.CreateAssignments(r.Context(), req.ProductIDs, req.UserEmail, req.UserName, req.AssignedBy)
	if err != nil {
		h.serverError(w, r, "failed to create assignments", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     fmt.Sprintf("Successfully assigned %d products to %s", len(created), req.UserName),
		"assignments": created,
	})
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	err := h.store.DeleteAssignment(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "Assignment not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to delete assignment", err)
		return
	}
	writeMessage(w, http.StatusOK, "Assignment deleted successfully")
}

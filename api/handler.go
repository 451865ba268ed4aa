// Package api exposes the catalog dashboard over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/shopdesk/catalog-service/internal/auth"
	"github.com/shopdesk/catalog-service/internal/config"
	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/models"
	"github.com/shopdesk/catalog-service/internal/services"
)

const Version = "1.0.0"

// Store is the persistence the handlers read and write directly.
type Store interface {
	Ping(ctx context.Context) error

	ListProducts(ctx context.Context) ([]models.Product, error)
	SearchProducts(ctx context.Context, query, category string) ([]models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, id uuid.UUID, u models.ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListContacts(ctx context.Context) ([]models.Contact, error)
	CreateContact(ctx context.Context, c *models.Contact) error

	CreateAssignments(ctx context.Context, productIDs []uuid.UUID, email, name, assignedBy string) ([]models.Assignment, error)
	ListAssignments(ctx context.Context) ([]models.Assignment, error)
	ListAssignmentsByEmail(ctx context.Context, email string) ([]models.Assignment, error)
	DeleteAssignment(ctx context.Context, id uuid.UUID) error

	ListPaymentLinks(ctx context.Context) ([]models.PaymentLink, error)
	UpdatePaymentLink(ctx context.Context, id uuid.UUID, u models.PaymentLinkUpdate) (*models.PaymentLink, error)
	DeletePaymentLink(ctx context.Context, id uuid.UUID) error

	ListUploadSessions(ctx context.Context, limit int) ([]models.UploadSession, error)
	GetUploadSession(ctx context.Context, id uuid.UUID) (*models.UploadSession, error)

	GetStats(ctx context.Context) (*models.Stats, error)
}

// ImageSource serves archived images.
type ImageSource interface {
	Open(ctx context.Context, objectPath string) (io.ReadCloser, string, error)
	Ping(ctx context.Context) error
}

// Deps are the collaborators of Handler. Images may be nil.
type Deps struct {
	Config    *config.Config
	Store     Store
	Intake    *services.IntakeService
	Payments  *services.PaymentLinkService
	Auth      *auth.Service
	Images    ImageSource
	Extractor services.Extractor
	Logger    zerolog.Logger
}

// Handler handles HTTP requests for the catalog dashboard
type Handler struct {
	cfg       *config.Config
	store     Store
	intake    *services.IntakeService
	payments  *services.PaymentLinkService
	auth      *auth.Service
	images    ImageSource
	extractor services.Extractor
	validator *services.ProductValidator
	limiter   *clientLimiter
	logger    zerolog.Logger
}

// NewHandler creates a new API handler
func NewHandler(d Deps) *Handler {
	return &Handler{
		cfg:       d.Config,
		store:     d.Store,
		intake:    d.Intake,
		payments:  d.Payments,
		auth:      d.Auth,
		images:    d.Images,
		extractor: d.Extractor,
		validator: services.NewProductValidator(),
		limiter:   newClientLimiter(d.Config.Upload.RateLimit, d.Config.Upload.RateBurst),
		logger:    d.Logger.With().Str("component", "api").Logger(),
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()
	router.Use(h.recoverer, h.accessLog)

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	// Processor callbacks carry their own signature.
	router.HandleFunc("/api/webhook/stripe", h.StripeWebhook).Methods("POST")

	public := router.PathPrefix("/api/auth").Subrouter()
	public.Use(h.requireDatabase, h.rateLimit)
	public.HandleFunc("/register", h.auth.RegisterHandler).Methods("POST")
	public.HandleFunc("/login", h.auth.LoginHandler).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.requireDatabase, h.authenticate)

	api.HandleFunc("/auth/me", h.auth.MeHandler).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	// Catalog
	api.HandleFunc("/products", h.GetProducts).Methods("GET")
	api.HandleFunc("/products", h.CreateProduct).Methods("POST")
	api.HandleFunc("/products/export", h.ExportProducts).Methods("GET")
	api.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	api.HandleFunc("/products/{id}", h.UpdateProduct).Methods("PUT")
	api.HandleFunc("/products/{id}", h.DeleteProduct).Methods("DELETE")
	api.HandleFunc("/products/{id}/image", h.GetProductImage).Methods("GET")

	// Imports
	uploads := api.NewRoute().Subrouter()
	uploads.Use(h.rateLimit)
	uploads.HandleFunc("/upload/csv", h.UploadProductSheet).Methods("POST")
	uploads.HandleFunc("/upload/ocr", h.UploadProductImages).Methods("POST")
	uploads.HandleFunc("/users/upload-csv", h.UploadContactSheet).Methods("POST")
	uploads.HandleFunc("/users/upload-photo", h.UploadContactImages).Methods("POST")
	uploads.HandleFunc("/extract/products", h.PreviewProducts).Methods("POST")
	uploads.HandleFunc("/extract/contacts", h.PreviewContacts).Methods("POST")
	api.HandleFunc("/upload-sessions", h.GetUploadSessions).Methods("GET")
	api.HandleFunc("/upload-sessions/{id}", h.GetUploadSession).Methods("GET")

	// Customers
	api.HandleFunc("/system-users", h.GetContacts).Methods("GET")
	api.HandleFunc("/system-users", h.CreateContact).Methods("POST")
	api.HandleFunc("/assignments", h.GetAssignments).Methods("GET")
	api.HandleFunc("/assignments", h.CreateAssignments).Methods("POST")
	api.HandleFunc("/assignments/{id}", h.DeleteAssignment).Methods("DELETE")

	// Payments
	api.HandleFunc("/payment-links", h.GetPaymentLinks).Methods("GET")
	api.HandleFunc("/payment-links", h.CreatePaymentLink).Methods("POST")
	api.HandleFunc("/payment-links/{id}", h.UpdatePaymentLink).Methods("PUT")
	api.HandleFunc("/payment-links/{id}", h.DeletePaymentLink).Methods("DELETE")

	// Account approval
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireAdmin)
	admin.HandleFunc("/users", h.GetAccounts).Methods("GET")
	admin.HandleFunc("/users/{id}/approve", h.ApproveAccount).Methods("POST")
	admin.HandleFunc("/users/{id}/revoke", h.RevokeAccount).Methods("POST")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status      string        `json:"status"`
	Version     string        `json:"version"`
	Timestamp   string        `json:"timestamp"`
	Uptime      string        `json:"uptime"`
	Memory      MemoryStats   `json:"memory"`
	OCREngine   string        `json:"ocrEngine"`
	Tesseract   ServiceStatus `json:"tesseract"`
	ImageMagick ServiceStatus `json:"imageMagick"`
	Database    ServiceStatus `json:"database"`
	Storage     ServiceStatus `json:"storage"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health reports dependency status. The service is degraded when the
// database is down, or when the local OCR engine is selected and
// tesseract is missing.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		OCREngine:   h.cfg.OCR.Engine,
		Tesseract:   checkBinary("tesseract", "--version"),
		ImageMagick: checkImageMagick(),
		Database:    h.checkDatabase(ctx),
		Storage:     h.checkStorage(ctx),
	}

	status := http.StatusOK
	if !response.Database.Available || (h.cfg.OCR.Engine == "tesseract" && !response.Tesseract.Available) {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func checkBinary(name string, args ...string) ServiceStatus {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return ServiceStatus{Available: false, Error: name + " not found or not executable"}
	}

	version := "unknown"
	if line, _, _ := strings.Cut(string(output), "\n"); line != "" {
		version = strings.TrimSpace(line)
	}
	return ServiceStatus{Available: true, Version: version}
}

func checkImageMagick() ServiceStatus {
	if s := checkBinary("magick", "-version"); s.Available {
		return s
	}
	return checkBinary("convert", "-version")
}

func (h *Handler) checkDatabase(ctx context.Context) ServiceStatus {
	if h.store == nil {
		return ServiceStatus{Available: false, Error: "database not configured"}
	}
	if err := h.store.Ping(ctx); err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	return ServiceStatus{Available: true, Version: "PostgreSQL"}
}

func (h *Handler) checkStorage(ctx context.Context) ServiceStatus {
	if h.images == nil {
		return ServiceStatus{Available: false, Error: "storage not configured"}
	}
	if err := h.images.Ping(ctx); err != nil {
		return ServiceStatus{Available: false, Error: err.Error()}
	}
	return ServiceStatus{Available: true, Version: "MinIO S3"}
}

// GetStats returns the dashboard counters
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to get stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetAccounts lists dashboard accounts for approval.
func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		h.serverError(w, r, "failed to list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) ApproveAccount(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, true)
}

func (h *Handler) RevokeAccount(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, false)
}

func (h *Handler) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	u, err := h.auth.SetApproval(r.Context(), id, approved)
	if errors.Is(err, db.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "failed to update account", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// serverError logs err and answers 500 without leaking internals.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, message string, err error) {
	requestLogger(r, h.logger).Error().Err(err).Msg(message)
	h.sendError(w, http.StatusInternalServerError, message)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

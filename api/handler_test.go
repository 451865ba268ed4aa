package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/catalog-service/internal/auth"
	"github.com/shopdesk/catalog-service/internal/config"
	"github.com/shopdesk/catalog-service/internal/extract"
	"github.com/shopdesk/catalog-service/internal/models"
	"github.com/shopdesk/catalog-service/internal/payments"
	"github.com/shopdesk/catalog-service/internal/pipeline"
	"github.com/shopdesk/catalog-service/internal/services"
	"github.com/shopdesk/catalog-service/internal/sheets"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testEnv struct {
	router    *mux.Router
	store     *memStore
	extractor *stubExtractor
	processor *stubProcessor
	images    *stubImages
	tokens    *auth.TokenManager
	admin     *models.User
	token     string
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config, *Deps)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.OCR.Engine = "gemini"
	cfg.Upload.RateLimit = 0

	env := &testEnv{
		store:     &memStore{},
		extractor: &stubExtractor{},
		processor: &stubProcessor{},
		images:    &stubImages{objects: map[string][]byte{}},
		tokens:    auth.NewTokenManager("test-secret", time.Hour),
	}
	env.admin = &models.User{Email: "owner@shop.example", Role: models.RoleAdmin, Approved: true}
	require.NoError(t, env.store.CreateUser(t.Context(), env.admin))
	token, err := env.tokens.GenerateToken(env.admin)
	require.NoError(t, err)
	env.token = token

	logger := zerolog.Nop()
	deps := Deps{
		Config:    &cfg,
		Store:     env.store,
		Intake:    services.NewIntakeService(env.store, env.extractor, nil, logger),
		Payments:  services.NewPaymentLinkService(env.store, env.processor, "usd", logger),
		Auth:      auth.NewService(env.store, env.tokens, true, logger),
		Images:    env.images,
		Extractor: env.extractor,
		Logger:    logger,
	}
	for _, fn := range tweak {
		fn(&cfg, &deps)
	}
	env.router = NewHandler(deps).SetupRoutes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type upload struct {
	field, name string
	data        []byte
}

func (e *testEnv) upload(t *testing.T, path string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) seed(name, price, category string) models.Product {
	p := models.Product{Name: name, Price: models.MustMoney(price), Category: category}
	_ = e.store.CreateProduct(context.Background(), &p)
	return p
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.True(t, resp.Database.Available)
	assert.True(t, resp.Storage.Available)
	assert.Equal(t, "gemini", resp.OCREngine)
}

func TestHealth_DegradedWithoutDatabase(t *testing.T) {
	env := newTestEnv(t, func(_ *config.Config, d *Deps) { d.Store = nil })

	rec := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.Database.Available)
}

func TestRoutes_WithoutDatabase(t *testing.T) {
	env := newTestEnv(t, func(_ *config.Config, d *Deps) { d.Store = nil })

	rec := env.do(t, http.MethodGet, "/api/products", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database not available", decode[map[string]string](t, rec)["error"])
}

func TestRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	for _, path := range []string{"/api/products", "/api/stats", "/api/system-users", "/api/payment-links"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))

	rec = env.do(t, http.MethodGet, "/health", nil)
	_, err := uuid.Parse(rec.Header().Get(requestIDHeader))
	assert.NoError(t, err)
}

func TestProducts_CRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "  Linen Shirt ", "price": "29.999", "description": "Summer",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Product](t, rec)
	assert.Equal(t, "Linen Shirt", created.Name)
	assert.Equal(t, "30.00", created.Price.StringFixed(2))
	assert.Equal(t, string(extract.CategoryUncategorized), created.Category)

	rec = env.do(t, http.MethodGet, "/api/products/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/products/"+created.ID.String(), map[string]any{
		"price": 35, "category": "Shirts",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Product](t, rec)
	assert.Equal(t, "Linen Shirt", updated.Name)
	assert.Equal(t, "35.00", updated.Price.StringFixed(2))
	assert.Equal(t, "Shirts", updated.Category)

	rec = env.do(t, http.MethodDelete, "/api/products/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product deleted successfully", decode[map[string]string](t, rec)["message"])

	rec = env.do(t, http.MethodGet, "/api/products/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_Validation(t *testing.T) {
	env := newTestEnv(t)
	p := env.seed("Wool Scarf", "12.50", "Accessories")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "missing name", method: http.MethodPost, path: "/api/products", body: map[string]any{"price": "5"}, status: http.StatusBadRequest},
		{name: "zero price", method: http.MethodPost, path: "/api/products", body: map[string]any{"name": "Hat", "price": "0"}, status: http.StatusBadRequest},
		{name: "empty update", method: http.MethodPut, path: "/api/products/" + p.ID.String(), body: map[string]any{}, status: http.StatusBadRequest},
		{name: "negative update", method: http.MethodPut, path: "/api/products/" + p.ID.String(), body: map[string]any{"price": "-1"}, status: http.StatusBadRequest},
		{name: "bad id", method: http.MethodGet, path: "/api/products/not-a-uuid", status: http.StatusBadRequest},
		{name: "unknown id", method: http.MethodDelete, path: "/api/products/" + uuid.NewString(), status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]any](t, rec)["error"])
		})
	}
}

func TestProducts_Search(t *testing.T) {
	env := newTestEnv(t)
	env.seed("Denim Jeans", "39.90", "Pants")
	env.seed("Denim Jacket", "79.00", "Outerwear")
	env.seed("Silk Blouse", "18.00", "Shirts")

	rec := env.do(t, http.MethodGet, "/api/products", nil)
	all := decode[[]models.Product](t, rec)
	require.Len(t, all, 3)
	assert.Equal(t, "Silk Blouse", all[0].Name, "newest first")

	rec = env.do(t, http.MethodGet, "/api/products?search=denim&category=all", nil)
	assert.Len(t, decode[[]models.Product](t, rec), 2)
	assert.Equal(t, [2]string{"denim", ""}, env.store.lastSearch)

	rec = env.do(t, http.MethodGet, "/api/products?search=denim&category=Pants", nil)
	got := decode[[]models.Product](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "Denim Jeans", got[0].Name)

	rec = env.do(t, http.MethodGet, "/api/products?search=nothing", nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestProducts_Export(t *testing.T) {
	env := newTestEnv(t)
	env.seed("Denim Jeans", "39.90", "Pants")
	env.seed("Silk Blouse", "18.00", "Shirts")

	rec := env.do(t, http.MethodGet, "/api/products/export", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	rows, err := sheets.ReadRows(rec.Body.Bytes(), "export.xlsx")
	require.NoError(t, err)
	products, skipped := sheets.Products(rows)
	assert.Zero(t, skipped)
	require.Len(t, products, 2)
	assert.Equal(t, "Silk Blouse", products[0].Name)
}

func TestProducts_Image(t *testing.T) {
	env := newTestEnv(t)
	archived := models.Product{Name: "Cap", Price: models.MustMoney("9"), ImageURL: "catalog-uploads/products/cap.png"}
	external := models.Product{Name: "Tie", Price: models.MustMoney("9"), ImageURL: "https://cdn.example.com/tie.png"}
	bare := models.Product{Name: "Sock", Price: models.MustMoney("9")}
	for _, p := range []*models.Product{&archived, &external, &bare} {
		require.NoError(t, env.store.CreateProduct(t.Context(), p))
	}
	env.images.objects["catalog-uploads/products/cap.png"] = pngHeader

	rec := env.do(t, http.MethodGet, "/api/products/"+archived.ID.String()+"/image", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, rec.Body.Bytes())

	rec = env.do(t, http.MethodGet, "/api/products/"+external.ID.String()+"/image", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, external.ImageURL, rec.Header().Get("Location"))

	rec = env.do(t, http.MethodGet, "/api/products/"+bare.ID.String()+"/image", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_ProductSheet(t *testing.T) {
	env := newTestEnv(t)
	csv := "name,price,category\nBlue Shirt,$24.99,Shirts\nNo Price,,\nCap,9.5,\n"

	rec := env.upload(t, "/api/upload/csv", upload{field: "file", name: "catalog.csv", data: []byte(csv)})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Successfully imported 2 products", body["message"])
	assert.EqualValues(t, 1, body["rejected"])
	assert.Len(t, env.store.products, 2)
	require.Len(t, env.store.sessions, 1)
	assert.Equal(t, models.UploadCompleted, env.store.sessions[0].Status)
}

func TestUpload_ProductSheetErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.upload(t, "/api/upload/csv")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decode[map[string]string](t, rec)["error"])

	rec = env.upload(t, "/api/upload/csv", upload{field: "file", name: "empty.csv", data: []byte("name,price\n,0\n")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No valid products found in file", decode[map[string]string](t, rec)["error"])
}

func TestUpload_ProductImages(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.products = &pipeline.Batch[extract.Product]{
		Records: []extract.Product{
			{Name: "Denim Jeans", Price: decimal.RequireFromString("39.90"), Category: extract.CategoryPants},
			{Name: "Wool Scarf", Price: decimal.RequireFromString("12.50"), Category: extract.CategoryAccessories},
		},
		Images: []pipeline.ImageResult{
			{Index: 0, Name: "a.png", Text: "Denim Jeans $39.90", Records: 1},
			{Index: 1, Name: "b.png", Text: "Wool Scarf €12.50", Records: 1},
		},
	}

	rec := env.upload(t, "/api/upload/ocr",
		upload{field: "files", name: "a.png", data: pngHeader},
		upload{field: "files", name: "b.png", data: pngHeader},
	)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Successfully extracted and created 2 products from OCR", body["message"])
	assert.Contains(t, body["extractedText"], "Wool Scarf")
	require.Len(t, env.store.products, 2)
	assert.Equal(t, "Pants", env.store.products[0].Category)
}

func TestUpload_ProductImagesNothingExtracted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.upload(t, "/api/upload/ocr", upload{field: "files", name: "blank.png", data: pngHeader})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No products could be extracted from the images", decode[map[string]string](t, rec)["error"])
}

func TestUpload_ImageLimits(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config, _ *Deps) {
		c.Upload.MaxFileSize = 64
		c.Upload.MaxFiles = 2
	})

	tests := []struct {
		name   string
		files  []upload
		status int
	}{
		{name: "no files", status: http.StatusBadRequest},
		{name: "not an image", files: []upload{{field: "files", name: "notes.txt", data: []byte("hello there")}}, status: http.StatusBadRequest},
		{name: "too large", files: []upload{{field: "files", name: "big.png", data: append(pngHeader, make([]byte, 100)...)}}, status: http.StatusRequestEntityTooLarge},
		{name: "too many", files: []upload{
			{field: "files", name: "1.png", data: pngHeader},
			{field: "files", name: "2.png", data: pngHeader},
			{field: "files", name: "3.png", data: pngHeader},
		}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.upload(t, "/api/upload/ocr", tt.files...)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
	assert.Zero(t, env.extractor.calls)
}

func TestUpload_ContactPhoto(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.contacts = &pipeline.Batch[extract.Contact]{
		Records: []extract.Contact{{Name: "Jane Doe", Email: "jane@example.com"}},
		Images:  []pipeline.ImageResult{{Index: 0, Name: "list.png", Text: "Jane Doe\njane@example.com", Records: 1}},
	}

	rec := env.upload(t, "/api/users/upload-photo", upload{field: "file", name: "list.png", data: pngHeader})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Successfully extracted 1 users from image", body["message"])
	assert.Equal(t, "Jane Doe\njane@example.com", body["extractedText"])
	require.Len(t, env.store.contacts, 1)
	assert.Equal(t, "jane@example.com", env.store.contacts[0].Email)

	rec = env.upload(t, "/api/users/upload-photo")
	assert.Equal(t, "No file uploaded", decode[map[string]string](t, rec)["error"])
}

func TestUpload_ContactPhotoNothingExtracted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.upload(t, "/api/users/upload-photo", upload{field: "file", name: "staff.png", data: pngHeader})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No users could be extracted from the images", decode[map[string]string](t, rec)["error"])
	assert.Empty(t, env.store.contacts)
}

func TestUpload_ContactSheet(t *testing.T) {
	env := newTestEnv(t)
	csv := "Name,Email,Phone\nJohn Smith,john@example.com,555-1234\nNo Mail,,\n"

	rec := env.upload(t, "/api/users/upload-csv", upload{field: "file", name: "users.csv", data: []byte(csv)})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Successfully imported 1 users", decode[map[string]any](t, rec)["message"])

	rec = env.do(t, http.MethodGet, "/api/system-users", nil)
	users := decode[[]models.Contact](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "John Smith", users[0].Name)
}

func TestExtractPreview_DoesNotStore(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.products = &pipeline.Batch[extract.Product]{
		Records: []extract.Product{{Name: "Cap", Price: decimal.NewFromInt(9), Category: extract.CategoryAccessories}},
		Images:  []pipeline.ImageResult{{Index: 0, Name: "cap.png", Text: "Cap $9.00", Records: 1}},
	}

	rec := env.upload(t, "/api/extract/products", upload{field: "files", name: "cap.png", data: pngHeader})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[map[string]any](t, rec)["products"], 1)
	assert.Empty(t, env.store.products)
	assert.Empty(t, env.store.sessions)

	rec = env.upload(t, "/api/extract/contacts", upload{field: "files", name: "blank.png", data: pngHeader})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode[map[string]any](t, rec)["users"])
}

func TestContacts_Create(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/system-users", map[string]string{"name": "Ken Ito", "email": "ken@example.jp"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/system-users", map[string]string{"name": "Ken Ito"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decode[map[string]string](t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/system-users", map[string]string{"name": "Ken Ito", "email": "ken at example"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssignments(t *testing.T) {
	env := newTestEnv(t)
	a := env.seed("Denim Jeans", "39.90", "Pants")
	b := env.seed("Silk Blouse", "18.00", "Shirts")

	rec := env.do(t, http.MethodPost, "/api/assignments", map[string]any{
		"userEmail": "jane@example.com", "userName": "Jane Doe", "productIds": []uuid.UUID{a.ID, b.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Successfully assigned 2 products to Jane Doe", decode[map[string]any](t, rec)["message"])
	assert.Equal(t, env.admin.Email, env.store.assignments[0].AssignedBy)

	rec = env.do(t, http.MethodGet, "/api/assignments?email=JANE@example.com", nil)
	assert.Len(t, decode[[]models.Assignment](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/stats", nil)
	stats := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, stats["totalProducts"])
	assert.EqualValues(t, 1, stats["activeUsers"])

	rec = env.do(t, http.MethodDelete, "/api/assignments/"+env.store.assignments[0].ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.store.assignments, 1)

	rec = env.do(t, http.MethodPost, "/api/assignments", map[string]any{"userEmail": "jane@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentLinks(t *testing.T) {
	env := newTestEnv(t)
	a := env.seed("Denim Jeans", "39.90", "Pants")
	b := env.seed("Silk Blouse", "18.00", "Shirts")

	rec := env.do(t, http.MethodPost, "/api/payment-links", map[string]any{
		"userEmail": "jane@example.com", "userName": "Jane Doe", "productIds": []uuid.UUID{a.ID, b.ID, uuid.New()},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode[struct {
		Message     string             `json:"message"`
		PaymentLink models.PaymentLink `json:"paymentLink"`
		StripeURL   string             `json:"stripeUrl"`
	}](t, rec)
	assert.Equal(t, "Payment link created successfully", body.Message)
	assert.Equal(t, "https://buy.example.com/plink_test", body.StripeURL)
	assert.Equal(t, "57.90", body.PaymentLink.Amount.StringFixed(2))
	assert.Equal(t, models.PaymentPending, body.PaymentLink.Status)
	id := body.PaymentLink.ID.String()

	rec = env.do(t, http.MethodPut, "/api/payment-links/"+id, map[string]any{"status": "refunded"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/payment-links/"+id, map[string]any{"status": "cancelled", "notes": "customer declined"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PaymentCancelled, decode[models.PaymentLink](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/api/payment-links", nil)
	assert.Len(t, decode[[]models.PaymentLink](t, rec), 1)

	rec = env.do(t, http.MethodDelete, "/api/payment-links/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.store.links)
}

func TestPaymentLinks_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/payment-links", map[string]any{"userEmail": "jane@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decode[map[string]string](t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/api/payment-links", map[string]any{
		"userEmail": "jane@example.com", "userName": "Jane", "productIds": []uuid.UUID{uuid.New()},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	disabled := newTestEnv(t, func(_ *config.Config, d *Deps) {
		d.Payments = services.NewPaymentLinkService(d.Store.(*memStore), payments.Disabled{}, "usd", zerolog.Nop())
	})
	p := disabled.seed("Cap", "9.00", "Accessories")
	rec = disabled.do(t, http.MethodPost, "/api/payment-links", map[string]any{
		"userEmail": "jane@example.com", "userName": "Jane", "productIds": []uuid.UUID{p.ID},
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStripeWebhook(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.CreatePaymentLink(t.Context(), &models.PaymentLink{
		UserEmail: "jane@example.com", Status: models.PaymentPending, ProcessorLinkID: "plink_test",
	}))
	env.processor.event = &payments.Event{
		ID:            "evt_1",
		Type:          payments.EventCheckoutCompleted,
		PaymentLinkID: "plink_test",
		OccurredAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	post := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/webhook/stripe", strings.NewReader(`{"id":"evt_1"}`))
		req.Header.Set("Stripe-Signature", signature)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	rec := post("forged")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.PaymentPending, env.store.links[0].Status)

	rec = post("valid")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]bool{"received": true}, decode[map[string]bool](t, rec))
	assert.Equal(t, models.PaymentPaid, env.store.links[0].Status)
	require.NotNil(t, env.store.links[0].PaidAt)
	assert.Equal(t, 2026, env.store.links[0].PaidAt.Year())
}

func TestUploadSessions(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "/api/upload/csv", upload{field: "file", name: "catalog.csv", data: []byte("name,price\nCap,9\n")})

	rec := env.do(t, http.MethodGet, "/api/upload-sessions", nil)
	sessions := decode[[]models.UploadSession](t, rec)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.UploadCSV, sessions[0].Type)
	assert.Equal(t, "catalog.csv", sessions[0].FileName)

	rec = env.do(t, http.MethodGet, "/api/upload-sessions/"+sessions[0].ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/upload-sessions?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""

	rec := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "clerk@shop.example", "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "clerk@shop.example", "password": "correct horse",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, "staff accounts wait for approval")

	clerk, err := env.store.GetUserByEmail(t.Context(), "clerk@shop.example")
	require.NoError(t, err)

	// Staff cannot approve themselves.
	staffToken, err := env.tokens.GenerateToken(&models.User{ID: clerk.ID, Email: clerk.Email, Role: models.RoleStaff})
	require.NoError(t, err)
	env.token = staffToken
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%s/approve", clerk.ID), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken, err := env.tokens.GenerateToken(env.admin)
	require.NoError(t, err)
	env.token = adminToken
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%s/approve", clerk.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[models.User](t, rec).Approved)

	env.token = ""
	rec = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "clerk@shop.example", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	env.token = decode[map[string]any](t, rec)["token"].(string)

	rec = env.do(t, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "clerk@shop.example", decode[models.User](t, rec).Email)

	env.token = adminToken
	rec = env.do(t, http.MethodGet, "/api/admin/users", nil)
	assert.Len(t, decode[[]models.User](t, rec), 2)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config, _ *Deps) {
		c.Upload.RateLimit = 0.001
		c.Upload.RateBurst = 1
	})

	rec := env.upload(t, "/api/upload/csv", upload{field: "file", name: "a.csv", data: []byte("name,price\nCap,9\n")})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.upload(t, "/api/upload/csv", upload{field: "file", name: "a.csv", data: []byte("name,price\nCap,9\n")})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Reads are not limited.
	rec = env.do(t, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientLimiter_PrunesIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiter(1, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))

	now = now.Add(limiterIdleTTL + time.Minute)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Len(t, l.clients, 1)

	assert.Nil(t, newClientLimiter(0, 5))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5123"
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}

func TestRecoverer(t *testing.T) {
	cfg := config.Default()
	h := NewHandler(Deps{Config: &cfg, Logger: zerolog.Nop()})

	rec := httptest.NewRecorder()
	h.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[map[string]string](t, rec)["error"])
}

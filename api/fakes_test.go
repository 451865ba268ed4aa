package api

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopdesk/catalog-service/internal/db"
	"github.com/shopdesk/catalog-service/internal/extract"
	"github.com/shopdesk/catalog-service/internal/models"
	"github.com/shopdesk/catalog-service/internal/payments"
	"github.com/shopdesk/catalog-service/internal/pipeline"
)

// memStore backs every store interface the api package touches.
type memStore struct {
	mu          sync.Mutex
	pingErr     error
	products    []models.Product
	contacts    []models.Contact
	assignments []models.Assignment
	links       []models.PaymentLink
	sessions    []models.UploadSession
	users       []*models.User

	lastSearch [2]string
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) ListProducts(context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, len(m.products))
	for i := range m.products {
		out[len(out)-1-i] = m.products[i]
	}
	return out, nil
}

func (m *memStore) SearchProducts(ctx context.Context, query, category string) ([]models.Product, error) {
	m.mu.Lock()
	m.lastSearch = [2]string{query, category}
	m.mu.Unlock()

	all, _ := m.ListProducts(ctx)
	var out []models.Product
	for _, p := range all {
		if category != "" && p.Category != category {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Name+" "+p.Description), strings.ToLower(query)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			p := m.products[i]
			return &p, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, err := m.GetProduct(ctx, id); err == nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.products = append(m.products, *p)
	return nil
}

func (m *memStore) BulkCreateProducts(ctx context.Context, products []models.Product) ([]models.Product, error) {
	out := make([]models.Product, len(products))
	for i := range products {
		p := products[i]
		_ = m.CreateProduct(ctx, &p)
		out[i] = p
	}
	return out, nil
}

func (m *memStore) UpdateProduct(_ context.Context, id uuid.UUID, u models.ProductUpdate) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		p := &m.products[i]
		if p.ID != id {
			continue
		}
		if u.Name != nil {
			p.Name = *u.Name
		}
		if u.Description != nil {
			p.Description = *u.Description
		}
		if u.Price != nil {
			p.Price = *u.Price
		}
		if u.Category != nil {
			p.Category = *u.Category
		}
		if u.SKU != nil {
			p.SKU = *u.SKU
		}
		if u.ImageURL != nil {
			p.ImageURL = *u.ImageURL
		}
		out := *p
		return &out, nil
	}
	return nil, db.ErrNotFound
}

func (m *memStore) DeleteProduct(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) ListContacts(context.Context) ([]models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Contact(nil), m.contacts...), nil
}

func (m *memStore) CreateContact(_ context.Context, c *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	m.contacts = append(m.contacts, *c)
	return nil
}

func (m *memStore) BulkCreateContacts(ctx context.Context, contacts []models.Contact) ([]models.Contact, error) {
	out := make([]models.Contact, len(contacts))
	for i := range contacts {
		c := contacts[i]
		_ = m.CreateContact(ctx, &c)
		out[i] = c
	}
	return out, nil
}

func (m *memStore) CreateAssignments(_ context.Context, productIDs []uuid.UUID, email, name, assignedBy string) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Assignment, len(productIDs))
	for i, pid := range productIDs {
		out[i] = models.Assignment{
			ID:         uuid.New(),
			ProductID:  pid,
			UserEmail:  email,
			UserName:   name,
			AssignedBy: assignedBy,
			AssignedAt: time.Now(),
		}
	}
	m.assignments = append(m.assignments, out...)
	return out, nil
}

func (m *memStore) ListAssignments(context.Context) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Assignment(nil), m.assignments...), nil
}

func (m *memStore) ListAssignmentsByEmail(_ context.Context, email string) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Assignment
	for _, a := range m.assignments {
		if strings.EqualFold(a.UserEmail, email) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) DeleteAssignment(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.assignments {
		if m.assignments[i].ID == id {
			m.assignments = append(m.assignments[:i], m.assignments[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) CreatePaymentLink(_ context.Context, l *models.PaymentLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	m.links = append(m.links, *l)
	return nil
}

func (m *memStore) ListPaymentLinks(context.Context) ([]models.PaymentLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PaymentLink(nil), m.links...), nil
}

func (m *memStore) UpdatePaymentLink(_ context.Context, id uuid.UUID, u models.PaymentLinkUpdate) (*models.PaymentLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.links {
		l := &m.links[i]
		if l.ID != id {
			continue
		}
		if u.Status != nil {
			l.Status = *u.Status
		}
		if u.Notes != nil {
			l.Notes = *u.Notes
		}
		if u.DueDate != nil {
			l.DueDate = u.DueDate
		}
		out := *l
		return &out, nil
	}
	return nil, db.ErrNotFound
}

func (m *memStore) MarkPaymentLinkPaid(_ context.Context, processorLinkID string, paidAt time.Time) (*models.PaymentLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.links {
		l := &m.links[i]
		if l.ProcessorLinkID == processorLinkID {
			l.Status = models.PaymentPaid
			l.PaidAt = &paidAt
			out := *l
			return &out, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) DeletePaymentLink(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.links {
		if m.links[i].ID == id {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) CreateUploadSession(_ context.Context, sess *models.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess.ID = uuid.New()
	sess.Status = models.UploadProcessing
	m.sessions = append(m.sessions, *sess)
	return nil
}

func (m *memStore) FinishUploadSession(_ context.Context, sess *models.UploadSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID == sess.ID {
			m.sessions[i] = *sess
		}
	}
	return nil
}

func (m *memStore) ListUploadSessions(_ context.Context, limit int) ([]models.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.UploadSession(nil), m.sessions...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetUploadSession(_ context.Context, id uuid.UUID) (*models.UploadSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) GetStats(context.Context) (*models.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	emails := map[string]bool{}
	for _, a := range m.assignments {
		emails[strings.ToLower(a.UserEmail)] = true
	}
	return &models.Stats{
		TotalProducts: len(m.products),
		ActiveUsers:   len(emails),
		PaymentLinks:  len(m.links),
		Revenue:       models.MustMoney("0"),
	}, nil
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return db.ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	m.users = append(m.users, u)
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) ListUsers(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, len(m.users))
	for i, u := range m.users {
		out[i] = *u
	}
	return out, nil
}

func (m *memStore) SetUserApproval(_ context.Context, id uuid.UUID, approved bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			u.Approved = approved
			out := *u
			return &out, nil
		}
	}
	return nil, db.ErrNotFound
}

type stubExtractor struct {
	products *pipeline.Batch[extract.Product]
	contacts *pipeline.Batch[extract.Contact]
	err      error
	calls    int
}

func (s *stubExtractor) ExtractProducts(_ context.Context, images []pipeline.Image) (*pipeline.Batch[extract.Product], error) {
	s.calls++
	if s.products == nil {
		return &pipeline.Batch[extract.Product]{}, pipeline.ErrNothingExtracted
	}
	return s.products, s.err
}

func (s *stubExtractor) ExtractContacts(_ context.Context, images []pipeline.Image) (*pipeline.Batch[extract.Contact], error) {
	s.calls++
	if s.contacts == nil {
		return &pipeline.Batch[extract.Contact]{}, pipeline.ErrNothingExtracted
	}
	return s.contacts, s.err
}

type stubProcessor struct {
	event *payments.Event
}

func (s *stubProcessor) CreatePaymentLink(context.Context, payments.LinkRequest) (*payments.Link, error) {
	return &payments.Link{ID: "plink_test", URL: "https://buy.example.com/plink_test"}, nil
}

func (s *stubProcessor) ParseWebhook(_ []byte, signature string) (*payments.Event, error) {
	if signature != "valid" {
		return nil, payments.ErrInvalidSignature
	}
	return s.event, nil
}

type stubImages struct {
	objects map[string][]byte
}

func (s *stubImages) Open(_ context.Context, objectPath string) (io.ReadCloser, string, error) {
	data, ok := s.objects[objectPath]
	if !ok {
		return nil, "", errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(string(data))), "image/png", nil
}

func (s *stubImages) Ping(context.Context) error { return nil }

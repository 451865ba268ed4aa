// Package services holds the application workflows that sit between the HTTP
// handlers and the store: importing products and contacts from photos and
// spreadsheets, and issuing payment links.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shopdesk/catalog-service/internal/extract"
	"github.com/shopdesk/catalog-service/internal/models"
	"github.com/shopdesk/catalog-service/internal/pipeline"
	"github.com/shopdesk/catalog-service/internal/sheets"
)

var (
	// ErrNoValidProducts is returned when an import leaves nothing to store.
	ErrNoValidProducts = errors.New("no valid products found")
	// ErrNoValidContacts is the contact counterpart of ErrNoValidProducts.
	ErrNoValidContacts = errors.New("no valid contacts found")
)

// CatalogStore is the persistence the intake workflows need.
type CatalogStore interface {
	BulkCreateProducts(ctx context.Context, products []models.Product) ([]models.Product, error)
	BulkCreateContacts(ctx context.Context, contacts []models.Contact) ([]models.Contact, error)
	CreateUploadSession(ctx context.Context, sess *models.UploadSession) error
	FinishUploadSession(ctx context.Context, sess *models.UploadSession) error
}

// Extractor turns photo batches into records.
type Extractor interface {
	ExtractProducts(ctx context.Context, images []pipeline.Image) (*pipeline.Batch[extract.Product], error)
	ExtractContacts(ctx context.Context, images []pipeline.Image) (*pipeline.Batch[extract.Contact], error)
}

// ImageArchive keeps uploaded source photos.
type ImageArchive interface {
	Upload(ctx context.Context, kind string, data []byte, contentType string) (string, error)
}

// ProductImport is the outcome of a product import.
type ProductImport struct {
	Session       *models.UploadSession  `json:"session"`
	Products      []models.Product       `json:"products"`
	Rejected      int                    `json:"rejected"`
	ExtractedText string                 `json:"extractedText,omitempty"`
	Images        []pipeline.ImageResult `json:"images,omitempty"`
}

// ContactImport is the outcome of a contact import.
type ContactImport struct {
	Session       *models.UploadSession  `json:"session"`
	Contacts      []models.Contact       `json:"users"`
	Rejected      int                    `json:"rejected"`
	ExtractedText string                 `json:"extractedText,omitempty"`
	Images        []pipeline.ImageResult `json:"images,omitempty"`
}

// IntakeService imports products and contacts and records an upload session
// for every run.
type IntakeService struct {
	store     CatalogStore
	extractor Extractor
	archive   ImageArchive
	validator *ProductValidator
	logger    zerolog.Logger
}

// NewIntakeService creates the service. archive may be nil to skip
// archiving source photos.
func NewIntakeService(store CatalogStore, extractor Extractor, archive ImageArchive, logger zerolog.Logger) *IntakeService {
	return &IntakeService{
		store:     store,
		extractor: extractor,
		archive:   archive,
		validator: NewProductValidator(),
		logger:    logger.With().Str("component", "intake").Logger(),
	}
}

// Validator exposes the product validator used for imports.
func (s *IntakeService) Validator() *ProductValidator { return s.validator }

// ImportProductImages runs OCR over receipt or tag photos and stores the
// valid products. Each product's ImageURL points at its archived source photo
// when archiving is enabled.
func (s *IntakeService) ImportProductImages(ctx context.Context, images []pipeline.Image) (*ProductImport, error) {
	sess, err := s.begin(ctx, models.UploadOCR, imageNames(images), len(images))
	if err != nil {
		return nil, err
	}

	batch, err := s.extractor.ExtractProducts(ctx, images)
	if err != nil {
		s.finish(ctx, sess, 0, err)
		return nil, err
	}

	archived := s.archiveImages(ctx, "products", images)
	products := make([]models.Product, 0, len(batch.Records))
	next := 0
	for _, img := range batch.Images {
		for _, rec := range batch.Records[next : next+img.Records] {
			products = append(products, models.Product{
				Name:        rec.Name,
				Description: rec.Description,
				Price:       models.NewMoney(rec.Price),
				Category:    string(rec.Category),
				ImageURL:    archived[img.Index],
			})
		}
		next += img.Records
	}

	sess.TotalRecords = len(products)
	result, err := s.storeProducts(ctx, sess, products)
	if err != nil {
		return nil, err
	}
	result.ExtractedText = batch.Text()
	result.Images = batch.Images
	return result, nil
}

// ImportProductSheet imports products from an XLSX or CSV upload.
func (s *IntakeService) ImportProductSheet(ctx context.Context, filename string, data []byte) (*ProductImport, error) {
	sess, err := s.begin(ctx, models.UploadCSV, filename, 0)
	if err != nil {
		return nil, err
	}

	rows, err := sheets.ReadRows(data, filename)
	if err != nil {
		if errors.Is(err, sheets.ErrNoRows) {
			err = ErrNoValidProducts
		}
		s.finish(ctx, sess, 0, err)
		return nil, err
	}

	products, skipped := sheets.Products(rows)
	sess.TotalRecords = len(rows)
	result, err := s.storeProducts(ctx, sess, products)
	if err != nil {
		return nil, err
	}
	result.Rejected += skipped
	return result, nil
}

func (s *IntakeService) storeProducts(ctx context.Context, sess *models.UploadSession, products []models.Product) (*ProductImport, error) {
	valid, rejected := s.validator.Filter(products)
	for i, res := range rejected {
		s.logger.Debug().Int("row", i).Str("reason", res.Error()).Msg("product rejected")
	}
	if len(valid) == 0 {
		s.finish(ctx, sess, 0, ErrNoValidProducts)
		return nil, ErrNoValidProducts
	}

	created, err := s.store.BulkCreateProducts(ctx, valid)
	if err != nil {
		err = fmt.Errorf("store products: %w", err)
		s.finish(ctx, sess, 0, err)
		return nil, err
	}
	s.finish(ctx, sess, len(created), nil)

	s.logger.Info().
		Str("session", sess.ID.String()).
		Str("type", string(sess.Type)).
		Int("created", len(created)).
		Int("rejected", len(rejected)).
		Msg("products imported")

	return &ProductImport{Session: sess, Products: created, Rejected: len(rejected)}, nil
}

// ImportContactImages reads photographed contact lists. A batch that yields
// no complete contact fails with pipeline.ErrNothingExtracted.
func (s *IntakeService) ImportContactImages(ctx context.Context, images []pipeline.Image) (*ContactImport, error) {
	sess, err := s.begin(ctx, models.UploadUsersOCR, imageNames(images), len(images))
	if err != nil {
		return nil, err
	}

	batch, err := s.extractor.ExtractContacts(ctx, images)
	if err != nil {
		s.finish(ctx, sess, 0, err)
		return nil, err
	}
	s.archiveImages(ctx, "contacts", images)

	contacts := make([]models.Contact, 0, len(batch.Records))
	for _, rec := range batch.Records {
		contacts = append(contacts, models.Contact{Name: rec.Name, Email: rec.Email, Phone: rec.Phone})
	}

	sess.TotalRecords = len(contacts)
	created, err := s.store.BulkCreateContacts(ctx, contacts)
	if err != nil {
		err = fmt.Errorf("store contacts: %w", err)
		s.finish(ctx, sess, 0, err)
		return nil, err
	}
	s.finish(ctx, sess, len(created), nil)

	s.logger.Info().
		Str("session", sess.ID.String()).
		Int("created", len(created)).
		Msg("contacts extracted")
	return &ContactImport{
		Session:       sess,
		Contacts:      created,
		ExtractedText: batch.Text(),
		Images:        batch.Images,
	}, nil
}

// ImportContactSheet imports contacts from an XLSX or CSV upload.
func (s *IntakeService) ImportContactSheet(ctx context.Context, filename string, data []byte) (*ContactImport, error) {
	sess, err := s.begin(ctx, models.UploadUsersCSV, filename, 0)
	if err != nil {
		return nil, err
	}

	rows, err := sheets.ReadRows(data, filename)
	if err != nil {
		if errors.Is(err, sheets.ErrNoRows) {
			err = ErrNoValidContacts
		}
		s.finish(ctx, sess, 0, err)
		return nil, err
	}

	contacts, skipped := sheets.Contacts(rows)
	sess.TotalRecords = len(rows)
	if len(contacts) == 0 {
		s.finish(ctx, sess, 0, ErrNoValidContacts)
		return nil, ErrNoValidContacts
	}

	created, err := s.store.BulkCreateContacts(ctx, contacts)
	if err != nil {
		err = fmt.Errorf("store contacts: %w", err)
		s.finish(ctx, sess, 0, err)
		return nil, err
	}
	s.finish(ctx, sess, len(created), nil)

	return &ContactImport{Session: sess, Contacts: created, Rejected: skipped}, nil
}

func (s *IntakeService) begin(ctx context.Context, typ models.UploadType, fileName string, total int) (*models.UploadSession, error) {
	sess := &models.UploadSession{
		Type:         typ,
		Status:       models.UploadProcessing,
		FileName:     fileName,
		TotalRecords: total,
	}
	if err := s.store.CreateUploadSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create upload session: %w", err)
	}
	return sess, nil
}

// finish records the final state of sess. It runs on a detached context so a
// cancelled request still closes its session.
func (s *IntakeService) finish(ctx context.Context, sess *models.UploadSession, processed int, cause error) {
	sess.ProcessedRecords = processed
	sess.Status = models.UploadCompleted
	if cause != nil {
		sess.Status = models.UploadFailed
		sess.ErrorMessage = cause.Error()
	}
	if err := s.store.FinishUploadSession(context.WithoutCancel(ctx), sess); err != nil {
		s.logger.Warn().Err(err).Str("session", sess.ID.String()).Msg("failed to finish upload session")
	}
}

// archiveImages uploads every image and returns the object paths by upload
// index. Failures only cost the archive copy.
func (s *IntakeService) archiveImages(ctx context.Context, kind string, images []pipeline.Image) []string {
	paths := make([]string, len(images))
	if s.archive == nil {
		return paths
	}
	for i, img := range images {
		path, err := s.archive.Upload(ctx, kind, img.Data, img.ContentType)
		if err != nil {
			s.logger.Warn().Err(err).Int("image", i).Str("file", img.Name).Msg("failed to archive image")
			continue
		}
		paths[i] = path
	}
	return paths
}

func imageNames(images []pipeline.Image) string {
	names := make([]string, 0, len(images))
	for _, img := range images {
		if img.Name != "" {
			names = append(names, img.Name)
		}
	}
	return strings.Join(names, ", ")
}

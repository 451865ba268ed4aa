// Package pipeline drives OCR and extraction over a batch of uploaded images.
//
// Images are recognized concurrently (bounded by Config.Concurrency) but
// records are always concatenated in upload order, and within an image in
// the order the extractor produced them. A failing image is logged and
// contributes nothing; only an empty batch is an error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shopdesk/catalog-service/internal/extract"
	"github.com/shopdesk/catalog-service/internal/ocr"
)

// ErrNothingExtracted is returned when no image in the batch yielded a record.
var ErrNothingExtracted = errors.New("nothing extracted")

// Image is one uploaded photo.
type Image struct {
	Name        string
	Data        []byte
	ContentType string
}

// Config tunes the orchestrator.
type Config struct {
	Concurrency   int           // default 4
	Timeout       time.Duration // per image, default 60s
	LanguageHints []string      // default ocr.DefaultLanguageHints
}

// ImageResult records what happened to one image.
type ImageResult struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Text     string `json:"-"`
	Records  int    `json:"records"`
	Fallback bool   `json:"fallback,omitempty"`
	Error    string `json:"error,omitempty"`
	Err      error  `json:"-"`
}

// Failed reports whether recognition failed for the image.
func (r ImageResult) Failed() bool { return r.Err != nil }

// Batch is the aggregated outcome of one extraction run.
type Batch[T any] struct {
	Records []T
	Images  []ImageResult
}

// Text joins the recognized text of every image that was read.
func (b *Batch[T]) Text() string {
	parts := make([]string, 0, len(b.Images))
	for _, img := range b.Images {
		if !img.Failed() && img.Text != "" {
			parts = append(parts, strings.TrimSpace(img.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}

// Failures counts images whose recognition failed.
func (b *Batch[T]) Failures() int {
	n := 0
	for _, img := range b.Images {
		if img.Failed() {
			n++
		}
	}
	return n
}

// Orchestrator runs the OCR collaborator and an extractor over image batches.
type Orchestrator struct {
	logger     zerolog.Logger
	recognizer ocr.Recognizer
	cfg        Config
}

// NewOrchestrator creates an orchestrator. A nil logger falls back to the
// global zerolog logger.
func NewOrchestrator(logger *zerolog.Logger, recognizer ocr.Recognizer, cfg Config) *Orchestrator {
	if logger == nil {
		l := log.Logger
		logger = &l
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if len(cfg.LanguageHints) == 0 {
		cfg.LanguageHints = ocr.DefaultLanguageHints
	}
	return &Orchestrator{
		logger:     logger.With().Str("component", "pipeline").Logger(),
		recognizer: recognizer,
		cfg:        cfg,
	}
}

// ExtractProducts runs the receipt extractor over every image.
func (o *Orchestrator) ExtractProducts(ctx context.Context, images []Image) (*Batch[extract.Product], error) {
	return run(ctx, o, "products", images, func(text, source string) ([]extract.Product, bool) {
		res := extract.ParseReceipt(text, source)
		return res.Products, res.Fallback
	})
}

// ExtractContacts runs the contact-list extractor over every image.
func (o *Orchestrator) ExtractContacts(ctx context.Context, images []Image) (*Batch[extract.Contact], error) {
	return run(ctx, o, "contacts", images, func(text, _ string) ([]extract.Contact, bool) {
		return extract.ParseContacts(text), false
	})
}

func run[T any](ctx context.Context, o *Orchestrator, kind string, images []Image, parse func(text, source string) ([]T, bool)) (*Batch[T], error) {
	start := time.Now()
	batch := &Batch[T]{Images: o.recognizeAll(ctx, images)}

	for i := range batch.Images {
		img := &batch.Images[i]
		if img.Failed() {
			continue
		}
		records, fallback := parse(img.Text, img.Name)
		img.Records = len(records)
		img.Fallback = fallback
		batch.Records = append(batch.Records, records...)

		o.logger.Debug().
			Str("kind", kind).
			Int("image", img.Index).
			Str("file", img.Name).
			Int("records", img.Records).
			Bool("fallback", fallback).
			Msg("image extracted")
	}

	if err := ctx.Err(); err != nil {
		return batch, err
	}

	failed := batch.Failures()
	o.logger.Info().
		Str("kind", kind).
		Int("images", len(images)).
		Int("failed", failed).
		Int("records", len(batch.Records)).
		Dur("took", time.Since(start)).
		Msg("batch extracted")

	if len(batch.Records) == 0 {
		if len(images) > 0 && failed == len(images) {
			return batch, fmt.Errorf("%w: recognition failed for all %d images", ErrNothingExtracted, failed)
		}
		return batch, ErrNothingExtracted
	}
	return batch, nil
}

// recognizeAll runs OCR over every image with bounded concurrency. Results are
// indexed by upload position so the caller sees them in order.
func (o *Orchestrator) recognizeAll(ctx context.Context, images []Image) []ImageResult {
	results := make([]ImageResult, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)

	for i, img := range images {
		results[i] = ImageResult{Index: i, Name: img.Name}
		g.Go(func() error {
			text, err := o.recognizeOne(gctx, img)
			if err != nil {
				o.logger.Warn().Err(err).Int("image", i).Str("file", img.Name).Msg("recognition failed, skipping image")
				results[i].Err = err
				results[i].Error = err.Error()
				return nil
			}
			results[i].Text = text
			return nil
		})
	}

	// Workers never return an error; failures are recorded per image.
	_ = g.Wait()
	return results
}

func (o *Orchestrator) recognizeOne(ctx context.Context, img Image) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	return o.recognizer.Recognize(ctx, img.Data, o.cfg.LanguageHints)
}

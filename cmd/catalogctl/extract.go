package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopdesk/catalog-service/internal/extract"
	"github.com/shopdesk/catalog-service/internal/logger"
	"github.com/shopdesk/catalog-service/internal/ocr"
	"github.com/shopdesk/catalog-service/internal/pipeline"
)

// extractOutput is printed by the extract command.
type extractOutput[T any] struct {
	Records       []T                    `json:"records"`
	Images        []pipeline.ImageResult `json:"images"`
	ExtractedText string                 `json:"extractedText,omitempty"`
}

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var (
		engine   string
		withText bool
	)

	cmd := &cobra.Command{
		Use:   "extract (products|contacts) FILE...",
		Short: "Run OCR and extraction over local images",
		Example: `  # Products from receipt photos
  catalogctl extract products receipt1.jpg receipt2.png

  # Contacts from a photographed list, using Google Vision
  catalogctl extract contacts --engine vision --text list.jpg`,
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: []string{"products", "contacts"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, files := args[0], args[1:]
			if kind != "products" && kind != "contacts" {
				return fmt.Errorf("unknown record kind %q (want products or contacts)", kind)
			}

			images, err := loadImages(files)
			if err != nil {
				return err
			}

			ocrCfg := opts.cfg.OCR
			if engine != "" {
				ocrCfg.Engine = engine
			}
			ctx := cmd.Context()
			rec, err := ocr.New(ctx, ocrCfg)
			if err != nil {
				return err
			}
			defer rec.Close()

			l := logger.WithComponent("catalogctl")
			orchestrator := pipeline.NewOrchestrator(&l, rec, pipeline.Config{
				Concurrency:   ocrCfg.Concurrency,
				Timeout:       ocrCfg.Timeout,
				LanguageHints: ocrCfg.LanguageHints,
			})

			if kind == "products" {
				batch, err := orchestrator.ExtractProducts(ctx, images)
				return printBatch(cmd.OutOrStdout(), batch, err, withText)
			}
			batch, err := orchestrator.ExtractContacts(ctx, images)
			return printBatch(cmd.OutOrStdout(), batch, err, withText)
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "OCR engine: tesseract, vision, gemini or openai")
	cmd.Flags().BoolVar(&withText, "text", false, "Include the recognized text in the output")
	return cmd
}

// printBatch prints whatever was extracted. An empty batch is still printed
// before the error is returned.
func printBatch[T any](w io.Writer, batch *pipeline.Batch[T], err error, withText bool) error {
	if batch == nil {
		return err
	}
	out := extractOutput[T]{Records: batch.Records, Images: batch.Images}
	if out.Records == nil {
		out.Records = []T{}
	}
	if withText {
		out.ExtractedText = batch.Text()
	}
	if werr := writeJSON(w, out); werr != nil {
		return werr
	}
	return err
}

func loadImages(paths []string) ([]pipeline.Image, error) {
	images := make([]pipeline.Image, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		contentType := http.DetectContentType(data)
		if !strings.HasPrefix(contentType, "image/") {
			return nil, fmt.Errorf("%s is not an image (%s)", p, contentType)
		}
		images = append(images, pipeline.Image{Name: filepath.Base(p), Data: data, ContentType: contentType})
	}
	return images, nil
}

func newParseCmd(_ *rootOptions) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "parse (products|contacts)",
		Short: "Extract records from already recognized text on stdin",
		Example: `  tesseract receipt.jpg - | catalogctl parse products
  catalogctl parse contacts < list.txt`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"products", "contacts"},
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return parseText(cmd.OutOrStdout(), args[0], string(text), source)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source name used in fallback descriptions")
	return cmd
}

var errNothingParsed = errors.New("no records found")

func parseText(w io.Writer, kind, text, source string) error {
	switch kind {
	case "products":
		res := extract.ParseReceipt(text, source)
		products := res.Products
		if products == nil {
			products = []extract.Product{}
		}
		if err := writeJSON(w, map[string]any{"records": products, "fallback": res.Fallback}); err != nil {
			return err
		}
		if len(products) == 0 {
			return errNothingParsed
		}
		return nil
	case "contacts":
		contacts := extract.ParseContacts(text)
		if contacts == nil {
			contacts = []extract.Contact{}
		}
		if err := writeJSON(w, map[string]any{"records": contacts}); err != nil {
			return err
		}
		if len(contacts) == 0 {
			return errNothingParsed
		}
		return nil
	default:
		return fmt.Errorf("unknown record kind %q (want products or contacts)", kind)
	}
}

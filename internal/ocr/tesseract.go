//go:build cgo

package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

const tesseractBuilt = true

// Tesseract runs the local Tesseract engine. gosseract clients are not safe
// for concurrent use, so each call gets its own.
type Tesseract struct {
	newClient func() *gosseract.Client
}

// NewTesseract creates a Tesseract recognizer.
func NewTesseract() *Tesseract {
	return &Tesseract{newClient: gosseract.NewClient}
}

func (t *Tesseract) Name() string { return EngineTesseract }

// Recognize runs Tesseract over the image. hints are Tesseract language codes
// such as "eng" or "chi_sim".
func (t *Tesseract) Recognize(ctx context.Context, image []byte, hints []string) (string, error) {
	const op = "tesseract.Recognize"
	if err := checkImage(op, image); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", WrapOCRError(op, err, "")
	}

	client := t.newClient()
	defer client.Close()

	if len(hints) == 0 {
		hints = DefaultLanguageHints
	}
	if err := client.SetLanguage(hints...); err != nil {
		return "", WrapOCRError(op, err, "set language")
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", WrapOCRError(op, err, "load image")
	}

	text, err := client.Text()
	if err != nil {
		return "", WrapOCRError(op, err, "")
	}
	return nonEmpty(op, text)
}

func (t *Tesseract) Close() error { return nil }

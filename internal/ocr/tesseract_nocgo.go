//go:build !cgo

package ocr

import "context"

const tesseractBuilt = false

// Tesseract stands in for the gosseract engine in builds without cgo. Every
// call fails with ErrEngineUnavailable.
type Tesseract struct{}

// NewTesseract creates the unavailable Tesseract recognizer.
func NewTesseract() *Tesseract { return &Tesseract{} }

func (t *Tesseract) Name() string { return EngineTesseract }

func (t *Tesseract) Recognize(_ context.Context, image []byte, _ []string) (string, error) {
	const op = "tesseract.Recognize"
	if err := checkImage(op, image); err != nil {
		return "", err
	}
	return "", WrapOCRError(op, ErrEngineUnavailable, "built without cgo")
}

func (t *Tesseract) Close() error { return nil }

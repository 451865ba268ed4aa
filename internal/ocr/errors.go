package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyImage is returned when a recognizer is handed no bytes.
	ErrEmptyImage = errors.New("image is empty")

	// ErrNoText is returned when the engine answered but produced no text.
	ErrNoText = errors.New("no text recognized")

	// ErrUnknownEngine is returned by New for an unsupported engine name.
	ErrUnknownEngine = errors.New("unknown OCR engine")

	// ErrEngineUnavailable is returned for an engine left out of this build.
	ErrEngineUnavailable = errors.New("OCR engine not available in this build")

	// ErrMissingCredentials is returned when a cloud engine has no key configured.
	ErrMissingCredentials = errors.New("missing OCR engine credentials")
)

// OCRError wraps errors with the engine operation that failed.
type OCRError struct {
	// Op is the operation that failed (e.g. "tesseract.Recognize").
	Op string

	Err error

	// Details provides additional context about the failure.
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapOCRError wraps err as an OCRError unless it already is one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}
	return &OCRError{Op: op, Err: err, Details: details}
}

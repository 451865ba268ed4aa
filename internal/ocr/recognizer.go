// Package ocr holds the text-recognition collaborators used by the extraction
// pipeline. Every engine turns image bytes into one newline-separated block of
// text; nothing downstream relies on boxes or confidences.
//
// Supported engines:
//   - tesseract: local Tesseract through gosseract (cgo builds only)
//   - vision:    Google Cloud Vision document text detection
//   - gemini:    Gemini multimodal transcription
//   - openai:    OpenAI-compatible vision chat completion
package ocr

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/shopdesk/catalog-service/internal/config"
)

// Engine names accepted by New.
const (
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
	EngineGemini    = "gemini"
	EngineOpenAI    = "openai"
)

// DefaultLanguageHints covers the bilingual receipts and lists the dashboard
// handles: English plus simplified and traditional Chinese.
var DefaultLanguageHints = []string{"eng", "chi_sim", "chi_tra"}

// Recognizer converts one image into recognized text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, hints []string) (string, error)
}

// Engine is a Recognizer that owns a client connection.
type Engine interface {
	Recognizer
	io.Closer
	Name() string
}

// New builds the engine named in cfg, wrapped with the ImageMagick
// preprocessor profile cfg.Preprocess names ("standard" or "faded").
func New(ctx context.Context, cfg config.OCRConfig) (Engine, error) {
	var (
		engine Engine
		err    error
	)

	switch strings.ToLower(cfg.Engine) {
	case EngineTesseract, "":
		if !tesseractBuilt {
			return nil, WrapOCRError("New", ErrEngineUnavailable, "tesseract needs a cgo build")
		}
		engine = NewTesseract()
	case EngineVision:
		engine, err = NewGoogleVision(ctx, cfg.GoogleCredentials)
	case EngineGemini:
		engine, err = NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case EngineOpenAI:
		engine, err = NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
	default:
		return nil, WrapOCRError("New", ErrUnknownEngine, cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Preprocess) {
	case "standard":
		return WithPreprocessor(engine, NewPreprocessor()), nil
	case "faded":
		return WithPreprocessor(engine, NewFadedPreprocessor()), nil
	}
	return engine, nil
}

// detectMIME sniffs the image type, falling back to JPEG for unknown data so
// cloud engines still get a plausible content type.
func detectMIME(image []byte) string {
	mime := http.DetectContentType(image)
	if strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}

func hintList(hints []string) string {
	if len(hints) == 0 {
		hints = DefaultLanguageHints
	}
	return strings.Join(hints, ", ")
}

func checkImage(op string, image []byte) error {
	if len(image) == 0 {
		return WrapOCRError(op, ErrEmptyImage, "")
	}
	return nil
}

func nonEmpty(op, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", WrapOCRError(op, ErrNoText, "")
	}
	return text, nil
}

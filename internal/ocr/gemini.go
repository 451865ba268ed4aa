package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// transcriptionPrompt asks a multimodal model to behave like a plain OCR
// engine so the extractors see the same shape of text Tesseract produces.
const transcriptionPrompt = `Transcribe ALL visible text in this image exactly as printed.
Keep the original line breaks: one printed line per output line, top to bottom.
Do not translate, summarize, correct spelling, or add commentary.
The text may be written in: %s.
Return ONLY the transcribed text.`

// Gemini transcribes images with a Gemini multimodal model.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini recognizer.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	const op = "gemini.New"
	if apiKey == "" {
		return nil, WrapOCRError(op, ErrMissingCredentials, "GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to create Gemini client")
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return EngineGemini }

func (g *Gemini) Recognize(ctx context.Context, image []byte, hints []string) (string, error) {
	const op = "gemini.Recognize"
	if err := checkImage(op, image); err != nil {
		return "", err
	}

	model := g.client.GenerativeModel(g.model)
	temperature := float32(0)
	model.Temperature = &temperature

	resp, err := model.GenerateContent(ctx,
		genai.Text(fmt.Sprintf(transcriptionPrompt, hintList(hints))),
		genai.Blob{MIMEType: detectMIME(image), Data: image},
	)
	if err != nil {
		return "", WrapOCRError(op, err, "generate content")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", WrapOCRError(op, ErrNoText, "no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return nonEmpty(op, sb.String())
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

package ocr

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAI transcribes images through an OpenAI-compatible chat completion
// endpoint with image input.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI recognizer. baseURL overrides the API endpoint
// for compatible gateways.
func NewOpenAI(apiKey, baseURL, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, WrapOCRError("openai.New", ErrMissingCredentials, "OPENAI_API_KEY is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (o *OpenAI) Name() string { return EngineOpenAI }

func (o *OpenAI) Recognize(ctx context.Context, image []byte, hints []string) (string, error) {
	const op = "openai.Recognize"
	if err := checkImage(op, image); err != nil {
		return "", err
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", detectMIME(image), base64.StdEncoding.EncodeToString(image))
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: fmt.Sprintf(transcriptionPrompt, hintList(hints)),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", WrapOCRError(op, err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", WrapOCRError(op, ErrNoText, "no choices")
	}
	return nonEmpty(op, resp.Choices[0].Message.Content)
}

func (o *OpenAI) Close() error { return nil }

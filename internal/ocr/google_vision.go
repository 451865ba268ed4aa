package ocr

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// visionLanguages maps Tesseract language codes to the BCP-47 hints Vision expects.
var visionLanguages = map[string]string{
	"eng":     "en",
	"chi_sim": "zh",
	"chi_tra": "zh-Hant",
}

// GoogleVision recognizes text with Cloud Vision document text detection.
type GoogleVision struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVision creates a Vision client. credentialsJSON may be empty, in
// which case application default credentials are used.
func NewGoogleVision(ctx context.Context, credentialsJSON string) (*GoogleVision, error) {
	const op = "vision.New"

	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if credentialsJSON == "" {
			return nil, WrapOCRError(op, ErrMissingCredentials, err.Error())
		}
		return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
	}
	return &GoogleVision{client: client}, nil
}

func (g *GoogleVision) Name() string { return EngineVision }

func (g *GoogleVision) Recognize(ctx context.Context, image []byte, hints []string) (string, error) {
	const op = "vision.Recognize"
	if err := checkImage(op, image); err != nil {
		return "", err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{
					LanguageHints: toVisionLanguages(hints),
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", WrapOCRError(op, err, "Vision API call failed")
	}
	if len(resp.Responses) == 0 {
		return "", WrapOCRError(op, ErrNoText, "no response from Vision API")
	}

	annotated := resp.Responses[0]
	if annotated.Error != nil {
		return "", WrapOCRError(op, fmt.Errorf("%s", annotated.Error.Message), "Vision API error")
	}
	if annotated.FullTextAnnotation == nil {
		return "", WrapOCRError(op, ErrNoText, "")
	}
	return nonEmpty(op, annotated.FullTextAnnotation.Text)
}

func (g *GoogleVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func toVisionLanguages(hints []string) []string {
	if len(hints) == 0 {
		hints = DefaultLanguageHints
	}
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		if mapped, ok := visionLanguages[h]; ok {
			out = append(out, mapped)
			continue
		}
		out = append(out, h)
	}
	return out
}

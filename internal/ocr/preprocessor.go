package ocr

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Preprocessor enhances photos with ImageMagick before recognition. When
// ImageMagick is missing or fails, the original bytes are used unchanged.
type Preprocessor struct {
	binary string
	args   []string
	logger zerolog.Logger
}

// standardArgs: resize (if too large) -> grayscale -> contrast -> denoise -> sharpen
var standardArgs = []string{
	"-resize", "2000x2000>",
	"-colorspace", "Gray",
	"-normalize",
	"-contrast-stretch", "2%x1%",
	"-despeckle",
	"-sharpen", "0x1",
	"-unsharp", "0x0.5+0.5+0",
	"-quality", "95",
}

// fadedArgs suit thermal receipts with uneven lighting or faded print.
var fadedArgs = []string{
	"-resize", "2500x2500>",
	"-colorspace", "Gray",
	"-lat", "50x50+10%",
	"-contrast-stretch", "5%x2%",
	"-despeckle",
	"-despeckle",
	"-sharpen", "0x2",
	"-quality", "95",
}

// NewPreprocessor creates a preprocessor using the standard filter chain.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		binary: magickBinary(),
		args:   standardArgs,
		logger: log.Logger.With().Str("component", "preprocessor").Logger(),
	}
}

// NewFadedPreprocessor creates a preprocessor with aggressive thresholding for
// faded thermal paper.
func NewFadedPreprocessor() *Preprocessor {
	p := NewPreprocessor()
	p.args = fadedArgs
	return p
}

// Process returns the enhanced image, or the input when enhancement fails.
func (p *Preprocessor) Process(ctx context.Context, image []byte) []byte {
	if p.binary == "" || len(image) == 0 {
		return image
	}

	in, err := os.CreateTemp("", "ocr-in-*.img")
	if err != nil {
		return image
	}
	defer os.Remove(in.Name())

	out, err := os.CreateTemp("", "ocr-out-*.jpg")
	if err != nil {
		in.Close()
		return image
	}
	out.Close()
	defer os.Remove(out.Name())

	if _, err := in.Write(image); err != nil {
		in.Close()
		return image
	}
	in.Close()

	args := append([]string{in.Name()}, p.args...)
	args = append(args, out.Name())

	cmd := exec.CommandContext(ctx, p.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		p.logger.Warn().Err(err).Str("stderr", stderr.String()).Msg("ImageMagick failed, using original image")
		return image
	}

	processed, err := os.ReadFile(out.Name())
	if err != nil || len(processed) == 0 {
		return image
	}

	p.logger.Debug().Int("in_bytes", len(image)).Int("out_bytes", len(processed)).Msg("image enhanced")
	return processed
}

// magickBinary prefers ImageMagick 7 'magick' over the ImageMagick 6 'convert'.
func magickBinary() string {
	for _, name := range []string{"magick", "convert"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

type preprocessed struct {
	Engine
	pre *Preprocessor
}

// WithPreprocessor runs every image through pre before handing it to engine.
func WithPreprocessor(engine Engine, pre *Preprocessor) Engine {
	return &preprocessed{Engine: engine, pre: pre}
}

func (p *preprocessed) Recognize(ctx context.Context, image []byte, hints []string) (string, error) {
	return p.Engine.Recognize(ctx, p.pre.Process(ctx, image), hints)
}

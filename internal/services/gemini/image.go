package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const maxImageAttempts = 8

// Fixed prompt scaffolding applied to every image generation. The quality
// descriptors keep the look consistent across segments; the exclusion list
// suppresses the usual generation artifacts.
const (
	imageQualityDescriptors   = "cinematic lighting, high fidelity, distinct consistent artstyle, masterful composition, 8k resolution, highly detailed"
	imageExclusionConstraints = "Exclude: blurry, low quality, distorted, bad anatomy, ugly, disfigured, watermark, text, subtitles, ui, signature, jpeg artifacts, cartoon (unless specified), anime (unless specified), cgi (unless specified), inconsistent lighting, messy background."

	// Prepended whenever a reference image rides along so the model grounds
	// the scene in it instead of treating it as decoration.
	referenceIntegrationInstruction = "[IMPORTANT: Integrate the object from the provided image naturally into this scene, maintaining the scene's lighting and style]."
)

// errNoImageData marks a well-formed response that carried no image part.
// The model occasionally answers with prose instead of pixels; another
// attempt usually fixes it.
var errNoImageData = errors.New("gemini image: no image data found in response")

// ImageRequest describes a single still generation.
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Seed           int64
	References     []InlineImage
}

// GenerateImage produces one still image for a segment. Rate limits back off
// exponentially with jitter, hard 404s abort immediately, and every other
// failure waits a flat delay before the next attempt.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (InlineImage, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return InlineImage{}, errors.New("gemini image: prompt required")
	}

	parts := make([]part, 0, len(req.References)+1)
	for _, ref := range req.References {
		parts = append(parts, inlinePart(ref))
	}
	parts = append(parts, part{Text: buildImagePrompt(req)})

	seed := req.Seed
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
			Seed:               &seed,
		},
	}

	var lastErr error
	for attempt := 0; attempt < maxImageAttempts; attempt++ {
		resp, err := c.generateOnce(ctx, c.cfg.ImageModel, payload)
		if err == nil {
			if image, ok := c.firstImage(resp); ok {
				return image, nil
			}
			err = errNoImageData
		}

		switch Classify(err) {
		case KindCancelled:
			return InlineImage{}, err
		case KindFatal:
			return InlineImage{}, err
		}

		if attempt == maxImageAttempts-1 {
			return InlineImage{}, fmt.Errorf("gemini image: failed after %d attempts: %w", maxImageAttempts, err)
		}
		lastErr = err

		delay := imageRetryFlatDelay
		if IsRateLimit(err) {
			delay = rateLimitDelay(attempt, c.jitterPad())
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return InlineImage{}, sleepErr
		}
	}
	return InlineImage{}, fmt.Errorf("gemini image: failed after %d attempts: %w", maxImageAttempts, lastErr)
}

// buildImagePrompt assembles the final text part: optional reference
// integration instruction, the segment's visual prompt, the fixed quality
// descriptors, the aspect ratio token, the fixed exclusion list, and any
// per-style negative prompt. The image endpoint has no first-class fields
// for these, so everything travels in the prompt.
func buildImagePrompt(req ImageRequest) string {
	var b strings.Builder
	if len(req.References) > 0 {
		b.WriteString(referenceIntegrationInstruction)
		b.WriteString(" ")
	}
	b.WriteString(strings.TrimSpace(req.Prompt))
	b.WriteString(". ")
	b.WriteString(imageQualityDescriptors)
	if aspect := strings.TrimSpace(req.AspectRatio); aspect != "" {
		b.WriteString(". Aspect ratio ")
		b.WriteString(aspect)
	}
	b.WriteString(". ")
	b.WriteString(imageExclusionConstraints)
	if negative := strings.TrimSpace(req.NegativePrompt); negative != "" {
		b.WriteString(" Avoid: ")
		b.WriteString(negative)
		b.WriteString(".")
	}
	return b.String()
}

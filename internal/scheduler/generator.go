package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storycut/internal/services/gemini"
	"storycut/internal/storyboard"
)

// ImageClient is the slice of the Gemini client the generator needs.
type ImageClient interface {
	GenerateImage(ctx context.Context, req gemini.ImageRequest) (gemini.InlineImage, error)
}

// GeminiGenerator produces segment stills through the Gemini image model and
// persists them under the image directory.
type GeminiGenerator struct {
	client     ImageClient
	style      storyboard.Style
	aspect     storyboard.AspectRatio
	seed       int64
	references []storyboard.ReferenceAsset
	imageDir   string
}

// NewGeminiGenerator constructs a generator bound to one project's style,
// aspect ratio, seed, and sanitized reference assets.
func NewGeminiGenerator(client ImageClient, style storyboard.Style, aspect storyboard.AspectRatio, seed int64, references []storyboard.ReferenceAsset, imageDir string) *GeminiGenerator {
	return &GeminiGenerator{
		client:     client,
		style:      style,
		aspect:     aspect,
		seed:       seed,
		references: references,
		imageDir:   imageDir,
	}
}

// Generate implements Generator. The project style modifier is appended at
// generation time so the stored visual prompt stays clean for refinement.
func (g *GeminiGenerator) Generate(ctx context.Context, segment storyboard.Segment) (string, error) {
	prompt := strings.TrimSpace(segment.VisualPrompt)
	if prompt == "" {
		return "", fmt.Errorf("segment %s has no visual prompt", segment.ID)
	}
	if modifier := strings.TrimSpace(g.style.PromptModifier); modifier != "" {
		prompt = prompt + ", " + modifier
	}

	var refs []gemini.InlineImage
	if segment.HasReference() && segment.ReferenceIndex < len(g.references) {
		asset := g.references[segment.ReferenceIndex]
		refs = append(refs, gemini.InlineImage{MIMEType: asset.MIMEType, Data: asset.Data})
	}

	image, err := g.client.GenerateImage(ctx, gemini.ImageRequest{
		Prompt:         prompt,
		NegativePrompt: g.style.NegativePrompt,
		AspectRatio:    string(g.aspect),
		Seed:           g.seed,
		References:     refs,
	})
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.imageDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure image directory: %w", err)
	}
	path := filepath.Join(g.imageDir, segment.ID+extensionFor(image.MIMEType))
	if err := os.WriteFile(path, image.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

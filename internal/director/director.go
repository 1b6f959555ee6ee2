package director

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"storycut/internal/logging"
	"storycut/internal/services"
	"storycut/internal/services/gemini"
	"storycut/internal/storyboard"
	"storycut/internal/subtitles"
)

// Collaborator is the slice of the Gemini client the director needs.
type Collaborator interface {
	GenerateStoryboard(ctx context.Context, systemInstruction, userPrompt string) ([]gemini.StoryboardItem, error)
	DescribeReferences(ctx context.Context, instruction string, images []gemini.InlineImage) ([]string, error)
	RefinePrompt(ctx context.Context, systemInstruction, userPrompt string) (string, error)
}

// Director plans storyboards and refines segment prompts.
type Director struct {
	client Collaborator
	logger *slog.Logger
}

// New constructs a Director.
func New(client Collaborator, logger *slog.Logger) *Director {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Director{
		client: client,
		logger: logger.With(slog.String(logging.FieldComponent, "director")),
	}
}

// Plan asks the model for a storyboard and hydrates it into contiguous,
// timed segments ready to persist.
func (d *Director) Plan(ctx context.Context, cues []subtitles.Cue, style storyboard.Style, references []storyboard.ReferenceAsset) ([]storyboard.Segment, error) {
	if len(cues) == 0 {
		return nil, services.Wrap(services.ErrValidation, "director", "plan", "script has no usable cues", nil)
	}

	descriptions := make([]string, 0, len(references))
	for _, reference := range references {
		descriptions = append(descriptions, reference.Description)
	}

	userPrompt, err := planUserPrompt(cues, descriptions)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "director", "plan", "build prompt", err)
	}

	items, err := d.client.GenerateStoryboard(ctx, planSystemInstruction(style), userPrompt)
	if err != nil {
		return nil, fmt.Errorf("plan storyboard: %w", err)
	}

	hydrated := hydrate(items, cues, len(references), d.logger)
	if len(hydrated) == 0 {
		return nil, services.Wrap(services.ErrValidation, "director", "plan", "model plan matched no script cues", nil)
	}
	closeGaps(hydrated, subtitles.MaxEnd(cues), d.logger)
	segments := applyDurations(hydrated)

	d.logger.Info("storyboard planned",
		slog.Int("cues", len(cues)),
		slog.Int("segments", len(segments)),
		slog.String("style", style.ID))
	return segments, nil
}

// AnalyzeReferences describes the supplied reference images. A failed or
// short response degrades to positional placeholders so planning can proceed
// without the references rather than aborting.
func (d *Director) AnalyzeReferences(ctx context.Context, assets []storyboard.ReferenceAsset) []storyboard.ReferenceAsset {
	if len(assets) == 0 {
		return assets
	}

	images := make([]gemini.InlineImage, 0, len(assets))
	for _, asset := range assets {
		images = append(images, gemini.InlineImage{MIMEType: asset.MIMEType, Data: asset.Data})
	}

	descriptions, err := d.client.DescribeReferences(ctx, describeInstruction, images)
	if err != nil || len(descriptions) < len(assets) {
		if err != nil {
			d.logger.Warn("reference analysis failed, using placeholders", slog.Any("error", err))
		} else {
			d.logger.Warn("reference analysis incomplete, using placeholders",
				slog.Int("described", len(descriptions)),
				slog.Int("expected", len(assets)))
		}
		for i := range assets {
			assets[i].Description = fmt.Sprintf("Reference Image %d", i+1)
		}
		return assets
	}

	for i := range assets {
		description := strings.TrimSpace(descriptions[i])
		if description == "" {
			description = fmt.Sprintf("Reference Image %d", i+1)
		}
		assets[i].Description = description
	}
	return assets
}

// Refine rewrites one segment's visual prompt per the user's feedback.
func (d *Director) Refine(ctx context.Context, currentPrompt, feedback string) (string, error) {
	if strings.TrimSpace(currentPrompt) == "" {
		return "", services.Wrap(services.ErrValidation, "director", "refine", "segment has no prompt to refine", nil)
	}
	if strings.TrimSpace(feedback) == "" {
		return "", services.Wrap(services.ErrValidation, "director", "refine", "feedback required", nil)
	}

	refined, err := d.client.RefinePrompt(ctx, refineInstruction, refineUserPrompt(currentPrompt, feedback))
	if err != nil {
		return "", fmt.Errorf("refine prompt: %w", err)
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return "", errors.New("refine prompt: empty rewrite")
	}
	return refined, nil
}

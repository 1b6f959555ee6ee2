package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const maxStoryboardAttempts = 5

// StoryboardItem is the wire shape of one planned segment as the model emits
// it. Hydration into timed segments happens in the director; nothing here is
// trusted yet.
type StoryboardItem struct {
	SubtitleIDs    []string `json:"subtitle_ids"`
	VisualPrompt   string   `json:"visual_prompt"`
	CameraMovement string   `json:"camera_movement"`
	ViralReasoning string   `json:"viral_reasoning"`
	Tactic         string   `json:"tactic"`
	ReferenceIndex *int     `json:"reference_index"`
}

// GenerateStoryboard asks the text model to plan a storyboard for the
// supplied script payload. Only rate-limit failures are retried; anything
// else surfaces immediately so the caller can decide.
func (c *Client) GenerateStoryboard(ctx context.Context, systemInstruction, userPrompt string) ([]StoryboardItem, error) {
	systemInstruction = strings.TrimSpace(systemInstruction)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemInstruction == "" {
		return nil, errors.New("gemini storyboard: system instruction required")
	}
	if userPrompt == "" {
		return nil, errors.New("gemini storyboard: user prompt required")
	}

	payload := generateContentRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: &generationConfig{ResponseMIMEType: "application/json"},
	}

	var lastErr error
	for attempt := 0; attempt < maxStoryboardAttempts; attempt++ {
		resp, err := c.generateOnce(ctx, c.cfg.TextModel, payload)
		if err == nil {
			text := c.firstText(resp)
			if text == "" {
				return nil, errors.New("gemini storyboard: empty response")
			}
			var items []StoryboardItem
			if err := DecodeModelJSON(text, &items); err != nil {
				return nil, fmt.Errorf("gemini storyboard: parse payload: %w", err)
			}
			if len(items) == 0 {
				return nil, errors.New("gemini storyboard: model returned no segments")
			}
			return items, nil
		}

		if Classify(err) != KindTransient || attempt == maxStoryboardAttempts-1 {
			return nil, err
		}
		lastErr = err
		if sleepErr := c.sleep(ctx, rateLimitDelay(attempt, backoffPad)); sleepErr != nil {
			return nil, sleepErr
		}
	}
	return nil, fmt.Errorf("gemini storyboard: failed after %d attempts: %w", maxStoryboardAttempts, lastErr)
}

// RefinePrompt rewrites a single visual prompt according to the user's
// feedback and returns the replacement text.
func (c *Client) RefinePrompt(ctx context.Context, systemInstruction, userPrompt string) (string, error) {
	systemInstruction = strings.TrimSpace(systemInstruction)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemInstruction == "" {
		return "", errors.New("gemini refine: system instruction required")
	}
	if userPrompt == "" {
		return "", errors.New("gemini refine: user prompt required")
	}

	payload := generateContentRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
	}

	resp, err := c.generateOnce(ctx, c.cfg.TextModel, payload)
	if err != nil {
		return "", err
	}
	refined := c.firstText(resp)
	if refined == "" {
		return "", errors.New("gemini refine: empty response")
	}
	return refined, nil
}

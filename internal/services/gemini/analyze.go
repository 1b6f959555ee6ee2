package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DescribeReferences asks the text model to describe each supplied reference
// image so the storyboard planner can ground prompts in concrete entities.
// The response is expected to be a JSON array with one description per image.
func (c *Client) DescribeReferences(ctx context.Context, instruction string, images []InlineImage) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, errors.New("gemini analyze: instruction required")
	}

	parts := make([]part, 0, len(images)+1)
	for _, image := range images {
		parts = append(parts, inlinePart(image))
	}
	parts = append(parts, part{Text: instruction})

	payload := generateContentRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{ResponseMIMEType: "application/json"},
	}

	resp, err := c.generateOnce(ctx, c.cfg.TextModel, payload)
	if err != nil {
		return nil, err
	}
	text := c.firstText(resp)
	if text == "" {
		return nil, errors.New("gemini analyze: empty response")
	}

	var descriptions []string
	if err := DecodeModelJSON(text, &descriptions); err != nil {
		return nil, fmt.Errorf("gemini analyze: parse payload: %w", err)
	}
	return descriptions, nil
}

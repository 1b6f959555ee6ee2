package director

import (
	"encoding/json"
	"fmt"
	"strings"

	"storycut/internal/storyboard"
	"storycut/internal/subtitles"
)

const planInstructionHeader = `You are an expert short-video director. Group the numbered subtitle lines into visual segments and return a JSON array. Each element must have:
- "subtitle_ids": the ids of every subtitle line the segment covers, in order
- "visual_prompt": a rich, self-contained image prompt for the segment
- "camera_movement": one of "Zoom In", "Zoom Out", "Pan Right", "Pan Left", "Static"
- "viral_reasoning": one sentence on why this cut works
- "tactic": the technique applied, e.g. "Visual Hook (0-3s)"
- "reference_index": the zero-based index of the reference image the prompt builds on, or null

Cover every subtitle id exactly once. Never invent ids.

Consistency rules: recurring characters, places, and objects must be described identically in every prompt that shows them. If reference images are listed, prompts that depict those entities must set reference_index and restate the reference description verbatim.

Era rules: infer the time period and location from the script once, then keep clothing, architecture, and technology consistent with it in every prompt.`

const viralStrategy = `Strategy: maximize retention. Open with a visual hook inside the first 3 seconds, keep cuts fast (favor many short segments over few long ones), build toward a visual climax, and use contextual b-roll to cover abstract passages.`

const healingStrategy = `Strategy: slow, therapeutic pacing. Favor long, calm segments that breathe with the narration, gentle camera movement, and recurring natural imagery. No jump cuts, no urgency.`

const refineInstruction = `You rewrite a single image prompt for a video segment. Apply the user's feedback while preserving the subject, the established character and era consistency, and the original level of visual detail. Respond with the rewritten prompt only, no commentary.`

const describeInstruction = `Describe each attached image in one precise sentence focused on the specific entity it depicts (who or what, distinctive visual traits). Respond with a JSON array of strings, one per image, in order.`

// planSystemInstruction assembles the storyboard system prompt for a style.
func planSystemInstruction(style storyboard.Style) string {
	strategy := viralStrategy
	if style.Therapeutic() {
		strategy = healingStrategy
	}
	return planInstructionHeader + "\n\n" + strategy
}

type scriptLine struct {
	ID   string  `json:"id"`
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// planUserPrompt renders the script as compact id/time/text tuples plus any
// reference descriptions the prompts may build on.
func planUserPrompt(cues []subtitles.Cue, referenceDescriptions []string) (string, error) {
	lines := make([]scriptLine, 0, len(cues))
	for _, cue := range cues {
		lines = append(lines, scriptLine{ID: cue.ID, Time: cue.Start, Text: cue.Text})
	}
	encoded, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("encode script: %w", err)
	}

	var b strings.Builder
	b.WriteString("Script:\n")
	b.Write(encoded)
	if len(referenceDescriptions) > 0 {
		b.WriteString("\n\nReference images:\n")
		for i, description := range referenceDescriptions {
			fmt.Fprintf(&b, "%d. %s\n", i, description)
		}
	}
	return b.String(), nil
}

func refineUserPrompt(currentPrompt, feedback string) string {
	var b strings.Builder
	b.WriteString("Current prompt:\n")
	b.WriteString(strings.TrimSpace(currentPrompt))
	b.WriteString("\n\nFeedback:\n")
	b.WriteString(strings.TrimSpace(feedback))
	return b.String()
}

package subtitles

import (
	"fmt"
	"strings"

	"storycut/internal/services"
)

// ValidateRaw rejects inputs that cannot possibly be a subtitle file before
// the more expensive parse runs.
func ValidateRaw(raw string) error {
	if !strings.Contains(raw, "-->") {
		return services.Wrap(services.ErrValidation, "subtitles", "validate", "no subtitle timecodes found in file", nil)
	}
	return nil
}

// ValidateCues applies the preflight checks that must pass before any
// generation work starts: at least one cue parsed, and total script duration
// within the configured ceiling.
func ValidateCues(cues []Cue, maxScriptSeconds float64) error {
	if len(cues) == 0 {
		return services.Wrap(services.ErrValidation, "subtitles", "validate", "no parseable subtitle entries found", nil)
	}
	if maxScriptSeconds > 0 {
		if duration := MaxEnd(cues); duration > maxScriptSeconds {
			return services.Wrap(
				services.ErrValidation,
				"subtitles",
				"validate",
				fmt.Sprintf("script runs %.0fs, limit is %.0fs", duration, maxScriptSeconds),
				nil,
			)
		}
	}
	return nil
}

package director

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"storycut/internal/services/gemini"
	"storycut/internal/storyboard"
	"storycut/internal/subtitles"
)

// minSegmentSeconds is the floor for a hydrated segment duration. Zero-length
// segments would stall the render timeline.
const minSegmentSeconds = 0.1

// gapExtensionWarnSeconds flags gap closures large enough to suggest the
// model skipped script material.
const gapExtensionWarnSeconds = 10.0

type timedSegment struct {
	segment storyboard.Segment
	start   float64
	end     float64
}

// hydrate resolves planned items against the script cues. Items whose
// subtitle ids match nothing are dropped; out-of-range reference indexes are
// cleared rather than failing the whole plan.
func hydrate(items []gemini.StoryboardItem, cues []subtitles.Cue, referenceCount int, logger *slog.Logger) []timedSegment {
	cueByID := make(map[string]subtitles.Cue, len(cues))
	for _, cue := range cues {
		cueByID[cue.ID] = cue
	}

	hydrated := make([]timedSegment, 0, len(items))
	for i, item := range items {
		matched := make([]subtitles.Cue, 0, len(item.SubtitleIDs))
		for _, id := range item.SubtitleIDs {
			if cue, ok := cueByID[id]; ok {
				matched = append(matched, cue)
			}
		}
		if len(matched) == 0 {
			logger.Warn("dropping segment with no matching cues",
				slog.Int("item", i),
				slog.Any("subtitle_ids", item.SubtitleIDs))
			continue
		}
		sort.SliceStable(matched, func(a, b int) bool { return matched[a].Start < matched[b].Start })

		start := matched[0].Start
		end := matched[0].End
		text := matched[0].Text
		for _, cue := range matched[1:] {
			if cue.Start < start {
				start = cue.Start
			}
			if cue.End > end {
				end = cue.End
			}
			if cue.Text != "" {
				if text != "" {
					text += " "
				}
				text += cue.Text
			}
		}

		referenceIndex := storyboard.NoReference
		if item.ReferenceIndex != nil && *item.ReferenceIndex >= 0 && *item.ReferenceIndex < referenceCount {
			referenceIndex = *item.ReferenceIndex
		}

		hydrated = append(hydrated, timedSegment{
			segment: storyboard.Segment{
				ID:             uuid.NewString(),
				Text:           text,
				VisualPrompt:   item.VisualPrompt,
				CameraMovement: storyboard.ParseCameraMovement(item.CameraMovement),
				ViralReasoning: item.ViralReasoning,
				Tactic:         storyboard.Tactic(item.Tactic),
				Status:         storyboard.StatusIdle,
				ReferenceIndex: referenceIndex,
			},
			start: start,
			end:   end,
		})
	}

	sort.SliceStable(hydrated, func(a, b int) bool { return hydrated[a].start < hydrated[b].start })
	return hydrated
}

// closeGaps extends each segment's end to the next segment's start so the
// rendered timeline has no dead air. The last segment is stretched to the
// end of the script.
func closeGaps(segments []timedSegment, scriptEnd float64, logger *slog.Logger) {
	for i := range segments {
		target := scriptEnd
		if i < len(segments)-1 {
			target = segments[i+1].start
		}
		if target <= segments[i].end {
			continue
		}
		if extension := target - segments[i].end; extension > gapExtensionWarnSeconds {
			logger.Warn("closing large timeline gap",
				slog.Int("segment", i),
				slog.Float64("extension_seconds", extension))
		}
		segments[i].end = target
	}
}

// applyDurations walks the contiguous timeline and converts absolute end
// times into per-segment durations with the minimum floor applied.
func applyDurations(segments []timedSegment) []storyboard.Segment {
	out := make([]storyboard.Segment, 0, len(segments))
	cursor := 0.0
	for i := range segments {
		duration := segments[i].end - cursor
		if duration < minSegmentSeconds {
			duration = minSegmentSeconds
		}
		cursor = segments[i].end

		segment := segments[i].segment
		segment.Position = len(out)
		segment.DurationSeconds = duration
		out = append(out, segment)
	}
	return out
}

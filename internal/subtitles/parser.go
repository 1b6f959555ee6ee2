package subtitles

import (
	"sort"
	"strconv"
	"strings"
)

// Cue is a single timestamped subtitle entry.
type Cue struct {
	ID    string
	Start float64
	End   float64
	Text  string
}

const timecodeArrow = " --> "

// Parse converts raw SubRip text into an ordered list of cues.
//
// Blocks are separated by blank lines; each block needs an index line, a
// timecode line, and at least one text line. Blocks that do not parse are
// skipped silently so a single damaged entry never loses the rest of the
// script. The result is sorted by start time.
func Parse(raw string) []Cue {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var cues []Cue
	for _, block := range strings.Split(normalized, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}
		id := strings.TrimSpace(lines[0])
		if id == "" {
			continue
		}
		start, end, ok := parseTimecodeLine(lines[1])
		if !ok {
			continue
		}
		text := strings.TrimSpace(strings.Join(lines[2:], " "))
		cues = append(cues, Cue{ID: id, Start: start, End: end, Text: text})
	}

	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })
	return cues
}

// MaxEnd returns the largest cue end time, or zero for an empty list.
func MaxEnd(cues []Cue) float64 {
	var max float64
	for _, cue := range cues {
		if cue.End > max {
			max = cue.End
		}
	}
	return max
}

func parseTimecodeLine(line string) (float64, float64, bool) {
	parts := strings.Split(line, timecodeArrow)
	if len(parts) != 2 {
		return 0, 0, false
	}
	start, ok := parseTimecode(strings.TrimSpace(parts[0]))
	if !ok {
		return 0, 0, false
	}
	end, ok := parseTimecode(strings.TrimSpace(parts[1]))
	if !ok {
		return 0, 0, false
	}
	if end < start {
		return 0, 0, false
	}
	return start, end, true
}

// parseTimecode converts HH:MM:SS,mmm into seconds.
func parseTimecode(value string) (float64, bool) {
	fields := strings.Split(value, ":")
	if len(fields) < 3 {
		return 0, false
	}
	hours, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, false
	}
	secondsPart, millisPart, _ := strings.Cut(fields[2], ",")
	seconds, err := strconv.Atoi(secondsPart)
	if err != nil {
		return 0, false
	}
	millis := 0
	if millisPart != "" {
		millis, err = strconv.Atoi(millisPart)
		if err != nil {
			return 0, false
		}
	}
	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(millis)/1000, true
}

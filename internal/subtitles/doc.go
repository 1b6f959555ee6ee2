// Package subtitles parses SubRip-style subtitle text into timed cues.
//
// Parsing is pure and deterministic: the same input always yields the same
// cue sequence, and malformed blocks are skipped rather than failing the
// whole file. Validate applies the preflight checks the CLI runs before any
// storyboard or image work starts.
package subtitles
